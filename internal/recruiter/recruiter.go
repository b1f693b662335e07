package recruiter

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/repolens/internal/errors"
	"github.com/ZanzyTHEbar/repolens/internal/monitoring"
	"github.com/ZanzyTHEbar/repolens/internal/payload"
)

const (
	fallbackPersonality = "The Enigma"
	fallbackScore       = 50
)

// filler steps used when the model returns fewer than five
var genericRoadmap = []string{
	"Pin your three strongest repositories and give each a one-line description",
	"Write READMEs that show what the project does, how to run it and a screenshot",
	"Add tests and a CI badge to your flagship project",
	"Ship a live demo or deployment link for at least one project",
	"Contribute a pull request to an open-source project you use",
}

// Assessment is the recruiter's qualitative review
type Assessment struct {
	Analysis       payload.Analysis
	RecruiterScore int
}

// Recruiter produces an Assessment, falling back to a neutral one when no
// generator is configured or the model fails.
type Recruiter struct {
	generator Generator
	logger    *monitoring.Logger
	metrics   *monitoring.Metrics
}

// New creates a recruiter. generator may be nil.
func New(generator Generator, logger *monitoring.Logger, metrics *monitoring.Metrics) *Recruiter {
	if logger == nil {
		logger = monitoring.NopLogger()
	}
	return &Recruiter{generator: generator, logger: logger, metrics: metrics}
}

// Assess reviews p. It never fails.
func (r *Recruiter) Assess(ctx context.Context, p Profile) Assessment {
	if r.generator == nil {
		return Fallback(errors.NewConfigurationError("no LLM provider configured", nil))
	}

	prompt, err := BuildPrompt(p)
	if err != nil {
		return Fallback(errors.NewInternalError("failed to build prompt", err))
	}

	start := time.Now()
	text, err := r.generator.Generate(ctx, prompt)
	duration := time.Since(start)

	if err == nil {
		var assessment Assessment
		assessment, err = Parse(text)
		if err == nil {
			r.record(true, duration)
			return assessment
		}
	}

	r.record(false, duration)
	r.logger.Warn("Recruiter assessment failed, using fallback",
		"provider", r.generator.Name(),
		"error", err.Error(),
	)
	return Fallback(err)
}

func (r *Recruiter) record(success bool, duration time.Duration) {
	r.metrics.RecordLLMCall(r.generator.Name(), success)
	r.logger.ExternalAPILogger(r.generator.Name(), "POST", "generate", 0, duration, success)
}

type rawAssessment struct {
	Verdict         string          `json:"verdict"`
	PersonalityType string          `json:"personality_type"`
	Strengths       []string        `json:"strengths"`
	RedFlags        []string        `json:"red_flags"`
	RecruiterScore  json.RawMessage `json:"recruiter_score"`
	Roadmap         []string        `json:"roadmap"`
}

// Parse reads the model's JSON answer, tolerating code fences
func Parse(text string) (Assessment, error) {
	cleaned := stripFences(text)

	var raw rawAssessment
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return Assessment{}, errors.NewExternalAPIError("LLM", fmt.Errorf("answer is not a JSON object: %w", err))
	}

	score, err := parseScore(raw.RecruiterScore)
	if err != nil {
		return Assessment{}, errors.NewExternalAPIError("LLM", err)
	}

	personality := strings.TrimSpace(raw.PersonalityType)
	if personality == "" {
		personality = fallbackPersonality
	}

	return Assessment{
		Analysis: payload.Analysis{
			Verdict:         NormalizeVerdict(raw.Verdict),
			PersonalityType: personality,
			Strengths:       compact(raw.Strengths),
			RedFlags:        compact(raw.RedFlags),
			Roadmap:         NormalizeRoadmap(raw.Roadmap),
		},
		RecruiterScore: score,
	}, nil
}

// Fallback is the neutral assessment used when the model cannot be consulted
func Fallback(cause error) Assessment {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}

	return Assessment{
		Analysis: payload.Analysis{
			Verdict:         payload.VerdictMaybe,
			PersonalityType: fallbackPersonality,
			Strengths:       []string{"Data fetching worked"},
			RedFlags:        []string{"AI analysis failed: " + reason},
			Roadmap:         NormalizeRoadmap(nil),
		},
		RecruiterScore: fallbackScore,
	}
}

// NormalizeVerdict maps free-form model output onto the three verdicts.
// Anything unrecognised becomes Maybe.
func NormalizeVerdict(v string) payload.Verdict {
	key := strings.ToLower(strings.TrimSpace(v))
	key = strings.NewReplacer("-", " ", "_", " ").Replace(key)
	key = strings.Join(strings.Fields(key), " ")

	switch key {
	case "shortlist", "short list", "shortlisted":
		return payload.VerdictShortlist
	case "hard pass", "hardpass", "pass", "reject":
		return payload.VerdictHardPass
	default:
		return payload.VerdictMaybe
	}
}

// NormalizeRoadmap returns exactly five non-empty steps
func NormalizeRoadmap(steps []string) []string {
	out := compact(steps)
	if len(out) > payload.RoadmapLength {
		out = out[:payload.RoadmapLength]
	}
	for i := 0; len(out) < payload.RoadmapLength; i++ {
		out = append(out, genericRoadmap[i])
	}
	return out
}

func parseScore(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return fallbackScore, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("recruiter_score is not a number: %s", raw)
		}
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &f); err != nil {
			return 0, fmt.Errorf("recruiter_score is not a number: %q", s)
		}
	}

	switch {
	case math.IsNaN(f) || f < 0:
		return 0, nil
	case f > 100:
		return 100, nil
	default:
		return int(math.Round(f)), nil
	}
}

func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// compact drops blank entries and never returns nil
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
