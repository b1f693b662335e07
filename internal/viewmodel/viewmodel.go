package viewmodel

import (
	"github.com/ZanzyTHEbar/repolens/internal/payload"
)

// MaxScore is the upper bound of every score axis
const MaxScore = 100

// Tone is the display color bucket of a verdict
type Tone string

const (
	TonePositive   Tone = "positive"
	ToneCautionary Tone = "cautionary"
	ToneNegative   Tone = "negative"
)

// Class returns the CSS class used for the tone
func (t Tone) Class() string {
	return "verdict-" + string(t)
}

// ClassifyVerdict maps a verdict onto its display tone. Anything that is not
// Shortlist or Maybe, recognised or not, is negative.
func ClassifyVerdict(v payload.Verdict) Tone {
	switch v {
	case payload.VerdictShortlist:
		return TonePositive
	case payload.VerdictMaybe:
		return ToneCautionary
	case payload.VerdictHardPass:
		return ToneNegative
	default:
		return ToneNegative
	}
}

// Clamp bounds a score to [0, MaxScore]
func Clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > MaxScore:
		return MaxScore
	default:
		return score
	}
}

// RadarPoint is one axis of the competency map
type RadarPoint struct {
	Label string `json:"label"`
	Value int    `json:"value"`
	Max   int    `json:"max"`
}

// Bar is one row of the detailed breakdown
type Bar struct {
	Label string `json:"label"`
	Value int    `json:"value"`
	Class string `json:"class"`
}

// RoadmapStep is a roadmap entry with its presentation ordinal
type RoadmapStep struct {
	Ordinal int    `json:"ordinal"`
	Text    string `json:"text"`
}

// ViewModel is the complete, render-ready results view
type ViewModel struct {
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Bio       string `json:"bio,omitempty"`
	Location  string `json:"location,omitempty"`

	Headline      int            `json:"headline"`
	DisplayScores payload.Scores `json:"display_scores"`

	Verdict           string `json:"verdict"`
	VerdictTone       Tone   `json:"verdict_tone"`
	VerdictColorClass string `json:"verdict_color_class"`
	PersonalityType   string `json:"personality_type"`

	RadarSeries []RadarPoint `json:"radar_series"`
	Chart       RadarChart   `json:"chart"`
	Bars        []Bar        `json:"bars"`

	Strengths []string      `json:"strengths"`
	RedFlags  []string      `json:"red_flags"`
	Roadmap   []RoadmapStep `json:"roadmap"`
}

// Build derives the view model from p
func Build(p *payload.AnalysisPayload) ViewModel {
	scores := clampScores(p.Scores)
	tone := ClassifyVerdict(p.Analysis.Verdict)
	series := radarSeries(scores)

	return ViewModel{
		Login:     p.User.Login,
		Name:      p.User.Name,
		AvatarURL: p.User.AvatarURL,
		Bio:       p.User.Bio,
		Location:  p.User.Location,

		Headline:      scores.PortfolioScore,
		DisplayScores: scores,

		Verdict:           string(p.Analysis.Verdict),
		VerdictTone:       tone,
		VerdictColorClass: tone.Class(),
		PersonalityType:   p.Analysis.PersonalityType,

		RadarSeries: series,
		Chart:       NewRadarChart(series),
		Bars: []Bar{
			{Label: "Technical Depth", Value: scores.TechnicalDepth, Class: "bar-blue"},
			{Label: "Consistency", Value: scores.Consistency, Class: "bar-pink"},
			{Label: "Impact", Value: scores.Impact, Class: "bar-green"},
			{Label: "First Impression", Value: scores.FirstImpression, Class: "bar-orange"},
		},

		Strengths: p.Analysis.Strengths,
		RedFlags:  p.Analysis.RedFlags,
		Roadmap:   numbered(p.Analysis.Roadmap),
	}
}

func clampScores(s payload.Scores) payload.Scores {
	return payload.Scores{
		TechnicalDepth:  Clamp(s.TechnicalDepth),
		Consistency:     Clamp(s.Consistency),
		Impact:          Clamp(s.Impact),
		FirstImpression: Clamp(s.FirstImpression),
		RecruiterScore:  Clamp(s.RecruiterScore),
		PortfolioScore:  Clamp(s.PortfolioScore),
	}
}

// radarSeries keeps the axis order fixed: Tech Depth, Consistency, Impact,
// Impression, Recruiter.
func radarSeries(s payload.Scores) []RadarPoint {
	return []RadarPoint{
		{Label: "Tech Depth", Value: s.TechnicalDepth, Max: MaxScore},
		{Label: "Consistency", Value: s.Consistency, Max: MaxScore},
		{Label: "Impact", Value: s.Impact, Max: MaxScore},
		{Label: "Impression", Value: s.FirstImpression, Max: MaxScore},
		{Label: "Recruiter", Value: s.RecruiterScore, Max: MaxScore},
	}
}

func numbered(steps []string) []RoadmapStep {
	out := make([]RoadmapStep, len(steps))
	for i, step := range steps {
		out[i] = RoadmapStep{Ordinal: i + 1, Text: step}
	}
	return out
}
