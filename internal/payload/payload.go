package payload

import "strings"

// Verdict is the categorical recruiter outcome
type Verdict string

const (
	VerdictShortlist Verdict = "Shortlist"
	VerdictMaybe     Verdict = "Maybe"
	VerdictHardPass  Verdict = "Hard Pass"
)

// RoadmapLength is the fixed number of roadmap steps in a valid payload
const RoadmapLength = 5

// User is the resolved identity of the analysed profile
type User struct {
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Bio       string `json:"bio,omitempty"`
	Location  string `json:"location,omitempty"`
}

// Scores holds the headline composite and the axis scores, nominally in [0,100]
type Scores struct {
	TechnicalDepth  int `json:"technical_depth"`
	Consistency     int `json:"consistency"`
	Impact          int `json:"impact"`
	FirstImpression int `json:"first_impression"`
	RecruiterScore  int `json:"recruiter_score"`
	PortfolioScore  int `json:"portfolio_score"`
}

// Analysis is the qualitative part of the evaluation
type Analysis struct {
	Verdict         Verdict  `json:"verdict"`
	PersonalityType string   `json:"personality_type"`
	Strengths       []string `json:"strengths"`
	RedFlags        []string `json:"red_flags"`
	Roadmap         []string `json:"roadmap"`
}

// AnalysisPayload is the full result for one profile
type AnalysisPayload struct {
	User     User     `json:"user"`
	Scores   Scores   `json:"scores"`
	Analysis Analysis `json:"analysis"`
}

// MatchesIdentifier reports whether the payload belongs to the canonical
// identifier that was requested. Logins compare case-insensitively.
func (p *AnalysisPayload) MatchesIdentifier(identifier string) bool {
	if p == nil {
		return false
	}
	return strings.EqualFold(p.User.Login, identifier)
}
