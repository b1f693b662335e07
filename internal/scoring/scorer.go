package scoring

import (
	"strings"

	"github.com/ZanzyTHEbar/repolens/internal/adapters"
	"github.com/ZanzyTHEbar/repolens/internal/payload"
)

var (
	// portfolio weights, summing to 1
	portfolioWeights = map[string]float64{
		"technical_depth":  0.20,
		"consistency":      0.15,
		"impact":           0.20,
		"first_impression": 0.20,
		"recruiter":        0.25,
	}

	impactKeywords = []string{"api", "deployment", "production", "scalable", "ux", "database", "cloud", "optimized"}
)

const (
	maxScore = 100

	largeFootprintKB  = 10000
	mediumFootprintKB = 1000

	keywordRepoWindow     = 10
	descriptionRepoWindow = 5
)

func capAt(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}

// TechnicalDepth rewards language diversity, repository volume and total size
func TechnicalDepth(repos []adapters.GitHubRepo) int {
	if len(repos) == 0 {
		return 0
	}

	languages := make(map[string]struct{})
	totalSize := 0
	for _, repo := range repos {
		if repo.Language != "" {
			languages[repo.Language] = struct{}{}
		}
		totalSize += repo.Size
	}

	score := capAt(len(languages)*10, 40)
	score += capAt(len(repos)*2, 40)

	// sizes are in KB
	switch {
	case totalSize > largeFootprintKB:
		score += 20
	case totalSize > mediumFootprintKB:
		score += 10
	}

	return capAt(score, maxScore)
}

// Consistency counts recent public events
func Consistency(events []adapters.GitHubEvent) int {
	return capAt(len(events)*2, maxScore)
}

// Impact rewards stars, forks and impact keywords in recent descriptions
func Impact(repos []adapters.GitHubRepo) int {
	if len(repos) == 0 {
		return 0
	}

	stars, forks := 0, 0
	for _, repo := range repos {
		stars += repo.StargazersCount
		forks += repo.ForksCount
	}

	score := capAt(stars*4, 40)
	score += capAt(forks*8, 20)

	signal := 0
	for _, repo := range head(repos, keywordRepoWindow) {
		if hasImpactKeyword(repo.Description) {
			signal += 4
		}
	}
	score += capAt(signal, 40)

	return capAt(score, maxScore)
}

func hasImpactKeyword(description string) bool {
	desc := strings.ToLower(description)
	for _, kw := range impactKeywords {
		if strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}

// FirstImpression rewards a filled-in profile and described top repositories
func FirstImpression(user *adapters.GitHubUser, repos []adapters.GitHubRepo) int {
	score := 0.0

	if user.Bio != "" {
		score += 20
	}
	if user.AvatarURL != "" && user.Name != "" {
		score += 20
	}

	described := 0
	for _, repo := range head(repos, descriptionRepoWindow) {
		if repo.Description != "" {
			described++
		}
	}
	score += float64(described) / descriptionRepoWindow * 30

	for _, field := range []string{user.Location, user.Company, user.Blog} {
		if field != "" {
			score += 10
		}
	}

	if score > maxScore {
		score = maxScore
	}
	return int(score)
}

// Portfolio is the weighted aggregate of the sub-scores, truncated
func Portfolio(s payload.Scores) int {
	aggregate := portfolioWeights["technical_depth"]*float64(s.TechnicalDepth) +
		portfolioWeights["consistency"]*float64(s.Consistency) +
		portfolioWeights["impact"]*float64(s.Impact) +
		portfolioWeights["first_impression"]*float64(s.FirstImpression) +
		portfolioWeights["recruiter"]*float64(s.RecruiterScore)
	return int(aggregate)
}

// Compute derives every score from the GitHub data and the recruiter score
func Compute(user *adapters.GitHubUser, repos []adapters.GitHubRepo, events []adapters.GitHubEvent, recruiterScore int) payload.Scores {
	scores := payload.Scores{
		TechnicalDepth:  TechnicalDepth(repos),
		Consistency:     Consistency(events),
		Impact:          Impact(repos),
		FirstImpression: FirstImpression(user, repos),
		RecruiterScore:  recruiterScore,
	}
	scores.PortfolioScore = Portfolio(scores)
	return scores
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
