package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ZanzyTHEbar/repolens/internal/adapters"
	"github.com/ZanzyTHEbar/repolens/internal/payload"
)

func repos(n int, fn func(i int, r *adapters.GitHubRepo)) []adapters.GitHubRepo {
	out := make([]adapters.GitHubRepo, n)
	for i := range out {
		out[i].Name = "repo"
		if fn != nil {
			fn(i, &out[i])
		}
	}
	return out
}

func TestTechnicalDepth(t *testing.T) {
	langs := []string{"Go", "Python", "Rust", "TypeScript", "C"}

	tests := []struct {
		name     string
		repos    []adapters.GitHubRepo
		expected int
	}{
		{"no repos", nil, 0},
		{"one small repo", repos(1, func(i int, r *adapters.GitHubRepo) { r.Language = "Go"; r.Size = 10 }), 12},
		{"medium footprint", repos(3, func(i int, r *adapters.GitHubRepo) { r.Language = langs[i]; r.Size = 500 }), 30 + 6 + 10},
		{"large footprint", repos(2, func(i int, r *adapters.GitHubRepo) { r.Size = 6000 }), 4 + 20},
		{"everything capped", repos(30, func(i int, r *adapters.GitHubRepo) { r.Language = langs[i%5]; r.Size = 1000 }), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TechnicalDepth(tt.repos))
		})
	}
}

func TestConsistency(t *testing.T) {
	assert.Equal(t, 0, Consistency(nil))
	assert.Equal(t, 14, Consistency(make([]adapters.GitHubEvent, 7)))
	assert.Equal(t, 100, Consistency(make([]adapters.GitHubEvent, 300)))
}

func TestImpact(t *testing.T) {
	tests := []struct {
		name     string
		repos    []adapters.GitHubRepo
		expected int
	}{
		{"no repos", nil, 0},
		{"stars and forks", repos(2, func(i int, r *adapters.GitHubRepo) { r.StargazersCount = 2; r.ForksCount = 1 }), 16 + 16},
		{"stars capped", repos(1, func(i int, r *adapters.GitHubRepo) { r.StargazersCount = 1000 }), 40},
		{"keywords case insensitive", repos(3, func(i int, r *adapters.GitHubRepo) { r.Description = "A Scalable REST API" }), 12},
		{"keywords only count first ten", repos(15, func(i int, r *adapters.GitHubRepo) { r.Description = "production ready" }), 40},
		{"all capped", repos(20, func(i int, r *adapters.GitHubRepo) {
			r.StargazersCount = 10
			r.ForksCount = 10
			r.Description = "cloud database"
		}), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Impact(tt.repos))
		})
	}
}

func TestFirstImpression(t *testing.T) {
	full := &adapters.GitHubUser{
		Bio: "Builder", AvatarURL: "https://a.example/x.png", Name: "Octo",
		Location: "SF", Company: "GitHub", Blog: "https://github.blog",
	}
	described := repos(5, func(i int, r *adapters.GitHubRepo) { r.Description = "d" })

	assert.Equal(t, 100, FirstImpression(full, described))
	assert.Equal(t, 0, FirstImpression(&adapters.GitHubUser{}, nil))

	// avatar alone does not count, 2 of 5 described is 12 points
	partial := &adapters.GitHubUser{AvatarURL: "https://a.example/x.png", Location: "SF"}
	twoOfFive := repos(5, func(i int, r *adapters.GitHubRepo) {
		if i < 2 {
			r.Description = "d"
		}
	})
	assert.Equal(t, 22, FirstImpression(partial, twoOfFive))

	// 1 of 5 described is 6 points, repos beyond the fifth are ignored
	oneOfFive := repos(8, func(i int, r *adapters.GitHubRepo) {
		if i == 0 || i > 4 {
			r.Description = strings.Repeat("d", i+1)
		}
	})
	assert.Equal(t, 6, FirstImpression(&adapters.GitHubUser{}, oneOfFive))
}

func TestPortfolioTruncates(t *testing.T) {
	s := payload.Scores{TechnicalDepth: 71, Consistency: 40, Impact: 88, FirstImpression: 60, RecruiterScore: 90}
	// 14.2 + 6 + 17.6 + 12 + 22.5 = 72.3
	assert.Equal(t, 72, Portfolio(s))

	assert.Equal(t, 0, Portfolio(payload.Scores{}))
	assert.Equal(t, 25, Portfolio(payload.Scores{RecruiterScore: 100}))
}

func TestCompute(t *testing.T) {
	user := &adapters.GitHubUser{Bio: "b"}
	rs := repos(1, func(i int, r *adapters.GitHubRepo) { r.Language = "Go" })

	scores := Compute(user, rs, make([]adapters.GitHubEvent, 5), 50)

	assert.Equal(t, 12, scores.TechnicalDepth)
	assert.Equal(t, 10, scores.Consistency)
	assert.Equal(t, 0, scores.Impact)
	assert.Equal(t, 20, scores.FirstImpression)
	assert.Equal(t, 50, scores.RecruiterScore)
	assert.Equal(t, Portfolio(scores), scores.PortfolioScore)
}
