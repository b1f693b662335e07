package analyzer

import (
	"context"
	"time"

	"github.com/ZanzyTHEbar/repolens/internal/adapters"
	"github.com/ZanzyTHEbar/repolens/internal/errors"
	"github.com/ZanzyTHEbar/repolens/internal/monitoring"
	"github.com/ZanzyTHEbar/repolens/internal/payload"
	"github.com/ZanzyTHEbar/repolens/internal/recruiter"
	"github.com/ZanzyTHEbar/repolens/internal/scoring"
)

const (
	readmeRepos   = 5
	missingReadme = "No README"
)

// Source is the GitHub data the analyzer needs
type Source interface {
	FetchProfile(ctx context.Context, username string) (*adapters.GitHubUser, error)
	FetchRepos(ctx context.Context, username string) ([]adapters.GitHubRepo, error)
	FetchEvents(ctx context.Context, username string) ([]adapters.GitHubEvent, error)
	FetchReadme(ctx context.Context, fullName string) (string, error)
}

// Service produces analysis payloads
type Service struct {
	source    Source
	recruiter *recruiter.Recruiter
	logger    *monitoring.Logger
	metrics   *monitoring.Metrics
}

// NewService creates an analysis service
func NewService(source Source, rec *recruiter.Recruiter, logger *monitoring.Logger, metrics *monitoring.Metrics) *Service {
	if logger == nil {
		logger = monitoring.NopLogger()
	}
	return &Service{source: source, recruiter: rec, logger: logger, metrics: metrics}
}

// Analyze builds the full payload for a canonical GitHub login
func (s *Service) Analyze(ctx context.Context, username string) (*payload.AnalysisPayload, error) {
	start := time.Now()

	user, err := s.source.FetchProfile(ctx, username)
	if err != nil {
		return nil, err
	}
	repos, err := s.source.FetchRepos(ctx, username)
	if err != nil {
		return nil, err
	}
	events, err := s.source.FetchEvents(ctx, username)
	if err != nil {
		return nil, err
	}

	readmes := s.readmes(ctx, repos)
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTimeoutError("analysis cancelled", err)
	}

	assessment := s.recruiter.Assess(ctx, recruiter.Profile{
		User:    user,
		Repos:   repos,
		Readmes: readmes,
	})

	result := &payload.AnalysisPayload{
		User: payload.User{
			Login:     user.Login,
			Name:      user.Name,
			AvatarURL: user.AvatarURL,
			Bio:       user.Bio,
			Location:  user.Location,
		},
		Scores:   scoring.Compute(user, repos, events, assessment.RecruiterScore),
		Analysis: assessment.Analysis,
	}

	s.metrics.IncAnalysis(string(result.Analysis.Verdict))
	s.logger.AnalysisLogger(result.User.Login, string(result.Analysis.Verdict), result.Scores.PortfolioScore, time.Since(start))

	return result, nil
}

// readmes fetches the README of the most recently updated repositories.
// A missing or unreadable README is recorded as missingReadme.
func (s *Service) readmes(ctx context.Context, repos []adapters.GitHubRepo) map[string]string {
	out := make(map[string]string, readmeRepos)
	for i, repo := range repos {
		if i == readmeRepos {
			break
		}
		text, err := s.source.FetchReadme(ctx, repo.FullName)
		if err != nil || text == "" {
			if err != nil {
				s.logger.Debug("README unavailable", "repo", repo.FullName, "error", err.Error())
			}
			text = missingReadme
		}
		out[repo.Name] = text
	}
	return out
}
