package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/repolens/internal/errors"
	"github.com/ZanzyTHEbar/repolens/internal/monitoring"
	"github.com/ZanzyTHEbar/repolens/internal/resilience"
)

// DefaultGitHubAPIURL is the public GitHub REST endpoint
const DefaultGitHubAPIURL = "https://api.github.com"

// reposPerPage matches the number of recently updated repos the analysis reads
const reposPerPage = 30

const maxReadmeBytes = 256 << 10

// GitHubUser represents GitHub user data
type GitHubUser struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url"`
	Bio         string `json:"bio"`
	Location    string `json:"location"`
	Company     string `json:"company"`
	Blog        string `json:"blog"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
}

// GitHubRepo represents GitHub repository data
type GitHubRepo struct {
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	Description     string `json:"description"`
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	Size            int    `json:"size"`
	Fork            bool   `json:"fork"`
	UpdatedAt       string `json:"updated_at"`
}

// GitHubEvent represents one public event of a user
type GitHubEvent struct {
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
	Repo      struct {
		Name string `json:"name"`
	} `json:"repo"`
}

// GitHubAdapter fetches data from the GitHub REST API
type GitHubAdapter struct {
	baseURL string
	token   string
	pool    *resilience.ConnectionPool
	logger  *monitoring.Logger
	metrics *monitoring.Metrics
}

// NewGitHubAdapter creates a new GitHub adapter with connection pooling.
// An empty baseURL selects the public API.
func NewGitHubAdapter(baseURL, token string, logger *monitoring.Logger, metrics *monitoring.Metrics) *GitHubAdapter {
	if baseURL == "" {
		baseURL = DefaultGitHubAPIURL
	}
	if logger == nil {
		logger = monitoring.NopLogger()
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 1,
	})
	pool := resilience.NewConnectionPool(resilience.PoolConfig{
		MaxIdle:        10,
		MaxActive:      20,
		IdleTimeout:    30 * time.Second,
		RequestTimeout: 20 * time.Second,
	}, cb)

	return &GitHubAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		pool:    pool,
		logger:  logger,
		metrics: metrics,
	}
}

// FetchProfile fetches a user's public profile
func (g *GitHubAdapter) FetchProfile(ctx context.Context, username string) (*GitHubUser, error) {
	var user GitHubUser
	endpoint := fmt.Sprintf("%s/users/%s", g.baseURL, url.PathEscape(username))
	if err := g.getJSON(ctx, "profile", endpoint, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FetchRepos fetches the user's most recently updated repositories
func (g *GitHubAdapter) FetchRepos(ctx context.Context, username string) ([]GitHubRepo, error) {
	var repos []GitHubRepo
	endpoint := fmt.Sprintf("%s/users/%s/repos?sort=updated&per_page=%d", g.baseURL, url.PathEscape(username), reposPerPage)
	if err := g.getJSON(ctx, "repos", endpoint, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// FetchEvents fetches the user's recent public events
func (g *GitHubAdapter) FetchEvents(ctx context.Context, username string) ([]GitHubEvent, error) {
	var events []GitHubEvent
	endpoint := fmt.Sprintf("%s/users/%s/events", g.baseURL, url.PathEscape(username))
	if err := g.getJSON(ctx, "events", endpoint, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// FetchReadme returns the raw README of owner/repo
func (g *GitHubAdapter) FetchReadme(ctx context.Context, fullName string) (string, error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" {
		return "", errors.NewValidationError(fmt.Sprintf("invalid repository name %q", fullName))
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/readme", g.baseURL, url.PathEscape(owner), url.PathEscape(repo))
	resp, err := g.do(ctx, "readme", endpoint, "application/vnd.github.raw+json")
	if err != nil {
		return "", err
	}
	defer errors.SafeClose(resp.Body, "github readme body")

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadmeBytes))
	if err != nil {
		return "", errors.NewExternalAPIError("GitHub", err)
	}
	return string(body), nil
}

func (g *GitHubAdapter) getJSON(ctx context.Context, name, endpoint string, out any) error {
	resp, err := g.do(ctx, name, endpoint, "application/vnd.github+json")
	if err != nil {
		return err
	}
	defer errors.SafeClose(resp.Body, "github response body")

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewExternalAPIError("GitHub", fmt.Errorf("failed to decode %s: %w", name, err))
	}
	return nil
}

// do sends a GET and converts every non-200 answer into an AppError
func (g *GitHubAdapter) do(ctx context.Context, name, endpoint, accept string) (*http.Response, error) {
	headers := map[string]string{
		"Accept":               accept,
		"User-Agent":           "RepoLens/1.0",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if g.token != "" {
		headers["Authorization"] = "Bearer " + g.token
	}

	start := time.Now()
	resp, err := g.pool.DoRequest(ctx, http.MethodGet, endpoint, headers)
	duration := time.Since(start)
	if err != nil {
		g.record(name, endpoint, 0, duration, false)
		appErr := errors.ToAppError(err)
		if appErr.Category == errors.CategoryInternal {
			return nil, errors.NewExternalAPIError("GitHub", err)
		}
		return nil, appErr
	}

	g.record(name, endpoint, resp.StatusCode, duration, resp.StatusCode == http.StatusOK)
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer errors.SafeClose(resp.Body, "github error body")

	switch resp.StatusCode {
	case http.StatusNotFound:
		if name == "readme" {
			return nil, errors.NewNotFoundError("README not found")
		}
		return nil, errors.NewNotFoundError("GitHub user not found")
	case http.StatusForbidden, http.StatusTooManyRequests:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.StatusCode == http.StatusTooManyRequests {
			return nil, errors.NewExternalAPIError("GitHub", fmt.Errorf("status %d", resp.StatusCode)).
				WithDisplay("GitHub API rate limit exceeded, try again later")
		}
	}

	return nil, errors.NewExternalAPIError("GitHub", fmt.Errorf("%s: status %d", name, resp.StatusCode))
}

func (g *GitHubAdapter) record(name, endpoint string, status int, duration time.Duration, success bool) {
	g.metrics.RecordGitHubCall(name, success)
	g.logger.ExternalAPILogger("github", http.MethodGet, endpoint, status, duration, success)
}

// PoolStats returns connection pool statistics
func (g *GitHubAdapter) PoolStats() resilience.PoolStats {
	return g.pool.Stats()
}

// Close closes the connection pool
func (g *GitHubAdapter) Close() error {
	return g.pool.Close()
}
