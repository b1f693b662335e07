package recruiter

import (
	_ "embed"
	"strings"
	"text/template"

	"github.com/ZanzyTHEbar/repolens/internal/adapters"
)

const (
	promptProjects     = 5
	readmeSnippetRunes = 500
	missingReadme      = "No README"
)

//go:embed prompt.tmpl
var promptText string

var promptTemplate = template.Must(template.New("prompt").Parse(promptText))

// Profile is the GitHub data the recruiter reviews
type Profile struct {
	User    *adapters.GitHubUser
	Repos   []adapters.GitHubRepo
	Readmes map[string]string // by repo name
}

type promptProject struct {
	Name        string
	Description string
	Readme      string
}

// BuildPrompt renders the review prompt for p
func BuildPrompt(p Profile) (string, error) {
	data := struct {
		User     *adapters.GitHubUser
		Projects []promptProject
	}{User: p.User}

	if data.User == nil {
		data.User = &adapters.GitHubUser{}
	}

	for i, repo := range p.Repos {
		if i == promptProjects {
			break
		}
		readme, ok := p.Readmes[repo.Name]
		if !ok || strings.TrimSpace(readme) == "" {
			readme = missingReadme
		}
		data.Projects = append(data.Projects, promptProject{
			Name:        repo.Name,
			Description: repo.Description,
			Readme:      truncateRunes(readme, readmeSnippetRunes),
		})
	}

	var sb strings.Builder
	if err := promptTemplate.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
