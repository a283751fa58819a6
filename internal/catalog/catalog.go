// Package catalog holds the portfolio's projects and skills.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/portfolio-service/internal/models"
)

// ErrProjectNotFound is returned by Project for an unknown id.
var ErrProjectNotFound = errors.New("project not found")

// Catalog is a read-only set of projects and skills. It is safe for concurrent use.
type Catalog struct {
	projects []models.Project
	skills   models.Skills
}

// New returns a catalog over the given data. Project ids must be unique.
func New(projects []models.Project, skills models.Skills) (*Catalog, error) {
	seen := make(map[string]bool, len(projects))
	for _, p := range projects {
		if p.ID == "" {
			return nil, fmt.Errorf("project %q has no id", p.Title)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate project id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return &Catalog{projects: projects, skills: skills}, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{projects: defaultProjects, skills: defaultSkills}
}

type fileFormat struct {
	Projects []models.Project `yaml:"projects"`
	Skills   models.Skills    `yaml:"skills"`
}

// LoadFile reads a YAML catalog with top-level projects and skills keys.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Projects, f.Skills)
}

// Projects returns all projects in display order, without inferred categories.
func (c *Catalog) Projects() []models.Project {
	out := make([]models.Project, len(c.projects))
	copy(out, c.projects)
	return out
}

// Project returns one project with Category filled in, inferring it from the
// tech list when the catalog does not set one.
func (c *Catalog) Project(id string) (models.Project, error) {
	for _, p := range c.projects {
		if p.ID == id {
			if p.Category == "" {
				p.Category = InferCategory(p.Tech)
			}
			return p, nil
		}
	}
	return models.Project{}, ErrProjectNotFound
}

// Skills returns the skill groups.
func (c *Catalog) Skills() models.Skills {
	return c.skills
}

// Rules are checked in order; the first group with a keyword contained in any
// tech entry wins.
var categoryRules = []struct {
	category string
	keywords []string
}{
	{"ios", []string{"swift", "uikit", "coreml", "arkit"}},
	{"java", []string{"jakarta", "java", "tomcat", "jstl", "spring"}},
	{"python", []string{"python", "flask", "django", "tkinter"}},
	{"web", []string{"php", "javascript", "html", "css", "mysql", "tailwind", "bootstrap", "react", "node"}},
}

// InferCategory classifies a project by its tech list. Anything unmatched is "web".
func InferCategory(tech []string) string {
	lower := make([]string, len(tech))
	for i, t := range tech {
		lower[i] = strings.ToLower(t)
	}
	for _, rule := range categoryRules {
		for _, t := range lower {
			for _, k := range rule.keywords {
				if strings.Contains(t, k) {
					return rule.category
				}
			}
		}
	}
	return "web"
}
