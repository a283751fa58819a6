package models

// Project is a portfolio entry. Category is only populated on single-project lookups.
type Project struct {
	ID       string       `json:"id" yaml:"id"`
	Title    string       `json:"title" yaml:"title"`
	Blurb    string       `json:"blurb" yaml:"blurb"`
	Tech     []string     `json:"tech" yaml:"tech"`
	Links    ProjectLinks `json:"links" yaml:"links"`
	Category string       `json:"category,omitempty" yaml:"category"`
}

// ProjectLinks are optional external links for a project; empty strings mean "none".
type ProjectLinks struct {
	GitHub string `json:"github" yaml:"github"`
	Live   string `json:"live" yaml:"live"`
}

// Skills groups skill names by area.
type Skills struct {
	Frontend  []string `json:"frontend" yaml:"frontend"`
	Backend   []string `json:"backend" yaml:"backend"`
	Databases []string `json:"databases" yaml:"databases"`
	Tools     []string `json:"tools" yaml:"tools"`
}

// Repo is a trimmed GitHub repository as shown on the home page.
type Repo struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	Language    *string `json:"language"`
	Updated     string  `json:"updated"`
	Stars       int     `json:"stars"`
}

// ContactMessage is the body of POST /api/contact.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}
