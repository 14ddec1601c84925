// Package skill loads council skills from a directory tree with
// progressive disclosure: frontmatter metadata first, the full SKILL.md
// body second, and referenced resource files only on demand. Each level
// costs more tokens than the one before it.
package skill

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound indicates the named skill or resource does not exist.
var ErrNotFound = errors.New("skill not found")

// ErrParse indicates SKILL.md content that cannot be parsed.
var ErrParse = errors.New("invalid skill")

// Metadata is the level-1 view of a skill: just the YAML frontmatter,
// enough to decide whether the skill is relevant.
type Metadata struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	License       string   `json:"license,omitempty"`
	Compatibility string   `json:"compatibility,omitempty"`
	AllowedTools  []string `json:"allowed_tools,omitempty"`
	Category      string   `json:"category,omitempty"`
	Domain        string   `json:"domain,omitempty"`
	Author        string   `json:"author,omitempty"`
	Repository    string   `json:"repository,omitempty"`
}

// EstimatedTokens approximates the token cost of this metadata at roughly
// four characters per token.
func (m *Metadata) EstimatedTokens() int {
	text := m.Name + " " + m.Description
	if m.License != "" {
		text += " " + m.License
	}
	if m.Compatibility != "" {
		text += " " + m.Compatibility
	}
	if len(m.AllowedTools) > 0 {
		text += " " + strings.Join(m.AllowedTools, " ")
	}
	if m.Category != "" {
		text += " " + m.Category
	}
	if m.Domain != "" {
		text += " " + m.Domain
	}
	return len(text) / 4
}

// Skill is the level-2 view: metadata plus the full SKILL.md body.
type Skill struct {
	Metadata Metadata `json:"metadata"`
	Body     string   `json:"body"`
}

// EstimatedTokens approximates the token cost of the full skill.
func (s *Skill) EstimatedTokens() int {
	return s.Metadata.EstimatedTokens() + len(s.Body)/4
}

// frontmatter is the YAML shape at the top of a SKILL.md file.
type frontmatter struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	License       string `yaml:"license"`
	Compatibility string `yaml:"compatibility"`
	AllowedTools  string `yaml:"allowed-tools"`
	Metadata      struct {
		Category   string `yaml:"category"`
		Domain     string `yaml:"domain"`
		Author     string `yaml:"author"`
		Repository string `yaml:"repository"`
	} `yaml:"metadata"`
}

var frontmatterPattern = regexp.MustCompile(`(?s)\A---\s*\n(.*?)\n---\s*\n`)

// splitFrontmatter separates the YAML frontmatter block from the body.
func splitFrontmatter(content string) (frontmatter, string, error) {
	var fm frontmatter

	loc := frontmatterPattern.FindStringSubmatchIndex(content)
	if loc == nil {
		return fm, "", fmt.Errorf("SKILL.md must start with YAML frontmatter (--- delimiters): %w", ErrParse)
	}

	if err := yaml.Unmarshal([]byte(content[loc[2]:loc[3]]), &fm); err != nil {
		return fm, "", fmt.Errorf("frontmatter YAML: %v: %w", err, ErrParse)
	}

	body := strings.TrimSpace(content[loc[1]:])
	return fm, body, nil
}

// ParseMetadata extracts the level-1 metadata from SKILL.md content.
// Name and description are required.
func ParseMetadata(content string) (Metadata, error) {
	fm, _, err := splitFrontmatter(content)
	if err != nil {
		return Metadata{}, err
	}
	if fm.Name == "" {
		return Metadata{}, fmt.Errorf("frontmatter missing required field 'name': %w", ErrParse)
	}
	if fm.Description == "" {
		return Metadata{}, fmt.Errorf("frontmatter missing required field 'description': %w", ErrParse)
	}

	return Metadata{
		Name:          fm.Name,
		Description:   fm.Description,
		License:       fm.License,
		Compatibility: fm.Compatibility,
		AllowedTools:  strings.Fields(fm.AllowedTools),
		Category:      fm.Metadata.Category,
		Domain:        fm.Metadata.Domain,
		Author:        fm.Metadata.Author,
		Repository:    fm.Metadata.Repository,
	}, nil
}

// Parse extracts the level-2 skill (metadata and body) from SKILL.md
// content.
func Parse(content string) (Skill, error) {
	meta, err := ParseMetadata(content)
	if err != nil {
		return Skill{}, err
	}
	_, body, err := splitFrontmatter(content)
	if err != nil {
		return Skill{}, err
	}
	return Skill{Metadata: meta, Body: body}, nil
}
