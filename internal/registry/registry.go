// Package registry holds the shared skill registry: each skill's contributing
// roadmap chapters. It is read-only after load and safe for concurrent readers.
package registry

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Skill maps a skill to the ordered roadmap chapters that teach it.
type Skill struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Category    string `yaml:"category"`
	ChapterIDs  []int  `yaml:"chapters"`
}

// Registry is an ordered, immutable set of skills.
type Registry struct {
	skills []Skill
	byName map[string]int
}

// New builds a registry from the given skills, preserving order. Skills with
// an empty display name get one derived from the skill name.
func New(skills []Skill) *Registry {
	r := &Registry{byName: make(map[string]int, len(skills))}
	for _, s := range skills {
		if s.DisplayName == "" {
			s.DisplayName = displayName(s.Name)
		}
		r.byName[s.Name] = len(r.skills)
		r.skills = append(r.skills, s)
	}
	return r
}

// Skills returns all registered skills in registry order.
func (r *Registry) Skills() []Skill {
	out := make([]Skill, len(r.skills))
	copy(out, r.skills)
	return out
}

// Skill returns the named skill.
func (r *Registry) Skill(name string) (Skill, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Skill{}, false
	}
	return r.skills[i], true
}

// Len returns the number of registered skills.
func (r *Registry) Len() int {
	return len(r.skills)
}

var titleCaser = cases.Title(language.English)

// displayName turns a skill slug into a human-readable label,
// e.g. "error-handling" becomes "Error Handling".
func displayName(name string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return titleCaser.String(s)
}

// Default returns the built-in registry used when no roadmap files are
// configured: five skills spread over the default ten-chapter roadmap.
func Default() *Registry {
	return New([]Skill{
		{Name: "fundamentals", Category: "core", ChapterIDs: []int{1, 2}},
		{Name: "data-structures", Category: "core", ChapterIDs: []int{3, 4}},
		{Name: "algorithms", Category: "core", ChapterIDs: []int{5, 6}},
		{Name: "problem-solving", Category: "applied", ChapterIDs: []int{7, 8}},
		{Name: "projects", Category: "applied", ChapterIDs: []int{9, 10}},
	})
}
