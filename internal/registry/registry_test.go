package registry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-progress/internal/registry"
)

func TestNew_PreservesOrder(t *testing.T) {
	reg := registry.New([]registry.Skill{
		{Name: "zeta", ChapterIDs: []int{1}},
		{Name: "alpha", ChapterIDs: []int{2}},
	})

	skills := reg.Skills()
	if len(skills) != 2 {
		t.Fatalf("len(Skills()) = %d, want 2", len(skills))
	}
	if skills[0].Name != "zeta" || skills[1].Name != "alpha" {
		t.Errorf("Skills() order = [%s %s], want insertion order [zeta alpha]", skills[0].Name, skills[1].Name)
	}
}

func TestNew_DerivesDisplayName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"error-handling", "Error Handling"},
		{"data_structures", "Data Structures"},
		{"algebra", "Algebra"},
	}

	for _, tt := range tests {
		reg := registry.New([]registry.Skill{{Name: tt.name}})
		s, ok := reg.Skill(tt.name)
		if !ok {
			t.Fatalf("Skill(%q) not found", tt.name)
		}
		if s.DisplayName != tt.want {
			t.Errorf("DisplayName for %q = %q, want %q", tt.name, s.DisplayName, tt.want)
		}
	}
}

func TestNew_KeepsExplicitDisplayName(t *testing.T) {
	reg := registry.New([]registry.Skill{
		{Name: "oop", DisplayName: "Object-Oriented Programming"},
	})

	s, _ := reg.Skill("oop")
	if s.DisplayName != "Object-Oriented Programming" {
		t.Errorf("DisplayName = %q, want explicit name kept", s.DisplayName)
	}
}

func TestSkill_Missing(t *testing.T) {
	reg := registry.Default()

	if _, ok := reg.Skill("no-such-skill"); ok {
		t.Error("Skill(no-such-skill) = found, want missing")
	}
}

func TestDefault(t *testing.T) {
	reg := registry.Default()

	if reg.Len() != 5 {
		t.Errorf("Len() = %d, want 5", reg.Len())
	}

	// Every default chapter 1-10 belongs to exactly one skill.
	covered := make(map[int]int)
	for _, s := range reg.Skills() {
		for _, id := range s.ChapterIDs {
			covered[id]++
		}
	}
	for id := 1; id <= 10; id++ {
		if covered[id] != 1 {
			t.Errorf("chapter %d covered by %d skills, want 1", id, covered[id])
		}
	}
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	reg, err := registry.Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if reg.Len() != registry.Default().Len() {
		t.Errorf("Len() = %d, want default registry", reg.Len())
	}
}

func TestLoad_ReadsYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	doc := `skills:
  - name: calculus
    category: math
    chapters: [1, 2, 3]
  - name: linear-algebra
    display_name: Linear Algebra
    category: math
    chapters: [4, 5]
`
	if err := os.WriteFile(filepath.Join(dir, "math.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := registry.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}

	s, ok := reg.Skill("calculus")
	if !ok {
		t.Fatal("Skill(calculus) not found")
	}
	if len(s.ChapterIDs) != 3 {
		t.Errorf("calculus ChapterIDs = %v, want 3 chapters", s.ChapterIDs)
	}
	if s.DisplayName != "Calculus" {
		t.Errorf("calculus DisplayName = %q, want derived Calculus", s.DisplayName)
	}
}

func TestLoad_SkipsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("skills: [not: valid: yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	good := `skills:
  - name: geometry
    chapters: [1]
`
	if err := os.WriteFile(filepath.Join(dir, "good.yml"), []byte(good), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := registry.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (broken file skipped)", reg.Len())
	}
}

func TestLoad_NoSkillsIsError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("nothing here"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := registry.Load(dir); err == nil {
		t.Error("Load() error = nil, want error for directory without skill files")
	}
}
