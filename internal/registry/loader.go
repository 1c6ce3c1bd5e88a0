package registry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// skillFile is the YAML document shape for roadmap skill files.
type skillFile struct {
	Skills []Skill `yaml:"skills"`
}

// Load walks rootDir and builds a registry from every *.yaml/*.yml file that
// declares skills. Files that fail to parse are skipped with a warning so one
// bad file cannot take down startup. An empty rootDir yields Default().
func Load(rootDir string) (*Registry, error) {
	if rootDir == "" {
		return Default(), nil
	}

	var skills []Skill
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var f skillFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			slog.Warn("skipping invalid skill YAML", "path", path, "error", err)
			return nil
		}
		skills = append(skills, f.Skills...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading skill registry: %w", err)
	}

	if len(skills) == 0 {
		return nil, fmt.Errorf("no skills found under %s", rootDir)
	}

	slog.Info("skill registry loaded", "skills", len(skills))
	return New(skills), nil
}
