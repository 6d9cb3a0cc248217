// Package catalog loads quiz definitions from YAML. A built-in catalog with
// the starter courses is embedded in the binary.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"course-assessment-service/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed courses.yaml
var defaultCatalog []byte

type file struct {
	Quizzes []domain.QuizDefinition `yaml:"quizzes"`
}

// Default returns the embedded starter catalog keyed by quiz id.
func Default() (map[string]domain.QuizDefinition, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file. An empty path yields the embedded catalog.
func Load(path string) (map[string]domain.QuizDefinition, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates every quiz in raw.
func Parse(raw []byte) (map[string]domain.QuizDefinition, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	quizzes := make(map[string]domain.QuizDefinition, len(f.Quizzes))
	for _, quiz := range f.Quizzes {
		if err := quiz.Validate(); err != nil {
			return nil, err
		}
		if _, dup := quizzes[quiz.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate quiz id %s", domain.ErrInvalidQuiz, quiz.ID)
		}
		quizzes[quiz.ID] = quiz
	}
	return quizzes, nil
}
