// Package roster supplies the reviewer pool. The roster itself is
// maintained outside this system; we only read it.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"collections-review-backend/internal/models"
)

type Source interface {
	Reviewers(ctx context.Context) ([]models.Reviewer, error)
}

// FileSource reads a JSON roster on every call so roster edits are
// picked up without a restart. Read failures abort the assignment pass
// upstream; they are not cached over.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Reviewers(_ context.Context) ([]models.Reviewer, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading roster %s: %w", s.path, err)
	}
	var reviewers []models.Reviewer
	if err := json.Unmarshal(data, &reviewers); err != nil {
		return nil, fmt.Errorf("parsing roster %s: %w", s.path, err)
	}
	return reviewers, nil
}

// StaticSource is a fixed roster for tests.
type StaticSource struct {
	reviewers []models.Reviewer
}

func Static(reviewers ...models.Reviewer) *StaticSource {
	return &StaticSource{reviewers: reviewers}
}

func (s *StaticSource) Reviewers(_ context.Context) ([]models.Reviewer, error) {
	return s.reviewers, nil
}
