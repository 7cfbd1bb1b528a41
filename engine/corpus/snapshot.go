// Package corpus owns the reference corpus: an immutable snapshot of
// reference projects with precomputed embeddings, produced by the offline
// data pipeline and swapped wholesale on reload. The read path is lock-free;
// concurrent requests share one snapshot pointer.
package corpus

import (
	"fmt"
	"time"

	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
)

// Snapshot is one immutable corpus generation. Projects keep their file
// order; similarity ties are broken by that insertion order.
type Snapshot struct {
	projects []domain.ReferenceProject
	byID     map[string]*domain.ReferenceProject
	dim      int
	loadedAt time.Time
}

// NewSnapshot validates and freezes a set of reference projects. All
// embeddings must share one dimension; an empty corpus is allowed (the
// engine then runs generation-only).
func NewSnapshot(projects []domain.ReferenceProject) (*Snapshot, error) {
	s := &Snapshot{
		projects: projects,
		byID:     make(map[string]*domain.ReferenceProject, len(projects)),
		loadedAt: time.Now(),
	}
	for i := range projects {
		p := &s.projects[i]
		if p.ID == "" {
			return nil, fmt.Errorf("corpus: project %d (%q) has no id", i, p.Name)
		}
		if _, dup := s.byID[p.ID]; dup {
			return nil, fmt.Errorf("corpus: duplicate project id %q", p.ID)
		}
		s.byID[p.ID] = p
		if len(p.Embedding) == 0 {
			return nil, fmt.Errorf("corpus: project %q has no embedding", p.ID)
		}
		if s.dim == 0 {
			s.dim = len(p.Embedding)
		} else if len(p.Embedding) != s.dim {
			return nil, fmt.Errorf("corpus: project %q embedding dimension %d, want %d",
				p.ID, len(p.Embedding), s.dim)
		}
	}
	return s, nil
}

// Projects returns the snapshot's records in insertion order. Callers must
// treat the slice as read-only.
func (s *Snapshot) Projects() []domain.ReferenceProject { return s.projects }

// ByID looks up a project by id.
func (s *Snapshot) ByID(id string) (*domain.ReferenceProject, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// Len returns the number of projects.
func (s *Snapshot) Len() int { return len(s.projects) }

// Dimension returns the embedding dimension, 0 for an empty corpus.
func (s *Snapshot) Dimension() int { return s.dim }

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }
