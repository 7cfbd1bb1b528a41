package semantic

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"

	"github.com/StackPilotAI/stackpilot-mvp/engine/corpus"
	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
)

type embedFunc func(ctx context.Context, text string) ([]float32, error)

func (f embedFunc) Embed(ctx context.Context, text string) ([]float32, error) { return f(ctx, text) }

func testStore(t *testing.T) *corpus.Store {
	t.Helper()
	snap, err := corpus.NewSnapshot([]domain.ReferenceProject{
		{ID: "p1", Name: "Chat App", Embedding: []float32{1, 0},
			Stack: domain.Stack{"backend": {"Node.js"}}},
		{ID: "p2", Name: "Blog", Embedding: []float32{0, 1},
			Stack: domain.Stack{"backend": {"Go"}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return corpus.NewStore(snap, "", nil)
}

func scored(id string, score float32) *pb.ScoredPoint {
	return &pb.ScoredPoint{
		Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
		Score: score,
	}
}

func TestMatcher_ResolvesHits(t *testing.T) {
	pts := &mockPoints{searchResp: &pb.SearchResponse{
		Result: []*pb.ScoredPoint{scored("p1", 0.9), scored("p2", 0.4)},
	}}
	vs := NewWithClients(pts, &mockCollections{}, "projects")
	embed := embedFunc(func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	})
	m := NewMatcher(embed, vs, testStore(t), nil)

	matches, err := m.Match(context.Background(), "a realtime chat application", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Project.ID != "p1" || matches[0].Score != 0.9 {
		t.Errorf("first match = %+v", matches[0])
	}
}

func TestMatcher_SkipsUnknownIDs(t *testing.T) {
	pts := &mockPoints{searchResp: &pb.SearchResponse{
		Result: []*pb.ScoredPoint{scored("ghost", 0.9), scored("p2", 0.4)},
	}}
	vs := NewWithClients(pts, &mockCollections{}, "projects")
	embed := embedFunc(func(context.Context, string) ([]float32, error) {
		return []float32{0, 1}, nil
	})
	m := NewMatcher(embed, vs, testStore(t), nil)

	matches, err := m.Match(context.Background(), "a personal blog with cms", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].Project.ID != "p2" {
		t.Fatalf("matches = %+v", matches)
	}
}

func TestMatcher_EmbedderDown(t *testing.T) {
	vs := NewWithClients(&mockPoints{}, &mockCollections{}, "projects")
	embed := embedFunc(func(context.Context, string) ([]float32, error) {
		return nil, errors.New("connection refused")
	})
	m := NewMatcher(embed, vs, testStore(t), nil)

	_, err := m.Match(context.Background(), "a realtime chat application", 5)
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("err = %v, want ErrEmbeddingUnavailable", err)
	}
}

func TestMatcher_SearchDown(t *testing.T) {
	pts := &mockPoints{searchErr: errors.New("unavailable")}
	vs := NewWithClients(pts, &mockCollections{}, "projects")
	embed := embedFunc(func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	})
	m := NewMatcher(embed, vs, testStore(t), nil)

	_, err := m.Match(context.Background(), "a realtime chat application", 5)
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("err = %v, want ErrEmbeddingUnavailable", err)
	}
}

func TestMatcher_Validation(t *testing.T) {
	vs := NewWithClients(&mockPoints{}, &mockCollections{}, "projects")
	embed := embedFunc(func(context.Context, string) ([]float32, error) {
		t.Fatal("embedder must not be called for invalid input")
		return nil, nil
	})
	m := NewMatcher(embed, vs, testStore(t), nil)

	if _, err := m.Match(context.Background(), "", 5); !errors.Is(err, domain.ErrEmptyDescription) {
		t.Errorf("empty description: err = %v", err)
	}
	if _, err := m.Match(context.Background(), "a realtime chat application", 0); !errors.Is(err, domain.ErrInvalidTopK) {
		t.Errorf("bad k: err = %v", err)
	}
}
