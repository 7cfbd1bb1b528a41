package semantic

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
)

// --- Mocks ---

type mockPoints struct {
	upsertReq  *pb.UpsertPoints
	upsertErr  error
	deleteErr  error
	searchResp *pb.SearchResponse
	searchErr  error
}

func (m *mockPoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.upsertReq = in
	return &pb.PointsOperationResponse{}, m.upsertErr
}
func (m *mockPoints) Delete(_ context.Context, _ *pb.DeletePoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	return &pb.PointsOperationResponse{}, m.deleteErr
}
func (m *mockPoints) Search(_ context.Context, _ *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	return m.searchResp, m.searchErr
}

type mockCollections struct {
	listResp  *pb.ListCollectionsResponse
	listErr   error
	created   bool
	createErr error
	deleteErr error
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	return m.listResp, m.listErr
}
func (m *mockCollections) Create(_ context.Context, _ *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.created = true
	return &pb.CollectionOperationResponse{Result: true}, m.createErr
}
func (m *mockCollections) Delete(_ context.Context, _ *pb.DeleteCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	return &pb.CollectionOperationResponse{Result: true}, m.deleteErr
}

// --- Tests ---

func TestClose_NilConn(t *testing.T) {
	vs := NewWithClients(nil, nil, "projects")
	if err := vs.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureCollection_AlreadyExists(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{
			Collections: []*pb.CollectionDescription{{Name: "projects"}},
		},
	}
	vs := NewWithClients(&mockPoints{}, cols, "projects")
	if err := vs.EnsureCollection(context.Background(), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.created {
		t.Error("must not recreate an existing collection")
	}
}

func TestEnsureCollection_Creates(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{
			Collections: []*pb.CollectionDescription{{Name: "other"}},
		},
	}
	vs := NewWithClients(&mockPoints{}, cols, "projects")
	if err := vs.EnsureCollection(context.Background(), 128); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cols.created {
		t.Error("expected collection create")
	}
}

func TestEnsureCollection_ListError(t *testing.T) {
	cols := &mockCollections{listErr: errors.New("rpc fail")}
	vs := NewWithClients(&mockPoints{}, cols, "projects")
	if err := vs.EnsureCollection(context.Background(), 4); err == nil {
		t.Fatal("expected error")
	}
}

func TestDeleteCollection_Error(t *testing.T) {
	cols := &mockCollections{deleteErr: errors.New("fail")}
	vs := NewWithClients(&mockPoints{}, cols, "projects")
	if err := vs.DeleteCollection(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestUpsertProjects(t *testing.T) {
	pts := &mockPoints{}
	vs := NewWithClients(pts, &mockCollections{}, "projects")

	projects := []domain.ReferenceProject{
		{ID: "p1", Name: "Chat App", Description: "realtime chat", Embedding: []float32{1, 0}},
		{ID: "p2", Name: "No Vector"}, // skipped
		{ID: "p3", Name: "Blog", Description: "cms", Embedding: []float32{0, 1}},
	}
	if err := vs.UpsertProjects(context.Background(), projects); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(pts.upsertReq.GetPoints()); got != 2 {
		t.Fatalf("upserted %d points, want 2", got)
	}
	first := pts.upsertReq.GetPoints()[0]
	if first.GetId().GetUuid() != "p1" {
		t.Errorf("id = %s", first.GetId().GetUuid())
	}
	if first.GetPayload()["name"].GetStringValue() != "Chat App" {
		t.Errorf("payload = %v", first.GetPayload())
	}
}

func TestUpsertProjects_AllSkipped(t *testing.T) {
	pts := &mockPoints{}
	vs := NewWithClients(pts, &mockCollections{}, "projects")
	err := vs.UpsertProjects(context.Background(), []domain.ReferenceProject{{ID: "p1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pts.upsertReq != nil {
		t.Error("must not call upsert with zero points")
	}
}

func TestUpsertProjects_Error(t *testing.T) {
	pts := &mockPoints{upsertErr: errors.New("fail")}
	vs := NewWithClients(pts, &mockCollections{}, "projects")
	err := vs.UpsertProjects(context.Background(), []domain.ReferenceProject{{ID: "p1", Embedding: []float32{1}}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDeleteProject_Error(t *testing.T) {
	pts := &mockPoints{deleteErr: errors.New("fail")}
	vs := NewWithClients(pts, &mockCollections{}, "projects")
	if err := vs.DeleteProject(context.Background(), "p1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch(t *testing.T) {
	pts := &mockPoints{
		searchResp: &pb.SearchResponse{
			Result: []*pb.ScoredPoint{
				{
					Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "p1"}},
					Score: 0.95,
					Payload: map[string]*pb.Value{
						"name": {Kind: &pb.Value_StringValue{StringValue: "Chat App"}},
					},
				},
			},
		},
	}
	vs := NewWithClients(pts, &mockCollections{}, "projects")
	hits, err := vs.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].ID != "p1" || hits[0].Score != 0.95 || hits[0].Name != "Chat App" {
		t.Errorf("hit = %+v", hits[0])
	}
}

func TestSearch_Error(t *testing.T) {
	pts := &mockPoints{searchErr: errors.New("fail")}
	vs := NewWithClients(pts, &mockCollections{}, "projects")
	if _, err := vs.Search(context.Background(), []float32{1}, 5); err == nil {
		t.Fatal("expected error")
	}
}
