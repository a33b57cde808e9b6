package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-attend/internal/database/mock"
	"github.com/kozaktomas/face-attend/internal/vision"
)

func TestIdentitiesHandler_List(t *testing.T) {
	store := mock.NewStore()
	seedIdentity(t, store, "alice")
	seedIdentity(t, store, "bob")

	handler := NewIdentitiesHandler(store, nil, "", testLogger())
	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/identities", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var resp struct {
		Identities []identitySummary `json:"identities"`
		Count      int               `json:"count"`
	}
	parseJSONResponse(t, recorder, &resp)

	if resp.Count != 2 {
		t.Fatalf("expected 2 identities, got %d", resp.Count)
	}
	if resp.Identities[0].Name != "alice" {
		t.Errorf("expected identities ordered by name, got %s first", resp.Identities[0].Name)
	}
	if resp.Identities[0].Embeddings != 1 {
		t.Errorf("expected 1 embedding, got %d", resp.Identities[0].Embeddings)
	}
}

func TestIdentitiesHandler_Register(t *testing.T) {
	store := mock.NewStore()
	faces := []vision.Face{{Box: [4]float64{0, 0, 16, 16}, Score: 0.95}}
	visionClient := setupMockVisionServer(t, faces, testEmbedding(128, 0.4))
	facesDir := t.TempDir()

	handler := NewIdentitiesHandler(store, visionClient, facesDir, testLogger())
	req := multipartRequest(t, "POST", "/api/v1/identities", jpegBytes(t), map[string]string{"name": "Alice"})
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)

	var created identitySummary
	parseJSONResponse(t, recorder, &created)
	if created.Name != "alice" {
		t.Errorf("expected normalized name alice, got %s", created.Name)
	}

	if count, _ := store.CountIdentities(req.Context()); count != 1 {
		t.Errorf("expected 1 stored identity, got %d", count)
	}
	if _, err := os.Stat(filepath.Join(facesDir, "alice.jpg")); err != nil {
		t.Errorf("expected cached face image: %v", err)
	}
}

func TestIdentitiesHandler_Register_Duplicate(t *testing.T) {
	store := mock.NewStore()
	seedIdentity(t, store, "alice")
	faces := []vision.Face{{Box: [4]float64{0, 0, 16, 16}, Score: 0.95}}
	visionClient := setupMockVisionServer(t, faces, testEmbedding(128, 0.4))

	handler := NewIdentitiesHandler(store, visionClient, "", testLogger())
	req := multipartRequest(t, "POST", "/api/v1/identities", jpegBytes(t), map[string]string{"name": "ALICE"})
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusConflict)
}

func TestIdentitiesHandler_Register_NoFace(t *testing.T) {
	store := mock.NewStore()
	visionClient := setupMockVisionServer(t, []vision.Face{}, nil)

	handler := NewIdentitiesHandler(store, visionClient, "", testLogger())
	req := multipartRequest(t, "POST", "/api/v1/identities", jpegBytes(t), map[string]string{"name": "alice"})
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)

	if count, _ := store.CountIdentities(req.Context()); count != 0 {
		t.Errorf("expected no identity stored for faceless image, got %d", count)
	}
}

func TestIdentitiesHandler_Register_MissingName(t *testing.T) {
	handler := NewIdentitiesHandler(mock.NewStore(), nil, "", testLogger())
	req := multipartRequest(t, "POST", "/api/v1/identities", jpegBytes(t), nil)
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestIdentitiesHandler_Register_MissingImage(t *testing.T) {
	handler := NewIdentitiesHandler(mock.NewStore(), nil, "", testLogger())
	req := multipartRequest(t, "POST", "/api/v1/identities", nil, map[string]string{"name": "alice"})
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestIdentitiesHandler_AddEmbedding(t *testing.T) {
	store := mock.NewStore()
	seedIdentity(t, store, "alice")
	faces := []vision.Face{{Box: [4]float64{0, 0, 16, 16}, Score: 0.95}}
	visionClient := setupMockVisionServer(t, faces, testEmbedding(128, 0.7))

	handler := NewIdentitiesHandler(store, visionClient, "", testLogger())
	req := multipartRequest(t, "POST", "/api/v1/identities/alice/embeddings", jpegBytes(t), nil)
	req = requestWithChiParams(req, map[string]string{"name": "alice"})
	recorder := httptest.NewRecorder()
	handler.AddEmbedding(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	identity, err := store.GetIdentity(req.Context(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(identity.Embeddings) != 2 {
		t.Errorf("expected 2 embeddings after enrollment, got %d", len(identity.Embeddings))
	}
}

func TestIdentitiesHandler_AddEmbedding_UnknownIdentity(t *testing.T) {
	faces := []vision.Face{{Box: [4]float64{0, 0, 16, 16}, Score: 0.95}}
	visionClient := setupMockVisionServer(t, faces, testEmbedding(128, 0.7))

	handler := NewIdentitiesHandler(mock.NewStore(), visionClient, "", testLogger())
	req := multipartRequest(t, "POST", "/api/v1/identities/ghost/embeddings", jpegBytes(t), nil)
	req = requestWithChiParams(req, map[string]string{"name": "ghost"})
	recorder := httptest.NewRecorder()
	handler.AddEmbedding(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestIdentitiesHandler_Delete(t *testing.T) {
	store := mock.NewStore()
	seedIdentity(t, store, "alice")

	facesDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(facesDir, "alice.jpg"), []byte("jpg"), 0o644); err != nil {
		t.Fatalf("failed to write face image: %v", err)
	}

	handler := NewIdentitiesHandler(store, nil, facesDir, testLogger())
	req := httptest.NewRequest("DELETE", "/api/v1/identities/alice", nil)
	req = requestWithChiParams(req, map[string]string{"name": "alice"})
	recorder := httptest.NewRecorder()
	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	if count, _ := store.CountIdentities(req.Context()); count != 0 {
		t.Errorf("expected identity removed, got %d left", count)
	}
	if _, err := os.Stat(filepath.Join(facesDir, "alice.jpg")); !os.IsNotExist(err) {
		t.Errorf("expected cached face image removed, stat err: %v", err)
	}
}

func TestIdentitiesHandler_Delete_NotFound(t *testing.T) {
	handler := NewIdentitiesHandler(mock.NewStore(), nil, "", testLogger())
	req := httptest.NewRequest("DELETE", "/api/v1/identities/ghost", nil)
	req = requestWithChiParams(req, map[string]string{"name": "ghost"})
	recorder := httptest.NewRecorder()
	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
}
