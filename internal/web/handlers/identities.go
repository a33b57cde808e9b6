package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/facematch"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// maxUploadSize limits multipart uploads for enrollment images.
const maxUploadSize = 20 << 20 // 20 MB

// IdentitiesHandler manages enrolled identities over the HTTP API.
type IdentitiesHandler struct {
	store    database.Store
	vision   *vision.Client
	facesDir string
	log      *logrus.Logger
}

// NewIdentitiesHandler creates a new identities handler. facesDir may be
// empty to disable reference image caching.
func NewIdentitiesHandler(store database.Store, visionClient *vision.Client, facesDir string, log *logrus.Logger) *IdentitiesHandler {
	if log == nil {
		log = logrus.New()
	}
	return &IdentitiesHandler{
		store:    store,
		vision:   visionClient,
		facesDir: facesDir,
		log:      log,
	}
}

// identitySummary is the list representation of an enrolled identity.
type identitySummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Embeddings int    `json:"embeddings"`
	CreatedAt  string `json:"created_at"`
}

// List handles GET /api/v1/identities.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	identities, err := h.store.ListIdentities(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list identities")
		return
	}

	summaries := make([]identitySummary, 0, len(identities))
	for _, id := range identities {
		summaries = append(summaries, identitySummary{
			ID:         id.ID,
			Name:       id.Name,
			Embeddings: len(id.Embeddings),
			CreatedAt:  id.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"identities": summaries,
		"count":      len(summaries),
	})
}

// readUploadedImage extracts the enrollment image from the multipart form
// and downscales it before it goes to the vision service.
func (h *IdentitiesHandler) readUploadedImage(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, errors.New("invalid multipart form")
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, errors.New("missing image file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read image file")
	}

	resized, err := vision.ResizeFrame(data, constants.MaxFrameSize)
	if err != nil {
		return nil, errors.New("unsupported image format")
	}
	return resized, nil
}

// Register handles POST /api/v1/identities. Expects a multipart form
// with "name" and "image" fields. The image must contain exactly one
// recognizable face.
func (h *IdentitiesHandler) Register(w http.ResponseWriter, r *http.Request) {
	image, err := h.readUploadedImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := facematch.NormalizeIdentityName(r.FormValue("name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing name")
		return
	}

	embedding, err := h.vision.EncodeFirstFace(r.Context(), image)
	if err != nil {
		if errors.Is(err, vision.ErrNoFaceDetected) {
			respondError(w, http.StatusUnprocessableEntity, "no face detected in image")
			return
		}
		h.log.WithError(err).Error("vision service failed during registration")
		respondError(w, http.StatusBadGateway, "face encoding failed")
		return
	}

	identity, err := h.store.AddIdentity(r.Context(), name, embedding)
	if err != nil {
		if errors.Is(err, database.ErrDuplicateIdentity) {
			respondError(w, http.StatusConflict, "identity already registered")
			return
		}
		h.log.WithError(err).Error("failed to store identity")
		respondError(w, http.StatusInternalServerError, "failed to store identity")
		return
	}

	h.saveFaceImage(name, image)
	h.log.WithField("name", sanitizeForLog(name)).Info("identity registered")

	respondJSON(w, http.StatusCreated, identitySummary{
		ID:         identity.ID,
		Name:       identity.Name,
		Embeddings: len(identity.Embeddings),
		CreatedAt:  identity.CreatedAt.Format("2006-01-02 15:04:05"),
	})
}

// AddEmbedding handles POST /api/v1/identities/{name}/embeddings and
// appends another reference pose to an already enrolled identity.
func (h *IdentitiesHandler) AddEmbedding(w http.ResponseWriter, r *http.Request) {
	name := facematch.NormalizeIdentityName(chi.URLParam(r, "name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing name")
		return
	}

	image, err := h.readUploadedImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	embedding, err := h.vision.EncodeFirstFace(r.Context(), image)
	if err != nil {
		if errors.Is(err, vision.ErrNoFaceDetected) {
			respondError(w, http.StatusUnprocessableEntity, "no face detected in image")
			return
		}
		h.log.WithError(err).Error("vision service failed during enrollment")
		respondError(w, http.StatusBadGateway, "face encoding failed")
		return
	}

	if err := h.store.AddEmbedding(r.Context(), name, embedding); err != nil {
		if errors.Is(err, database.ErrIdentityNotFound) {
			respondError(w, http.StatusNotFound, "identity not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to store embedding")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"name": name})
}

// Delete handles DELETE /api/v1/identities/{name}. Historical sessions
// are kept.
func (h *IdentitiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := facematch.NormalizeIdentityName(chi.URLParam(r, "name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing name")
		return
	}

	if err := h.store.RemoveIdentity(r.Context(), name); err != nil {
		if errors.Is(err, database.ErrIdentityNotFound) {
			respondError(w, http.StatusNotFound, "identity not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to remove identity")
		return
	}

	h.removeFaceImage(name)
	h.log.WithField("name", sanitizeForLog(name)).Info("identity removed")

	respondJSON(w, http.StatusOK, map[string]string{"name": name})
}

// saveFaceImage caches the registration image on disk. Best effort, a
// failure here never fails the registration.
func (h *IdentitiesHandler) saveFaceImage(name string, image []byte) {
	if h.facesDir == "" {
		return
	}
	if err := os.MkdirAll(h.facesDir, 0o755); err != nil {
		h.log.WithError(err).Warn("could not create faces directory")
		return
	}
	path := filepath.Join(h.facesDir, name+".jpg")
	if err := os.WriteFile(path, image, 0o644); err != nil {
		h.log.WithError(err).Warn("could not cache face image")
	}
}

// removeFaceImage deletes the cached registration image, if present.
func (h *IdentitiesHandler) removeFaceImage(name string) {
	if h.facesDir == "" {
		return
	}
	path := filepath.Join(h.facesDir, name+".jpg")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		h.log.WithError(err).Warn("could not remove cached face image")
	}
}
