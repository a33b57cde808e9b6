// Package vision is the HTTP client for the external face detection and
// embedding service. Detection quality, model choice and latency are the
// service's problem; this package only moves pixels out and vectors back.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

const defaultVisionURL = "http://localhost:8000"

// ErrNoFaceDetected is returned when a frame contains no detectable face.
var ErrNoFaceDetected = errors.New("no face detected")

// Face is one detected face: a pixel bounding box [x1, y1, x2, y2] and
// the detector's confidence.
type Face struct {
	Box   [4]float64 `json:"box"`
	Score float64    `json:"score"`
}

// Client computes face detections and embeddings using the vision server.
type Client struct {
	baseURL string
	dim     int
	client  *http.Client
}

// NewClient creates a new vision client. dim is the embedding dimension
// the server is expected to produce; mismatching responses are rejected.
func NewClient(baseURL string, dim int) *Client {
	if baseURL == "" {
		baseURL = defaultVisionURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{},
	}
}

type detectResponse struct {
	Faces []Face `json:"faces"`
}

type encodeResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float64 `json:"embedding"`
}

// postMultipartImage constructs a multipart form with the image data plus
// extra fields and posts it to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// DetectFaces returns the bounding boxes of all faces in the frame.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) ([]Face, error) {
	body, err := c.postMultipartImage(ctx, "/detect", imageData, nil)
	if err != nil {
		return nil, err
	}

	var detResp detectResponse
	if err := json.Unmarshal(body, &detResp); err != nil {
		return nil, fmt.Errorf("failed to parse detect response: %w", err)
	}
	return detResp.Faces, nil
}

// ComputeEmbedding computes the embedding for one detected face in the frame.
func (c *Client) ComputeEmbedding(ctx context.Context, imageData []byte, face Face) ([]float64, error) {
	fields := make(map[string]string, 4)
	for i, name := range [4]string{"x1", "y1", "x2", "y2"} {
		fields[name] = strconv.FormatFloat(face.Box[i], 'f', -1, 64)
	}

	body, err := c.postMultipartImage(ctx, "/encode", imageData, fields)
	if err != nil {
		return nil, err
	}

	var encResp encodeResponse
	if err := json.Unmarshal(body, &encResp); err != nil {
		return nil, fmt.Errorf("failed to parse encode response: %w", err)
	}
	if len(encResp.Embedding) == 0 {
		return nil, ErrNoFaceDetected
	}
	if c.dim > 0 && len(encResp.Embedding) != c.dim {
		return nil, fmt.Errorf("unexpected embedding dimension %d, want %d", len(encResp.Embedding), c.dim)
	}
	return encResp.Embedding, nil
}

// EncodeFirstFace detects faces in the frame and returns the embedding of
// the most confident one. Returns ErrNoFaceDetected for a faceless frame;
// registration uses this to avoid creating partial identities.
func (c *Client) EncodeFirstFace(ctx context.Context, imageData []byte) ([]float64, error) {
	faces, err := c.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	best := faces[0]
	for _, face := range faces[1:] {
		if face.Score > best.Score {
			best = face
		}
	}
	return c.ComputeEmbedding(ctx, imageData, best)
}
