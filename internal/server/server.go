// Package server exposes the retrieval service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"docchat/internal/domain"
)

// MaxUploadBytes bounds multipart upload memory usage.
const MaxUploadBytes = 32 << 20

// RAGService is the server-facing subset of the retrieval orchestrator.
type RAGService interface {
	Ingest(ctx context.Context, data []byte, fileName, contentType string) (domain.IngestResult, error)
	Query(ctx context.Context, query string, topK int) (domain.QueryResult, error)
	NewSession() error
	ListFiles() ([]domain.FileInfo, error)
	DeleteFile(fileID string) (int, error)
	History() ([]domain.Turn, error)
}

// Server routes HTTP requests to the retrieval service.
type Server struct {
	service RAGService
}

// New creates a Server around the service.
func New(service RAGService) *Server {
	return &Server{service: service}
}

// Handler returns the route table as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("POST /api/v1/upload", s.handleUpload)
	mux.HandleFunc("POST /api/v1/query", s.handleQuery)
	mux.HandleFunc("GET /api/v1/new-session", s.handleNewSession)
	mux.HandleFunc("GET /api/v1/all-chats", s.handleAllChats)
	mux.HandleFunc("GET /api/v1/files", s.handleListFiles)
	mux.HandleFunc("DELETE /api/v1/files/{id}", s.handleDeleteFile)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "Server is running"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("missing file field"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	res, err := s.service.Ingest(r.Context(), data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		log.Printf("upload %q failed: %v", header.Filename, err)
		writeError(w, statusFor(err), err)
		return
	}
	log.Printf("uploaded %q: %d chunks", res.FileName, res.TotalChunks)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "File uploaded successfully",
		"file_name":    res.FileName,
		"file_id":      res.FileID,
		"total_chunks": res.TotalChunks,
	})
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, errors.New("query must not be empty"))
		return
	}
	res, err := s.service.Query(r.Context(), req.Query, req.TopK)
	if err != nil {
		log.Printf("query failed: %v", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": res.Query, "answer": res.Answer})
}

func (s *Server) handleNewSession(w http.ResponseWriter, _ *http.Request) {
	if err := s.service.NewSession(); err != nil {
		log.Printf("session reset failed: %v", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "New session started"})
}

type chatEntry struct {
	Sequence  uint64    `json:"sequence"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleAllChats(w http.ResponseWriter, _ *http.Request) {
	turns, err := s.service.History()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	// Newest first; the UI reverses back to chronological.
	chats := make([]chatEntry, 0, len(turns))
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		chats = append(chats, chatEntry{
			Sequence:  t.Sequence,
			Role:      string(t.Role),
			Message:   t.Message,
			CreatedAt: t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

type fileEntry struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	Chunks   int    `json:"chunks"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, _ *http.Request) {
	files, err := s.service.ListFiles()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	out := make([]fileEntry, 0, len(files))
	for _, f := range files {
		out = append(out, fileEntry{FileID: f.FileID, FileName: f.FileName, Chunks: f.Chunks})
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": out})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")
	n, err := s.service.DeleteFile(fileID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file_id": fileID, "deleted": n})
}

// statusFor maps domain error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrExtraction):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEmbeddingProvider), errors.Is(err, domain.ErrGenerationProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
