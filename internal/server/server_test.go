package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/embedding"
	"docchat/internal/embedding/local"
	"docchat/internal/extract"
	"docchat/internal/generation/extractive"
	historymem "docchat/internal/history/memory"
	"docchat/internal/service"
	indexmem "docchat/internal/vectorstore/memory"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	svc := service.New(service.Config{
		Extractor: extract.New(),
		Embedder:  embedding.NewClient(local.NewProvider(64), embedding.DefaultBatchSize),
		Generator: extractive.NewProvider(2),
		Index:     indexmem.NewIndex(),
		Log:       historymem.NewLog(0),
	})
	return New(svc).Handler()
}

func uploadRequest(t *testing.T, fileName, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func doJSON(t *testing.T, h http.Handler, req *http.Request) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&body))
	return w.Result().StatusCode, body
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	status, body := doJSON(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Server is running", body["message"])
}

func TestUploadAndListFiles(t *testing.T) {
	h := newTestHandler(t)

	status, body := doJSON(t, h, uploadRequest(t, "notes.txt", "terse facts about the fleet schedule."))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "File uploaded successfully", body["message"])
	assert.Equal(t, "notes.txt", body["file_name"])
	assert.NotEmpty(t, body["file_id"])
	assert.EqualValues(t, 1, body["total_chunks"])

	status, body = doJSON(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
	require.Equal(t, http.StatusOK, status)
	files := body["files"].([]any)
	require.Len(t, files, 1)
	assert.Equal(t, "notes.txt", files[0].(map[string]any)["file_name"])
}

func TestUpload_MissingFileField(t *testing.T) {
	h := newTestHandler(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	status, body := doJSON(t, h, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "file")
}

func TestQueryFlow(t *testing.T) {
	h := newTestHandler(t)
	status, _ := doJSON(t, h, uploadRequest(t, "ops.txt",
		"The backup job runs at midnight. Deploys happen on Tuesdays. Alerts page the on-call engineer."))
	require.Equal(t, http.StatusOK, status)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query",
		strings.NewReader(`{"query": "when does the backup job run", "top_k": 2}`))
	status, body := doJSON(t, h, req)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "when does the backup job run", body["query"])
	assert.NotEmpty(t, body["answer"])

	// Both turns are now in the chat history, newest first.
	status, body = doJSON(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/all-chats", nil))
	require.Equal(t, http.StatusOK, status)
	chats := body["chats"].([]any)
	require.Len(t, chats, 2)
	assert.Equal(t, "assistant", chats[0].(map[string]any)["role"])
	assert.Equal(t, "user", chats[1].(map[string]any)["role"])
}

func TestQuery_EmptyQueryRejected(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(`{"query": ""}`))
	status, _ := doJSON(t, h, req)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNewSession_ClearsState(t *testing.T) {
	h := newTestHandler(t)
	status, _ := doJSON(t, h, uploadRequest(t, "tmp.txt", "ephemeral content."))
	require.Equal(t, http.StatusOK, status)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(`{"query": "ephemeral"}`))
	status, _ = doJSON(t, h, req)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/new-session", nil))
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["files"])

	status, body = doJSON(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/all-chats", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["chats"])
}

func TestDeleteFile(t *testing.T) {
	h := newTestHandler(t)
	status, body := doJSON(t, h, uploadRequest(t, "gone.txt", "to be deleted."))
	require.Equal(t, http.StatusOK, status)
	fileID := body["file_id"].(string)

	status, body = doJSON(t, h, httptest.NewRequest(http.MethodDelete, "/api/v1/files/"+fileID, nil))
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["deleted"])

	// Deleting again is a no-op, not an error.
	status, body = doJSON(t, h, httptest.NewRequest(http.MethodDelete, "/api/v1/files/"+fileID, nil))
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["deleted"])
}

func TestUpload_UnsupportedFormat(t *testing.T) {
	h := newTestHandler(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "image.bin")
	require.NoError(t, err)
	_, err = fw.Write([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00})
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Result().StatusCode)
}
