package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/models"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/services"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLStore(context.Background(), "sqlite3", ":memory:", nil)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func seed(t *testing.T, st store.Store, roomID string, n int) {
	t.Helper()
	ctx := context.Background()
	if err := st.EnsureUserAndRoom(ctx, "u1", roomID); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for i := 0; i < n; i++ {
		if _, _, err := st.InsertMessage(ctx, &models.Message{RoomID: roomID, SenderID: "u1", MsgType: models.MsgTypeText, Content: "m"}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestGetHistoryPaginates(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, "lobby", 5)
	h := NewHistoryHandler(services.NewHistoryService(st, nil, 100, zerolog.Nop()), zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetHistory(rec, httptest.NewRequest(http.MethodGet, "/history?roomId=lobby&limit=3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	first := decode[models.HistoryPage](t, rec)
	if len(first.Items) != 3 || first.NextCursor == nil {
		t.Fatalf("unexpected first page %+v", first)
	}

	rec = httptest.NewRecorder()
	h.GetHistory(rec, httptest.NewRequest(http.MethodGet, "/history?roomId=lobby&limit=3&cursor="+*first.NextCursor, nil))
	second := decode[models.HistoryPage](t, rec)
	if len(second.Items) != 2 {
		t.Fatalf("expected 2 remaining items, got %d", len(second.Items))
	}

	rec = httptest.NewRecorder()
	h.GetHistory(rec, httptest.NewRequest(http.MethodGet, "/history?roomId=lobby&limit=3&cursor="+*second.NextCursor, nil))
	body := rec.Body.String()
	if !strings.Contains(body, `"items":[]`) || !strings.Contains(body, `"nextCursor":null`) {
		t.Fatalf("unexpected terminal page %s", body)
	}
}

func TestGetHistoryDefaultsBadLimit(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, "lobby", 25)
	h := NewHistoryHandler(services.NewHistoryService(st, nil, 100, zerolog.Nop()), zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetHistory(rec, httptest.NewRequest(http.MethodGet, "/history?roomId=lobby&limit=abc", nil))
	page := decode[models.HistoryPage](t, rec)
	if len(page.Items) != services.DefaultPageLimit {
		t.Fatalf("expected %d items, got %d", services.DefaultPageLimit, len(page.Items))
	}
}

func TestGetHistoryRequiresRoom(t *testing.T) {
	h := NewHistoryHandler(services.NewHistoryService(newTestStore(t), nil, 100, zerolog.Nop()), zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetHistory(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

type downStore struct{ store.Store }

func (downStore) ListMessages(context.Context, string, *models.Position, int) ([]models.Message, error) {
	return nil, errors.New("connection refused")
}

func TestGetHistoryStoreDownIsRetryable(t *testing.T) {
	h := NewHistoryHandler(services.NewHistoryService(downStore{}, nil, 100, zerolog.Nop()), zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetHistory(rec, httptest.NewRequest(http.MethodGet, "/history?roomId=lobby", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

type staticPresence struct{ p models.RoomPresence }

func (s staticPresence) Presence(roomID string) models.RoomPresence {
	p := s.p
	p.RoomID = roomID
	return p
}

func TestGetRoomReturnsPresence(t *testing.T) {
	h := NewRoomHandler(staticPresence{p: models.RoomPresence{Sessions: 2, Users: []string{"u1", "u2"}}})
	r := chi.NewRouter()
	r.Get("/api/rooms/{id}", h.GetRoom)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/lobby", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	p := decode[models.RoomPresence](t, rec)
	if p.RoomID != "lobby" || p.Sessions != 2 || len(p.Users) != 2 {
		t.Fatalf("unexpected presence %+v", p)
	}
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write(content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

// pngBytes is a minimal PNG signature followed by padding.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

func newUploadHandler(t *testing.T, maxBytes int64) (*UploadHandler, string) {
	t.Helper()
	dir := t.TempDir()
	media, err := services.NewLocalMediaStore(dir, "/uploads")
	if err != nil {
		t.Fatalf("media store: %v", err)
	}
	return NewUploadHandler(media, maxBytes, zerolog.Nop()), dir
}

func TestUploadStoresImage(t *testing.T) {
	h, dir := newUploadHandler(t, 1024)
	body, ct := multipartBody(t, "file", "cat.png", pngBytes)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[models.UploadResponse](t, rec)
	if !strings.HasPrefix(resp.URL, "/uploads/") || !strings.HasSuffix(resp.URL, ".png") {
		t.Fatalf("unexpected url %q", resp.URL)
	}
	saved, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(resp.URL, "/uploads/")))
	if err != nil || !bytes.Equal(saved, pngBytes) {
		t.Fatalf("saved file mismatch: %v", err)
	}
}

func TestUploadRejections(t *testing.T) {
	cases := []struct {
		name    string
		field   string
		content []byte
		want    int
	}{
		{name: "not an image", field: "file", content: []byte("just some text"), want: http.StatusUnsupportedMediaType},
		{name: "missing file field", field: "other", content: pngBytes, want: http.StatusBadRequest},
		{name: "too large", field: "file", content: append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{1}, 2048)...), want: http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newUploadHandler(t, 1024)
			body, ct := multipartBody(t, tc.field, "upload.png", tc.content)
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ct)

			rec := httptest.NewRecorder()
			h.Upload(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthCheck(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"store": ok}).HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	healthy := decode[HealthResponse](t, rec)
	if rec.Code != http.StatusOK || healthy.Status != "healthy" || healthy.Checks["store"].Status != "pass" {
		t.Fatalf("unexpected healthy response %d %+v", rec.Code, healthy)
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"store": ok, "redis": down}).HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	degraded := decode[HealthResponse](t, rec)
	if rec.Code != http.StatusServiceUnavailable || degraded.Status != "degraded" || degraded.Checks["redis"].Status != "fail" {
		t.Fatalf("unexpected degraded response %d %+v", rec.Code, degraded)
	}
}
