package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/minhokang/streamwatch/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestSong(t *testing.T, db *database.DB) string {
	t.Helper()
	id, err := db.InsertSong(database.Song{
		ArtistKo: "가수A", TitleKo: "안녕",
		ArtistEn: "ArtistA", TitleEn: "Hello",
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("failed to insert song: %v", err)
	}
	return id
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexRoute(t *testing.T) {
	db := openTestDB(t)
	insertTestSong(t, db)

	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	rec := get(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "가수A") || !strings.Contains(body, "안녕") {
		t.Error("expected song row in response body")
	}
	if !strings.Contains(body, "samples today") {
		t.Error("expected stats section in response body")
	}
}

func TestSongRoute(t *testing.T) {
	db := openTestDB(t)
	id := insertTestSong(t, db)
	db.ReplaceSample(id, "genie", "2026-08-29", 12345, 678)
	db.ReplaceSample(id, "youtube", "2026-08-29", -999, -1)

	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	rec := get(t, srv, "/song/"+id)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "12345") {
		t.Error("expected views in response")
	}
	// Sentinels render as words, not raw numbers.
	if !strings.Contains(body, "failed") || !strings.Contains(body, "n/a") {
		t.Error("expected sentinel values translated for display")
	}
}

func TestSongRouteNotFound(t *testing.T) {
	db := openTestDB(t)
	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	rec := get(t, srv, "/song/no-such-id")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestFailuresRoute(t *testing.T) {
	db := openTestDB(t)
	id := insertTestSong(t, db)
	db.UpsertFailure(id, []string{"melon", "youtube"})

	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	rec := get(t, srv, "/failures")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "가수A - 안녕") {
		t.Error("expected song label in failures table")
	}
	if !strings.Contains(body, "melon, youtube") {
		t.Error("expected failed platform list")
	}
}

func TestReportRoute(t *testing.T) {
	db := openTestDB(t)
	id, err := db.InsertRunReport("2026-08-29", "completed", "# Collection run 2026-08-29\n\n**bold** text")
	if err != nil {
		t.Fatalf("failed to insert report: %v", err)
	}

	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	rec := get(t, srv, "/report/"+strconv.FormatInt(id, 10))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	// Markdown should be rendered, not escaped.
	if !strings.Contains(body, "<strong>bold</strong>") {
		t.Error("expected rendered markdown in response")
	}
}

func TestReportRouteMissing(t *testing.T) {
	db := openTestDB(t)
	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	if rec := get(t, srv, "/report/99"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStaticRoute(t *testing.T) {
	db := openTestDB(t)
	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	rec := get(t, srv, "/static/style.css")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "border-collapse") {
		t.Error("expected CSS content")
	}
}
