package api

import (
	"bytes"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobbyshelf/hobbyshelf-server/internal/backup"
	"github.com/hobbyshelf/hobbyshelf-server/internal/config"
	"github.com/hobbyshelf/hobbyshelf-server/internal/ratelimit"
	"github.com/hobbyshelf/hobbyshelf-server/internal/service"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store/sqlite"
	"github.com/hobbyshelf/hobbyshelf-server/internal/validation"
)

type testServer struct {
	server   *Server
	services *Services
	store    *sqlite.Store
}

// setupTestServer creates a test server with all dependencies.
func setupTestServer(t *testing.T, limiter *ratelimit.Limiter) *testServer {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	v := validation.New()
	activity := service.NewActivityService(st, logger)
	types := service.NewTypeService(st, v, activity, logger)
	services := &Services{
		Taxonomy: service.NewTaxonomyService(st, v, activity, logger),
		Types:    types,
		Entries: service.NewEntryService(st, types, v, activity, logger, service.EntryOptions{
			SchemaEnforcement: config.EnforcementStrict,
			ViewCountMode:     config.ViewCountBestEffort,
		}),
		Tags:     service.NewTagService(st, logger),
		Shelves:  service.NewShelfService(st, v, activity, logger),
		Search:   service.NewSearchService(st, logger),
		Stats:    service.NewStatsService(st, logger),
		Activity: activity,
		Backup: backup.NewBackupService(st, backup.Config{
			Dir:           filepath.Join(dir, "backups"),
			AppVersion:    "test",
			SchemaVersion: sqlite.SchemaVersion,
			LoadDatabase:  sqlite.LoadDatabaseFile,
			Activity:      activity,
		}, logger),
	}

	srv := NewServer(services, limiter, Options{Version: "test", SearchIndex: st.SearchEngine()}, logger)
	return &testServer{server: srv, services: services, store: st}
}

type envelope struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Data    jsontext.Value  `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.server.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "application/gzip" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// seed creates a hobby and a recipe type and returns the hobby id.
func (ts *testServer) seed(t *testing.T) int64 {
	t.Helper()

	w, env := ts.do(t, http.MethodPost, "/api/v1/hobbies", map[string]any{"name": "Cooking"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	hobby := decode[struct {
		ID   int64  `json:"id"`
		Slug string `json:"slug"`
	}](t, env)
	assert.Equal(t, "cooking", hobby.Slug)

	w, _ = ts.do(t, http.MethodPut, "/api/v1/types", map[string]any{
		"key":  "recipe",
		"name": "Recipe",
		"schema": map[string]any{
			"type":     "object",
			"required": []any{"servings"},
			"properties": map[string]any{
				"servings": map[string]any{"type": "integer", "minimum": 1},
			},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return hobby.ID
}

func (ts *testServer) createEntry(t *testing.T, hobbyID int64, title string, tags ...string) int64 {
	t.Helper()
	body := map[string]any{
		"hobby_id":         hobbyID,
		"type_key":         "recipe",
		"title":            title,
		"content_markdown": "Knead the **dough** slowly.",
		"properties":       map[string]any{"servings": 4},
	}
	if len(tags) > 0 {
		body["tags"] = tags
	}
	w, env := ts.do(t, http.MethodPost, "/api/v1/entries", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[struct {
		ID int64 `json:"id"`
	}](t, env).ID
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t, nil)

	w, env := ts.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, EnvelopeVersion, env.Version)

	health := decode[HealthResponse](t, env)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.Equal(t, ts.store.SearchEngine(), health.Components["search"].Message)
}

func TestNotFoundRoute(t *testing.T) {
	ts := setupTestServer(t, nil)

	w, env := ts.do(t, http.MethodGet, "/api/v1/nope", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestHobbies_CRUDAndTree(t *testing.T) {
	ts := setupTestServer(t, nil)
	rootID := ts.seed(t)

	w, env := ts.do(t, http.MethodPost, "/api/v1/hobbies", map[string]any{"name": "Baking", "parent_id": rootID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	childID := decode[struct {
		ID int64 `json:"id"`
	}](t, env).ID

	w, _ = ts.do(t, http.MethodGet, "/api/v1/hobbies/slug/baking", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = ts.do(t, http.MethodGet, "/api/v1/hobbies/tree", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tree := decode[HobbyTreeResponse](t, env)
	require.Len(t, tree.Tree, 1)
	require.Len(t, tree.Tree[0].Children, 1)
	assert.Equal(t, childID, tree.Tree[0].Children[0].ID)

	// A node cannot move under its own descendant.
	w, env = ts.do(t, http.MethodPost, "/api/v1/hobbies/"+strconv.FormatInt(rootID, 10)+"/move",
		map[string]any{"parent_id": childID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)

	w, env = ts.do(t, http.MethodGet, "/api/v1/hobbies?roots=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[HobbiesResponse](t, env).Hobbies, 1)

	w, env = ts.do(t, http.MethodDelete, "/api/v1/hobbies/"+strconv.FormatInt(rootID, 10), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"nodes":2`)

	w, env = ts.do(t, http.MethodGet, "/api/v1/hobbies/"+strconv.FormatInt(childID, 10), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestCreateHobby_ValidationEnvelope(t *testing.T) {
	ts := setupTestServer(t, nil)

	w, env := ts.do(t, http.MethodPost, "/api/v1/hobbies", map[string]any{"icon": "x"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION", env.Error.Code)
	assert.NotNil(t, env.Error.Details)
}

func TestTypes_ValidateProperties(t *testing.T) {
	ts := setupTestServer(t, nil)
	ts.seed(t)

	w, env := ts.do(t, http.MethodPost, "/api/v1/types/recipe/validate",
		map[string]any{"properties": map[string]any{"servings": 0}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decode[ValidationResponse](t, env)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Violations)
	assert.Equal(t, "servings", result.Violations[0].Field)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/types/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEntries_Lifecycle(t *testing.T) {
	ts := setupTestServer(t, nil)
	hobbyID := ts.seed(t)
	id := ts.createEntry(t, hobbyID, "Sourdough", "Bread", "Fermentation")
	path := "/api/v1/entries/" + strconv.FormatInt(id, 10)

	w, env := ts.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct {
		Title string   `json:"title"`
		HTML  string   `json:"content_html"`
		Tags  []string `json:"tags"`
	}](t, env)
	assert.Equal(t, "Sourdough", got.Title)
	assert.Contains(t, got.HTML, "<strong>dough</strong>")
	assert.ElementsMatch(t, []string{"Bread", "Fermentation"}, got.Tags)

	w, env = ts.do(t, http.MethodPost, path+"/favorite", map[string]any{"is_favorite": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"is_favorite":true`)

	w, _ = ts.do(t, http.MethodPost, path+"/archive", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = ts.do(t, http.MethodGet, "/api/v1/entries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total":0`)

	w, env = ts.do(t, http.MethodGet, "/api/v1/entries?archived=only&favorite=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total":1`)

	w, env = ts.do(t, http.MethodPost, path+"/media", map[string]any{
		"filename":  "loaf.jpg",
		"mime_type": "image/jpeg",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"type":"image"`)

	w, env = ts.do(t, http.MethodGet, path+"/media", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[MediaListResponse](t, env).Media, 1)

	w, _ = ts.do(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = ts.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEntries_StrictSchemaRejectsBadProperties(t *testing.T) {
	ts := setupTestServer(t, nil)
	hobbyID := ts.seed(t)

	w, env := ts.do(t, http.MethodPost, "/api/v1/entries", map[string]any{
		"hobby_id":   hobbyID,
		"type_key":   "recipe",
		"title":      "Nothing",
		"properties": map[string]any{"servings": "many"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION", env.Error.Code)
}

func TestSearchAndTags(t *testing.T) {
	ts := setupTestServer(t, nil)
	hobbyID := ts.seed(t)
	ts.createEntry(t, hobbyID, "Sourdough loaf", "Bread")
	ts.createEntry(t, hobbyID, "Tomato soup", "Soup")

	w, env := ts.do(t, http.MethodGet, "/api/v1/search?q=sourdough", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	results := decode[service.SearchResults](t, env)
	require.Equal(t, 1, results.Total)
	assert.Equal(t, "Sourdough loaf", results.Hits[0].Entry.Title)

	w, env = ts.do(t, http.MethodGet, "/api/v1/search?q=", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[service.SearchResults](t, env).Total)

	w, env = ts.do(t, http.MethodGet, "/api/v1/tags?popular=true&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[TagsResponse](t, env).Tags, 1)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/tags/bread", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = ts.do(t, http.MethodPost, "/api/v1/admin/reindex", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[CountResponse](t, env).Count)
}

func TestShelves_Items(t *testing.T) {
	ts := setupTestServer(t, nil)
	hobbyID := ts.seed(t)
	entryID := ts.createEntry(t, hobbyID, "Sourdough")

	w, env := ts.do(t, http.MethodPost, "/api/v1/shelves", map[string]any{"hobby_id": hobbyID, "name": "Favorites"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	shelfPath := "/api/v1/shelves/" + strconv.FormatInt(decode[struct {
		ID int64 `json:"id"`
	}](t, env).ID, 10)

	w, _ = ts.do(t, http.MethodPost, shelfPath+"/items", map[string]any{"entry_id": entryID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, env = ts.do(t, http.MethodPost, shelfPath+"/items", map[string]any{
		"external_url": "https://example.com/pasta",
		"title":        "Pasta",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	externalID := decode[struct {
		ID int64 `json:"id"`
	}](t, env).ID

	w, _ = ts.do(t, http.MethodPatch, shelfPath+"/items/"+strconv.FormatInt(externalID, 10), map[string]any{"position": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = ts.do(t, http.MethodGet, shelfPath+"/items", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Items []struct {
			ID       int64 `json:"id"`
			Position int   `json:"position"`
		} `json:"items"`
		Total int `json:"total"`
	}](t, env)
	require.Equal(t, 2, page.Total)
	assert.Equal(t, externalID, page.Items[0].ID)

	w, _ = ts.do(t, http.MethodPost, shelfPath+"/items", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = ts.do(t, http.MethodGet, "/api/v1/shelves?hobby_id="+strconv.FormatInt(hobbyID, 10), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[ShelvesResponse](t, env).Shelves, 1)
}

func TestStatsAndActivity(t *testing.T) {
	ts := setupTestServer(t, nil)
	hobbyID := ts.seed(t)
	ts.createEntry(t, hobbyID, "Sourdough", "Bread")

	w, env := ts.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"entries":1`)

	w, env = ts.do(t, http.MethodGet, "/api/v1/activity?entity_type=entry", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[ActivityResponse](t, env).Activity)
}

func TestBackups_CreateDownloadRestore(t *testing.T) {
	ts := setupTestServer(t, nil)
	hobbyID := ts.seed(t)
	ts.createEntry(t, hobbyID, "Sourdough")

	w, env := ts.do(t, http.MethodPost, "/api/v1/admin/backups", map[string]any{"compression": "gzip"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[backup.CreateResult](t, env)
	assert.Equal(t, 1, created.TableCounts["entries"])

	w, env = ts.do(t, http.MethodGet, "/api/v1/admin/backups", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[BackupsResponse](t, env).Backups, 1)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/admin/backups/"+created.Name+"/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/gzip", w.Header().Get("Content-Type"))
	downloaded := w.Body.Bytes()

	ts.createEntry(t, hobbyID, "Focaccia")

	// Restore without confirmation is refused.
	w, env = ts.do(t, http.MethodPost, "/api/v1/admin/backups/"+created.Name+"/restore", map[string]any{"confirm": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION", env.Error.Code)

	w, env = ts.do(t, http.MethodPost, "/api/v1/admin/backups/"+created.Name+"/restore", map[string]any{"confirm": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	restored := decode[backup.RestoreResult](t, env)
	assert.Equal(t, 1, restored.Imported["entries"])
	assert.NotEmpty(t, restored.SafetyBackup)

	w, env = ts.do(t, http.MethodGet, "/api/v1/search?q=focaccia", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[service.SearchResults](t, env).Total)

	// Upload the downloaded file through the import endpoint.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/backups/import?format=gzip&confirm=true", bytes.NewReader(downloaded))
	req.Header.Set("Content-Type", "application/octet-stream")
	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	w, env = ts.do(t, http.MethodGet, "/api/v1/admin/backups/safety", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[BackupsResponse](t, env).Backups, 2)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/admin/backups/..%2Fetc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = ts.do(t, http.MethodDelete, "/api/v1/admin/backups/"+created.Name, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = ts.do(t, http.MethodGet, "/api/v1/admin/backups/"+created.Name, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportBackup_InvalidBody(t *testing.T) {
	ts := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/backups/import?format=none&confirm=true", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/octet-stream")
	w := httptest.NewRecorder()
	ts.server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{RPS: 1, Burst: 2})
	t.Cleanup(limiter.Close)
	ts := setupTestServer(t, limiter)

	for range 2 {
		w, _ := ts.do(t, http.MethodGet, "/api/v1/stats", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, env := ts.do(t, http.MethodGet, "/api/v1/stats", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Health checks are never limited.
	w, _ = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
