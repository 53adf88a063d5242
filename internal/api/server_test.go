package api_test

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/kdimtricp/cvat-api/internal/api"
	"github.com/kdimtricp/cvat-api/internal/auth"
	"github.com/kdimtricp/cvat-api/internal/config"
	"github.com/kdimtricp/cvat-api/internal/database"
	"github.com/kdimtricp/cvat-api/internal/storage"
	"github.com/kdimtricp/cvat-api/internal/tasks"
)

type testServer struct {
	Server    *httptest.Server
	DB        *database.DB
	FramesDir string
}

// setupTestServer wires the real repositories, frame store and router over
// a seeded SQLite database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tempDir := t.TempDir()
	framesDir := filepath.Join(tempDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		t.Fatalf("Failed to create frames dir: %v", err)
	}

	frames, err := storage.NewLocalStorage(framesDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	db, err := database.NewDB(database.Config{
		Type:       database.TypeSQLite,
		SQLitePath: filepath.Join(tempDir, "test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	seed(t, db)

	tokens, err := auth.NewJWTManager(config.SecurityConfig{JWTSecret: "test-jwt", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("Failed to create token manager: %v", err)
	}

	app := &api.App{
		Tasks: tasks.NewService(
			database.NewTaskRepository(db),
			database.NewAnnotationRepository(db),
			frames,
		),
		Users:     database.NewUserRepository(db),
		Tokens:    tokens,
		DB:        db,
		APISecret: "test-secret",
	}

	server := httptest.NewServer(api.NewRouter(app))
	t.Cleanup(server.Close)

	return &testServer{Server: server, DB: db, FramesDir: framesDir}
}

func seed(t *testing.T, db *database.DB) {
	t.Helper()

	stmts := []string{
		`INSERT INTO auth_user (id, password, username, is_superuser) VALUES (1, '` + auth.HashPassword("letmein", "salt", 1000) + `', 'alice', FALSE)`,
		`INSERT INTO engine_projects (id, name) VALUES (1, 'cars')`,
		`INSERT INTO engine_projects (id, name) VALUES (2, 'boats')`,
		`INSERT INTO engine_projects_users (id, project_id, user_id) VALUES (1, 1, 1)`,
		`INSERT INTO engine_task (id, name, size, path, source, status, project_id, video_id) VALUES (1, 'clip', 10, '/tasks/1', 'clip.mp4', 'annotation', 1, 7)`,
		`INSERT INTO engine_task (id, name, size, path, source, status, project_id, video_id) VALUES (2, 'images', 4, '/tasks/2', 'unknown', 'completed', 1, 8)`,
		`INSERT INTO engine_tasksource (id, task_id, source_name, frame) VALUES (1, 2, 'a.jpg', 0)`,
		`INSERT INTO engine_tasksource (id, task_id, source_name, frame) VALUES (2, 2, 'b.JPG', 1)`,
		`INSERT INTO engine_segment (id, task_id, start_frame, stop_frame) VALUES (1, 1, 0, 9)`,
		`INSERT INTO engine_job (id, segment_id) VALUES (5, 1)`,
		`INSERT INTO engine_label (id, task_id, name) VALUES (1, 1, 'car')`,
		`INSERT INTO engine_attributespec (id, label_id, text) VALUES (1, 1, '~radio=color:red,blue')`,
		`INSERT INTO engine_objectpath (id, job_id, label_id, frame) VALUES (3, 5, 1, 0)`,
		`INSERT INTO engine_trackedbox (id, track_id, frame, outside, xtl, ytl, xbr, ybr) VALUES (1, 3, 0, FALSE, 0, 0, 10, 10)`,
		`INSERT INTO engine_trackedbox (id, track_id, frame, outside, xtl, ytl, xbr, ybr) VALUES (2, 3, 4, FALSE, 4, 4, 14, 14)`,
		`INSERT INTO engine_trackedboxattributeval (id, box_id, spec_id, value) VALUES (1, 1, 1, 'red')`,
		`INSERT INTO engine_frameproperties (id, prop, value, project_id) VALUES (1, 'weather', 'sunny', 1)`,
		`INSERT INTO engine_taskframespec (id, task_id, propval_id) VALUES (1, 1, 1)`,
		`INSERT INTO engine_keyframespec (id, frame, framespec_id) VALUES (1, 0, 1)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Conn().Exec(stmt); err != nil {
			t.Fatalf("Failed to seed: %v\n%s", err, stmt)
		}
	}
}

func login(t *testing.T, ts *testServer) string {
	t.Helper()

	req, _ := http.NewRequest(http.MethodPost, ts.Server.URL+"/login", nil)
	req.SetBasicAuth("alice", "letmein")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to login: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var body struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode login response: %v", err)
	}
	return body.APIKey
}

func get(t *testing.T, ts *testServer, path, token string) *http.Response {
	t.Helper()

	req, _ := http.NewRequest(http.MethodGet, ts.Server.URL+path, nil)
	if token != "" {
		req.Header.Set("api_key", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to GET %s: %v", path, err)
	}
	return resp
}

func TestServer_TaskAnnotations(t *testing.T) {
	ts := setupTestServer(t)
	token := login(t, ts)

	resp := get(t, ts, "/task/annotations?project.name=cars&source=clip.mp4", token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var body []struct {
		Project     string `json:"project.name"`
		Source      string `json:"source"`
		Annotations []struct {
			Frame      int               `json:"frame"`
			TrackID    *int64            `json:"track_id"`
			Class      string            `json:"class"`
			Properties map[string]string `json:"properties"`
		} `json:"annotations"`
		FrameProperties []map[string]any `json:"frameProperties"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if len(body) != 1 || body[0].Source != "clip.mp4" || body[0].Project != "cars" {
		t.Fatalf("Unexpected result %+v", body)
	}

	// the last keyframe holds through the end of the task
	anns := body[0].Annotations
	if len(anns) != 10 {
		t.Fatalf("Expected 10 dense records, got %d", len(anns))
	}
	for i, a := range anns {
		if a.Frame != i || a.TrackID == nil || *a.TrackID != 3 || a.Class != "car" {
			t.Errorf("Unexpected record %d: %+v", i, a)
		}
		if a.Properties["color"] != "red" {
			t.Errorf("Expected inherited color on frame %d, got %v", i, a.Properties)
		}
	}

	if len(body[0].FrameProperties) != 10 || body[0].FrameProperties[9]["weather"] != "sunny" {
		t.Errorf("Unexpected frame properties %v", body[0].FrameProperties)
	}
}

func TestServer_Authorization(t *testing.T) {
	ts := setupTestServer(t)
	token := login(t, ts)

	resp := get(t, ts, "/count/frames?project.name=boats", token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403 for a foreign project, got %d", resp.StatusCode)
	}

	resp = get(t, ts, "/count/frames?project.name=cars", token)
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(data) != "14" {
		t.Errorf("Expected 14 frames, got %d %q", resp.StatusCode, data)
	}
}

func TestServer_WatershedImages(t *testing.T) {
	ts := setupTestServer(t)

	mask := filepath.Join(ts.FramesDir, "tasks", "2", "data", "0", "0", "0_w.png")
	if err := os.MkdirAll(filepath.Dir(mask), 0o755); err != nil {
		t.Fatalf("Failed to create frame dir: %v", err)
	}
	if err := os.WriteFile(mask, []byte("png"), 0o644); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}

	resp := get(t, ts, "/watershed/images?project.name=cars&task.name=images&secret=test-secret", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Invalid archive: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "a_w.png" {
		t.Errorf("Expected only a_w.png, got %v", zr.File)
	}
}

func TestServer_UpdateScores(t *testing.T) {
	ts := setupTestServer(t)
	token := login(t, ts)

	body := bytes.NewBufferString(`[{"video_id": 7, "score": 0.75}, {"video_id": 99, "score": 1}]`)
	req, _ := http.NewRequest(http.MethodPut, ts.Server.URL+"/update/score/tasks?project.name=cars", body)
	req.Header.Set("api_key", token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to update scores: %v", err)
	}
	defer resp.Body.Close()

	var msg struct {
		Message string `json:"message"`
	}
	json.NewDecoder(resp.Body).Decode(&msg)
	if resp.StatusCode != http.StatusOK || msg.Message != "updated successfully 1 videos" {
		t.Errorf("Unexpected response %d %q", resp.StatusCode, msg.Message)
	}

	var score float64
	if err := ts.DB.Conn().QueryRow(`SELECT score FROM engine_task WHERE video_id = 7`).Scan(&score); err != nil {
		t.Fatalf("Failed to read score: %v", err)
	}
	if score != 0.75 {
		t.Errorf("Expected score 0.75, got %v", score)
	}
}

func TestServer_Ready(t *testing.T) {
	ts := setupTestServer(t)

	resp := get(t, ts, "/ready", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}
