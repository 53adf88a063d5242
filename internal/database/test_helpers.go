package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB opens a migrated SQLite database in a temporary directory.
func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	db, err := NewDB(Config{
		Type:       TypeSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db, func() { db.Close() }
}

// setupPostgresDB starts a PostgreSQL container. Docker is required, so the
// test is skipped unless ANNOTATIONS_PG_TESTS=1.
func setupPostgresDB(t *testing.T) (*DB, func()) {
	t.Helper()
	if os.Getenv("ANNOTATIONS_PG_TESTS") != "1" {
		t.Skip("set ANNOTATIONS_PG_TESTS=1 to run PostgreSQL tests")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("cvat_test"),
		postgres.WithUsername("cvat_test"),
		postgres.WithPassword("cvat_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	db, err := NewDB(Config{
		Type:     TypePostgres,
		Host:     host,
		Port:     port.Int(),
		User:     "cvat_test",
		Password: "cvat_test_password",
		Name:     "cvat_test",
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

// seedFixture inserts one project with a member, a task of 10 frames with a
// job, a tracked box with three keyframes, a labeled polygon and two frame
// property keyframes.
func seedFixture(t *testing.T, db *DB) {
	t.Helper()

	stmts := []string{
		`INSERT INTO auth_user (id, password, username, is_superuser) VALUES (1, 'x', 'alice', FALSE)`,
		`INSERT INTO auth_user (id, password, username, is_superuser) VALUES (2, 'x', 'root', TRUE)`,
		`INSERT INTO auth_user (id, password, username, is_superuser) VALUES (3, 'x', 'bob', FALSE)`,
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
		`INSERT INTO engine_trackedbox (id, track_id, frame, outside, xtl, ytl, xbr, ybr) VALUES (3, 3, 6, TRUE, 4, 4, 14, 14)`,
		`INSERT INTO engine_trackedboxattributeval (id, box_id, spec_id, value) VALUES (1, 1, 1, 'red')`,
		`INSERT INTO engine_labeledpolygon (id, job_id, label_id, frame, points) VALUES (1, 5, 1, 2, '1,2 3,4 5,6')`,
		`INSERT INTO engine_labeledpolygonattributeval (id, polygon_id, spec_id, value) VALUES (1, 1, 1, 'blue')`,
		`INSERT INTO engine_frameproperties (id, prop, value, project_id) VALUES (1, 'weather', 'sunny', 1)`,
		`INSERT INTO engine_frameproperties (id, prop, value, project_id) VALUES (2, 'weather', 'rain', 1)`,
		`INSERT INTO engine_taskframespec (id, task_id, propval_id) VALUES (1, 1, 1)`,
		`INSERT INTO engine_taskframespec (id, task_id, propval_id) VALUES (2, 1, 2)`,
		`INSERT INTO engine_keyframespec (id, frame, framespec_id) VALUES (1, 0, 1)`,
		`INSERT INTO engine_keyframespec (id, frame, framespec_id) VALUES (2, 5, 2)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Conn().Exec(stmt); err != nil {
			t.Fatalf("Failed to seed fixture: %v\n%s", err, stmt)
		}
	}

	if db.Type() == TypePostgres {
		// explicit ids leave the sequences behind
		for _, table := range []string{"auth_user", "engine_projects", "engine_task"} {
			stmt := "SELECT setval(pg_get_serial_sequence('" + table + "', 'id'), (SELECT MAX(id) FROM " + table + "))"
			if _, err := db.Conn().Exec(stmt); err != nil {
				t.Fatalf("Failed to reset sequence: %v", err)
			}
		}
	}
}
