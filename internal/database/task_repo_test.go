package database

import (
	"context"
	"errors"
	"testing"

	"github.com/kdimtricp/cvat-api/internal/annotation"
)

func TestTaskRepository_FindTask(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedFixture(t, db)

	repo := NewTaskRepository(db)
	ctx := context.Background()

	tests := []struct {
		name    string
		project string
		source  string
		wantID  int64
		wantErr error
	}{
		{name: "by source", project: "cars", source: "clip.mp4", wantID: 1},
		{name: "falls back to name", project: "cars", source: "images", wantID: 2},
		{name: "other project", project: "boats", source: "clip.mp4", wantErr: ErrNotFound},
		{name: "unknown", project: "cars", source: "nope", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := repo.FindTask(ctx, tt.project, tt.source)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if task.ID != tt.wantID {
				t.Errorf("Expected task %d, got %d", tt.wantID, task.ID)
			}
		})
	}
}

func TestTaskRepository_FirstJobID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedFixture(t, db)

	repo := NewTaskRepository(db)
	jobID, err := repo.FirstJobID(context.Background(), 1)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if jobID != 5 {
		t.Errorf("Expected job 5, got %d", jobID)
	}

	if _, err := repo.FirstJobID(context.Background(), 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for task without segments, got %v", err)
	}
}

func TestTaskRepository_ListAndCount(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedFixture(t, db)

	repo := NewTaskRepository(db)
	ctx := context.Background()

	all, err := repo.ListTasks(ctx, "cars", nil, nil)
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 tasks, got %d", len(all))
	}

	completed, err := repo.ListTasks(ctx, "cars", nil, []string{"completed"})
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(completed) != 1 || completed[0].Name != "images" {
		t.Errorf("Unexpected completed tasks %+v", completed)
	}

	bySource, err := repo.ListTasks(ctx, "cars", []string{"clip.mp4"}, nil)
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(bySource) != 1 || bySource[0].Status != "annotation" {
		t.Errorf("Unexpected tasks by source %+v", bySource)
	}

	total, err := repo.CountFrames(ctx, "cars")
	if err != nil {
		t.Fatalf("Failed to count frames: %v", err)
	}
	if total != 14 {
		t.Errorf("Expected 14 frames, got %d", total)
	}

	empty, err := repo.CountFrames(ctx, "boats")
	if err != nil {
		t.Fatalf("Failed to count frames: %v", err)
	}
	if empty != 0 {
		t.Errorf("Expected 0 frames, got %d", empty)
	}
}

func TestTaskRepository_UpdateScore(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedFixture(t, db)

	repo := NewTaskRepository(db)
	ctx := context.Background()

	updated, err := repo.UpdateScore(ctx, "cars", 7, 0.75)
	if err != nil {
		t.Fatalf("Failed to update score: %v", err)
	}
	if !updated {
		t.Fatal("Expected a task to be updated")
	}

	task, err := repo.FindTask(ctx, "cars", "clip.mp4")
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if task.Score != 0.75 {
		t.Errorf("Expected score 0.75, got %v", task.Score)
	}

	updated, err = repo.UpdateScore(ctx, "cars", 99, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if updated {
		t.Error("Expected no task for unknown video")
	}
}

func TestTaskRepository_TaskSources(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedFixture(t, db)

	repo := NewTaskRepository(db)
	sources, err := repo.TaskSources(context.Background(), 2, nil)
	if err != nil {
		t.Fatalf("Failed to list sources: %v", err)
	}
	if len(sources) != 2 {
		t.Errorf("Expected 2 sources, got %d", len(sources))
	}

	filtered, err := repo.TaskSources(context.Background(), 2, []string{"b.JPG"})
	if err != nil {
		t.Fatalf("Failed to list sources: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Frame != 1 {
		t.Errorf("Unexpected filtered sources %+v", filtered)
	}
}

func TestPostgres_ReadPath(t *testing.T) {
	db, cleanup := setupPostgresDB(t)
	defer cleanup()
	seedFixture(t, db)

	ctx := context.Background()
	task, err := NewTaskRepository(db).FindTask(ctx, "cars", "clip.mp4")
	if err != nil {
		t.Fatalf("Failed to find task: %v", err)
	}

	jobID, err := NewTaskRepository(db).FirstJobID(ctx, task.ID)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	kfs, err := NewAnnotationRepository(db).TrackedKeyframes(ctx, jobID, annotation.KindBox)
	if err != nil {
		t.Fatalf("Failed to read keyframes: %v", err)
	}
	if len(kfs) != 3 || kfs[0].Attributes["color"] != "red" {
		t.Errorf("Unexpected keyframes %+v", kfs)
	}

	props, err := NewAnnotationRepository(db).PropertyKeyframes(ctx, task.ID)
	if err != nil {
		t.Fatalf("Failed to read properties: %v", err)
	}
	if len(props) != 2 {
		t.Errorf("Expected 2 property keyframes, got %d", len(props))
	}

	ok, err := NewUserRepository(db).CanAccess(ctx, mustUser(t, db, "alice"), []string{"cars"})
	if err != nil || !ok {
		t.Errorf("Expected alice to access cars, got %v, %v", ok, err)
	}
}
