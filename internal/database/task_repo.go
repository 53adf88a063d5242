package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kdimtricp/cvat-api/internal/models"
)

type TaskRepository struct {
	db *DB
}

func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) inProject(ctx context.Context, projectName string) *gorm.DB {
	return r.db.GORM().WithContext(ctx).
		Joins("JOIN engine_projects ON engine_projects.id = engine_task.project_id").
		Where("engine_projects.name = ?", projectName)
}

// FindTask returns the task of the project whose source matches, falling
// back to the task name for image tasks.
func (r *TaskRepository) FindTask(ctx context.Context, projectName, source string) (*models.Task, error) {
	for _, column := range []string{"engine_task.source", "engine_task.name"} {
		var task models.Task
		result := r.inProject(ctx, projectName).
			Where(column+" = ?", source).
			Order("engine_task.id").
			First(&task)
		if result.Error == nil {
			return &task, nil
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to get task: %w", result.Error)
		}
	}
	return nil, ErrNotFound
}

func (r *TaskRepository) FindTaskByName(ctx context.Context, projectName, name string) (*models.Task, error) {
	var task models.Task
	result := r.inProject(ctx, projectName).
		Where("engine_task.name = ?", name).
		Order("engine_task.id").
		First(&task)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", result.Error)
	}
	return &task, nil
}

// FirstJobID resolves the job holding a task's annotations: the first job of
// its first segment.
func (r *TaskRepository) FirstJobID(ctx context.Context, taskID int64) (int64, error) {
	var job models.Job
	result := r.db.GORM().WithContext(ctx).
		Joins("JOIN engine_segment ON engine_segment.id = engine_job.segment_id").
		Where("engine_segment.task_id = ?", taskID).
		Order("engine_segment.id, engine_job.id").
		First(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get job: %w", result.Error)
	}
	return job.ID, nil
}

// ListTasks returns the project's tasks, limited to the given sources and
// statuses when those are non-empty.
func (r *TaskRepository) ListTasks(ctx context.Context, projectName string, sources, statuses []string) ([]models.Task, error) {
	q := r.inProject(ctx, projectName)
	if len(sources) > 0 {
		q = q.Where("engine_task.source IN ?", sources)
	}
	if len(statuses) > 0 {
		q = q.Where("engine_task.status IN ?", statuses)
	}

	var tasks []models.Task
	if result := q.Order("engine_task.id").Find(&tasks); result.Error != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", result.Error)
	}
	return tasks, nil
}

func (r *TaskRepository) CountFrames(ctx context.Context, projectName string) (int64, error) {
	var total int64
	result := r.inProject(ctx, projectName).
		Model(&models.Task{}).
		Select("COALESCE(SUM(engine_task.size), 0)").
		Scan(&total)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count frames: %w", result.Error)
	}
	return total, nil
}

// UpdateScore sets the score of every project task made from videoID and
// reports whether any task matched.
func (r *TaskRepository) UpdateScore(ctx context.Context, projectName string, videoID int64, score float64) (bool, error) {
	var project models.Project
	result := r.db.GORM().WithContext(ctx).Where("name = ?", projectName).First(&project)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get project: %w", result.Error)
	}

	result = r.db.GORM().WithContext(ctx).
		Model(&models.Task{}).
		Where("project_id = ? AND video_id = ?", project.ID, videoID).
		Update("score", score)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update score: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// TaskSources lists the source images of a task, optionally only the named ones.
func (r *TaskRepository) TaskSources(ctx context.Context, taskID int64, names []string) ([]models.TaskSource, error) {
	q := r.db.GORM().WithContext(ctx).Where("task_id = ?", taskID)
	if len(names) > 0 {
		q = q.Where("source_name IN ?", names)
	}

	var sources []models.TaskSource
	if result := q.Order("id").Find(&sources); result.Error != nil {
		return nil, fmt.Errorf("failed to list task sources: %w", result.Error)
	}
	return sources, nil
}
