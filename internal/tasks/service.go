// Package tasks answers task level queries: dense annotations, statuses,
// frame counts, scores and watershed images.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/kdimtricp/cvat-api/internal/annotation"
	"github.com/kdimtricp/cvat-api/internal/database"
	"github.com/kdimtricp/cvat-api/internal/logging"
	"github.com/kdimtricp/cvat-api/internal/metrics"
	"github.com/kdimtricp/cvat-api/internal/models"
	"github.com/kdimtricp/cvat-api/internal/storage"
)

type TaskStore interface {
	FindTask(ctx context.Context, projectName, source string) (*models.Task, error)
	FindTaskByName(ctx context.Context, projectName, name string) (*models.Task, error)
	FirstJobID(ctx context.Context, taskID int64) (int64, error)
	ListTasks(ctx context.Context, projectName string, sources, statuses []string) ([]models.Task, error)
	CountFrames(ctx context.Context, projectName string) (int64, error)
	UpdateScore(ctx context.Context, projectName string, videoID int64, score float64) (bool, error)
	TaskSources(ctx context.Context, taskID int64, names []string) ([]models.TaskSource, error)
}

type AnnotationStore interface {
	TrackedKeyframes(ctx context.Context, jobID int64, kind annotation.Kind) ([]annotation.Keyframe, error)
	LabeledShapes(ctx context.Context, jobID int64, kind annotation.Kind) ([]annotation.Keyframe, error)
	PropertyKeyframes(ctx context.Context, taskID int64) ([]annotation.PropertyKeyframe, error)
}

// shapeKinds is the order annotations are emitted in, tracked kinds first.
var shapeKinds = []annotation.Kind{
	annotation.KindBox,
	annotation.KindPolygon,
	annotation.KindPolyline,
	annotation.KindPoints,
}

type Service struct {
	tasks       TaskStore
	annotations AnnotationStore
	frames      storage.FrameStore
}

func NewService(tasks TaskStore, annotations AnnotationStore, frames storage.FrameStore) *Service {
	return &Service{
		tasks:       tasks,
		annotations: annotations,
		frames:      frames,
	}
}

// Annotations returns one result per source, in request order. The first
// source that matches no task aborts the request.
func (s *Service) Annotations(ctx context.Context, projectName string, sources []string) ([]*TaskAnnotations, error) {
	out := make([]*TaskAnnotations, 0, len(sources))
	for _, source := range sources {
		ta, err := s.TaskAnnotations(ctx, projectName, source)
		if err != nil {
			return nil, err
		}
		out = append(out, ta)
	}
	return out, nil
}

func (s *Service) TaskAnnotations(ctx context.Context, projectName, source string) (*TaskAnnotations, error) {
	task, err := s.tasks.FindTask(ctx, projectName, source)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &MissingTaskError{Source: source}
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	jobID, err := s.tasks.FirstJobID(ctx, task.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &MissingTaskError{Source: source}
		}
		return nil, fmt.Errorf("failed to resolve job: %w", err)
	}

	result := &TaskAnnotations{
		ProjectName: projectName,
		Source:      task.Source,
		Name:        task.Name,
		Annotations: []annotation.Record{},
	}

	var failures []error
	for _, kind := range shapeKinds {
		kfs, err := s.annotations.TrackedKeyframes(ctx, jobID, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to read tracked %s: %w", kind, err)
		}
		records, err := annotation.AssembleTracks(kfs, task.Size)
		if err != nil {
			failures = append(failures, err)
		}
		metrics.RecordDensified("tracked_"+kind.String(), len(records))
		result.Annotations = append(result.Annotations, records...)
	}

	for _, kind := range shapeKinds {
		shapes, err := s.annotations.LabeledShapes(ctx, jobID, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to read labeled %s: %w", kind, err)
		}
		records, err := annotation.StaticRecords(shapes)
		if err != nil {
			failures = append(failures, err)
		}
		metrics.RecordDensified("labeled_"+kind.String(), len(records))
		result.Annotations = append(result.Annotations, records...)
	}

	props, err := s.annotations.PropertyKeyframes(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame properties: %w", err)
	}
	result.FrameProperties = annotation.DensifyProperties(props, task.Size)
	if result.FrameProperties == nil {
		result.FrameProperties = []annotation.FrameProperty{}
	}
	metrics.RecordDensified("frame_property", len(result.FrameProperties))

	if len(failures) > 0 {
		result.Errors = failuresFrom(errors.Join(failures...))
		metrics.RecordTrackFailures(len(result.Errors))
		logging.Ctx(ctx).Warn().
			Str("project", projectName).
			Str("source", source).
			Int("failures", len(result.Errors)).
			Err(errors.Join(failures...)).
			Msg("shapes with malformed geometry skipped")
	}

	return result, nil
}

func (s *Service) Statuses(ctx context.Context, projectName string, sources []string) ([]TaskStatus, error) {
	tasks, err := s.tasks.ListTasks(ctx, projectName, sources, nil)
	if err != nil {
		return nil, err
	}

	out := make([]TaskStatus, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, TaskStatus{ProjectName: projectName, Source: t.Source, Status: t.Status})
	}
	return out, nil
}

// TasksByStatus groups the project's tasks by status, optionally only the
// given statuses.
func (s *Service) TasksByStatus(ctx context.Context, projectName string, statuses []string) (map[string]*StatusGroup, error) {
	tasks, err := s.tasks.ListTasks(ctx, projectName, nil, statuses)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*StatusGroup)
	for _, t := range tasks {
		g, ok := groups[t.Status]
		if !ok {
			g = &StatusGroup{Tasks: []TaskSummary{}}
			groups[t.Status] = g
		}
		g.Tasks = append(g.Tasks, TaskSummary{
			ProjectName: projectName,
			Source:      t.Source,
			CreatedDate: t.CreatedDate,
			UpdatedDate: t.UpdatedDate,
		})
		g.TotalFrames += t.Size
	}
	return groups, nil
}

func (s *Service) CountFrames(ctx context.Context, projectName string) (int64, error) {
	return s.tasks.CountFrames(ctx, projectName)
}

// UpdateScores applies every complete entry and returns how many matched a task.
func (s *Service) UpdateScores(ctx context.Context, projectName string, updates []models.ScoreUpdate) (int, error) {
	updated := 0
	for _, u := range updates {
		if u.VideoID == nil || u.Score == nil {
			continue
		}
		ok, err := s.tasks.UpdateScore(ctx, projectName, *u.VideoID, *u.Score)
		if err != nil {
			return updated, err
		}
		if ok {
			updated++
		}
	}
	return updated, nil
}
