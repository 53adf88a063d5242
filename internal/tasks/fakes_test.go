package tasks

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/kdimtricp/cvat-api/internal/annotation"
	"github.com/kdimtricp/cvat-api/internal/database"
	"github.com/kdimtricp/cvat-api/internal/models"
	"github.com/kdimtricp/cvat-api/internal/storage"
)

type fakeTasks struct {
	tasks   []models.Task
	jobs    map[int64]int64
	sources map[int64][]models.TaskSource
	err     error
}

func (f *fakeTasks) FindTask(_ context.Context, _, source string) (*models.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.tasks {
		if f.tasks[i].Source == source {
			return &f.tasks[i], nil
		}
	}
	return f.FindTaskByName(context.Background(), "", source)
}

func (f *fakeTasks) FindTaskByName(_ context.Context, _, name string) (*models.Task, error) {
	for i := range f.tasks {
		if f.tasks[i].Name == name {
			return &f.tasks[i], nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeTasks) FirstJobID(_ context.Context, taskID int64) (int64, error) {
	job, ok := f.jobs[taskID]
	if !ok {
		return 0, database.ErrNotFound
	}
	return job, nil
}

func (f *fakeTasks) ListTasks(_ context.Context, _ string, sources, statuses []string) ([]models.Task, error) {
	var out []models.Task
	for _, t := range f.tasks {
		if len(sources) > 0 && !contains(sources, t.Source) {
			continue
		}
		if len(statuses) > 0 && !contains(statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTasks) CountFrames(_ context.Context, _ string) (int64, error) {
	var total int64
	for _, t := range f.tasks {
		total += int64(t.Size)
	}
	return total, nil
}

func (f *fakeTasks) UpdateScore(_ context.Context, _ string, videoID int64, score float64) (bool, error) {
	found := false
	for i := range f.tasks {
		if f.tasks[i].VideoID == videoID {
			f.tasks[i].Score = score
			found = true
		}
	}
	return found, nil
}

func (f *fakeTasks) TaskSources(_ context.Context, taskID int64, names []string) ([]models.TaskSource, error) {
	var out []models.TaskSource
	for _, s := range f.sources[taskID] {
		if len(names) > 0 && !contains(names, s.SourceName) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type fakeAnnotations struct {
	tracked map[annotation.Kind][]annotation.Keyframe
	labeled map[annotation.Kind][]annotation.Keyframe
	props   []annotation.PropertyKeyframe
	err     error
}

func (f *fakeAnnotations) TrackedKeyframes(_ context.Context, _ int64, kind annotation.Kind) ([]annotation.Keyframe, error) {
	return f.tracked[kind], f.err
}

func (f *fakeAnnotations) LabeledShapes(_ context.Context, _ int64, kind annotation.Kind) ([]annotation.Keyframe, error) {
	return f.labeled[kind], f.err
}

func (f *fakeAnnotations) PropertyKeyframes(_ context.Context, _ int64) ([]annotation.PropertyKeyframe, error) {
	return f.props, f.err
}

type fakeFrames map[string][]byte

func (f fakeFrames) OpenFrame(dataDir string, frame int) (io.ReadCloser, error) {
	data, ok := f[storage.FramePath(dataDir, frame)]
	if !ok {
		return nil, fmt.Errorf("%w: %d", storage.ErrFrameNotFound, frame)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
