package tasks

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/kdimtricp/cvat-api/internal/database"
	"github.com/kdimtricp/cvat-api/internal/logging"
	"github.com/kdimtricp/cvat-api/internal/storage"
)

var jpgSuffix = regexp.MustCompile(`(?i)\.jpg`)

// WatershedEntryName is the zip entry a source image's mask is stored under.
func WatershedEntryName(source string) string {
	return jpgSuffix.ReplaceAllString(source, "_w.png")
}

// WatershedArchive is the set of mask images to zip for one task.
type WatershedArchive struct {
	s       *Service
	dataDir string
	sources []sourceFrame
}

type sourceFrame struct {
	name  string
	frame int
}

// Count is the number of sources the archive covers.
func (a *WatershedArchive) Count() int {
	return len(a.sources)
}

// Watershed resolves the task by name and the requested sources (all of
// them when names is empty).
func (s *Service) Watershed(ctx context.Context, projectName, taskName string, names []string) (*WatershedArchive, error) {
	task, err := s.tasks.FindTaskByName(ctx, projectName, taskName)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &MissingTaskError{Source: taskName}
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	sources, err := s.tasks.TaskSources(ctx, task.ID, names)
	if err != nil {
		return nil, err
	}

	a := &WatershedArchive{s: s, dataDir: task.DataDir()}
	for _, src := range sources {
		a.sources = append(a.sources, sourceFrame{name: src.SourceName, frame: src.Frame})
	}
	return a, nil
}

// Stream writes the zip to w. Frames missing from the store are skipped.
func (a *WatershedArchive) Stream(ctx context.Context, w io.Writer) (int, error) {
	zw := zip.NewWriter(w)

	written := 0
	for _, src := range a.sources {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		ok, err := a.writeEntry(zw, src)
		if err != nil {
			return written, err
		}
		if ok {
			written++
		}
	}

	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("failed to finish archive: %w", err)
	}
	return written, nil
}

func (a *WatershedArchive) writeEntry(zw *zip.Writer, src sourceFrame) (bool, error) {
	frame, err := a.s.frames.OpenFrame(a.dataDir, src.frame)
	if err != nil {
		if errors.Is(err, storage.ErrFrameNotFound) {
			logging.Debug().Str("source", src.name).Int("frame", src.frame).Msg("watershed frame missing")
			return false, nil
		}
		return false, err
	}
	defer frame.Close()

	entry, err := zw.Create(WatershedEntryName(src.name))
	if err != nil {
		return false, fmt.Errorf("failed to add %s: %w", src.name, err)
	}
	if _, err := io.Copy(entry, frame); err != nil {
		return false, fmt.Errorf("failed to copy %s: %w", src.name, err)
	}
	return true, nil
}
