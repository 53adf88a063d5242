package tasks

import (
	"time"

	"github.com/kdimtricp/cvat-api/internal/annotation"
)

// TaskAnnotations is the dense annotation set of one task.
type TaskAnnotations struct {
	ProjectName     string                     `json:"project.name"`
	Source          string                     `json:"source"`
	Name            string                     `json:"name"`
	Annotations     []annotation.Record        `json:"annotations"`
	FrameProperties []annotation.FrameProperty `json:"frameProperties"`
	Errors          []ShapeFailure             `json:"errors,omitempty"`
}

// ShapeFailure reports a track or static shape left out for bad geometry.
type ShapeFailure struct {
	TrackID *int64 `json:"track_id,omitempty"`
	ShapeID *int64 `json:"shape_id,omitempty"`
	Frame   int    `json:"frame"`
	Message string `json:"message"`
}

func failuresFrom(err error) []ShapeFailure {
	var out []ShapeFailure
	for _, f := range annotation.Failures(err) {
		sf := ShapeFailure{Frame: f.Frame, Message: f.Err.Error()}
		if f.TrackID != 0 {
			id := f.TrackID
			sf.TrackID = &id
		} else {
			id := f.ShapeID
			sf.ShapeID = &id
		}
		out = append(out, sf)
	}
	return out
}

type TaskStatus struct {
	ProjectName string `json:"project.name"`
	Source      string `json:"source"`
	Status      string `json:"status"`
}

type TaskSummary struct {
	ProjectName string    `json:"project.name"`
	Source      string    `json:"source"`
	CreatedDate time.Time `json:"created_date"`
	UpdatedDate time.Time `json:"updated_date"`
}

// StatusGroup holds the tasks sharing one status.
type StatusGroup struct {
	Tasks       []TaskSummary `json:"tasks"`
	TotalFrames int           `json:"total_frames"`
}
