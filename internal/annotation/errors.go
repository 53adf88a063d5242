package annotation

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedGeometry = errors.New("malformed geometry")
	ErrNegativeFrame     = fmt.Errorf("%w: negative frame", ErrMalformedGeometry)
)

// MalformedGeometryError rejects one track, or one static shape when TrackID is zero.
type MalformedGeometryError struct {
	TrackID int64
	ShapeID int64
	Frame   int
	Err     error
}

func (e *MalformedGeometryError) Error() string {
	if e.TrackID != 0 {
		return fmt.Sprintf("track %d frame %d: %v", e.TrackID, e.Frame, e.Err)
	}
	return fmt.Sprintf("shape %d frame %d: %v", e.ShapeID, e.Frame, e.Err)
}

func (e *MalformedGeometryError) Unwrap() error {
	return e.Err
}

// Failures flattens an error returned by AssembleTracks or StaticRecords
// into its per-track parts.
func Failures(err error) []*MalformedGeometryError {
	if err == nil {
		return nil
	}

	var out []*MalformedGeometryError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, Failures(e)...)
		}
		return out
	}

	var mg *MalformedGeometryError
	if errors.As(err, &mg) {
		out = append(out, mg)
	}
	return out
}
