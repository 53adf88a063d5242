package annotation

import "errors"

// StaticRecords turns labeled (untracked) shapes into records on their own
// frame. Shapes with malformed geometry are skipped and reported.
func StaticRecords(shapes []Keyframe) ([]Record, error) {
	var (
		out  []Record
		errs []error
	)
	for _, s := range shapes {
		if err := s.validate(); err != nil {
			errs = append(errs, &MalformedGeometryError{ShapeID: s.ID, Frame: s.Frame, Err: err})
			continue
		}
		out = append(out, recordFrom(s, s.Frame, s.Geometry, ResolveAttributes(nil, s.Attributes), false))
	}
	return out, errors.Join(errs...)
}
