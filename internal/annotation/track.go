package annotation

import (
	"cmp"
	"errors"
	"slices"
)

// AssembleTracks expands the keyframes of one job into one record per
// visible frame of every track, up to frame size-1.
//
// Tracks are independent: a track with malformed geometry is left out and
// reported in the returned error (a join of *MalformedGeometryError) while
// the others are still emitted. Records share geometry and attribute storage
// and must be treated as read-only.
func AssembleTracks(keyframes []Keyframe, size int) ([]Record, error) {
	tracks := make(map[int64][]Keyframe)
	for _, k := range keyframes {
		tracks[k.TrackID] = append(tracks[k.TrackID], k)
	}

	ids := make([]int64, 0, len(tracks))
	for id := range tracks {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var (
		out  []Record
		errs []error
	)
	for _, id := range ids {
		records, err := assembleTrack(tracks[id], size)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, records...)
	}

	return out, errors.Join(errs...)
}

func assembleTrack(track []Keyframe, size int) ([]Record, error) {
	for _, k := range track {
		if err := k.validate(); err != nil {
			return nil, &MalformedGeometryError{TrackID: k.TrackID, ShapeID: k.ID, Frame: k.Frame, Err: err}
		}
	}

	track = sortKeyframes(track)

	var (
		out   []Record
		attrs map[string]string
	)
	for i, k := range track {
		attrs = ResolveAttributes(attrs, k.Attributes)
		if k.Outside {
			continue
		}

		rec := recordFrom(k, k.Frame, k.Geometry, attrs, true)
		out = append(out, rec)

		if i+1 < len(track) {
			next := track[i+1]
			out = append(out, belowSize(Interpolate(rec, next.Geometry, next.Frame-k.Frame), size)...)
		} else {
			out = append(out, extend(rec, size)...)
		}
	}

	return out, nil
}

// belowSize drops the frame-ordered records from size onwards.
func belowSize(records []Record, size int) []Record {
	for i, r := range records {
		if r.Frame >= size {
			return records[:i]
		}
	}
	return records
}

// sortKeyframes orders a copy of track by frame. Of several keyframes on
// the same frame only the last one in input order is kept.
func sortKeyframes(track []Keyframe) []Keyframe {
	sorted := slices.Clone(track)
	slices.SortStableFunc(sorted, func(a, b Keyframe) int {
		return cmp.Compare(a.Frame, b.Frame)
	})

	out := sorted[:0]
	for i, k := range sorted {
		if i+1 < len(sorted) && sorted[i+1].Frame == k.Frame {
			continue
		}
		out = append(out, k)
	}
	return out
}
