package annotation

// Interpolate fills the frames strictly between start and a keyframe margin
// frames later whose geometry is stop. Coordinates move linearly; label,
// track and attributes are copied from start. When the two geometries do not
// line up (different kind or vertex count) start's geometry is held.
func Interpolate(start Record, stop Geometry, margin int) []Record {
	if margin <= 1 {
		return nil
	}

	blend := interpolable(start.Geometry, stop)
	var delta []float64
	if blend {
		delta = make([]float64, len(start.Geometry.Coords))
		for c := range delta {
			delta[c] = (stop.Coords[c] - start.Geometry.Coords[c]) / float64(margin)
		}
	}

	out := make([]Record, 0, margin-1)
	for i := 1; i < margin; i++ {
		rec := start
		rec.Frame = start.Frame + i
		if blend {
			coords := make([]float64, len(delta))
			for c := range coords {
				coords[c] = start.Geometry.Coords[c] + delta[c]*float64(i)
			}
			rec.Geometry = Geometry{Kind: start.Geometry.Kind, Coords: coords}
		}
		out = append(out, rec)
	}
	return out
}

// extend repeats rec unchanged on every frame after it up to size-1.
func extend(rec Record, size int) []Record {
	if rec.Frame+1 >= size {
		return nil
	}

	out := make([]Record, 0, size-rec.Frame-1)
	for frame := rec.Frame + 1; frame < size; frame++ {
		next := rec
		next.Frame = frame
		out = append(out, next)
	}
	return out
}
