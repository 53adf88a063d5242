package annotation

import (
	"cmp"
	"slices"

	"github.com/goccy/go-json"
)

// PropertyKeyframe sets a frame property to Value from Frame onwards.
type PropertyKeyframe struct {
	Frame int
	Name  string
	Value string
}

// FrameProperty is the value of one property on one frame.
// It is emitted as {"frame": n, "<name>": value}; a property named "frame"
// loses to the frame number.
type FrameProperty struct {
	Frame int
	Name  string
	Value string
}

func (p FrameProperty) MarshalJSON() ([]byte, error) {
	out := map[string]any{p.Name: p.Value}
	out["frame"] = p.Frame
	return json.Marshal(out)
}

// DensifyProperties holds every property value constant from its keyframe
// up to the next keyframe of the same property, and the last one up to
// size-1. Properties come out in name order, each in frame order. A value
// keyed before frame 0 is in effect from frame 0.
func DensifyProperties(keyframes []PropertyKeyframe, size int) []FrameProperty {
	byName := make(map[string][]PropertyKeyframe)
	for _, k := range keyframes {
		byName[k.Name] = append(byName[k.Name], k)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	slices.Sort(names)

	var out []FrameProperty
	for _, name := range names {
		group := byName[name]
		slices.SortStableFunc(group, func(a, b PropertyKeyframe) int {
			return cmp.Compare(a.Frame, b.Frame)
		})

		for i, k := range group {
			stop := size
			if i+1 < len(group) {
				stop = group[i+1].Frame
			}
			for frame := max(k.Frame, 0); frame < stop; frame++ {
				out = append(out, FrameProperty{Frame: frame, Name: name, Value: k.Value})
			}
		}
	}
	return out
}
