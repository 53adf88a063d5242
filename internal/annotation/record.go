// Package annotation rebuilds dense per-frame annotations from the sparse
// keyframes stored by the annotation server.
//
// Tracked shapes are stored only on the frames a user touched. AssembleTracks
// groups those keyframes by track, interpolates geometry between them, carries
// attributes forward and cuts the track wherever the object is marked outside.
// DensifyProperties does the same for scalar frame properties, holding each
// value until the next keyframe instead of interpolating.
//
// Everything here is a pure function of its input: no I/O, no shared state.
package annotation

import (
	"github.com/goccy/go-json"
)

// Keyframe is one stored shape row. Static (labeled) shapes use the same
// type with TrackID zero.
type Keyframe struct {
	ID         int64
	TrackID    int64
	Frame      int
	Label      string
	Geometry   Geometry
	Attributes map[string]string
	Outside    bool

	// GeometryErr is set by the reader when the stored geometry could not
	// be decoded. A track holding such a keyframe is rejected.
	GeometryErr error
}

func (k Keyframe) validate() error {
	if k.GeometryErr != nil {
		return k.GeometryErr
	}
	if k.Frame < 0 {
		return ErrNegativeFrame
	}
	return k.Geometry.Validate()
}

// Record is one shape on one frame.
type Record struct {
	Frame      int
	TrackID    int64
	Tracked    bool
	Label      string
	Geometry   Geometry
	Attributes map[string]string
}

type recordJSON struct {
	Box        *boxJSON          `json:"box,omitempty"`
	Geometry   *geoJSON          `json:"geometry,omitempty"`
	Properties map[string]string `json:"properties"`
	Frame      int               `json:"frame"`
	Class      string            `json:"class"`
	TrackID    *int64            `json:"track_id,omitempty"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		Properties: r.Attributes,
		Frame:      r.Frame,
		Class:      r.Label,
	}
	if out.Properties == nil {
		out.Properties = map[string]string{}
	}
	if r.Geometry.Kind == KindBox && len(r.Geometry.Coords) == 4 {
		out.Box = r.Geometry.box()
	} else {
		out.Geometry = r.Geometry.geoJSON()
	}
	if r.Tracked {
		id := r.TrackID
		out.TrackID = &id
	}
	return json.Marshal(out)
}

func recordFrom(k Keyframe, frame int, g Geometry, attrs map[string]string, tracked bool) Record {
	return Record{
		Frame:      frame,
		TrackID:    k.TrackID,
		Tracked:    tracked,
		Label:      k.Label,
		Geometry:   g,
		Attributes: attrs,
	}
}
