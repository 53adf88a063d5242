package annotation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Kind int

const (
	KindBox Kind = iota
	KindPolygon
	KindPolyline
	KindPoints
)

func (k Kind) String() string {
	switch k {
	case KindBox:
		return "box"
	case KindPolygon:
		return "polygon"
	case KindPolyline:
		return "polyline"
	case KindPoints:
		return "points"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// geoJSONType is the GeoJSON geometry type a shape kind is emitted as.
func (k Kind) geoJSONType() string {
	switch k {
	case KindPolyline:
		return "LineString"
	case KindPoints:
		return "MultiPoint"
	default:
		return "Polygon"
	}
}

// Geometry is a shape of one kind with a flat coordinate list.
// Boxes hold xtl, ytl, xbr, ybr; every other kind holds x,y pairs.
type Geometry struct {
	Kind   Kind
	Coords []float64
}

func NewBox(xtl, ytl, xbr, ybr float64) Geometry {
	return Geometry{Kind: KindBox, Coords: []float64{xtl, ytl, xbr, ybr}}
}

// ParsePoints decodes stored vertex text of the form "x1,y1 x2,y2 ...".
func ParsePoints(kind Kind, text string) (Geometry, error) {
	if kind == KindBox {
		return Geometry{}, fmt.Errorf("%w: boxes are not stored as points", ErrMalformedGeometry)
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Geometry{}, fmt.Errorf("%w: empty points", ErrMalformedGeometry)
	}

	coords := make([]float64, 0, len(fields)*2)
	for _, field := range fields {
		xy := strings.Split(field, ",")
		if len(xy) != 2 {
			return Geometry{}, fmt.Errorf("%w: vertex %q is not an x,y pair", ErrMalformedGeometry, field)
		}
		for _, part := range xy {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return Geometry{}, fmt.Errorf("%w: vertex %q: %v", ErrMalformedGeometry, field, err)
			}
			coords = append(coords, v)
		}
	}

	return Geometry{Kind: kind, Coords: coords}, nil
}

// Validate reports whether the geometry is complete and numeric.
func (g Geometry) Validate() error {
	switch g.Kind {
	case KindBox:
		if len(g.Coords) != 4 {
			return fmt.Errorf("%w: box has %d of 4 coordinates", ErrMalformedGeometry, len(g.Coords))
		}
	case KindPolygon, KindPolyline, KindPoints:
		if len(g.Coords) == 0 || len(g.Coords)%2 != 0 {
			return fmt.Errorf("%w: %s has %d coordinates", ErrMalformedGeometry, g.Kind, len(g.Coords))
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrMalformedGeometry, int(g.Kind))
	}

	for _, v := range g.Coords {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s has non-finite coordinate", ErrMalformedGeometry, g.Kind)
		}
	}
	return nil
}

// interpolable reports whether a and b can be blended component by component.
func interpolable(a, b Geometry) bool {
	return a.Kind == b.Kind && len(a.Coords) == len(b.Coords)
}

func (g Geometry) clone() Geometry {
	coords := make([]float64, len(g.Coords))
	copy(coords, g.Coords)
	return Geometry{Kind: g.Kind, Coords: coords}
}

// boxJSON is the wire form of a box.
type boxJSON struct {
	Xbr float64 `json:"xbr"`
	Xtl float64 `json:"xtl"`
	Ybr float64 `json:"ybr"`
	Ytl float64 `json:"ytl"`
}

// geoJSON is the wire form of every non-box kind.
type geoJSON struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

func (g Geometry) box() *boxJSON {
	return &boxJSON{Xtl: g.Coords[0], Ytl: g.Coords[1], Xbr: g.Coords[2], Ybr: g.Coords[3]}
}

func (g Geometry) geoJSON() *geoJSON {
	vertices := make([][]float64, 0, len(g.Coords)/2)
	for i := 0; i+1 < len(g.Coords); i += 2 {
		vertices = append(vertices, []float64{g.Coords[i], g.Coords[i+1]})
	}

	var coordinates any = vertices
	if g.Kind == KindPolygon {
		coordinates = [][][]float64{vertices}
	}
	return &geoJSON{Type: g.Kind.geoJSONType(), Coordinates: coordinates}
}
