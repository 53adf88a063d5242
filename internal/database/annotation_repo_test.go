package database

import (
	"context"
	"errors"
	"testing"

	"github.com/kdimtricp/cvat-api/internal/annotation"
)

func TestAnnotationRepository_TrackedKeyframes(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedFixture(t, db)

	repo := NewAnnotationRepository(db)
	kfs, err := repo.TrackedKeyframes(context.Background(), 5, annotation.KindBox)
	if err != nil {
		t.Fatalf("Failed to read keyframes: %v", err)
	}

	if len(kfs) != 3 {
		t.Fatalf("Expected 3 keyframes, got %d", len(kfs))
	}
	first := kfs[0]
	if first.TrackID != 3 || first.Frame != 0 || first.Label != "car" {
		t.Errorf("Unexpected first keyframe %+v", first)
	}
	if first.Attributes["color"] != "red" {
		t.Errorf("Expected color=red, got %v", first.Attributes)
	}
	if first.GeometryErr != nil {
		t.Errorf("Unexpected geometry error: %v", first.GeometryErr)
	}
	if got := first.Geometry.Coords; len(got) != 4 || got[2] != 10 {
		t.Errorf("Unexpected geometry %v", got)
	}
	if !kfs[2].Outside {
		t.Error("Expected last keyframe to be outside")
	}
}

func TestAnnotationRepository_NullCoordinateIsMalformed(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedFixture(t, db)

	if _, err := db.Conn().Exec(`UPDATE engine_trackedbox SET xbr = NULL WHERE id = 2`); err != nil {
		t.Fatalf("Failed to update: %v", err)
	}

	kfs, err := NewAnnotationRepository(db).TrackedKeyframes(context.Background(), 5, annotation.KindBox)
	if err != nil {
		t.Fatalf("Failed to read keyframes: %v", err)
	}
	if !errors.Is(kfs[1].GeometryErr, annotation.ErrMalformedGeometry) {
		t.Errorf("Expected malformed geometry, got %v", kfs[1].GeometryErr)
	}
}

func TestAnnotationRepository_LabeledShapes(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedFixture(t, db)

	repo := NewAnnotationRepository(db)
	shapes, err := repo.LabeledShapes(context.Background(), 5, annotation.KindPolygon)
	if err != nil {
		t.Fatalf("Failed to read shapes: %v", err)
	}
	if len(shapes) != 1 {
		t.Fatalf("Expected 1 shape, got %d", len(shapes))
	}
	if shapes[0].TrackID != 0 || shapes[0].Frame != 2 {
		t.Errorf("Unexpected shape %+v", shapes[0])
	}
	if len(shapes[0].Geometry.Coords) != 6 {
		t.Errorf("Expected 3 vertices, got %v", shapes[0].Geometry.Coords)
	}
	if shapes[0].Attributes["color"] != "blue" {
		t.Errorf("Expected color=blue, got %v", shapes[0].Attributes)
	}

	boxes, err := repo.LabeledShapes(context.Background(), 5, annotation.KindBox)
	if err != nil {
		t.Fatalf("Failed to read boxes: %v", err)
	}
	if len(boxes) != 0 {
		t.Errorf("Expected no labeled boxes, got %d", len(boxes))
	}
}

func TestAnnotationRepository_AllKindsQueryable(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAnnotationRepository(db)
	ctx := context.Background()
	for _, kind := range []annotation.Kind{annotation.KindBox, annotation.KindPolygon, annotation.KindPolyline, annotation.KindPoints} {
		if _, err := repo.TrackedKeyframes(ctx, 1, kind); err != nil {
			t.Errorf("tracked %s: %v", kind, err)
		}
		if _, err := repo.LabeledShapes(ctx, 1, kind); err != nil {
			t.Errorf("labeled %s: %v", kind, err)
		}
	}
}

func TestAnnotationRepository_PropertyKeyframes(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedFixture(t, db)

	props, err := NewAnnotationRepository(db).PropertyKeyframes(context.Background(), 1)
	if err != nil {
		t.Fatalf("Failed to read properties: %v", err)
	}

	want := []annotation.PropertyKeyframe{
		{Frame: 0, Name: "weather", Value: "sunny"},
		{Frame: 5, Name: "weather", Value: "rain"},
	}
	if len(props) != len(want) {
		t.Fatalf("Expected %d properties, got %d", len(want), len(props))
	}
	for i := range want {
		if props[i] != want[i] {
			t.Errorf("property %d: expected %+v, got %+v", i, want[i], props[i])
		}
	}
}
