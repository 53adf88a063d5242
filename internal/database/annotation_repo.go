package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kdimtricp/cvat-api/internal/annotation"
	"github.com/kdimtricp/cvat-api/internal/metrics"
)

// shapeTable names the tables one shape kind is stored in.
type shapeTable struct {
	kind      annotation.Kind
	table     string
	attrTable string
	attrFK    string
}

func shapeTables(tracked bool, kind annotation.Kind) (shapeTable, error) {
	prefix := "engine_labeled"
	if tracked {
		prefix = "engine_tracked"
	}

	var name, fk string
	switch kind {
	case annotation.KindBox:
		name, fk = "box", "box_id"
	case annotation.KindPolygon:
		name, fk = "polygon", "polygon_id"
	case annotation.KindPolyline:
		name, fk = "polyline", "polyline_id"
	case annotation.KindPoints:
		name, fk = "points", "points_id"
	default:
		return shapeTable{}, fmt.Errorf("unsupported shape kind: %s", kind)
	}

	return shapeTable{
		kind:      kind,
		table:     prefix + name,
		attrTable: prefix + name + "attributeval",
		attrFK:    fk,
	}, nil
}

func (t shapeTable) geometryColumns() string {
	if t.kind == annotation.KindBox {
		return "s.xtl, s.ytl, s.xbr, s.ybr"
	}
	return "s.points"
}

// AnnotationRepository reads stored shapes and frame properties of a job.
type AnnotationRepository struct {
	db *DB
}

func NewAnnotationRepository(db *DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

// TrackedKeyframes returns the keyframes of every track of the job, ordered
// by track, frame and row id.
func (r *AnnotationRepository) TrackedKeyframes(ctx context.Context, jobID int64, kind annotation.Kind) ([]annotation.Keyframe, error) {
	t, err := shapeTables(true, kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT s.id, s.track_id, s.frame, s.outside, l.name, %s
		FROM %s s
		JOIN engine_objectpath p ON p.id = s.track_id
		JOIN engine_label l ON l.id = p.label_id
		WHERE p.job_id = $1
		ORDER BY s.track_id, s.frame, s.id`, t.geometryColumns(), t.table)

	attrQuery := fmt.Sprintf(`
		SELECT a.%s, sp.text, a.value
		FROM %s a
		JOIN engine_attributespec sp ON sp.id = a.spec_id
		JOIN %s s ON s.id = a.%s
		JOIN engine_objectpath p ON p.id = s.track_id
		WHERE p.job_id = $1
		ORDER BY a.id`, t.attrFK, t.attrTable, t.table, t.attrFK)

	return r.readShapes(ctx, "tracked_"+kind.String(), t, query, attrQuery, jobID, true)
}

// LabeledShapes returns the job's static shapes of one kind in row order.
func (r *AnnotationRepository) LabeledShapes(ctx context.Context, jobID int64, kind annotation.Kind) ([]annotation.Keyframe, error) {
	t, err := shapeTables(false, kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT s.id, s.frame, l.name, %s
		FROM %s s
		JOIN engine_label l ON l.id = s.label_id
		WHERE s.job_id = $1
		ORDER BY s.id`, t.geometryColumns(), t.table)

	attrQuery := fmt.Sprintf(`
		SELECT a.%s, sp.text, a.value
		FROM %s a
		JOIN engine_attributespec sp ON sp.id = a.spec_id
		JOIN %s s ON s.id = a.%s
		WHERE s.job_id = $1
		ORDER BY a.id`, t.attrFK, t.attrTable, t.table, t.attrFK)

	return r.readShapes(ctx, "labeled_"+kind.String(), t, query, attrQuery, jobID, false)
}

func (r *AnnotationRepository) readShapes(ctx context.Context, op string, t shapeTable, query, attrQuery string, jobID int64, tracked bool) (out []annotation.Keyframe, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery(op, time.Since(start), err) }()

	attrs, err := r.readAttributes(ctx, attrQuery, jobID)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.conn.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			k       annotation.Keyframe
			outside sql.NullBool
			box     [4]sql.NullFloat64
			points  sql.NullString
		)

		dest := []any{&k.ID}
		if tracked {
			dest = append(dest, &k.TrackID)
		}
		dest = append(dest, &k.Frame)
		if tracked {
			dest = append(dest, &outside)
		}
		dest = append(dest, &k.Label)
		if t.kind == annotation.KindBox {
			dest = append(dest, &box[0], &box[1], &box[2], &box[3])
		} else {
			dest = append(dest, &points)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", t.table, err)
		}

		k.Outside = outside.Bool
		k.Attributes = attrs[k.ID]
		if t.kind == annotation.KindBox {
			k.Geometry, k.GeometryErr = decodeBox(box)
		} else if points.Valid {
			k.Geometry, k.GeometryErr = annotation.ParsePoints(t.kind, points.String)
		} else {
			k.Geometry = annotation.Geometry{Kind: t.kind}
			k.GeometryErr = fmt.Errorf("%w: points are NULL", annotation.ErrMalformedGeometry)
		}

		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", t.table, err)
	}

	return out, nil
}

// readAttributes maps shape id to attribute name to value.
func (r *AnnotationRepository) readAttributes(ctx context.Context, query string, jobID int64) (map[int64]map[string]string, error) {
	rows, err := r.db.conn.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attributes: %w", err)
	}
	defer rows.Close()

	attrs := make(map[int64]map[string]string)
	for rows.Next() {
		var (
			shapeID     int64
			spec, value string
		)
		if err := rows.Scan(&shapeID, &spec, &value); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		if attrs[shapeID] == nil {
			attrs[shapeID] = make(map[string]string)
		}
		attrs[shapeID][annotation.AttributeName(spec)] = value
	}
	return attrs, rows.Err()
}

func decodeBox(c [4]sql.NullFloat64) (annotation.Geometry, error) {
	for _, v := range c {
		if !v.Valid {
			return annotation.Geometry{Kind: annotation.KindBox}, fmt.Errorf("%w: box coordinate is NULL", annotation.ErrMalformedGeometry)
		}
	}
	return annotation.NewBox(c[0].Float64, c[1].Float64, c[2].Float64, c[3].Float64), nil
}

// PropertyKeyframes returns the frame property keyframes of a task.
func (r *AnnotationRepository) PropertyKeyframes(ctx context.Context, taskID int64) (out []annotation.PropertyKeyframe, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("frame_properties", time.Since(start), err) }()

	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT k.frame, fp.prop, fp.value
		FROM engine_keyframespec k
		JOIN engine_taskframespec ts ON ts.id = k.framespec_id
		JOIN engine_frameproperties fp ON fp.id = ts.propval_id
		WHERE ts.task_id = $1
		ORDER BY k.id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query frame properties: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k annotation.PropertyKeyframe
		if err := rows.Scan(&k.Frame, &k.Name, &k.Value); err != nil {
			return nil, fmt.Errorf("failed to scan frame property: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read frame properties: %w", err)
	}
	return out, nil
}
