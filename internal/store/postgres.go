package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"couriernav/internal/model"
)

// Postgres persists routes and their waypoints. Waypoints are owned rows:
// every write replaces the route's waypoint set inside one transaction
// (cascade/orphan-removal semantics).
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Ping checks connectivity.
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// MigrateDir applies *.sql files from dir in lexical order. Dev helper; use
// a real migration tool in production deployments.
func (p *Postgres) MigrateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := p.db.Exec(string(data)); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
	}
	return nil
}

func (p *Postgres) CreateRoute(ctx context.Context, route model.Route) (model.Route, error) {
	if route.ID == "" {
		route.ID = uuid.New().String()
	}
	if route.Version == 0 {
		route.Version = 1
	}
	now := time.Now().UTC()
	route.CreatedAt = now
	route.UpdatedAt = now

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Route{}, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO routes (id, version, courier_id, vehicle_id, status,
			start_time, end_time, actual_start_time, actual_end_time,
			start_lat, start_lng, end_lat, end_lng,
			total_distance_km, estimated_duration_min, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		route.ID, route.Version, nullIfEmpty(route.CourierID), nullIfEmpty(route.VehicleID), string(route.Status),
		route.StartTime, route.EndTime, route.ActualStartTime, route.ActualEndTime,
		locLat(route.StartLocation), locLng(route.StartLocation), locLat(route.EndLocation), locLng(route.EndLocation),
		route.TotalDistanceKm, route.EstimatedDurationMinutes, route.CreatedAt, route.UpdatedAt)
	if err != nil {
		return model.Route{}, err
	}
	if err := insertWaypoints(ctx, tx, route.ID, route.Waypoints); err != nil {
		return model.Route{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Route{}, err
	}
	return route, nil
}

func (p *Postgres) GetRoute(ctx context.Context, routeID string) (model.Route, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, version, COALESCE(courier_id,''), COALESCE(vehicle_id,''), status,
			start_time, end_time, actual_start_time, actual_end_time,
			start_lat, start_lng, end_lat, end_lng,
			total_distance_km, estimated_duration_min, created_at, updated_at
		FROM routes WHERE id=$1`, routeID)
	r, err := scanRoute(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Route{}, model.ErrNotFound
		}
		return model.Route{}, err
	}
	wps, err := p.loadWaypoints(ctx, routeID)
	if err != nil {
		return model.Route{}, err
	}
	r.Waypoints = wps
	return r, nil
}

func (p *Postgres) UpdateRoute(ctx context.Context, route model.Route) (model.Route, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Route{}, err
	}
	defer func() { _ = tx.Rollback() }()

	route.UpdatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE routes SET version=version+1, courier_id=$3, vehicle_id=$4, status=$5,
			start_time=$6, end_time=$7, actual_start_time=$8, actual_end_time=$9,
			start_lat=$10, start_lng=$11, end_lat=$12, end_lng=$13,
			total_distance_km=$14, estimated_duration_min=$15, updated_at=$16
		WHERE id=$1 AND version=$2`,
		route.ID, route.Version, nullIfEmpty(route.CourierID), nullIfEmpty(route.VehicleID), string(route.Status),
		route.StartTime, route.EndTime, route.ActualStartTime, route.ActualEndTime,
		locLat(route.StartLocation), locLng(route.StartLocation), locLat(route.EndLocation), locLng(route.EndLocation),
		route.TotalDistanceKm, route.EstimatedDurationMinutes, route.UpdatedAt)
	if err != nil {
		return model.Route{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Route{}, err
	}
	if n == 0 {
		// distinguish missing route from stale version
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM routes WHERE id=$1)`, route.ID).Scan(&exists); err != nil {
			return model.Route{}, err
		}
		if !exists {
			return model.Route{}, model.ErrNotFound
		}
		return model.Route{}, ErrVersionConflict
	}

	// replace the owned waypoint set
	if _, err := tx.ExecContext(ctx, `DELETE FROM waypoints WHERE route_id=$1`, route.ID); err != nil {
		return model.Route{}, err
	}
	if err := insertWaypoints(ctx, tx, route.ID, route.Waypoints); err != nil {
		return model.Route{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Route{}, err
	}
	route.Version++
	return route, nil
}

func (p *Postgres) DeleteRoute(ctx context.Context, routeID string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM routes WHERE id=$1`, routeID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (p *Postgres) ListRoutes(ctx context.Context, courierID string, status model.RouteStatus, limit int) ([]model.Route, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, version, COALESCE(courier_id,''), COALESCE(vehicle_id,''), status,
			start_time, end_time, actual_start_time, actual_end_time,
			start_lat, start_lng, end_lat, end_lng,
			total_distance_km, estimated_duration_min, created_at, updated_at
		FROM routes
		WHERE ($1='' OR courier_id=$1) AND ($2='' OR status=$2)
		ORDER BY created_at LIMIT $3`, courierID, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Route{}
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		wps, err := p.loadWaypoints(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Waypoints = wps
	}
	return out, nil
}

func (p *Postgres) FindRouteByShipment(ctx context.Context, shipmentID string) (model.Route, error) {
	var routeID string
	err := p.db.QueryRowContext(ctx, `
		SELECT w.route_id FROM waypoints w
		JOIN routes r ON r.id = w.route_id
		WHERE w.shipment_id=$1 AND r.status NOT IN ('COMPLETED','CANCELLED')
		ORDER BY r.created_at LIMIT 1`, shipmentID).Scan(&routeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Route{}, model.ErrNotFound
		}
		return model.Route{}, err
	}
	return p.GetRoute(ctx, routeID)
}

func (p *Postgres) loadWaypoints(ctx context.Context, routeID string) ([]model.Waypoint, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, seq, type, status, lat, lng,
			COALESCE(address,''), COALESCE(shipment_id,''), COALESCE(package_id,''),
			COALESCE(order_id,''), COALESCE(customer_id,''),
			COALESCE(contact_name,''), COALESCE(contact_phone,''), COALESCE(instructions,''),
			time_window_start, time_window_end,
			estimated_arrival, actual_arrival, estimated_stop_min, actual_stop_min
		FROM waypoints WHERE route_id=$1 ORDER BY seq`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Waypoint{}
	for rows.Next() {
		var w model.Waypoint
		var typ, status string
		err := rows.Scan(&w.ID, &w.Sequence, &typ, &status, &w.Location.Latitude, &w.Location.Longitude,
			&w.Location.Address, &w.ShipmentID, &w.PackageID, &w.OrderID, &w.CustomerID,
			&w.ContactName, &w.ContactPhone, &w.Instructions,
			&w.TimeWindowStart, &w.TimeWindowEnd,
			&w.EstimatedArrivalTime, &w.ActualArrivalTime,
			&w.EstimatedStopDurationMinutes, &w.ActualStopDurationMinutes)
		if err != nil {
			return nil, err
		}
		w.Type = model.WaypointType(typ)
		w.Status = model.WaypointStatus(status)
		out = append(out, w)
	}
	return out, rows.Err()
}

func insertWaypoints(ctx context.Context, tx *sql.Tx, routeID string, wps []model.Waypoint) error {
	for i := range wps {
		if wps[i].ID == "" {
			wps[i].ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO waypoints (id, route_id, seq, type, status, lat, lng, address,
				shipment_id, package_id, order_id, customer_id,
				contact_name, contact_phone, instructions,
				time_window_start, time_window_end,
				estimated_arrival, actual_arrival, estimated_stop_min, actual_stop_min)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
			wps[i].ID, routeID, wps[i].Sequence, string(wps[i].Type), string(wps[i].Status),
			wps[i].Location.Latitude, wps[i].Location.Longitude, nullIfEmpty(wps[i].Location.Address),
			nullIfEmpty(wps[i].ShipmentID), nullIfEmpty(wps[i].PackageID), nullIfEmpty(wps[i].OrderID), nullIfEmpty(wps[i].CustomerID),
			nullIfEmpty(wps[i].ContactName), nullIfEmpty(wps[i].ContactPhone), nullIfEmpty(wps[i].Instructions),
			wps[i].TimeWindowStart, wps[i].TimeWindowEnd,
			wps[i].EstimatedArrivalTime, wps[i].ActualArrivalTime,
			wps[i].EstimatedStopDurationMinutes, wps[i].ActualStopDurationMinutes)
		if err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanRoute(row rowScanner) (model.Route, error) {
	var r model.Route
	var status string
	var startLat, startLng, endLat, endLng sql.NullFloat64
	err := row.Scan(&r.ID, &r.Version, &r.CourierID, &r.VehicleID, &status,
		&r.StartTime, &r.EndTime, &r.ActualStartTime, &r.ActualEndTime,
		&startLat, &startLng, &endLat, &endLng,
		&r.TotalDistanceKm, &r.EstimatedDurationMinutes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.Route{}, err
	}
	r.Status = model.RouteStatus(status)
	if startLat.Valid && startLng.Valid {
		r.StartLocation = &model.Location{Latitude: startLat.Float64, Longitude: startLng.Float64}
	}
	if endLat.Valid && endLng.Valid {
		r.EndLocation = &model.Location{Latitude: endLat.Float64, Longitude: endLng.Float64}
	}
	return r, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func locLat(l *model.Location) any {
	if l == nil {
		return nil
	}
	return l.Latitude
}

func locLng(l *model.Location) any {
	if l == nil {
		return nil
	}
	return l.Longitude
}
