// Package ridedb persists completed ride analyses to a local sqlite
// database, one ride row plus one row per detected stage.
package ridedb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/audax-data/ride.report/internal/monitoring"
	"github.com/audax-data/ride.report/internal/stage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	*sql.DB
}

// New opens (creating if needed) the ride database at path and brings
// its schema up to date.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ride db %s: %w", path, err)
	}

	rdb := &DB{db}
	if err := rdb.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return rdb, nil
}

func (db *DB) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(db.DB, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("creating sqlite migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	// Closing m would close the underlying DB connection, so we don't.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Ride is one persisted analysis.
type Ride struct {
	ID                     string
	Name                   string
	Source                 string
	StartTime              time.Time
	EndTime                time.Time
	Duration               time.Duration
	MovingTime             time.Duration
	ControlTime            time.Duration
	Controls               int
	DistanceMetres         float64
	AscentMetres           float64
	DescentMetres          float64
	AverageMovingSpeedKMH  float64
	AverageOverallSpeedKMH float64
	MaxSpeedKMH            float64
}

// StageRow is one persisted stage of a ride.
type StageRow struct {
	RideID          string
	Seq             int
	Type            string
	Location        string
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
	DistanceMetres  float64
	AverageSpeedKMH float64
	AscentMetres    float64
	DescentMetres   float64
}

// RecordAnalysis stores a completed analysis and returns the new ride's
// id. The ride and its stages commit atomically.
func (db *DB) RecordAnalysis(ctx context.Context, name, source string, sum stage.Summary, stages stage.List) (string, error) {
	id := uuid.NewString()

	maxSpeed := 0.0
	if sum.MaxSpeed != nil {
		maxSpeed = sum.MaxSpeed.SpeedKMH
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning ride transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO rides (
			id, name, source, start_time, end_time,
			duration_seconds, moving_seconds, control_seconds, controls,
			distance_metres, ascent_metres, descent_metres,
			avg_moving_speed_kmh, avg_overall_speed_kmh, max_speed_kmh
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, source, sum.StartTime, sum.EndTime,
		int64(sum.Duration.Seconds()), int64(sum.MovingTime.Seconds()),
		int64(sum.ControlTime.Seconds()), sum.Controls,
		sum.DistanceMetres, sum.AscentMetres, sum.DescentMetres,
		sum.AverageMovingSpeedKMH, sum.AverageOverallSpeedKMH, maxSpeed,
	)
	if err != nil {
		return "", fmt.Errorf("inserting ride: %w", err)
	}

	for i := range stages {
		s := &stages[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ride_stages (
				ride_id, seq, stage_type, location, start_time, end_time,
				duration_seconds, distance_metres, avg_speed_kmh,
				ascent_metres, descent_metres
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, s.Type.String(), s.Location, s.PrevTime, s.End.Time,
			int64(s.Duration().Seconds()), s.DistanceMetres(),
			s.AverageSpeedKMH(), s.AscentMetres(), s.DescentMetres(),
		)
		if err != nil {
			return "", fmt.Errorf("inserting stage %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing ride: %w", err)
	}

	monitoring.Logf("ridedb: recorded ride %s (%s, %d stages)", id, name, len(stages))
	return id, nil
}

// Ride loads one ride and its stages by id.
func (db *DB) Ride(ctx context.Context, id string) (*Ride, []StageRow, error) {
	var (
		r                                Ride
		durSecs, movingSecs, controlSecs int64
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, name, source, start_time, end_time,
		       duration_seconds, moving_seconds, control_seconds, controls,
		       distance_metres, ascent_metres, descent_metres,
		       avg_moving_speed_kmh, avg_overall_speed_kmh, max_speed_kmh
		FROM rides WHERE id = ?`, id).Scan(
		&r.ID, &r.Name, &r.Source, &r.StartTime, &r.EndTime,
		&durSecs, &movingSecs, &controlSecs, &r.Controls,
		&r.DistanceMetres, &r.AscentMetres, &r.DescentMetres,
		&r.AverageMovingSpeedKMH, &r.AverageOverallSpeedKMH, &r.MaxSpeedKMH,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("loading ride %s: %w", id, err)
	}
	r.Duration = time.Duration(durSecs) * time.Second
	r.MovingTime = time.Duration(movingSecs) * time.Second
	r.ControlTime = time.Duration(controlSecs) * time.Second

	rows, err := db.QueryContext(ctx, `
		SELECT ride_id, seq, stage_type, location, start_time, end_time,
		       duration_seconds, distance_metres, avg_speed_kmh,
		       ascent_metres, descent_metres
		FROM ride_stages WHERE ride_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("loading stages of ride %s: %w", id, err)
	}
	defer rows.Close()

	var stages []StageRow
	for rows.Next() {
		var (
			s    StageRow
			secs int64
		)
		if err := rows.Scan(
			&s.RideID, &s.Seq, &s.Type, &s.Location, &s.StartTime, &s.EndTime,
			&secs, &s.DistanceMetres, &s.AverageSpeedKMH,
			&s.AscentMetres, &s.DescentMetres,
		); err != nil {
			return nil, nil, fmt.Errorf("scanning stage of ride %s: %w", id, err)
		}
		s.Duration = time.Duration(secs) * time.Second
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating stages of ride %s: %w", id, err)
	}

	return &r, stages, nil
}

// RecentRides lists the most recent rides, newest first.
func (db *DB) RecentRides(ctx context.Context, limit int) ([]Ride, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, source, start_time, end_time,
		       duration_seconds, moving_seconds, control_seconds, controls,
		       distance_metres, ascent_metres, descent_metres,
		       avg_moving_speed_kmh, avg_overall_speed_kmh, max_speed_kmh
		FROM rides ORDER BY start_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing rides: %w", err)
	}
	defer rows.Close()

	var rides []Ride
	for rows.Next() {
		var (
			r                                Ride
			durSecs, movingSecs, controlSecs int64
		)
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Source, &r.StartTime, &r.EndTime,
			&durSecs, &movingSecs, &controlSecs, &r.Controls,
			&r.DistanceMetres, &r.AscentMetres, &r.DescentMetres,
			&r.AverageMovingSpeedKMH, &r.AverageOverallSpeedKMH, &r.MaxSpeedKMH,
		); err != nil {
			return nil, fmt.Errorf("scanning ride: %w", err)
		}
		r.Duration = time.Duration(durSecs) * time.Second
		r.MovingTime = time.Duration(movingSecs) * time.Second
		r.ControlTime = time.Duration(controlSecs) * time.Second
		rides = append(rides, r)
	}
	return rides, rows.Err()
}
