package logrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/health-journal/internal/domain/healthrecord"
	"github.com/yanqian/health-journal/internal/domain/journal"
	"github.com/yanqian/health-journal/pkg/util"
)

// Schema creates the parent table plus one child table per collection.
const Schema = `
CREATE TABLE IF NOT EXISTS health_logs (
	id                  UUID PRIMARY KEY,
	log_date            DATE NOT NULL,
	transcript          TEXT NOT NULL DEFAULT '',
	audio_url           TEXT,
	screen_time_hours   DOUBLE PRECISION,
	water_intake_liters DOUBLE PRECISION,
	sleep_hours         DOUBLE PRECISION,
	sleep_quality       INTEGER,
	energy_level        INTEGER,
	mood_rating         INTEGER,
	mood_notes          TEXT,
	weight_kg           DOUBLE PRECISION,
	other_activities    TEXT,
	notes               TEXT,
	version             INTEGER NOT NULL DEFAULT 1,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS health_logs_date_idx ON health_logs (log_date);

CREATE TABLE IF NOT EXISTS health_log_workouts (
	log_id           UUID NOT NULL REFERENCES health_logs (id) ON DELETE CASCADE,
	position         INTEGER NOT NULL,
	workout_type     TEXT NOT NULL,
	duration_minutes DOUBLE PRECISION NOT NULL DEFAULT 0,
	distance_km      DOUBLE PRECISION,
	intensity        INTEGER,
	notes            TEXT,
	PRIMARY KEY (log_id, position)
);

CREATE TABLE IF NOT EXISTS health_log_meals (
	log_id    UUID NOT NULL REFERENCES health_logs (id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	meal_type TEXT NOT NULL,
	notes     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (log_id, position),
	UNIQUE (log_id, meal_type)
);

CREATE TABLE IF NOT EXISTS health_log_pain (
	log_id    UUID PRIMARY KEY REFERENCES health_logs (id) ON DELETE CASCADE,
	location  TEXT,
	intensity INTEGER,
	notes     TEXT
);
`

// PostgresRepository persists day logs in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema applies Schema; every statement is idempotent.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, Schema)
	return err
}

const selectLog = `
	SELECT id, log_date, transcript, audio_url, screen_time_hours, water_intake_liters,
		sleep_hours, sleep_quality, energy_level, mood_rating, mood_notes, weight_kg,
		other_activities, notes, version, created_at, updated_at
	FROM health_logs
`

func (r *PostgresRepository) Create(ctx context.Context, entry journal.Entry) error {
	date, err := time.Parse(util.DateLayout, entry.Date)
	if err != nil {
		return fmt.Errorf("parse log date: %w", err)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec := entry.Record
	_, err = tx.Exec(ctx, `
		INSERT INTO health_logs (id, log_date, transcript, audio_url, screen_time_hours, water_intake_liters,
			sleep_hours, sleep_quality, energy_level, mood_rating, mood_notes, weight_kg,
			other_activities, notes, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, entry.ID, date, entry.Transcript, nullableString(entry.AudioURL), rec.ScreenTimeHours, rec.WaterIntakeLiters,
		rec.Sleep.Hours, rec.Sleep.Quality, rec.EnergyLevel, rec.Mood.Rating, rec.Mood.Notes, rec.WeightKg,
		rec.OtherActivities, rec.Notes, entry.Version, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return err
	}
	if err := insertChildren(ctx, tx, entry.ID, rec); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (journal.Entry, bool, error) {
	entry, err := scanEntry(r.pool.QueryRow(ctx, selectLog+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return journal.Entry{}, false, nil
		}
		return journal.Entry{}, false, err
	}
	entries := []journal.Entry{entry}
	if err := r.loadChildren(ctx, entries); err != nil {
		return journal.Entry{}, false, err
	}
	return entries[0], true, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter journal.ListFilter) ([]journal.Entry, error) {
	query := selectLog + ` WHERE TRUE`
	var args []any
	if filter.From != "" {
		args = append(args, filter.From)
		query += fmt.Sprintf(` AND log_date >= $%d::date`, len(args))
	}
	if filter.To != "" {
		args = append(args, filter.To)
		query += fmt.Sprintf(` AND log_date <= $%d::date`, len(args))
	}
	query += ` ORDER BY log_date DESC, created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []journal.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PostgresRepository) Update(ctx context.Context, entry journal.Entry, expectedVersion int) (journal.Entry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return journal.Entry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec := entry.Record
	var createdAt time.Time
	var version int
	err = tx.QueryRow(ctx, `
		UPDATE health_logs
		SET transcript = $3, audio_url = $4, screen_time_hours = $5, water_intake_liters = $6,
			sleep_hours = $7, sleep_quality = $8, energy_level = $9, mood_rating = $10, mood_notes = $11,
			weight_kg = $12, other_activities = $13, notes = $14, updated_at = $15, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version, created_at
	`, entry.ID, expectedVersion, entry.Transcript, nullableString(entry.AudioURL), rec.ScreenTimeHours, rec.WaterIntakeLiters,
		rec.Sleep.Hours, rec.Sleep.Quality, rec.EnergyLevel, rec.Mood.Rating, rec.Mood.Notes,
		rec.WeightKg, rec.OtherActivities, rec.Notes, entry.UpdatedAt).Scan(&version, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM health_logs WHERE id = $1)`, entry.ID).Scan(&exists); err != nil {
			return journal.Entry{}, err
		}
		if !exists {
			return journal.Entry{}, journal.ErrEntryNotFound
		}
		return journal.Entry{}, journal.ErrVersionConflict
	}
	if err != nil {
		return journal.Entry{}, err
	}

	for _, table := range []string{"health_log_workouts", "health_log_meals", "health_log_pain"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE log_id = $1`, entry.ID); err != nil {
			return journal.Entry{}, err
		}
	}
	if err := insertChildren(ctx, tx, entry.ID, rec); err != nil {
		return journal.Entry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return journal.Entry{}, err
	}
	entry.Version = version
	entry.CreatedAt = createdAt
	return entry, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM health_logs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return journal.ErrEntryNotFound
	}
	return nil
}

func insertChildren(ctx context.Context, tx pgx.Tx, id uuid.UUID, rec healthrecord.Record) error {
	batch := &pgx.Batch{}
	for i, w := range rec.Workouts {
		batch.Queue(`
			INSERT INTO health_log_workouts (log_id, position, workout_type, duration_minutes, distance_km, intensity, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id, i, w.Type, w.DurationMinutes, w.DistanceKm, w.Intensity, w.Notes)
	}
	for i, m := range rec.Meals {
		batch.Queue(`
			INSERT INTO health_log_meals (log_id, position, meal_type, notes)
			VALUES ($1, $2, $3, $4)
		`, id, i, string(m.Type), m.Notes)
	}
	if p := rec.PainDiscomfort; p != nil {
		batch.Queue(`
			INSERT INTO health_log_pain (log_id, location, intensity, notes)
			VALUES ($1, $2, $3, $4)
		`, id, p.Location, p.Intensity, p.Notes)
	}
	if batch.Len() == 0 {
		return nil
	}
	return tx.SendBatch(ctx, batch).Close()
}

// loadChildren fills workouts, meals and pain for entries in place.
func (r *PostgresRepository) loadChildren(ctx context.Context, entries []journal.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(entries))
	index := make(map[uuid.UUID]int, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		index[e.ID] = i
	}

	rows, err := r.pool.Query(ctx, `
		SELECT log_id, workout_type, duration_minutes, distance_km, intensity, notes
		FROM health_log_workouts WHERE log_id = ANY($1) ORDER BY log_id, position
	`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id uuid.UUID
		var w healthrecord.Workout
		if err := rows.Scan(&id, &w.Type, &w.DurationMinutes, &w.DistanceKm, &w.Intensity, &w.Notes); err != nil {
			rows.Close()
			return err
		}
		e := &entries[index[id]]
		e.Record.Workouts = append(e.Record.Workouts, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT log_id, meal_type, notes
		FROM health_log_meals WHERE log_id = ANY($1) ORDER BY log_id, position
	`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id uuid.UUID
		var m healthrecord.Meal
		var mealType string
		if err := rows.Scan(&id, &mealType, &m.Notes); err != nil {
			rows.Close()
			return err
		}
		m.Type = healthrecord.MealType(mealType)
		e := &entries[index[id]]
		e.Record.Meals = append(e.Record.Meals, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT log_id, location, intensity, notes
		FROM health_log_pain WHERE log_id = ANY($1)
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var p healthrecord.Pain
		if err := rows.Scan(&id, &p.Location, &p.Intensity, &p.Notes); err != nil {
			return err
		}
		entries[index[id]].Record.PainDiscomfort = &p
	}
	return rows.Err()
}

func scanEntry(row pgx.Row) (journal.Entry, error) {
	var (
		e        journal.Entry
		date     time.Time
		audioURL *string
	)
	rec := &e.Record
	err := row.Scan(&e.ID, &date, &e.Transcript, &audioURL, &rec.ScreenTimeHours, &rec.WaterIntakeLiters,
		&rec.Sleep.Hours, &rec.Sleep.Quality, &rec.EnergyLevel, &rec.Mood.Rating, &rec.Mood.Notes, &rec.WeightKg,
		&rec.OtherActivities, &rec.Notes, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return journal.Entry{}, err
	}
	e.Date = date.Format(util.DateLayout)
	rec.Date = e.Date
	if audioURL != nil {
		e.AudioURL = *audioURL
	}
	return e, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ journal.Repository = (*PostgresRepository)(nil)
