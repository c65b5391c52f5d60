package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vvaria04/Traffic-light-Management/internal/db"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

// Sample is one recorded demand observation.
type Sample struct {
	ID         string
	RecordedAt time.Time
	Hour       int
	// DayOfWeek counts from Monday = 0.
	DayOfWeek int
	Demand    phase.Demand
}

type Stats struct {
	Count int
	First time.Time
	Last  time.Time
	Days  int
	Hours int
}

// HourlyDemand is the mean demand observed in one hour of the day.
type HourlyDemand struct {
	Hour    int
	Samples int
	Mean    [phase.NumDirections]float64
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) *Store {
	return &Store{db: database}
}

// DayOfWeek converts a Go weekday to the Monday = 0 numbering of the history.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS traffic_samples (
			id          VARCHAR PRIMARY KEY,
			recorded_at TIMESTAMP,
			hour        INTEGER NOT NULL,
			day_of_week INTEGER NOT NULL,
			north       INTEGER NOT NULL,
			south       INTEGER NOT NULL,
			east        INTEGER NOT NULL,
			west        INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create traffic_samples table: %w", err)
	}
	return nil
}

// Record stores one demand observation taken at the given instant.
func (s *Store) Record(ctx context.Context, at time.Time, demand phase.Demand) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO traffic_samples (id, recorded_at, hour, day_of_week, north, south, east, west)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.NewString(),
		at.UTC(),
		at.Hour(),
		DayOfWeek(at),
		demand.Of(phase.North),
		demand.Of(phase.South),
		demand.Of(phase.East),
		demand.Of(phase.West),
	)
	if err != nil {
		return fmt.Errorf("failed to record sample: %w", err)
	}
	return nil
}

// ImportCSV loads a history file with the columns
// timestamp,hour,day_of_week,north_density,south_density,east_density,west_density.
// Rows with an out-of-range hour or day are skipped and negative densities
// become zero. It returns the number of rows imported.
func (s *Store) ImportCSV(ctx context.Context, path string) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO traffic_samples
		SELECT
			CAST(uuid() AS VARCHAR),
			TRY_CAST("timestamp" AS TIMESTAMP),
			CAST(hour AS INTEGER),
			CAST(day_of_week AS INTEGER),
			GREATEST(0, CAST(north_density AS INTEGER)),
			GREATEST(0, CAST(south_density AS INTEGER)),
			GREATEST(0, CAST(east_density AS INTEGER)),
			GREATEST(0, CAST(west_density AS INTEGER))
		FROM read_csv('%s', header = true)
		WHERE CAST(hour AS INTEGER) BETWEEN 0 AND 23
		  AND CAST(day_of_week AS INTEGER) BETWEEN 0 AND 6
	`, db.QuotePath(path))

	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to import %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count imported rows: %w", err)
	}
	return n, nil
}

// ExportCSV writes the history in the same layout ImportCSV reads.
func (s *Store) ExportCSV(ctx context.Context, path string) error {
	query := fmt.Sprintf(`
		COPY (
			SELECT
				recorded_at AS "timestamp",
				hour,
				day_of_week,
				north AS north_density,
				south AS south_density,
				east AS east_density,
				west AS west_density
			FROM traffic_samples
			ORDER BY recorded_at NULLS FIRST, id
		) TO '%s' (HEADER, DELIMITER ',')
	`, db.QuotePath(path))

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to export history to %s: %w", path, err)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var (
		st          Stats
		first, last sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			MIN(recorded_at),
			MAX(recorded_at),
			COUNT(DISTINCT day_of_week),
			COUNT(DISTINCT hour)
		FROM traffic_samples
	`).Scan(&st.Count, &first, &last, &st.Days, &st.Hours)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	if first.Valid {
		st.First = first.Time
	}
	if last.Valid {
		st.Last = last.Time
	}
	return st, nil
}

// Samples returns samples recorded at or after since, oldest first. A zero
// since returns everything, including rows without a timestamp.
func (s *Store) Samples(ctx context.Context, since time.Time) ([]Sample, error) {
	query := `
		SELECT id, recorded_at, hour, day_of_week, north, south, east, west
		FROM traffic_samples
	`
	var args []any
	if !since.IsZero() {
		query += ` WHERE recorded_at >= $1`
		args = append(args, since.UTC())
	}
	query += ` ORDER BY recorded_at NULLS FIRST, id`

	return s.querySamples(ctx, query, args...)
}

func (s *Store) samplesAt(ctx context.Context, hour, dayOfWeek int) ([]Sample, error) {
	if dayOfWeek < 0 {
		return s.querySamples(ctx, `
			SELECT id, recorded_at, hour, day_of_week, north, south, east, west
			FROM traffic_samples
			WHERE hour = $1
		`, hour)
	}
	return s.querySamples(ctx, `
		SELECT id, recorded_at, hour, day_of_week, north, south, east, west
		FROM traffic_samples
		WHERE hour = $1 AND day_of_week = $2
	`, hour, dayOfWeek)
}

func (s *Store) querySamples(ctx context.Context, query string, args ...any) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var (
			sample     Sample
			recordedAt sql.NullTime
		)
		if err := rows.Scan(
			&sample.ID,
			&recordedAt,
			&sample.Hour,
			&sample.DayOfWeek,
			&sample.Demand[phase.North],
			&sample.Demand[phase.South],
			&sample.Demand[phase.East],
			&sample.Demand[phase.West],
		); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		if recordedAt.Valid {
			sample.RecordedAt = recordedAt.Time
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return samples, nil
}

// HourlyProfile averages demand per hour of the day. A negative dayOfWeek
// aggregates over all days.
func (s *Store) HourlyProfile(ctx context.Context, dayOfWeek int) ([]HourlyDemand, error) {
	query := `
		SELECT hour, COUNT(*), AVG(north), AVG(south), AVG(east), AVG(west)
		FROM traffic_samples
	`
	var args []any
	if dayOfWeek >= 0 {
		query += ` WHERE day_of_week = $1`
		args = append(args, dayOfWeek)
	}
	query += ` GROUP BY hour ORDER BY hour`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly profile: %w", err)
	}
	defer rows.Close()

	var profile []HourlyDemand
	for rows.Next() {
		var h HourlyDemand
		if err := rows.Scan(&h.Hour, &h.Samples,
			&h.Mean[phase.North], &h.Mean[phase.South], &h.Mean[phase.East], &h.Mean[phase.West]); err != nil {
			return nil, fmt.Errorf("failed to scan hourly profile: %w", err)
		}
		profile = append(profile, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return profile, nil
}
