package detect

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"k8s.io/klog/v2"

	"github.com/vvaria04/Traffic-light-Management/internal/db"
	"github.com/vvaria04/Traffic-light-Management/internal/occupancy"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

// TraceRow is one line of a long-format demand trace.
type TraceRow struct {
	Timestamp time.Time
	Direction phase.Direction
	Count     int
	Intensity float64
}

// TraceStats summarizes what was kept and dropped while loading a trace.
type TraceStats struct {
	Rows      int
	Cycles    int
	Dropped   int
	Clamped   int
	FirstSeen time.Time
	LastSeen  time.Time
}

// TraceSource replays a CSV trace with columns
// timestamp,direction,count[,intensity]. Rows sharing a timestamp form one
// cycle. Timestamps are RFC 3339, "2006-01-02 15:04:05", or seconds relative
// to the trace start.
type TraceSource struct {
	cycles []Sample
	next   int
	stats  TraceStats
}

func NewTraceSource(ctx context.Context, database *sql.DB, path string, start time.Time) (*TraceSource, error) {
	rows, stats, err := LoadTrace(ctx, database, path, start)
	if err != nil {
		return nil, err
	}

	cycles := groupCycles(rows)
	stats.Cycles = len(cycles)
	klog.InfoS("Loaded demand trace", "path", path, "rows", stats.Rows, "cycles", stats.Cycles,
		"dropped", stats.Dropped, "clamped", stats.Clamped)

	return &TraceSource{cycles: cycles, stats: stats}, nil
}

func (s *TraceSource) Stats() TraceStats {
	return s.stats
}

func (s *TraceSource) Next(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if s.next >= len(s.cycles) {
		return Sample{}, io.EOF
	}
	sample := s.cycles[s.next]
	s.next++
	return sample, nil
}

func (s *TraceSource) Close() error {
	return nil
}

// LoadTrace reads and validates every row of a trace. Rows with an unknown
// direction or an unparsable field are dropped; negative counts become zero.
func LoadTrace(ctx context.Context, database *sql.DB, path string, start time.Time) ([]TraceRow, TraceStats, error) {
	query := fmt.Sprintf(`
		SELECT *
		FROM read_csv('%s',
			header = true,
			all_varchar = true
		)
	`, db.QuotePath(path))

	rows, err := database.QueryContext(ctx, query)
	if err != nil {
		return nil, TraceStats{}, fmt.Errorf("failed to read trace: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, TraceStats{}, fmt.Errorf("failed to read trace columns: %w", err)
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[strings.ToLower(strings.TrimSpace(c))] = i
	}
	for _, required := range []string{"timestamp", "direction", "count"} {
		if _, ok := index[required]; !ok {
			return nil, TraceStats{}, fmt.Errorf("trace %s has no %q column", path, required)
		}
	}
	intensityCol, hasIntensity := index["intensity"]

	var (
		out   []TraceRow
		stats TraceStats
		line  int
	)
	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		line++
		if err := rows.Scan(dest...); err != nil {
			return nil, TraceStats{}, fmt.Errorf("failed to scan trace row %d: %w", line, err)
		}

		row, err := parseTraceRow(
			values[index["timestamp"]].String,
			values[index["direction"]].String,
			values[index["count"]].String,
			start,
		)
		if err != nil {
			klog.InfoS("Dropping trace row", "line", line, "err", err)
			stats.Dropped++
			continue
		}
		if hasIntensity && values[intensityCol].Valid && values[intensityCol].String != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(values[intensityCol].String), 64)
			if err != nil {
				klog.InfoS("Dropping trace row", "line", line, "err", fmt.Errorf("invalid intensity: %w", err))
				stats.Dropped++
				continue
			}
			row.Intensity = v
		}
		if row.Count < 0 {
			klog.V(2).InfoS("Clamping trace count", "line", line, "err", phase.NewCountError(row.Direction, row.Count))
			row.Count = 0
			stats.Clamped++
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, TraceStats{}, fmt.Errorf("rows iteration error: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	stats.Rows = len(out)
	if len(out) > 0 {
		stats.FirstSeen = out[0].Timestamp
		stats.LastSeen = out[len(out)-1].Timestamp
	}
	return out, stats, nil
}

func parseTraceRow(ts, direction, count string, start time.Time) (TraceRow, error) {
	t, err := parseTraceTime(ts, start)
	if err != nil {
		return TraceRow{}, err
	}
	d, err := phase.ParseDirection(direction)
	if err != nil {
		return TraceRow{}, err
	}
	c, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil {
		return TraceRow{}, fmt.Errorf("invalid count %q: %w", count, err)
	}
	return TraceRow{Timestamp: t, Direction: d, Count: c}, nil
}

// maxOffsetSeconds is the largest relative timestamp a time.Duration holds.
const maxOffsetSeconds = float64(math.MaxInt64 / int64(time.Second))

func parseTraceTime(raw string, start time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) || math.Abs(secs) > maxOffsetSeconds {
			return time.Time{}, fmt.Errorf("timestamp offset %q out of range", raw)
		}
		return start.Add(time.Duration(secs * float64(time.Second))), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

func groupCycles(rows []TraceRow) []Sample {
	var cycles []Sample
	for _, chunk := range lo.PartitionBy(rows, func(r TraceRow) int64 { return r.Timestamp.UnixNano() }) {
		readings := make(map[phase.Direction]occupancy.Reading, phase.NumDirections)
		for _, r := range chunk {
			readings[r.Direction] = occupancy.Reading{Count: r.Count, Intensity: r.Intensity}
		}
		cycles = append(cycles, Sample{Timestamp: chunk[0].Timestamp, Readings: readings})
	}
	sort.SliceStable(cycles, func(i, j int) bool {
		return cycles[i].Timestamp.Before(cycles[j].Timestamp)
	})
	return cycles
}
