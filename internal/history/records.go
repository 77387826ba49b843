package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"discprobe/internal/media"
)

// Record is one stored probe.
type Record struct {
	ID            string
	Device        string
	DriveName     string
	State         string
	MediumID      string
	MediumType    string
	Flags         []string
	VolumeLabel   string
	TrackCount    int
	CapacityBytes int64
	FreeBytes     int64
	Error         string
	ReportJSON    string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// NewRecord summarises one probe outcome. m is nil for failed probes.
func NewRecord(id, device, state string, m *media.Medium, probeErr error, started, finished time.Time) (Record, error) {
	rec := Record{
		ID:         id,
		Device:     device,
		State:      state,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
	}
	if probeErr != nil {
		rec.Error = probeErr.Error()
	}
	if m == nil {
		return rec, nil
	}
	report := m.Report()
	data, err := report.JSON()
	if err != nil {
		return Record{}, fmt.Errorf("encode report: %w", err)
	}
	rec.DriveName = report.Drive
	rec.MediumID = report.ID
	rec.MediumType = report.Type
	rec.Flags = report.Flags
	rec.VolumeLabel = report.Label
	rec.TrackCount = m.TrackCount()
	rec.CapacityBytes = report.CapacityBytes
	rec.FreeBytes = report.FreeBytes
	rec.ReportJSON = string(data)
	return rec, nil
}

const recordColumns = "id, device, drive_name, state, medium_id, medium_type, flags, volume_label, track_count, capacity_bytes, free_bytes, error_message, report_json, started_at, finished_at"

// Add stores rec.
func (s *Store) Add(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return errors.New("record id is empty")
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO probes (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Device,
		nullableString(rec.DriveName),
		rec.State,
		nullableString(rec.MediumID),
		nullableString(rec.MediumType),
		nullableString(strings.Join(rec.Flags, ",")),
		nullableString(rec.VolumeLabel),
		rec.TrackCount,
		rec.CapacityBytes,
		rec.FreeBytes,
		nullableString(rec.Error),
		nullableString(rec.ReportJSON),
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert probe: %w", err)
	}
	return nil
}

// List returns the newest records first. A limit of zero or less returns
// every record.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM probes ORDER BY finished_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list probes: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan probe: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Get fetches one record. A missing record yields nil and no error.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM probes WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get probe: %w", err)
	}
	return rec, nil
}

// Clear deletes every record and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM probes`)
	if err != nil {
		return 0, fmt.Errorf("clear probes: %w", err)
	}
	return res.RowsAffected()
}

// Prune keeps the newest keep records. Zero or less keeps everything.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.execWithRetry(ctx,
		`DELETE FROM probes WHERE id NOT IN (SELECT id FROM probes ORDER BY finished_at DESC, id LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune probes: %w", err)
	}
	return res.RowsAffected()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		rec         Record
		driveName   sql.NullString
		mediumID    sql.NullString
		mediumType  sql.NullString
		flags       sql.NullString
		label       sql.NullString
		errMsg      sql.NullString
		report      sql.NullString
		startedRaw  string
		finishedRaw string
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.Device,
		&driveName,
		&rec.State,
		&mediumID,
		&mediumType,
		&flags,
		&label,
		&rec.TrackCount,
		&rec.CapacityBytes,
		&rec.FreeBytes,
		&errMsg,
		&report,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	rec.DriveName = driveName.String
	rec.MediumID = mediumID.String
	rec.MediumType = mediumType.String
	if flags.String != "" {
		rec.Flags = strings.Split(flags.String, ",")
	}
	rec.VolumeLabel = label.String
	rec.Error = errMsg.String
	rec.ReportJSON = report.String
	rec.StartedAt = parseTime(startedRaw)
	rec.FinishedAt = parseTime(finishedRaw)
	return &rec, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
