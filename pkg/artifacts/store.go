package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/verityux/verity/pkg/storage/postgres"
)

// Unique violations surfaced by the store
var (
	ErrRecordingExists  = errors.New("artifacts: recording already exists")
	ErrTranscriptExists = errors.New("artifacts: transcript already exists")
)

// Store persists artifact metadata
type Store interface {
	InterviewExists(ctx context.Context, interviewID int64) (bool, error)
	RecordingExists(ctx context.Context, interviewID int64) (bool, error)
	// CreateRecording inserts rec and runs upload before committing. A
	// failed upload rolls the insert back.
	CreateRecording(ctx context.Context, rec *Recording, upload func(ctx context.Context) error) error
	GetRecording(ctx context.Context, id int64) (*Recording, error)
	TranscriptExists(ctx context.Context, interviewID int64) (bool, error)
	CreateTranscript(ctx context.Context, t *Transcript, segments []Segment) error
}

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) exists(ctx context.Context, query string, id int64) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return found, nil
}

// InterviewExists reports whether the interview exists
func (s *PostgresStore) InterviewExists(ctx context.Context, interviewID int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM interviews WHERE id = $1)`, interviewID)
}

// RecordingExists reports whether the interview already has a recording
func (s *PostgresStore) RecordingExists(ctx context.Context, interviewID int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM audio_recordings WHERE interview_id = $1)`, interviewID)
}

// TranscriptExists reports whether the interview already has a transcript
func (s *PostgresStore) TranscriptExists(ctx context.Context, interviewID int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM transcripts WHERE interview_id = $1)`, interviewID)
}

// CreateRecording inserts the metadata row, then uploads, then commits
func (s *PostgresStore) CreateRecording(ctx context.Context, rec *Recording, upload func(ctx context.Context) error) error {
	return postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO audio_recordings (interview_id, uri, duration_ms, mime_type, sample_rate_hz, file_size_bytes)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`
		err := tx.QueryRowContext(ctx, query, rec.InterviewID, rec.URI, rec.DurationMS, rec.MimeType,
			rec.SampleRateHz, rec.FileSizeBytes).Scan(&rec.ID, &rec.CreatedAt)
		if err != nil {
			if postgres.IsUniqueViolation(err, postgres.ConstraintRecordingInterview) {
				return ErrRecordingExists
			}
			return fmt.Errorf("failed to insert recording: %w", err)
		}
		return upload(ctx)
	})
}

// GetRecording returns nil when the recording does not exist
func (s *PostgresStore) GetRecording(ctx context.Context, id int64) (*Recording, error) {
	query := `
		SELECT id, interview_id, uri, duration_ms, mime_type, sample_rate_hz, file_size_bytes, created_at
		FROM audio_recordings WHERE id = $1
	`
	rec := &Recording{}
	var duration, sampleRate, size sql.NullInt64
	var mime sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.InterviewID, &rec.URI, &duration, &mime, &sampleRate, &size, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recording: %w", err)
	}
	rec.DurationMS = nullInt64(duration)
	rec.SampleRateHz = nullInt64(sampleRate)
	rec.FileSizeBytes = nullInt64(size)
	if mime.Valid {
		rec.MimeType = &mime.String
	}
	return rec, nil
}

func nullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

// CreateTranscript writes the transcript and its segments in one transaction.
// Segment sequence is the position in segments.
func (s *PostgresStore) CreateTranscript(ctx context.Context, t *Transcript, segments []Segment) error {
	return postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO transcripts (interview_id, language, source, full_text)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`
		err := tx.QueryRowContext(ctx, query, t.InterviewID, t.Language, t.Source, t.FullText).
			Scan(&t.ID, &t.CreatedAt)
		if err != nil {
			if postgres.IsUniqueViolation(err, postgres.ConstraintTranscriptInterview) {
				return ErrTranscriptExists
			}
			return fmt.Errorf("failed to insert transcript: %w", err)
		}

		segmentQuery := `
			INSERT INTO transcript_segments (transcript_id, start_ms, end_ms, text, sequence)
			VALUES ($1, $2, $3, $4, $5)
		`
		for i, seg := range segments {
			if _, err := tx.ExecContext(ctx, segmentQuery, t.ID, seg.StartMS, seg.EndMS, seg.Text, i); err != nil {
				return fmt.Errorf("failed to insert transcript segment %d: %w", i, err)
			}
		}
		return nil
	})
}
