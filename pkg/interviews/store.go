package interviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/verityux/verity/pkg/storage/postgres"
)

// Errors returned by CreateInterview for unique violations
var (
	ErrTokenCollision    = errors.New("interviews: access token already in use")
	ErrParticipantExists = errors.New("interviews: participant already has an interview for this study")
)

// Store persists interviews
type Store interface {
	CreateInterview(ctx context.Context, iv *Interview) error
	GetByToken(ctx context.Context, token string) (*Interview, error)
	GetByID(ctx context.Context, id int64) (*Interview, error)
	FindByParticipant(ctx context.Context, studyID int64, participantID string) (*Interview, error)
	ListByStudy(ctx context.Context, studyID int64) ([]*Interview, error)
	ListByInterviewee(ctx context.Context, firebaseUID string) ([]*Interview, error)
	Claim(ctx context.Context, token, firebaseUID string, at time.Time) (bool, error)
	Complete(ctx context.Context, token string, req CompleteRequest, at time.Time) (bool, error)
	RenewExpiry(ctx context.Context, id int64, expiresAt, now time.Time) (bool, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectInterviewColumns = `
	id, study_id, access_token, interviewee_firebase_uid, status, created_at, completed_at,
	expires_at, claimed_at, external_participant_id, platform_source, transcript_url,
	recording_url, notes
`

func scanInterview(row interface{ Scan(...interface{}) error }) (*Interview, error) {
	iv := &Interview{}
	var (
		interviewee, pid, source, transcriptURL, recordingURL, notes sql.NullString
		completedAt, expiresAt, claimedAt                            sql.NullTime
	)
	err := row.Scan(
		&iv.ID, &iv.StudyID, &iv.AccessToken, &interviewee, &iv.Status, &iv.CreatedAt, &completedAt,
		&expiresAt, &claimedAt, &pid, &source, &transcriptURL,
		&recordingURL, &notes,
	)
	if err != nil {
		return nil, err
	}
	iv.IntervieweeFirebaseUID = nullString(interviewee)
	iv.ExternalParticipantID = nullString(pid)
	iv.PlatformSource = nullString(source)
	iv.TranscriptURL = nullString(transcriptURL)
	iv.RecordingURL = nullString(recordingURL)
	iv.Notes = nullString(notes)
	iv.CompletedAt = nullTime(completedAt)
	iv.ExpiresAt = nullTime(expiresAt)
	iv.ClaimedAt = nullTime(claimedAt)
	return iv, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	return &nt.Time
}

// CreateInterview inserts a pending interview
func (s *PostgresStore) CreateInterview(ctx context.Context, iv *Interview) error {
	query := `
		INSERT INTO interviews (study_id, access_token, status, expires_at, external_participant_id, platform_source)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query, iv.StudyID, iv.AccessToken, iv.Status, iv.ExpiresAt,
		iv.ExternalParticipantID, iv.PlatformSource).Scan(&iv.ID, &iv.CreatedAt)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err, postgres.ConstraintInterviewToken):
			return ErrTokenCollision
		case postgres.IsUniqueViolation(err, postgres.ConstraintInterviewPID):
			return ErrParticipantExists
		}
		return fmt.Errorf("failed to create interview: %w", err)
	}
	return nil
}

func (s *PostgresStore) getOne(ctx context.Context, where string, args ...interface{}) (*Interview, error) {
	query := `SELECT ` + selectInterviewColumns + ` FROM interviews WHERE ` + where
	iv, err := scanInterview(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	return iv, nil
}

// GetByToken returns nil when no interview has token
func (s *PostgresStore) GetByToken(ctx context.Context, token string) (*Interview, error) {
	return s.getOne(ctx, `access_token = $1`, token)
}

// GetByID returns nil when the interview does not exist
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Interview, error) {
	return s.getOne(ctx, `id = $1`, id)
}

// FindByParticipant returns nil when the participant has no interview for the study
func (s *PostgresStore) FindByParticipant(ctx context.Context, studyID int64, participantID string) (*Interview, error) {
	return s.getOne(ctx, `study_id = $1 AND external_participant_id = $2`, studyID, participantID)
}

func (s *PostgresStore) list(ctx context.Context, where string, arg interface{}) ([]*Interview, error) {
	query := `SELECT ` + selectInterviewColumns + ` FROM interviews WHERE ` + where + ` ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	defer rows.Close()

	var out []*Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	return out, nil
}

// ListByStudy lists a study's interviews, newest first
func (s *PostgresStore) ListByStudy(ctx context.Context, studyID int64) ([]*Interview, error) {
	return s.list(ctx, `study_id = $1`, studyID)
}

// ListByInterviewee lists the interviews claimed by firebaseUID, newest first
func (s *PostgresStore) ListByInterviewee(ctx context.Context, firebaseUID string) ([]*Interview, error) {
	return s.list(ctx, `interviewee_firebase_uid = $1`, firebaseUID)
}

// Claim assigns the interview to firebaseUID if nobody has claimed it yet.
// It reports whether this call made the claim.
func (s *PostgresStore) Claim(ctx context.Context, token, firebaseUID string, at time.Time) (bool, error) {
	query := `
		UPDATE interviews SET interviewee_firebase_uid = $1, claimed_at = $2
		WHERE access_token = $3 AND interviewee_firebase_uid IS NULL
	`
	return s.conditionalUpdate(ctx, "claim", query, firebaseUID, at, token)
}

// Complete moves a pending interview to completed. It reports whether this
// call made the transition.
func (s *PostgresStore) Complete(ctx context.Context, token string, req CompleteRequest, at time.Time) (bool, error) {
	query := `
		UPDATE interviews
		SET status = 'completed', completed_at = $1, transcript_url = $2, recording_url = $3, notes = $4
		WHERE access_token = $5 AND status = 'pending'
	`
	return s.conditionalUpdate(ctx, "complete", query, at, req.TranscriptURL, req.RecordingURL, req.Notes, token)
}

// RenewExpiry moves the expiry of a pending interview whose link lapsed at
// or before now. It reports whether this call renewed it.
func (s *PostgresStore) RenewExpiry(ctx context.Context, id int64, expiresAt, now time.Time) (bool, error) {
	query := `
		UPDATE interviews SET expires_at = $1
		WHERE id = $2 AND status = 'pending' AND expires_at IS NOT NULL AND expires_at <= $3
	`
	return s.conditionalUpdate(ctx, "renew", query, expiresAt, id, now)
}

func (s *PostgresStore) conditionalUpdate(ctx context.Context, op, query string, args ...interface{}) (bool, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s interview: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected == 1, nil
}

// CountByStatus counts interviews per status
func (s *PostgresStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM interviews GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count interviews: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{
		string(StatusPending):   0,
		string(StatusCompleted): 0,
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan interview count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count interviews: %w", err)
	}
	return counts, nil
}
