package studies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/storage/postgres"
)

// ErrSlugTaken is returned by CreateStudy when the slug is in use
var ErrSlugTaken = errors.New("studies: slug already in use")

// Store persists studies and guides
type Store interface {
	CreateStudy(ctx context.Context, study *Study) error
	GetStudy(ctx context.Context, id int64) (*Study, error)
	GetStudyBySlug(ctx context.Context, slug string) (*Study, error)
	ListStudies(ctx context.Context, orgID int64) ([]*Study, error)
	UpdateStudy(ctx context.Context, id int64, req UpdateStudyRequest) (*Study, error)
	DeleteStudy(ctx context.Context, id int64) error
	UpsertGuide(ctx context.Context, studyID int64, contentMD string) (*Guide, error)
	GetGuide(ctx context.Context, studyID int64) (*Guide, error)
}

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectStudyColumns = `id, title, description, slug, participant_identity_flow, organization_id, created_at, updated_at`

func scanStudy(row interface{ Scan(...interface{}) error }) (*Study, error) {
	s := &Study{}
	var description sql.NullString
	if err := row.Scan(&s.ID, &s.Title, &description, &s.Slug, &s.ParticipantIdentityFlow,
		&s.OrganizationID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		s.Description = &description.String
	}
	return s, nil
}

// CreateStudy inserts a study. It returns ErrSlugTaken when the slug is in use.
func (s *PostgresStore) CreateStudy(ctx context.Context, study *Study) error {
	query := `
		INSERT INTO studies (title, description, slug, participant_identity_flow, organization_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, study.Title, study.Description, study.Slug,
		study.ParticipantIdentityFlow, study.OrganizationID).
		Scan(&study.ID, &study.CreatedAt, &study.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, postgres.ConstraintStudySlug) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to create study: %w", err)
	}
	return nil
}

// GetStudy retrieves a study by ID
func (s *PostgresStore) GetStudy(ctx context.Context, id int64) (*Study, error) {
	query := `SELECT ` + selectStudyColumns + ` FROM studies WHERE id = $1`
	study, err := scanStudy(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Study not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get study: %w", err)
	}
	return study, nil
}

// GetStudyBySlug retrieves a study by slug
func (s *PostgresStore) GetStudyBySlug(ctx context.Context, slug string) (*Study, error) {
	query := `SELECT ` + selectStudyColumns + ` FROM studies WHERE slug = $1`
	study, err := scanStudy(s.db.QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Study not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get study: %w", err)
	}
	return study, nil
}

// ListStudies lists an organization's studies, newest first
func (s *PostgresStore) ListStudies(ctx context.Context, orgID int64) ([]*Study, error) {
	query := `SELECT ` + selectStudyColumns + ` FROM studies WHERE organization_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list studies: %w", err)
	}
	defer rows.Close()

	var studies []*Study
	for rows.Next() {
		study, err := scanStudy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan study: %w", err)
		}
		studies = append(studies, study)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list studies: %w", err)
	}
	return studies, nil
}

// UpdateStudy applies the non-nil fields of req and returns the updated study
func (s *PostgresStore) UpdateStudy(ctx context.Context, id int64, req UpdateStudyRequest) (*Study, error) {
	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if req.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", argPos))
		args = append(args, *req.Title)
		argPos++
	}
	if req.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argPos))
		args = append(args, *req.Description)
		argPos++
	}
	if req.ParticipantIdentityFlow != nil {
		setClauses = append(setClauses, fmt.Sprintf("participant_identity_flow = $%d", argPos))
		args = append(args, string(*req.ParticipantIdentityFlow))
		argPos++
	}

	if len(setClauses) == 0 {
		return s.GetStudy(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE studies SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), argPos, selectStudyColumns)

	study, err := scanStudy(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Study not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update study: %w", err)
	}
	return study, nil
}

// DeleteStudy removes a study together with its guide and interviews
func (s *PostgresStore) DeleteStudy(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM studies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete study: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("Study not found")
	}
	return nil
}

// UpsertGuide creates the study's guide or replaces its content
func (s *PostgresStore) UpsertGuide(ctx context.Context, studyID int64, contentMD string) (*Guide, error) {
	query := `
		INSERT INTO interview_guides (study_id, content_md)
		VALUES ($1, $2)
		ON CONFLICT (study_id) DO UPDATE SET content_md = EXCLUDED.content_md, updated_at = NOW()
		RETURNING study_id, content_md, created_at, updated_at
	`
	g := &Guide{}
	err := s.db.QueryRowContext(ctx, query, studyID, contentMD).Scan(&g.StudyID, &g.ContentMD, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert guide: %w", err)
	}
	return g, nil
}

// GetGuide returns nil when the study has no guide
func (s *PostgresStore) GetGuide(ctx context.Context, studyID int64) (*Guide, error) {
	query := `SELECT study_id, content_md, created_at, updated_at FROM interview_guides WHERE study_id = $1`
	g := &Guide{}
	err := s.db.QueryRowContext(ctx, query, studyID).Scan(&g.StudyID, &g.ContentMD, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guide: %w", err)
	}
	return g, nil
}
