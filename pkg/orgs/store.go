package orgs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/storage/postgres"
)

// Store persists organizations and members
type Store interface {
	CreateOrganizationWithOwner(ctx context.Context, org *Organization, owner *Member, beforeCommit func(ctx context.Context) error) error
	GetOrganization(ctx context.Context, id int64) (*Organization, error)
	ListOrganizations(ctx context.Context) ([]*Organization, error)
	SoftDeleteOrganization(ctx context.Context, id int64) error
	GetMemberContext(ctx context.Context, firebaseUID string) (*MemberContext, error)
	GetMemberByEmail(ctx context.Context, orgID int64, email string) (*Member, error)
	ListMembers(ctx context.Context, orgID int64) ([]*Member, error)
	CreateMember(ctx context.Context, member *Member) error
}

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertOrganizationQuery = `
	INSERT INTO organizations (name, display_name, description)
	VALUES ($1, $2, $3)
	RETURNING id, created_at, updated_at
`

const insertMemberQuery = `
	INSERT INTO users (firebase_uid, email, role, organization_id)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at, updated_at
`

// CreateOrganizationWithOwner inserts the organization and its owner in one
// transaction. beforeCommit runs after both inserts; an error from it rolls
// the transaction back.
func (s *PostgresStore) CreateOrganizationWithOwner(ctx context.Context, org *Organization, owner *Member, beforeCommit func(ctx context.Context) error) error {
	return postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, insertOrganizationQuery, org.Name, org.DisplayName, org.Description).
			Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
		if err != nil {
			if postgres.IsUniqueViolation(err, postgres.ConstraintOrgNameActive) {
				return apperr.BadRequest("Organization name already exists")
			}
			return fmt.Errorf("failed to create organization: %w", err)
		}

		owner.OrganizationID = org.ID
		if err := insertMember(ctx, tx, owner); err != nil {
			return err
		}

		if beforeCommit != nil {
			return beforeCommit(ctx)
		}
		return nil
	})
}

const selectOrganizationColumns = `id, name, display_name, description, deleted_at, created_at, updated_at`

func scanOrganization(row interface{ Scan(...interface{}) error }) (*Organization, error) {
	org := &Organization{}
	var description sql.NullString
	var deletedAt sql.NullTime
	if err := row.Scan(&org.ID, &org.Name, &org.DisplayName, &description, &deletedAt, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		org.Description = &description.String
	}
	if deletedAt.Valid {
		org.DeletedAt = &deletedAt.Time
	}
	return org, nil
}

// GetOrganization retrieves a non-deleted organization by ID
func (s *PostgresStore) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	query := `SELECT ` + selectOrganizationColumns + ` FROM organizations WHERE id = $1 AND deleted_at IS NULL`
	org, err := scanOrganization(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Organization not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// ListOrganizations lists non-deleted organizations, oldest first
func (s *PostgresStore) ListOrganizations(ctx context.Context) ([]*Organization, error) {
	query := `SELECT ` + selectOrganizationColumns + ` FROM organizations WHERE deleted_at IS NULL ORDER BY created_at ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// SoftDeleteOrganization marks an organization deleted
func (s *PostgresStore) SoftDeleteOrganization(ctx context.Context, id int64) error {
	query := `UPDATE organizations SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("Organization not found")
	}
	return nil
}

// GetMemberContext loads the member row for firebaseUID joined with its
// organization. Members of deleted organizations are not found.
func (s *PostgresStore) GetMemberContext(ctx context.Context, firebaseUID string) (*MemberContext, error) {
	query := `
		SELECT u.id, u.firebase_uid, u.email, u.role, u.organization_id, u.created_at, u.updated_at,
		       o.name, o.created_at
		FROM users u
		JOIN organizations o ON o.id = u.organization_id
		WHERE u.firebase_uid = $1 AND o.deleted_at IS NULL
	`
	mc := &MemberContext{}
	err := s.db.QueryRowContext(ctx, query, firebaseUID).Scan(
		&mc.ID, &mc.FirebaseUID, &mc.Email, &mc.Role, &mc.OrganizationID, &mc.CreatedAt, &mc.UpdatedAt,
		&mc.OrganizationName, &mc.OrganizationCreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return mc, nil
}

const selectMemberColumns = `id, firebase_uid, email, role, organization_id, created_at, updated_at`

func scanMember(row interface{ Scan(...interface{}) error }) (*Member, error) {
	m := &Member{}
	if err := row.Scan(&m.ID, &m.FirebaseUID, &m.Email, &m.Role, &m.OrganizationID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

// GetMemberByEmail returns nil when the organization has no member with email
func (s *PostgresStore) GetMemberByEmail(ctx context.Context, orgID int64, email string) (*Member, error) {
	query := `SELECT ` + selectMemberColumns + ` FROM users WHERE organization_id = $1 AND LOWER(email) = LOWER($2)`
	m, err := scanMember(s.db.QueryRowContext(ctx, query, orgID, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// ListMembers lists the members of an organization, oldest first
func (s *PostgresStore) ListMembers(ctx context.Context, orgID int64) ([]*Member, error) {
	query := `SELECT ` + selectMemberColumns + ` FROM users WHERE organization_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// CreateMember inserts a member
func (s *PostgresStore) CreateMember(ctx context.Context, member *Member) error {
	return insertMember(ctx, s.db, member)
}

func insertMember(ctx context.Context, q postgres.DBTX, member *Member) error {
	err := q.QueryRowContext(ctx, insertMemberQuery, member.FirebaseUID, member.Email, member.Role, member.OrganizationID).
		Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, postgres.ConstraintUserFirebaseUID) {
			return apperr.BadRequest("User already belongs to an organization")
		}
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}
