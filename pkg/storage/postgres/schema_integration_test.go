//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verityux/verity/pkg/storage/postgres"
	"github.com/verityux/verity/pkg/storage/postgres/pgtest"
)

func TestSchema_Integration(t *testing.T) {
	db := pgtest.NewDB(t)
	ctx := context.Background()

	// Migrate is idempotent
	require.NoError(t, postgres.Migrate(ctx, db))

	var orgID int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO organizations (name, display_name) VALUES ('acme', 'Acme') RETURNING id`).Scan(&orgID)
	require.NoError(t, err)

	t.Run("active organization names are unique", func(t *testing.T) {
		_, err := db.ExecContext(ctx, `INSERT INTO organizations (name, display_name) VALUES ('acme', 'Other')`)
		require.Error(t, err)
		assert.True(t, postgres.IsUniqueViolation(err, postgres.ConstraintOrgNameActive))
	})

	t.Run("soft deleted names can be reused", func(t *testing.T) {
		_, err := db.ExecContext(ctx,
			`INSERT INTO organizations (name, display_name, deleted_at) VALUES ('gone', 'Gone', NOW())`)
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, `INSERT INTO organizations (name, display_name) VALUES ('gone', 'Gone again')`)
		require.NoError(t, err)
	})

	var studyID int64
	err = db.QueryRowContext(ctx,
		`INSERT INTO studies (title, slug, organization_id) VALUES ('Onboarding', 'onboarding', $1) RETURNING id`,
		orgID).Scan(&studyID)
	require.NoError(t, err)

	t.Run("participant identity flow defaults to anonymous", func(t *testing.T) {
		var flow string
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT participant_identity_flow FROM studies WHERE id = $1`, studyID).Scan(&flow))
		assert.Equal(t, "anonymous", flow)
	})

	t.Run("one interview per participant id per study", func(t *testing.T) {
		_, err := db.ExecContext(ctx,
			`INSERT INTO interviews (study_id, access_token, external_participant_id) VALUES ($1, 'tok-1', 'p1')`, studyID)
		require.NoError(t, err)
		_, err = db.ExecContext(ctx,
			`INSERT INTO interviews (study_id, access_token, external_participant_id) VALUES ($1, 'tok-2', 'p1')`, studyID)
		require.Error(t, err)
		assert.True(t, postgres.IsUniqueViolation(err, postgres.ConstraintInterviewPID))

		// Null participant ids never collide
		_, err = db.ExecContext(ctx, `INSERT INTO interviews (study_id, access_token) VALUES ($1, 'tok-3')`, studyID)
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, `INSERT INTO interviews (study_id, access_token) VALUES ($1, 'tok-4')`, studyID)
		require.NoError(t, err)
	})

	t.Run("access tokens are unique", func(t *testing.T) {
		_, err := db.ExecContext(ctx, `INSERT INTO interviews (study_id, access_token) VALUES ($1, 'tok-3')`, studyID)
		require.Error(t, err)
		assert.True(t, postgres.IsUniqueViolation(err, postgres.ConstraintInterviewToken))
	})

	t.Run("status is constrained", func(t *testing.T) {
		_, err := db.ExecContext(ctx,
			`INSERT INTO interviews (study_id, access_token, status) VALUES ($1, 'tok-5', 'abandoned')`, studyID)
		require.Error(t, err)
		assert.False(t, postgres.IsUniqueViolation(err))
	})

	t.Run("deleting a study cascades", func(t *testing.T) {
		_, err := db.ExecContext(ctx, `DELETE FROM studies WHERE id = $1`, studyID)
		require.NoError(t, err)

		var count int
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM interviews WHERE study_id = $1`, studyID).Scan(&count))
		assert.Zero(t, count)
	})
}
