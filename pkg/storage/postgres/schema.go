package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrationLockID serialises concurrent Migrate calls across replicas
const migrationLockID = 7254190321

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		display_name VARCHAR(255) NOT NULL,
		description TEXT,
		deleted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS organizations_name_active_key
		ON organizations (name) WHERE deleted_at IS NULL`,

	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		firebase_uid VARCHAR(128) NOT NULL,
		email VARCHAR(320) NOT NULL,
		role VARCHAR(20) NOT NULL CHECK (role IN ('owner', 'admin', 'member')),
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT users_firebase_uid_key UNIQUE (firebase_uid)
	)`,
	`CREATE INDEX IF NOT EXISTS users_organization_id_idx ON users (organization_id)`,

	`CREATE TABLE IF NOT EXISTS studies (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT,
		slug VARCHAR(63) NOT NULL,
		participant_identity_flow VARCHAR(32) NOT NULL DEFAULT 'anonymous'
			CHECK (participant_identity_flow IN ('anonymous', 'claim_after', 'allow_pre_signin')),
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT studies_slug_key UNIQUE (slug)
	)`,
	`CREATE INDEX IF NOT EXISTS studies_organization_id_idx ON studies (organization_id)`,

	`CREATE TABLE IF NOT EXISTS interview_guides (
		id BIGSERIAL PRIMARY KEY,
		study_id BIGINT NOT NULL REFERENCES studies(id) ON DELETE CASCADE,
		content_md TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT interview_guides_study_id_key UNIQUE (study_id)
	)`,

	`CREATE TABLE IF NOT EXISTS interviews (
		id BIGSERIAL PRIMARY KEY,
		study_id BIGINT NOT NULL REFERENCES studies(id) ON DELETE CASCADE,
		access_token VARCHAR(64) NOT NULL,
		interviewee_firebase_uid VARCHAR(128),
		status VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ,
		expires_at TIMESTAMPTZ,
		claimed_at TIMESTAMPTZ,
		external_participant_id VARCHAR(255),
		platform_source VARCHAR(64),
		transcript_url TEXT,
		recording_url TEXT,
		notes TEXT,
		CONSTRAINT interviews_access_token_key UNIQUE (access_token)
	)`,
	`CREATE INDEX IF NOT EXISTS interviews_study_id_idx ON interviews (study_id)`,
	`CREATE INDEX IF NOT EXISTS interviews_interviewee_idx ON interviews (interviewee_firebase_uid)
		WHERE interviewee_firebase_uid IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS interviews_study_pid_key
		ON interviews (study_id, external_participant_id) WHERE external_participant_id IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS audio_recordings (
		id BIGSERIAL PRIMARY KEY,
		interview_id BIGINT NOT NULL REFERENCES interviews(id) ON DELETE CASCADE,
		uri TEXT NOT NULL,
		duration_ms BIGINT,
		mime_type VARCHAR(100),
		sample_rate_hz INTEGER,
		file_size_bytes BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT audio_recordings_interview_id_key UNIQUE (interview_id)
	)`,

	`CREATE TABLE IF NOT EXISTS transcripts (
		id BIGSERIAL PRIMARY KEY,
		interview_id BIGINT NOT NULL REFERENCES interviews(id) ON DELETE CASCADE,
		language VARCHAR(16) NOT NULL,
		source VARCHAR(64) NOT NULL,
		full_text TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT transcripts_interview_id_key UNIQUE (interview_id)
	)`,

	`CREATE TABLE IF NOT EXISTS transcript_segments (
		id BIGSERIAL PRIMARY KEY,
		transcript_id BIGINT NOT NULL REFERENCES transcripts(id) ON DELETE CASCADE,
		start_ms BIGINT NOT NULL,
		end_ms BIGINT NOT NULL,
		text TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		CONSTRAINT transcript_segments_sequence_key UNIQUE (transcript_id, sequence)
	)`,
}

// Migrate creates the schema if it does not exist. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		for i, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
			}
		}
		return nil
	})
}
