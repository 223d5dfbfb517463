package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// Constraint names referenced by stores when mapping unique violations
const (
	ConstraintOrgNameActive       = "organizations_name_active_key"
	ConstraintUserFirebaseUID     = "users_firebase_uid_key"
	ConstraintStudySlug           = "studies_slug_key"
	ConstraintGuideStudy          = "interview_guides_study_id_key"
	ConstraintInterviewToken      = "interviews_access_token_key"
	ConstraintInterviewPID        = "interviews_study_pid_key"
	ConstraintRecordingInterview  = "audio_recordings_interview_id_key"
	ConstraintTranscriptInterview = "transcripts_interview_id_key"
)

const uniqueViolation = pq.ErrorCode("23505")

// IsUniqueViolation reports whether err is a unique violation. When
// constraints are given, the violated constraint must be one of them.
func IsUniqueViolation(err error, constraints ...string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	if len(constraints) == 0 {
		return true
	}
	for _, c := range constraints {
		if pqErr.Constraint == c {
			return true
		}
	}
	return false
}
