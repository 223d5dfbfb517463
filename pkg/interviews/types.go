package interviews

import (
	"time"

	"github.com/verityux/verity/pkg/apperr"
)

// Status is the lifecycle state of an interview
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Origin labels how an interview was created
const (
	OriginGenerated = "generated"
	OriginReusable  = "reusable"
)

// Outcomes of public token reads
var (
	ErrNotFound         = apperr.NotFound("Interview not found")
	ErrExpired          = apperr.Gone("Interview link has expired")
	ErrAlreadyCompleted = apperr.Gone("Interview already completed")
)

// Interview is a single participant session within a study
type Interview struct {
	ID                     int64      `json:"interview_id,string"`
	StudyID                int64      `json:"study_id,string"`
	AccessToken            string     `json:"access_token"`
	IntervieweeFirebaseUID *string    `json:"interviewee_firebase_uid"`
	Status                 Status     `json:"status"`
	CreatedAt              time.Time  `json:"created_at"`
	CompletedAt            *time.Time `json:"completed_at"`
	ExpiresAt              *time.Time `json:"expires_at"`
	ClaimedAt              *time.Time `json:"claimed_at"`
	ExternalParticipantID  *string    `json:"external_participant_id"`
	PlatformSource         *string    `json:"platform_source"`
	TranscriptURL          *string    `json:"transcript_url"`
	RecordingURL           *string    `json:"recording_url"`
	Notes                  *string    `json:"notes"`
}

// Expired reports whether the link's expiry is in the past at now
func (i *Interview) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && i.ExpiresAt.Before(now)
}

// Claimed reports whether an interviewee has claimed the interview
func (i *Interview) Claimed() bool {
	return i.IntervieweeFirebaseUID != nil
}

// LinkResponse is returned when a link is generated
type LinkResponse struct {
	Interview    *Interview `json:"interview"`
	InterviewURL string     `json:"interview_url"`
}

// CompleteRequest carries the results of a finished interview
type CompleteRequest struct {
	TranscriptURL string  `json:"transcript_url"`
	RecordingURL  *string `json:"recording_url,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// PublicView is what a token holder sees
type PublicView struct {
	Interview PublicInterview `json:"interview"`
	Study     PublicStudy     `json:"study"`
}

// PublicInterview is the token holder's view of an interview
type PublicInterview struct {
	ID          int64      `json:"interview_id,string"`
	StudyID     int64      `json:"study_id,string"`
	AccessToken string     `json:"access_token"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// PublicStudy is the token holder's view of the study
type PublicStudy struct {
	Title          string      `json:"title"`
	InterviewGuide PublicGuide `json:"interview_guide"`
}

// PublicGuide is the interview script shown to participants
type PublicGuide struct {
	ContentMD string     `json:"content_md"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// NoGuideContent is shown when a study has no guide
const NoGuideContent = "No guide available"
