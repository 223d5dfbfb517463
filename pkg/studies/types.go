package studies

import "time"

// IdentityFlow controls how participants identify themselves
type IdentityFlow string

const (
	FlowAnonymous      IdentityFlow = "anonymous"
	FlowClaimAfter     IdentityFlow = "claim_after"
	FlowAllowPreSignIn IdentityFlow = "allow_pre_signin"
)

// Valid reports whether f is a known identity flow
func (f IdentityFlow) Valid() bool {
	switch f {
	case FlowAnonymous, FlowClaimAfter, FlowAllowPreSignIn:
		return true
	}
	return false
}

// Study is a research study
type Study struct {
	ID                      int64        `json:"study_id,string"`
	Title                   string       `json:"title"`
	Description             *string      `json:"description"`
	Slug                    string       `json:"slug"`
	ParticipantIdentityFlow IdentityFlow `json:"participant_identity_flow"`
	OrganizationID          int64        `json:"org_id,string"`
	CreatedAt               time.Time    `json:"created_at"`
	UpdatedAt               time.Time    `json:"updated_at"`
}

// Guide is the markdown interview script of a study
type Guide struct {
	StudyID   int64     `json:"study_id,string"`
	ContentMD string    `json:"content_md"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateStudyRequest creates a study
type CreateStudyRequest struct {
	Title                   string       `json:"title"`
	Description             *string      `json:"description,omitempty"`
	Slug                    string       `json:"slug,omitempty"`
	ParticipantIdentityFlow IdentityFlow `json:"participant_identity_flow,omitempty"`
}

// UpdateStudyRequest changes the non-nil fields of a study
type UpdateStudyRequest struct {
	Title                   *string       `json:"title,omitempty"`
	Description             *string       `json:"description,omitempty"`
	ParticipantIdentityFlow *IdentityFlow `json:"participant_identity_flow,omitempty"`
}

// GuideRequest replaces a study's guide
type GuideRequest struct {
	ContentMD string `json:"content_md"`
}

// GenerateStudyRequest creates a study and guide from a topic
type GenerateStudyRequest struct {
	Topic string `json:"topic"`
}

// StudyWithGuide is returned by generation
type StudyWithGuide struct {
	*Study
	Guide *Guide `json:"interview_guide"`
}
