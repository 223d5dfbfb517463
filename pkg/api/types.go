package api

import (
	"context"

	"github.com/verityux/verity/pkg/artifacts"
	"github.com/verityux/verity/pkg/auth"
	"github.com/verityux/verity/pkg/interviews"
	"github.com/verityux/verity/pkg/orgs"
	"github.com/verityux/verity/pkg/studies"
)

// OrgService manages organizations and their members
type OrgService interface {
	CreateOrganization(ctx context.Context, req orgs.CreateOrganizationRequest) (*orgs.CreateOrganizationResult, error)
	ListOrganizations(ctx context.Context) ([]*orgs.Organization, error)
	GetOrganization(ctx context.Context, id int64) (*orgs.Organization, error)
	DeleteOrganization(ctx context.Context, id int64) error
	ListMembers(ctx context.Context, orgID int64) ([]*orgs.Member, error)
	InviteMember(ctx context.Context, orgID int64, req orgs.InviteMemberRequest) (*orgs.ProvisionedUser, error)
}

// StudyService manages studies and guides on behalf of an organization user
type StudyService interface {
	Create(ctx context.Context, ou *auth.OrgUser, req studies.CreateStudyRequest) (*studies.Study, error)
	List(ctx context.Context, ou *auth.OrgUser) ([]*studies.Study, error)
	Load(ctx context.Context, ou *auth.OrgUser, studyID int64) (*studies.Study, error)
	Update(ctx context.Context, ou *auth.OrgUser, studyID int64, req studies.UpdateStudyRequest) (*studies.Study, error)
	Delete(ctx context.Context, ou *auth.OrgUser, studyID int64) error
	PutGuide(ctx context.Context, ou *auth.OrgUser, studyID int64, req studies.GuideRequest) (*studies.Guide, error)
	GetGuide(ctx context.Context, ou *auth.OrgUser, studyID int64) (*studies.Guide, error)
	Generate(ctx context.Context, ou *auth.OrgUser, req studies.GenerateStudyRequest) (*studies.StudyWithGuide, error)
}

// InterviewService drives the interview lifecycle
type InterviewService interface {
	GenerateLink(ctx context.Context, ou *auth.OrgUser, studyID int64) (*interviews.LinkResponse, error)
	RedeemReusableLink(ctx context.Context, slug, participantID, source string) (string, error)
	GetByToken(ctx context.Context, token string) (*interviews.PublicView, error)
	Claim(ctx context.Context, token string, user *auth.AuthUser) error
	Complete(ctx context.Context, token string, req interviews.CompleteRequest) error
	List(ctx context.Context, ou *auth.OrgUser, studyID int64) ([]*interviews.Interview, error)
	Get(ctx context.Context, ou *auth.OrgUser, studyID, interviewID int64) (*interviews.Interview, error)
	ListMine(ctx context.Context, user *auth.AuthUser) ([]*interviews.Interview, error)
}

// ArtifactService accepts recordings and transcripts
type ArtifactService interface {
	UploadAudio(ctx context.Context, req artifacts.UploadAudioRequest) (*artifacts.Recording, error)
	GetRecording(ctx context.Context, id int64) (*artifacts.Recording, error)
	DownloadURL(ctx context.Context, id int64) (string, error)
	FinalizeTranscript(ctx context.Context, interviewID int64, req artifacts.FinalizeTranscriptRequest) (*artifacts.Transcript, error)
}

// MessageResponse is the body of state transitions without a resource
type MessageResponse struct {
	Message string `json:"message"`
}
