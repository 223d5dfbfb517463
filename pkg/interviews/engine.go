package interviews

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/auth"
	"github.com/verityux/verity/pkg/observability"
	"github.com/verityux/verity/pkg/studies"
)

// maxTokenAttempts bounds retries after an access token collision
const maxTokenAttempts = 3

// StudyLookup is the subset of the studies store the engine reads
type StudyLookup interface {
	GetStudy(ctx context.Context, id int64) (*studies.Study, error)
	GetStudyBySlug(ctx context.Context, slug string) (*studies.Study, error)
	GetGuide(ctx context.Context, studyID int64) (*studies.Guide, error)
}

// Config holds link settings
type Config struct {
	FrontendBaseURL string
	APIBaseURL      string
	ReusableLinkTTL time.Duration
	DefaultSource   string
}

// Engine implements the interview lifecycle
type Engine struct {
	store    Store
	studies  StudyLookup
	cfg      Config
	metrics  *observability.Metrics
	now      func() time.Time
	newToken func() string
}

// NewEngine creates a new Engine
func NewEngine(store Store, studyLookup StudyLookup, cfg Config, metrics *observability.Metrics) *Engine {
	cfg.FrontendBaseURL = strings.TrimRight(cfg.FrontendBaseURL, "/")
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.ReusableLinkTTL <= 0 {
		cfg.ReusableLinkTTL = 7 * 24 * time.Hour
	}
	if cfg.DefaultSource == "" {
		cfg.DefaultSource = "prolific"
	}
	return &Engine{
		store:    store,
		studies:  studyLookup,
		cfg:      cfg,
		metrics:  metrics,
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

// InterviewURL is the participant facing URL of a generated link
func (e *Engine) InterviewURL(token string) string {
	return e.cfg.FrontendBaseURL + "/interview/" + url.PathEscape(token)
}

// RedirectURL is where reusable links send participants
func (e *Engine) RedirectURL(token string) string {
	q := url.Values{}
	q.Set("access_token", token)
	q.Set("verity_api", e.cfg.APIBaseURL)
	return e.cfg.FrontendBaseURL + "/interview?" + q.Encode()
}

// create inserts iv with a fresh access token, retrying on token collisions
func (e *Engine) create(ctx context.Context, iv *Interview, origin string) error {
	iv.Status = StatusPending
	for attempt := 1; ; attempt++ {
		iv.AccessToken = e.newToken()
		err := e.store.CreateInterview(ctx, iv)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrTokenCollision) || attempt == maxTokenAttempts {
			return err
		}
		observability.FromContext(ctx).WithField("attempt", attempt).Warn("Access token collision, retrying")
	}
	e.metrics.InterviewCreated(origin)
	return nil
}

// loadStudy returns the study if ou's organization owns it
func (e *Engine) loadStudy(ctx context.Context, ou *auth.OrgUser, studyID int64) (*studies.Study, error) {
	study, err := e.studies.GetStudy(ctx, studyID)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckOwnership(ou, study.OrganizationID, "Study not found"); err != nil {
		return nil, err
	}
	return study, nil
}

// GenerateLink creates a single use interview link for a study the caller owns
func (e *Engine) GenerateLink(ctx context.Context, ou *auth.OrgUser, studyID int64) (*LinkResponse, error) {
	if _, err := e.loadStudy(ctx, ou, studyID); err != nil {
		return nil, err
	}

	iv := &Interview{StudyID: studyID}
	if err := e.create(ctx, iv, OriginGenerated); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"study_id":     studyID,
		"interview_id": iv.ID,
	}).Info("Interview link generated")

	return &LinkResponse{Interview: iv, InterviewURL: e.InterviewURL(iv.AccessToken)}, nil
}

// RedeemReusableLink resolves a visit to a study's reusable link into an
// access token and returns the participant redirect URL. With a participant
// id the participant's pending interview is reused; a completed one is
// rejected. Without one a new anonymous interview is always created.
func (e *Engine) RedeemReusableLink(ctx context.Context, slug, participantID, source string) (string, error) {
	study, err := e.studies.GetStudyBySlug(ctx, slug)
	if err != nil {
		return "", err
	}

	expiresAt := e.now().Add(e.cfg.ReusableLinkTTL)
	participantID = strings.TrimSpace(participantID)

	if participantID == "" {
		iv := &Interview{StudyID: study.ID, ExpiresAt: &expiresAt}
		if err := e.create(ctx, iv, OriginReusable); err != nil {
			return "", err
		}
		return e.RedirectURL(iv.AccessToken), nil
	}

	token, err := e.reuseParticipant(ctx, study.ID, participantID)
	if err != nil || token != "" {
		return e.redirectOrError(token, err)
	}

	if source == "" {
		source = e.cfg.DefaultSource
	}
	iv := &Interview{
		StudyID:               study.ID,
		ExpiresAt:             &expiresAt,
		ExternalParticipantID: &participantID,
		PlatformSource:        &source,
	}
	err = e.create(ctx, iv, OriginReusable)
	if errors.Is(err, ErrParticipantExists) {
		// Lost a race with a concurrent redemption for the same participant
		token, err = e.reuseParticipant(ctx, study.ID, participantID)
		if err == nil && token == "" {
			err = apperr.Internal("Failed to start interview", errors.New("participant interview vanished"))
		}
		return e.redirectOrError(token, err)
	}
	if err != nil {
		return "", err
	}

	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"study_id":     study.ID,
		"interview_id": iv.ID,
		"source":       source,
	}).Info("Participant interview created")

	return e.RedirectURL(iv.AccessToken), nil
}

// reuseParticipant returns the token of the participant's pending
// interview, "" when there is none, or an error when it is completed. A
// pending interview whose link expired gets a fresh expiry.
func (e *Engine) reuseParticipant(ctx context.Context, studyID int64, participantID string) (string, error) {
	existing, err := e.store.FindByParticipant(ctx, studyID, participantID)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", nil
	}
	if existing.Status == StatusCompleted {
		return "", apperr.BadRequest("Interview already completed")
	}

	now := e.now()
	if existing.ExpiresAt != nil && !now.Before(*existing.ExpiresAt) {
		renewed, err := e.store.RenewExpiry(ctx, existing.ID, now.Add(e.cfg.ReusableLinkTTL), now)
		if err != nil {
			return "", err
		}
		if !renewed {
			// Completed or renewed concurrently; re-read to decide
			current, err := e.store.FindByParticipant(ctx, studyID, participantID)
			if err != nil {
				return "", err
			}
			if current == nil || current.Status == StatusCompleted {
				return "", apperr.BadRequest("Interview already completed")
			}
		}
		observability.FromContext(ctx).WithFields(map[string]interface{}{
			"study_id":     studyID,
			"interview_id": existing.ID,
		}).Info("Participant interview link renewed")
	}
	return existing.AccessToken, nil
}

func (e *Engine) redirectOrError(token string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return e.RedirectURL(token), nil
}

// GetByToken returns the public view of an interview. It fails with
// ErrNotFound, ErrExpired or ErrAlreadyCompleted, checked in that order.
func (e *Engine) GetByToken(ctx context.Context, token string) (*PublicView, error) {
	iv, err := e.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, ErrNotFound
	}
	if iv.Expired(e.now()) {
		return nil, ErrExpired
	}
	if iv.Status == StatusCompleted {
		return nil, ErrAlreadyCompleted
	}

	study, err := e.studies.GetStudy(ctx, iv.StudyID)
	if err != nil {
		return nil, err
	}
	guide, err := e.studies.GetGuide(ctx, iv.StudyID)
	if err != nil {
		return nil, err
	}

	view := &PublicView{
		Interview: PublicInterview{
			ID:          iv.ID,
			StudyID:     iv.StudyID,
			AccessToken: iv.AccessToken,
			Status:      iv.Status,
			CreatedAt:   iv.CreatedAt,
			ExpiresAt:   iv.ExpiresAt,
		},
		Study: PublicStudy{
			Title:          study.Title,
			InterviewGuide: PublicGuide{ContentMD: NoGuideContent},
		},
	}
	if guide != nil {
		updated := guide.UpdatedAt
		view.Study.InterviewGuide = PublicGuide{ContentMD: guide.ContentMD, UpdatedAt: &updated}
	}
	return view, nil
}

// Claim binds an interview to the calling interviewee. A claim is final.
func (e *Engine) Claim(ctx context.Context, token string, user *auth.AuthUser) error {
	if err := auth.RequireIntervieweeTenant(user); err != nil {
		return err
	}

	iv, err := e.store.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if iv == nil {
		return ErrNotFound
	}
	if iv.Claimed() {
		return apperr.BadRequest("Interview already claimed")
	}

	claimed, err := e.store.Claim(ctx, token, user.SubjectID, e.now())
	if err != nil {
		return err
	}
	if !claimed {
		return apperr.BadRequest("Interview already claimed")
	}

	e.metrics.InterviewClaimed()
	observability.FromContext(ctx).WithField("interview_id", iv.ID).Info("Interview claimed")
	return nil
}

// Complete finishes a pending interview. Completing twice is an error and
// leaves the first completion untouched.
func (e *Engine) Complete(ctx context.Context, token string, req CompleteRequest) error {
	if strings.TrimSpace(req.TranscriptURL) == "" {
		return apperr.BadRequest("transcript_url is required")
	}

	iv, err := e.store.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if iv == nil {
		return ErrNotFound
	}
	if iv.Status == StatusCompleted {
		return apperr.BadRequest("Interview already completed")
	}

	completed, err := e.store.Complete(ctx, token, req, e.now())
	if err != nil {
		return err
	}
	if !completed {
		return apperr.BadRequest("Interview already completed")
	}

	e.metrics.InterviewCompleted()
	observability.FromContext(ctx).WithField("interview_id", iv.ID).Info("Interview completed")
	return nil
}

// List returns the interviews of a study the caller owns
func (e *Engine) List(ctx context.Context, ou *auth.OrgUser, studyID int64) ([]*Interview, error) {
	if _, err := e.loadStudy(ctx, ou, studyID); err != nil {
		return nil, err
	}
	return e.store.ListByStudy(ctx, studyID)
}

// Get returns one interview of a study the caller owns
func (e *Engine) Get(ctx context.Context, ou *auth.OrgUser, studyID, interviewID int64) (*Interview, error) {
	if _, err := e.loadStudy(ctx, ou, studyID); err != nil {
		return nil, err
	}
	iv, err := e.store.GetByID(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if iv == nil || iv.StudyID != studyID {
		return nil, ErrNotFound
	}
	return iv, nil
}

// ListMine returns the interviews claimed by the calling interviewee
func (e *Engine) ListMine(ctx context.Context, user *auth.AuthUser) ([]*Interview, error) {
	if err := auth.RequireIntervieweeTenant(user); err != nil {
		return nil, err
	}
	return e.store.ListByInterviewee(ctx, user.SubjectID)
}

// RefreshStatusGauges publishes interview counts per status
func (e *Engine) RefreshStatusGauges(ctx context.Context) error {
	counts, err := e.store.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh interview gauges: %w", err)
	}
	e.metrics.SetInterviewCounts(counts)
	return nil
}
