package studies

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/auth"
	"github.com/verityux/verity/pkg/observability"
	"github.com/verityux/verity/pkg/textgen"
)

// maxSlugAttempts bounds numeric suffixing before falling back to a random suffix
const maxSlugAttempts = 20

const maxTitleLength = 255

// Service implements study and guide management for organization members
type Service struct {
	store     Store
	generator textgen.Generator
}

// NewService creates a new Service
func NewService(store Store, generator textgen.Generator) *Service {
	return &Service{store: store, generator: generator}
}

// Load returns the study if the caller's organization owns it. Studies of
// other organizations are reported as not found.
func (s *Service) Load(ctx context.Context, ou *auth.OrgUser, studyID int64) (*Study, error) {
	study, err := s.store.GetStudy(ctx, studyID)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckOwnership(ou, study.OrganizationID, "Study not found"); err != nil {
		return nil, err
	}
	return study, nil
}

// Create adds a study to the caller's organization
func (s *Service) Create(ctx context.Context, ou *auth.OrgUser, req CreateStudyRequest) (*Study, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.BadRequest("Title is required")
	}
	if len(title) > maxTitleLength {
		return nil, apperr.BadRequest("Title must be at most 255 characters")
	}

	flow := req.ParticipantIdentityFlow
	if flow == "" {
		flow = FlowAnonymous
	}
	if !flow.Valid() {
		return nil, apperr.BadRequest("Invalid participant identity flow")
	}

	study := &Study{
		Title:                   title,
		Description:             req.Description,
		ParticipantIdentityFlow: flow,
		OrganizationID:          ou.OrganizationID,
	}

	if req.Slug != "" {
		if textgen.Slugify(req.Slug) != req.Slug {
			return nil, apperr.BadRequest("Slug must be lowercase letters, digits and hyphens")
		}
		study.Slug = req.Slug
		if err := s.store.CreateStudy(ctx, study); err != nil {
			if errors.Is(err, ErrSlugTaken) {
				return nil, apperr.BadRequest("Study slug already exists")
			}
			return nil, err
		}
	} else if err := s.createWithFreeSlug(ctx, study, title); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"study_id": study.ID,
		"org_id":   study.OrganizationID,
		"slug":     study.Slug,
	}).Info("Study created")

	return study, nil
}

// createWithFreeSlug derives a slug from base and appends -2, -3, ... until the insert succeeds
func (s *Service) createWithFreeSlug(ctx context.Context, study *Study, base string) error {
	root := textgen.Slugify(base)
	if root == "" {
		root = "study"
	}

	for attempt := 1; attempt <= maxSlugAttempts+1; attempt++ {
		study.Slug = slugCandidate(root, attempt)
		err := s.store.CreateStudy(ctx, study)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrSlugTaken) {
			return err
		}
	}
	return apperr.Internal("Failed to allocate study slug", fmt.Errorf("slug %q exhausted", root))
}

func slugCandidate(root string, attempt int) string {
	var suffix string
	switch {
	case attempt == 1:
		return root
	case attempt <= maxSlugAttempts:
		suffix = fmt.Sprintf("-%d", attempt)
	default:
		suffix = "-" + uuid.NewString()[:8]
	}
	if len(root)+len(suffix) > textgen.MaxSlugLength {
		root = strings.TrimRight(root[:textgen.MaxSlugLength-len(suffix)], "-")
	}
	return root + suffix
}

// List returns the caller's organization studies
func (s *Service) List(ctx context.Context, ou *auth.OrgUser) ([]*Study, error) {
	return s.store.ListStudies(ctx, ou.OrganizationID)
}

// Update changes a study's title, description or identity flow
func (s *Service) Update(ctx context.Context, ou *auth.OrgUser, studyID int64, req UpdateStudyRequest) (*Study, error) {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperr.BadRequest("Title is required")
		}
		if len(title) > maxTitleLength {
			return nil, apperr.BadRequest("Title must be at most 255 characters")
		}
		req.Title = &title
	}
	if req.ParticipantIdentityFlow != nil && !req.ParticipantIdentityFlow.Valid() {
		return nil, apperr.BadRequest("Invalid participant identity flow")
	}
	if _, err := s.Load(ctx, ou, studyID); err != nil {
		return nil, err
	}
	return s.store.UpdateStudy(ctx, studyID, req)
}

// Delete removes a study with its guide and interviews
func (s *Service) Delete(ctx context.Context, ou *auth.OrgUser, studyID int64) error {
	if _, err := s.Load(ctx, ou, studyID); err != nil {
		return err
	}
	if err := s.store.DeleteStudy(ctx, studyID); err != nil {
		return err
	}
	observability.FromContext(ctx).WithField("study_id", studyID).Info("Study deleted")
	return nil
}

// PutGuide creates or replaces a study's guide
func (s *Service) PutGuide(ctx context.Context, ou *auth.OrgUser, studyID int64, req GuideRequest) (*Guide, error) {
	if strings.TrimSpace(req.ContentMD) == "" {
		return nil, apperr.BadRequest("Guide content is required")
	}
	if _, err := s.Load(ctx, ou, studyID); err != nil {
		return nil, err
	}
	return s.store.UpsertGuide(ctx, studyID, req.ContentMD)
}

// GetGuide returns a study's guide
func (s *Service) GetGuide(ctx context.Context, ou *auth.OrgUser, studyID int64) (*Guide, error) {
	if _, err := s.Load(ctx, ou, studyID); err != nil {
		return nil, err
	}
	guide, err := s.store.GetGuide(ctx, studyID)
	if err != nil {
		return nil, err
	}
	if guide == nil {
		return nil, apperr.NotFound("Interview guide not found")
	}
	return guide, nil
}

// Generate creates a study titled after topic with a generated slug and guide
func (s *Service) Generate(ctx context.Context, ou *auth.OrgUser, req GenerateStudyRequest) (*StudyWithGuide, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, apperr.BadRequest("Topic is required")
	}
	if len(topic) > maxTitleLength {
		return nil, apperr.BadRequest("Topic must be at most 255 characters")
	}
	if s.generator == nil {
		return nil, apperr.Internal("Study generation is not configured", errors.New("no text generator"))
	}

	slug, err := s.generator.GenerateSlug(ctx, topic)
	if err != nil {
		return nil, apperr.Internal("Failed to generate study", err)
	}
	content, err := s.generator.GenerateGuide(ctx, topic)
	if err != nil {
		return nil, apperr.Internal("Failed to generate study", err)
	}

	study := &Study{
		Title:                   topic,
		ParticipantIdentityFlow: FlowAnonymous,
		OrganizationID:          ou.OrganizationID,
	}
	if err := s.createWithFreeSlug(ctx, study, slug); err != nil {
		return nil, err
	}

	guide, err := s.store.UpsertGuide(ctx, study.ID, content)
	if err != nil {
		return nil, err
	}

	return &StudyWithGuide{Study: study, Guide: guide}, nil
}
