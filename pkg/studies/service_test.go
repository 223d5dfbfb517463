package studies

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/auth"
	"github.com/verityux/verity/pkg/textgen"
)

type fakeStore struct {
	studies map[int64]*Study
	guides  map[int64]*Guide
	nextID  int64
	inserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{studies: map[int64]*Study{}, guides: map[int64]*Guide{}, nextID: 1}
}

func (f *fakeStore) CreateStudy(ctx context.Context, study *Study) error {
	f.inserts++
	for _, s := range f.studies {
		if s.Slug == study.Slug {
			return ErrSlugTaken
		}
	}
	study.ID = f.nextID
	study.CreatedAt = time.Now()
	study.UpdatedAt = study.CreatedAt
	f.nextID++
	copied := *study
	f.studies[study.ID] = &copied
	return nil
}

func (f *fakeStore) GetStudy(ctx context.Context, id int64) (*Study, error) {
	s, ok := f.studies[id]
	if !ok {
		return nil, apperr.NotFound("Study not found")
	}
	return s, nil
}

func (f *fakeStore) GetStudyBySlug(ctx context.Context, slug string) (*Study, error) {
	for _, s := range f.studies {
		if s.Slug == slug {
			return s, nil
		}
	}
	return nil, apperr.NotFound("Study not found")
}

func (f *fakeStore) ListStudies(ctx context.Context, orgID int64) ([]*Study, error) {
	var out []*Study
	for _, s := range f.studies {
		if s.OrganizationID == orgID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateStudy(ctx context.Context, id int64, req UpdateStudyRequest) (*Study, error) {
	s, err := f.GetStudy(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		s.Title = *req.Title
	}
	if req.Description != nil {
		s.Description = req.Description
	}
	if req.ParticipantIdentityFlow != nil {
		s.ParticipantIdentityFlow = *req.ParticipantIdentityFlow
	}
	return s, nil
}

func (f *fakeStore) DeleteStudy(ctx context.Context, id int64) error {
	delete(f.studies, id)
	delete(f.guides, id)
	return nil
}

func (f *fakeStore) UpsertGuide(ctx context.Context, studyID int64, contentMD string) (*Guide, error) {
	g := &Guide{StudyID: studyID, ContentMD: contentMD, UpdatedAt: time.Now()}
	f.guides[studyID] = g
	return g, nil
}

func (f *fakeStore) GetGuide(ctx context.Context, studyID int64) (*Guide, error) {
	return f.guides[studyID], nil
}

type failingGenerator struct{}

func (failingGenerator) GenerateSlug(ctx context.Context, topic string) (string, error) {
	return "", errors.New("model unavailable")
}

func (failingGenerator) GenerateGuide(ctx context.Context, topic string) (string, error) {
	return "", errors.New("model unavailable")
}

var (
	acmeOwner   = &auth.OrgUser{OrganizationID: 1, Role: auth.RoleOwner}
	globexOwner = &auth.OrgUser{OrganizationID: 2, Role: auth.RoleOwner}
	superAdmin  = &auth.OrgUser{OrganizationID: 2, IsSuperAdmin: true}
)

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("slug derived from title", func(t *testing.T) {
		svc := NewService(newFakeStore(), textgen.NewTemplateGenerator())

		study, err := svc.Create(ctx, acmeOwner, CreateStudyRequest{Title: "Checkout Flow Study"})
		require.NoError(t, err)
		assert.Equal(t, "checkout-flow-study", study.Slug)
		assert.Equal(t, FlowAnonymous, study.ParticipantIdentityFlow)
		assert.Equal(t, int64(1), study.OrganizationID)
	})

	t.Run("derived slugs are suffixed until free", func(t *testing.T) {
		svc := NewService(newFakeStore(), nil)

		first, err := svc.Create(ctx, acmeOwner, CreateStudyRequest{Title: "Onboarding"})
		require.NoError(t, err)
		second, err := svc.Create(ctx, globexOwner, CreateStudyRequest{Title: "Onboarding"})
		require.NoError(t, err)
		third, err := svc.Create(ctx, acmeOwner, CreateStudyRequest{Title: "onboarding!"})
		require.NoError(t, err)

		assert.Equal(t, "onboarding", first.Slug)
		assert.Equal(t, "onboarding-2", second.Slug)
		assert.Equal(t, "onboarding-3", third.Slug)
	})

	t.Run("explicit slug collision", func(t *testing.T) {
		svc := NewService(newFakeStore(), nil)

		_, err := svc.Create(ctx, acmeOwner, CreateStudyRequest{Title: "A", Slug: "shared"})
		require.NoError(t, err)
		_, err = svc.Create(ctx, acmeOwner, CreateStudyRequest{Title: "B", Slug: "shared"})
		require.Error(t, err)
		assert.Equal(t, "Study slug already exists", apperr.DetailOf(err))
	})

	t.Run("title without slug characters", func(t *testing.T) {
		svc := NewService(newFakeStore(), nil)

		study, err := svc.Create(ctx, acmeOwner, CreateStudyRequest{Title: "???"})
		require.NoError(t, err)
		assert.Equal(t, "study", study.Slug)
	})

	validation := []struct {
		name    string
		req     CreateStudyRequest
		wantErr string
	}{
		{name: "empty title", req: CreateStudyRequest{Title: "  "}, wantErr: "Title is required"},
		{name: "bad flow", req: CreateStudyRequest{Title: "A", ParticipantIdentityFlow: "identified"}, wantErr: "Invalid participant identity flow"},
		{name: "bad slug", req: CreateStudyRequest{Title: "A", Slug: "Not A Slug"}, wantErr: "Slug must be lowercase letters, digits and hyphens"},
	}
	for _, tt := range validation {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newFakeStore(), nil)
			_, err := svc.Create(ctx, acmeOwner, tt.req)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
			assert.Equal(t, tt.wantErr, apperr.DetailOf(err))
		})
	}
}

func TestSlugCandidate(t *testing.T) {
	assert.Equal(t, "onboarding", slugCandidate("onboarding", 1))
	assert.Equal(t, "onboarding-7", slugCandidate("onboarding", 7))

	long := "a-very-long-study-title-that-keeps-going-and-going-until-it-hit"
	require.Len(t, long, textgen.MaxSlugLength)
	candidate := slugCandidate(long, 12)
	assert.LessOrEqual(t, len(candidate), textgen.MaxSlugLength)
	assert.Regexp(t, `-12$`, candidate)

	random := slugCandidate("onboarding", maxSlugAttempts+1)
	assert.Regexp(t, `^onboarding-[0-9a-f]{8}$`, random)
}

func TestService_Ownership(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewService(store, nil)

	study, err := svc.Create(ctx, acmeOwner, CreateStudyRequest{Title: "Acme only"})
	require.NoError(t, err)

	t.Run("other organization sees not found", func(t *testing.T) {
		_, err := svc.Load(ctx, globexOwner, study.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

		title := "hijacked"
		_, err = svc.Update(ctx, globexOwner, study.ID, UpdateStudyRequest{Title: &title})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
		assert.Equal(t, "Acme only", store.studies[study.ID].Title)

		assert.True(t, apperr.IsKind(svc.Delete(ctx, globexOwner, study.ID), apperr.KindNotFound))
		_, err = svc.PutGuide(ctx, globexOwner, study.ID, GuideRequest{ContentMD: "x"})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("super admin passes", func(t *testing.T) {
		loaded, err := svc.Load(ctx, superAdmin, study.ID)
		require.NoError(t, err)
		assert.Equal(t, study.ID, loaded.ID)
	})

	t.Run("owner updates and deletes", func(t *testing.T) {
		flow := FlowClaimAfter
		updated, err := svc.Update(ctx, acmeOwner, study.ID, UpdateStudyRequest{ParticipantIdentityFlow: &flow})
		require.NoError(t, err)
		assert.Equal(t, FlowClaimAfter, updated.ParticipantIdentityFlow)

		require.NoError(t, svc.Delete(ctx, acmeOwner, study.ID))
		_, err = svc.Load(ctx, acmeOwner, study.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestService_UpdateValidation(t *testing.T) {
	ctx := context.Background()
	blank := "   "
	long := strings.Repeat("t", maxTitleLength+1)
	badFlow := IdentityFlow("identified")

	tests := []struct {
		name    string
		req     UpdateStudyRequest
		wantErr string
	}{
		{name: "blank title", req: UpdateStudyRequest{Title: &blank}, wantErr: "Title is required"},
		{name: "title too long", req: UpdateStudyRequest{Title: &long}, wantErr: "Title must be at most 255 characters"},
		{name: "bad flow", req: UpdateStudyRequest{ParticipantIdentityFlow: &badFlow}, wantErr: "Invalid participant identity flow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			svc := NewService(store, nil)
			study, err := svc.Create(ctx, acmeOwner, CreateStudyRequest{Title: "Original"})
			require.NoError(t, err)

			_, err = svc.Update(ctx, acmeOwner, study.ID, tt.req)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
			assert.Equal(t, tt.wantErr, apperr.DetailOf(err))
			assert.Equal(t, "Original", store.studies[study.ID].Title)
		})
	}

	t.Run("title at the limit is trimmed and stored", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store, nil)
		study, err := svc.Create(ctx, acmeOwner, CreateStudyRequest{Title: "Original"})
		require.NoError(t, err)

		exact := " " + strings.Repeat("t", maxTitleLength) + " "
		updated, err := svc.Update(ctx, acmeOwner, study.ID, UpdateStudyRequest{Title: &exact})
		require.NoError(t, err)
		assert.Len(t, updated.Title, maxTitleLength)
	})
}

func TestService_Guides(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeStore(), nil)

	study, err := svc.Create(ctx, acmeOwner, CreateStudyRequest{Title: "Guided"})
	require.NoError(t, err)

	_, err = svc.GetGuide(ctx, acmeOwner, study.ID)
	require.Error(t, err)
	assert.Equal(t, "Interview guide not found", apperr.DetailOf(err))

	_, err = svc.PutGuide(ctx, acmeOwner, study.ID, GuideRequest{ContentMD: "# v1"})
	require.NoError(t, err)
	_, err = svc.PutGuide(ctx, acmeOwner, study.ID, GuideRequest{ContentMD: "# v2"})
	require.NoError(t, err)

	guide, err := svc.GetGuide(ctx, acmeOwner, study.ID)
	require.NoError(t, err)
	assert.Equal(t, "# v2", guide.ContentMD)

	_, err = svc.PutGuide(ctx, acmeOwner, study.ID, GuideRequest{ContentMD: " "})
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}

func TestService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates study and guide", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store, textgen.NewTemplateGenerator())

		result, err := svc.Generate(ctx, acmeOwner, GenerateStudyRequest{Topic: "How do freelancers choose project management tools?"})
		require.NoError(t, err)
		assert.Equal(t, "freelancers-choose-project-management", result.Slug)
		assert.Equal(t, "How do freelancers choose project management tools?", result.Title)
		require.NotNil(t, result.Guide)
		assert.Contains(t, result.Guide.ContentMD, "# Welcome to the Interview")
		assert.Equal(t, result.ID, store.guides[result.ID].StudyID)
	})

	t.Run("generator failure", func(t *testing.T) {
		svc := NewService(newFakeStore(), failingGenerator{})

		_, err := svc.Generate(ctx, acmeOwner, GenerateStudyRequest{Topic: "anything"})
		assert.True(t, apperr.IsKind(err, apperr.KindInternal))
	})

	t.Run("empty topic", func(t *testing.T) {
		svc := NewService(newFakeStore(), textgen.NewTemplateGenerator())

		_, err := svc.Generate(ctx, acmeOwner, GenerateStudyRequest{Topic: ""})
		assert.Equal(t, "Topic is required", apperr.DetailOf(err))
	})
}
