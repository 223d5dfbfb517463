package artifacts

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/objectstore"
	"github.com/verityux/verity/pkg/observability"
	"github.com/verityux/verity/pkg/storage/postgres"
)

const (
	kindAudio      = "audio"
	kindTranscript = "transcript"
)

// Config holds artifact storage settings
type Config struct {
	Bucket     string
	PresignTTL time.Duration
}

// Service implements audio and transcript intake
type Service struct {
	store   Store
	objects objectstore.Store
	cfg     Config
	metrics *observability.Metrics
}

// NewService creates a new Service
func NewService(store Store, objects objectstore.Store, cfg Config, metrics *observability.Metrics) *Service {
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = objectstore.DefaultPresignTTL
	}
	return &Service{store: store, objects: objects, cfg: cfg, metrics: metrics}
}

// ObjectKey derives the object name of an interview's audio file
func ObjectKey(interviewID int64, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		name = DefaultFilename
	}
	return fmt.Sprintf("interviews/%d/audio/%s", interviewID, name)
}

func (s *Service) uriFor(key string) string {
	return "s3://" + s.cfg.Bucket + "/" + key
}

func (s *Service) keyFor(uri string) (string, bool) {
	key, ok := strings.CutPrefix(uri, "s3://"+s.cfg.Bucket+"/")
	return key, ok && key != ""
}

// UploadAudio stores the recording of an interview. The metadata row is
// inserted before the upload and committed after it, so a failed upload
// leaves no row behind.
func (s *Service) UploadAudio(ctx context.Context, req UploadAudioRequest) (*Recording, error) {
	rec, err := s.uploadAudio(ctx, req)
	switch {
	case err == nil:
		s.metrics.ArtifactUpload(kindAudio, "success", req.Size)
	case apperr.KindOf(err) == apperr.KindInternal:
		s.metrics.ArtifactUpload(kindAudio, "error", 0)
	default:
		s.metrics.ArtifactUpload(kindAudio, "rejected", 0)
	}
	return rec, err
}

func (s *Service) uploadAudio(ctx context.Context, req UploadAudioRequest) (*Recording, error) {
	found, err := s.store.InterviewExists(ctx, req.InterviewID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("Interview not found")
	}

	exists, err := s.store.RecordingExists(ctx, req.InterviewID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.BadRequest("Recording already exists for this interview")
	}

	if !strings.HasPrefix(req.Mime, "audio/") {
		return nil, apperr.BadRequest("File must be an audio file")
	}

	key := ObjectKey(req.InterviewID, req.Filename)
	mime := req.Mime
	rec := &Recording{
		InterviewID:  req.InterviewID,
		URI:          s.uriFor(key),
		DurationMS:   req.DurationMS,
		MimeType:     &mime,
		SampleRateHz: req.SampleRateHz,
	}
	if req.Size >= 0 {
		size := req.Size
		rec.FileSizeBytes = &size
	}

	logger := observability.FromContext(ctx).WithFields(map[string]interface{}{
		"interview_id": req.InterviewID,
		"object_key":   key,
	})

	err = s.store.CreateRecording(ctx, rec, func(ctx context.Context) error {
		return s.objects.Upload(ctx, key, req.Body, req.Size, mime)
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrRecordingExists):
		return nil, apperr.BadRequest("Recording already exists for this interview")
	case errors.Is(err, postgres.ErrCommit):
		if delErr := s.objects.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			logger.WithError(delErr).Error("Failed to remove uploaded object after commit failure")
		}
		return nil, apperr.Internal("Failed to upload recording", err)
	default:
		return nil, apperr.Internal("Failed to upload recording", err)
	}

	logger.WithField("recording_id", rec.ID).Info("Audio recording stored")
	return rec, nil
}

// GetRecording returns recording metadata
func (s *Service) GetRecording(ctx context.Context, id int64) (*Recording, error) {
	rec, err := s.store.GetRecording(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound("Recording not found")
	}
	return rec, nil
}

// DownloadURL returns a presigned URL for the recording's audio
func (s *Service) DownloadURL(ctx context.Context, id int64) (string, error) {
	rec, err := s.GetRecording(ctx, id)
	if err != nil {
		return "", err
	}
	key, ok := s.keyFor(rec.URI)
	if !ok {
		return "", apperr.Internal("Invalid recording URI format", fmt.Errorf("unexpected uri %q", rec.URI))
	}
	url, err := s.objects.PresignedGet(ctx, key, s.cfg.PresignTTL)
	if err != nil {
		return "", apperr.Internal("Failed to generate download URL", err)
	}
	return url, nil
}

// FinalizeTranscript stores the one transcript of an interview. full_text
// joins the segment texts with single spaces in request order.
func (s *Service) FinalizeTranscript(ctx context.Context, interviewID int64, req FinalizeTranscriptRequest) (*Transcript, error) {
	if len(req.Segments) == 0 {
		return nil, apperr.BadRequest("Request must contain at least one segment")
	}
	if strings.TrimSpace(req.Lang) == "" {
		return nil, apperr.BadRequest("lang is required")
	}
	if strings.TrimSpace(req.Source) == "" {
		return nil, apperr.BadRequest("source is required")
	}

	found, err := s.store.InterviewExists(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("Interview not found")
	}

	exists, err := s.store.TranscriptExists(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.BadRequest("Transcript already exists for this interview")
	}

	texts := make([]string, len(req.Segments))
	for i, seg := range req.Segments {
		texts[i] = seg.Text
	}
	t := &Transcript{
		InterviewID: interviewID,
		Language:    req.Lang,
		Source:      req.Source,
		FullText:    strings.Join(texts, " "),
	}

	err = s.store.CreateTranscript(ctx, t, req.Segments)
	if errors.Is(err, ErrTranscriptExists) {
		s.metrics.ArtifactUpload(kindTranscript, "rejected", 0)
		return nil, apperr.BadRequest("Transcript already exists for this interview")
	}
	if err != nil {
		s.metrics.ArtifactUpload(kindTranscript, "error", 0)
		return nil, err
	}

	s.metrics.ArtifactUpload(kindTranscript, "success", int64(len(t.FullText)))
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"interview_id":  interviewID,
		"transcript_id": t.ID,
		"segments":      len(req.Segments),
	}).Info("Transcript finalized")
	return t, nil
}
