package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/verityux/verity/pkg/artifacts"
	"github.com/verityux/verity/pkg/httputil"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files
const multipartMemory = 32 << 20

// uploadRecording handles POST /recordings:upload. The form carries
// interview_id, file and optional mime, sample_rate_hz and duration_ms.
func (s *Server) uploadRecording(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.cfg.MaxUploadBytes {
		httputil.WriteDetail(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteDetail(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		httputil.WriteBadRequest(w, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	interviewID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("interview_id")), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "interview_id is required")
		return
	}
	sampleRate, err := httputil.ParseFormInt64(r, "sample_rate_hz")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	duration, err := httputil.ParseFormInt64(r, "duration_ms")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file is required")
		return
	}
	defer file.Close()

	mime := strings.TrimSpace(r.FormValue("mime"))
	if mime == "" {
		mime = header.Header.Get("Content-Type")
	}

	rec, err := s.deps.Artifacts.UploadAudio(r.Context(), artifacts.UploadAudioRequest{
		InterviewID:  interviewID,
		Filename:     header.Filename,
		Body:         file,
		Size:         header.Size,
		Mime:         mime,
		SampleRateHz: sampleRate,
		DurationMS:   duration,
	})
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteCreated(w, rec)
}

// downloadRecording handles GET /recordings/{recording_id}/download
func (s *Server) downloadRecording(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "recording_id", "Recording not found")
	if !ok {
		return
	}

	url, err := s.deps.Artifacts.DownloadURL(r.Context(), id)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// getRecording handles GET /recordings/{recording_id}
func (s *Server) getRecording(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "recording_id", "Recording not found")
	if !ok {
		return
	}

	rec, err := s.deps.Artifacts.GetRecording(r.Context(), id)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, rec)
}

// finalizeTranscript handles POST /interviews/{interview_id}/transcript:finalize
func (s *Server) finalizeTranscript(w http.ResponseWriter, r *http.Request) {
	interviewID, ok := pathID(w, r, "interview_id", "Interview not found")
	if !ok {
		return
	}

	var req artifacts.FinalizeTranscriptRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	transcript, err := s.deps.Artifacts.FinalizeTranscript(r.Context(), interviewID, req)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteCreated(w, transcript)
}
