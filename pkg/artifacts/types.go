package artifacts

import (
	"io"
	"time"
)

// DefaultFilename names uploads that arrive without a usable filename
const DefaultFilename = "recording.wav"

// Recording is the metadata row of an uploaded audio file
type Recording struct {
	ID            int64     `json:"recording_id,string"`
	InterviewID   int64     `json:"interview_id,string"`
	URI           string    `json:"uri"`
	DurationMS    *int64    `json:"duration_ms"`
	MimeType      *string   `json:"mime_type"`
	SampleRateHz  *int64    `json:"sample_rate_hz"`
	FileSizeBytes *int64    `json:"file_size_bytes"`
	CreatedAt     time.Time `json:"created_at"`
}

// UploadAudioRequest is a single audio upload. Mime is the form field when
// present, otherwise the part's Content-Type.
type UploadAudioRequest struct {
	InterviewID  int64
	Filename     string
	Body         io.Reader
	Size         int64
	Mime         string
	SampleRateHz *int64
	DurationMS   *int64
}

// Segment is one timed piece of transcript text
type Segment struct {
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

// FinalizeTranscriptRequest carries the whole transcript of an interview
type FinalizeTranscriptRequest struct {
	Lang     string    `json:"lang"`
	Source   string    `json:"source"`
	Segments []Segment `json:"segments"`
}

// Transcript is a finalized interview transcript
type Transcript struct {
	ID          int64     `json:"transcript_id,string"`
	InterviewID int64     `json:"interview_id,string"`
	Language    string    `json:"language"`
	Source      string    `json:"source"`
	FullText    string    `json:"full_text"`
	CreatedAt   time.Time `json:"created_at"`
}
