// Package artifacts accepts the audio recording and the finalized transcript
// of an interview. Each interview holds at most one of each; the database
// unique constraints on interview_id back the fast-path existence checks.
package artifacts
