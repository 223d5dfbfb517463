// Package interviews implements the interview link lifecycle.
//
// An interview is created pending and moves to completed exactly once.
// Its access token is a capability: whoever holds it may read the
// interview's public view and complete it without signing in.
//
// Links come from two places. Organization members generate single use
// links for a study they own. Reusable study links (/study/{slug}/start)
// mint an interview per visit, or, when a participant id is supplied,
// reuse the participant's pending interview so replays never create
// duplicates.
//
// Concurrency relies on the database: access tokens and (study,
// participant id) pairs are unique, and claim and complete are conditional
// updates, so racing requests cannot both succeed.
//
// Public reads report, in order: unknown token (not found), expired link
// (gone) and completed interview (gone).
package interviews
