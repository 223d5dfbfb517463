// Package postgres owns the PostgreSQL connection pool, the relational
// schema and the helpers every Verity store shares.
//
// Uniqueness invariants (one guide, recording and transcript per study or
// interview, globally unique access tokens, organization names unique among
// non-deleted rows, one interview per participant id and study) are
// enforced by constraints created in Migrate. Stores translate violations
// with IsUniqueViolation.
package postgres
