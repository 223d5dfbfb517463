// Package studies manages research studies and their interview guides.
//
// Every study belongs to one organization and has a globally unique slug
// used by its reusable participant link. When no slug is supplied one is
// derived from the title and suffixed until it is free. Each study owns at
// most one interview guide, written with upsert semantics.
package studies
