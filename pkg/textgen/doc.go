// Package textgen generates study slugs and interview guides from a
// research topic.
//
// Generator is the seam for a language model backed implementation.
// TemplateGenerator is deterministic: slugs are built from the topic's
// significant words and guides from a fixed three section template.
package textgen
