package textgen

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"text/template"
)

// Generator produces study metadata from a research topic
type Generator interface {
	GenerateSlug(ctx context.Context, topic string) (string, error)
	GenerateGuide(ctx context.Context, topic string) (string, error)
}

// MaxSlugLength matches the studies.slug column
const MaxSlugLength = 63

var (
	invalidSlugChars = regexp.MustCompile(`[^a-z0-9-]`)
	repeatedHyphens  = regexp.MustCompile(`-+`)
)

// Slugify lowercases s, turns spaces into hyphens, drops everything outside
// [a-z0-9-], collapses hyphen runs and trims hyphens from both ends.
func Slugify(s string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
	slug = invalidSlugChars.ReplaceAllString(slug, "")
	slug = repeatedHyphens.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-")
	}
	return slug
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "do": true, "does": true, "for": true, "from": true, "how": true, "in": true,
	"is": true, "it": true, "of": true, "on": true, "or": true, "the": true, "their": true,
	"to": true, "what": true, "when": true, "where": true, "which": true, "who": true,
	"why": true, "with": true, "people": true, "you": true, "your": true,
}

const maxSlugWords = 4

var guideTemplate = template.Must(template.New("guide").Parse(`# Welcome to the Interview

Thank you for participating in this research study about: {{.Topic}}

## Background and Context

1. Can you tell me about your current experience with this topic?
2. What challenges have you encountered?
3. How do you currently approach this?

## Deep Dive Questions

1. Walk me through a recent example of when you dealt with this.
2. What factors influence your decisions in this area?
3. How do you evaluate different options?

## Future Outlook

1. What improvements would you like to see?
2. How do you think this might change in the future?
3. Is there anything else you'd like to share?`))

// TemplateGenerator is a deterministic Generator
type TemplateGenerator struct{}

// NewTemplateGenerator creates a TemplateGenerator
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// GenerateSlug keeps up to four significant words of topic
func (g *TemplateGenerator) GenerateSlug(ctx context.Context, topic string) (string, error) {
	var words []string
	for _, field := range strings.Fields(strings.ToLower(topic)) {
		word := Slugify(field)
		if word == "" || stopWords[word] {
			continue
		}
		words = append(words, word)
		if len(words) == maxSlugWords {
			break
		}
	}
	if len(words) == 0 {
		return Slugify(topic), nil
	}
	return Slugify(strings.Join(words, "-")), nil
}

// GenerateGuide renders the interview guide template for topic
func (g *TemplateGenerator) GenerateGuide(ctx context.Context, topic string) (string, error) {
	var buf bytes.Buffer
	if err := guideTemplate.Execute(&buf, struct{ Topic string }{Topic: strings.TrimSpace(topic)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
