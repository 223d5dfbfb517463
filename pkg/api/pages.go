package api

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"

	"github.com/verityux/verity/pkg/apperr"
	"github.com/verityux/verity/pkg/httputil"
	"github.com/verityux/verity/pkg/interviews"
	"github.com/verityux/verity/pkg/observability"
)

const pageLayout = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Heading}} | Verity</title>
</head>
<body>
<main>
<h1>{{.Heading}}</h1>
{{template "body" .}}
</main>
</body>
</html>{{end}}`

var pageBodies = map[string]string{
	"interview": `{{define "body"}}<p>Status: {{.View.Interview.Status}}</p>
<section class="guide"><pre>{{.View.Study.InterviewGuide.ContentMD}}</pre></section>{{end}}`,
	"not_found": `{{define "body"}}<p>We couldn't find this interview. Check that you copied the whole link.</p>{{end}}`,
	"expired":   `{{define "body"}}<p>This interview link has expired. Contact the researcher who sent it for a new one.</p>{{end}}`,
	"completed": `{{define "body"}}<p>This interview has already been completed. Thank you for taking part.</p>{{end}}`,
	"error":     `{{define "body"}}<p>Something went wrong loading this interview. Please try again later.</p>{{end}}`,
}

type pageData struct {
	Heading string
	View    *interviews.PublicView
}

// pageRenderer renders the participant-facing HTML pages
type pageRenderer struct {
	pages map[string]*template.Template
}

func newPageRenderer() *pageRenderer {
	layout := template.Must(template.New("layout").Parse(pageLayout))
	pages := make(map[string]*template.Template, len(pageBodies))
	for name, body := range pageBodies {
		pages[name] = template.Must(template.Must(layout.Clone()).Parse(body))
	}
	return &pageRenderer{pages: pages}
}

func (p *pageRenderer) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := p.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		observability.FromContext(r.Context()).WithError(err).WithField("page", name).Error("Failed to render page")
		httputil.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// pageFor maps a token lookup failure to its page
func pageFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, interviews.ErrExpired):
		return http.StatusGone, "expired", "Interview link expired"
	case errors.Is(err, interviews.ErrAlreadyCompleted):
		return http.StatusGone, "completed", "Interview already completed"
	case apperr.IsKind(err, apperr.KindNotFound):
		return http.StatusNotFound, "not_found", "Interview not found"
	default:
		return http.StatusInternalServerError, "error", "Something went wrong"
	}
}

// interviewPage handles GET /api/interview/{token}, the browser rendering of
// GET /interview/{token}
func (s *Server) interviewPage(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParsePathStringOrError(w, r, "token")
	if !ok {
		return
	}

	view, err := s.deps.Interviews.GetByToken(r.Context(), token)
	if err != nil {
		status, name, heading := pageFor(err)
		if status == http.StatusInternalServerError {
			observability.FromContext(r.Context()).WithError(err).Error("Failed to load interview page")
		}
		s.pages.render(w, r, status, name, pageData{Heading: heading})
		return
	}

	s.pages.render(w, r, http.StatusOK, "interview", pageData{Heading: view.Study.Title, View: view})
}
