package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/verityux/verity/pkg/httputil"
	"github.com/verityux/verity/pkg/middleware"
	"github.com/verityux/verity/pkg/observability"
)

// DefaultMaxUploadBytes caps multipart audio uploads
const DefaultMaxUploadBytes = 200 << 20

// Config holds HTTP-level settings
type Config struct {
	ServiceName    string
	Version        string
	CORSOrigins    []string
	MaxUploadBytes int64
}

// Dependencies are the collaborators the handlers delegate to
type Dependencies struct {
	Tokens      middleware.TokenResolver
	OrgResolver middleware.OrgResolver
	StudyLookup middleware.StudyLookup

	Orgs       OrgService
	Studies    StudyService
	Interviews InterviewService
	Artifacts  ArtifactService

	// Limiter throttles the public interview routes; nil disables limiting.
	Limiter middleware.Limiter
	Metrics *observability.Metrics
	Logger  *observability.Logger
	DBPing  func(ctx context.Context) error
}

// Server represents our API server
type Server struct {
	cfg     Config
	deps    Dependencies
	router  *mux.Router
	handler http.Handler
	pages   *pageRenderer
}

// NewServer creates a new API server with all routes registered
func NewServer(cfg Config, deps Dependencies) *Server {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "verity-backend"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if deps.Logger == nil {
		deps.Logger = observability.GetLogger(context.Background())
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: mux.NewRouter(),
		pages:  newPageRenderer(),
	}
	s.router.Use(
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(deps.Logger),
		httputil.LoggingMiddleware(deps.Logger),
		observability.HTTPMetricsMiddleware(deps.Metrics),
	)
	s.setupRoutes()
	// CORS wraps the router so preflight requests never reach route matching
	s.handler = httputil.CORSMiddleware(cfg.CORSOrigins)(s.router)
	return s
}

// chain wraps h so that the first middleware is the outermost
func chain(h http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
	var handler http.Handler = h
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}
	return handler
}

func (s *Server) limited(route string) func(http.Handler) http.Handler {
	if s.deps.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.NewRateLimitMiddleware(s.deps.Limiter, s.deps.Metrics, route).Handler
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	authn := middleware.NewAuthMiddleware(s.deps.Tokens, false).Handler
	orgCtx := middleware.OrgContextMiddleware(s.deps.OrgResolver, s.deps.StudyLookup)
	manage := middleware.RequireOwnerOrAdmin

	s.router.HandleFunc("/health", s.health).Methods("GET")

	// Organizations. /orgs/current must precede /orgs/{org_id}.
	s.router.Handle("/orgs", chain(s.createOrganization, authn, middleware.RequireSuperAdmin)).Methods("POST")
	s.router.Handle("/orgs", chain(s.listOrganizations, authn, middleware.RequireSuperAdmin)).Methods("GET")
	s.router.Handle("/orgs/current", chain(s.currentOrganization, authn, orgCtx)).Methods("GET")
	s.router.Handle("/orgs/current/users", chain(s.listMembers, authn, orgCtx, manage)).Methods("GET")
	s.router.Handle("/orgs/{org_id}", chain(s.currentOrganization, authn, orgCtx)).Methods("GET")
	s.router.Handle("/orgs/{org_id}", chain(s.deleteOrganization, authn, middleware.RequireSuperAdmin)).Methods("DELETE")
	s.router.Handle("/orgs/{org_id}/users", chain(s.listMembers, authn, orgCtx, manage)).Methods("GET")
	s.router.Handle("/orgs/{org_id}/users", chain(s.inviteMember, authn, orgCtx, manage)).Methods("POST")

	// Studies, guides and interviews, scoped to an organization or to the
	// caller's own organization.
	for _, prefix := range []string{"/orgs/{org_id}", ""} {
		s.router.Handle(prefix+"/studies", chain(s.createStudy, authn, orgCtx)).Methods("POST")
		s.router.Handle(prefix+"/studies", chain(s.listStudies, authn, orgCtx)).Methods("GET")
		s.router.Handle(prefix+"/studies:generate", chain(s.generateStudy, authn, orgCtx)).Methods("POST")
		s.router.Handle(prefix+"/studies/{study_id}", chain(s.getStudy, authn, orgCtx)).Methods("GET")
		s.router.Handle(prefix+"/studies/{study_id}", chain(s.updateStudy, authn, orgCtx)).Methods("PATCH")
		s.router.Handle(prefix+"/studies/{study_id}", chain(s.deleteStudy, authn, orgCtx)).Methods("DELETE")
		s.router.Handle(prefix+"/studies/{study_id}/guide", chain(s.putGuide, authn, orgCtx)).Methods("PUT")
		s.router.Handle(prefix+"/studies/{study_id}/guide", chain(s.getGuide, authn, orgCtx)).Methods("GET")
		s.router.Handle(prefix+"/studies/{study_id}/interviews", chain(s.generateLink, authn, orgCtx)).Methods("POST")
		s.router.Handle(prefix+"/studies/{study_id}/interviews", chain(s.listInterviews, authn, orgCtx)).Methods("GET")
		s.router.Handle(prefix+"/studies/{study_id}/interviews/{interview_id}", chain(s.getInterview, authn, orgCtx)).Methods("GET")
	}

	// Public participant routes
	s.router.Handle("/study/{slug}/start", chain(s.startStudy, s.limited("study_start"))).Methods("GET")
	s.router.Handle("/interview/{token}", chain(s.getPublicInterview, s.limited("interview"))).Methods("GET")
	s.router.Handle("/interview/{token}/complete", chain(s.completeInterview, s.limited("interview"))).Methods("POST")
	s.router.Handle("/interview/{token}/claim", chain(s.claimInterview, s.limited("interview"), authn, middleware.RequireIntervieweeTenant)).Methods("POST")
	s.router.Handle("/api/interview/{token}", chain(s.interviewPage, s.limited("interview"))).Methods("GET")
	s.router.Handle("/interviews/my-interviews", chain(s.listMyInterviews, authn, middleware.RequireIntervieweeTenant)).Methods("GET")

	// Artifacts
	s.router.Handle("/recordings:upload", chain(s.uploadRecording, httputil.MaxBytesMiddleware(s.cfg.MaxUploadBytes))).Methods("POST")
	s.router.HandleFunc("/recordings/{recording_id}/download", s.downloadRecording).Methods("GET")
	s.router.HandleFunc("/recordings/{recording_id}", s.getRecording).Methods("GET")
	s.router.HandleFunc("/interviews/{interview_id}/transcript:finalize", s.finalizeTranscript).Methods("POST")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Handler returns the router wrapped with OpenTelemetry instrumentation
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.handler, s.cfg.ServiceName)
}
