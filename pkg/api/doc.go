// Package api provides the HTTP REST API server for Verity.
//
// # Overview
//
// The API is built on gorilla/mux and organized into handler groups that
// delegate to the domain services:
//
//   - Organizations: provisioning, membership and the caller's current organization
//   - Studies: CRUD, interview guides and topic-based generation
//   - Interviews: link generation, reusable study links and the token-holder lifecycle
//   - Artifacts: audio uploads, presigned downloads and transcript finalization
//   - Health: database connectivity
//
// # Authentication
//
// Protected routes carry a bearer identity token. The token is resolved to an
// auth.AuthUser, then organization routes resolve an auth.OrgUser for the
// addressed organization. Interview tokens are capabilities: holders of an
// access token may read and complete the interview without signing in.
//
// # Routes
//
// Study routes are registered twice, under /orgs/{org_id} and at the root.
// Root routes act on the caller's own organization.
//
//	POST   /orgs                                        super admin
//	GET    /orgs/current                                organization user
//	GET    /orgs/{org_id}/users                         owner or admin
//	POST   /orgs/{org_id}/studies/{study_id}/interviews organization user
//	GET    /study/{slug}/start?pid=                     public, 302
//	GET    /interview/{token}                           public, 200/404/410
//	GET    /api/interview/{token}                       public HTML page
//	POST   /recordings:upload                           public, multipart
//
// # Usage
//
//	server := api.NewServer(api.Config{ServiceName: "verity-backend"}, deps)
//	http.ListenAndServe(":8000", server.Handler())
package api
