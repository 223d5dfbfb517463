// Package identity wraps the external identity provider (Firebase
// Authentication).
//
// Two concerns live here:
//
//   - Verifier checks ID tokens. OIDCVerifier validates signature, issuer,
//     audience and expiry against https://securetoken.google.com/{project}
//     using go-oidc. In emulator mode signatures are not checked because
//     the Auth emulator issues unsigned tokens.
//   - Admin performs account management: creating users, looking them up by
//     email, setting custom claims and generating password reset links.
//     FirebaseAdmin implements it with the Firebase Admin SDK.
//
// Custom claims carry the tenant type ("tenant") and super admin marker
// ("role": "super_admin", or the legacy boolean "super_admin").
package identity
