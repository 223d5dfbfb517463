package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

var adminScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/identitytoolkit",
	"https://www.googleapis.com/auth/userinfo.email",
}

// authClient is the subset of the Firebase auth client used by FirebaseAdmin
type authClient interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
	SetCustomUserClaims(ctx context.Context, uid string, customClaims map[string]interface{}) error
	PasswordResetLink(ctx context.Context, email string) (string, error)
}

// FirebaseConfig configures the Firebase Admin SDK
type FirebaseConfig struct {
	ProjectID string
	// EmulatorMode skips credential lookup. The SDK reads
	// FIREBASE_AUTH_EMULATOR_HOST itself.
	EmulatorMode bool
}

// FirebaseAdmin implements Admin with the Firebase Admin SDK
type FirebaseAdmin struct {
	client authClient
}

// NewFirebaseAdmin initialises the Admin SDK. Outside emulator mode it
// authenticates with Google application default credentials.
func NewFirebaseAdmin(ctx context.Context, cfg FirebaseConfig) (*FirebaseAdmin, error) {
	var opts []option.ClientOption
	if !cfg.EmulatorMode {
		ts, err := google.DefaultTokenSource(ctx, adminScopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to load default credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(ts))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
	}

	return &FirebaseAdmin{client: client}, nil
}

// CreateUser registers a new account for email
func (f *FirebaseAdmin) CreateUser(ctx context.Context, email string, emailVerified bool) (*UserRecord, error) {
	user, err := f.client.CreateUser(ctx, (&auth.UserToCreate{}).Email(email).EmailVerified(emailVerified))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return toUserRecord(user), nil
}

// GetUserByEmail returns ErrUserNotFound when no account uses email
func (f *FirebaseAdmin) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	user, err := f.client.GetUserByEmail(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return toUserRecord(user), nil
}

// SetCustomClaims replaces the custom claims of uid
func (f *FirebaseAdmin) SetCustomClaims(ctx context.Context, uid string, claims map[string]interface{}) error {
	if err := f.client.SetCustomUserClaims(ctx, uid, claims); err != nil {
		return fmt.Errorf("failed to set custom claims: %w", err)
	}
	return nil
}

// PasswordResetLink generates a password reset link for email
func (f *FirebaseAdmin) PasswordResetLink(ctx context.Context, email string) (string, error) {
	link, err := f.client.PasswordResetLink(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to generate password reset link: %w", err)
	}
	return link, nil
}

func toUserRecord(user *auth.UserRecord) *UserRecord {
	if user == nil || user.UserInfo == nil {
		return &UserRecord{}
	}
	return &UserRecord{UID: user.UID, Email: user.Email, CustomClaims: user.CustomClaims}
}
