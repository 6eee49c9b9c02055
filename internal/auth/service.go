package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/argon2"

	"github.com/hoangnv-dev/taskhub/internal/apperror"
)

// Redis key prefixes for the two halves of a session bundle. The access key
// holds the full serialized Session; the refresh key holds a small record
// pointing back at the user and the access token it was issued alongside.
const (
	accessKeyPrefix  = "auth:access:"
	refreshKeyPrefix = "auth:refresh:"
)

// tokenBytes is the number of random bytes in an access or refresh token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const tokenBytes = 32

// resetTokenTTL is how long a password reset link stays valid.
const resetTokenTTL = time.Hour

// argon2id parameters tuned for a self-hosted application running on
// modest hardware (2-4 CPU cores, 2-4 GB RAM). These follow OWASP
// recommendations for argon2id: memory=64MB, iterations=3, parallelism=4.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // 64 MB in KiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, input LoginInput) (*Session, error)
	ValidateAccess(ctx context.Context, accessToken string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	AdoptSession(ctx context.Context, sess *Session) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	UpdateProfile(ctx context.Context, userID, fullName string) (*User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	InitiatePasswordReset(ctx context.Context, email, redirectTo string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// refreshRecord is what lives behind a refresh key in Redis. It remembers
// which access token it was paired with so a refresh can retire both halves
// of the old bundle atomically enough for our purposes.
type refreshRecord struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
}

// authService implements AuthService with argon2id hashing and Redis-backed
// token bundles.
type authService struct {
	repo       UserRepository
	redis      *redis.Client
	baseURL    string
	sessionTTL time.Duration
	refreshTTL time.Duration
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(repo UserRepository, rdb *redis.Client, baseURL string, sessionTTL, refreshTTL time.Duration) AuthService {
	return &authService{
		repo:       repo,
		redis:      rdb,
		baseURL:    baseURL,
		sessionTTL: sessionTTL,
		refreshTTL: refreshTTL,
	}
}

// Register creates a new user account. It validates uniqueness, hashes the
// password with argon2id, and persists the user.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	fullName := strings.TrimSpace(input.FullName)

	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.NewValidation("a valid email address is required")
	}
	if fullName == "" {
		return nil, apperror.NewValidation("full name is required")
	}
	if len(input.Password) < 8 {
		return nil, apperror.NewValidation("password must be at least 8 characters")
	}

	// Check if email is already taken before doing expensive hashing.
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, apperror.NewConflict("an account with this email already exists")
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login authenticates a user by email and password. On success it issues a
// fresh session bundle.
func (s *authService) Login(ctx context.Context, input LoginInput) (*Session, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	// Don't reveal whether the email exists -- use a generic message for
	// both unknown accounts and wrong passwords.
	if user == nil || !verifyPassword(input.Password, user.PasswordHash) {
		return nil, apperror.NewUnauthorized("invalid email or password")
	}

	sess, err := s.issueBundle(ctx, user.Identity())
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("issuing session: %w", err))
	}

	// Update the user's last login timestamp (non-critical).
	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("failed to update last login",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return sess, nil
}

// ValidateAccess looks up an access token in Redis and returns the stored
// session bundle if it exists and hasn't expired. Expiry is enforced by the
// Redis key TTL.
func (s *authService) ValidateAccess(ctx context.Context, accessToken string) (*Session, error) {
	data, err := s.redis.Get(ctx, accessKeyPrefix+accessToken).Bytes()
	if err == redis.Nil {
		return nil, apperror.NewUnauthorized("session expired or invalid")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading session from Redis: %w", err))
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("unmarshaling session: %w", err))
	}
	return &sess, nil
}

// Refresh exchanges a live refresh token for a new session bundle. The old
// access and refresh tokens are retired.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	data, err := s.redis.Get(ctx, refreshKeyPrefix+refreshToken).Bytes()
	if err == redis.Nil {
		return nil, apperror.NewUnauthorized("refresh token expired or invalid")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading refresh token from Redis: %w", err))
	}

	var rec refreshRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("unmarshaling refresh record: %w", err))
	}

	// Re-read the user so a refreshed bundle carries current profile data.
	user, err := s.repo.FindByID(ctx, rec.UserID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	if user == nil {
		return nil, apperror.NewUnauthorized("account no longer exists")
	}

	sess, err := s.issueBundle(ctx, user.Identity())
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("issuing session: %w", err))
	}

	// Retire the old bundle. Best effort: the new one is already live.
	if err := s.redis.Del(ctx, refreshKeyPrefix+refreshToken, accessKeyPrefix+rec.AccessToken).Err(); err != nil {
		slog.Warn("failed to retire old session bundle", slog.Any("error", err))
	}

	return sess, nil
}

// AdoptSession takes a bundle presented by a client (typically one restored
// from its local storage) and returns the live server-side bundle for it.
// A stale access token is transparently exchanged via the refresh token. If
// neither half is usable the bundle is rejected.
func (s *authService) AdoptSession(ctx context.Context, sess *Session) (*Session, error) {
	if sess == nil || sess.AccessToken == "" {
		return nil, apperror.NewUnauthorized("no session to adopt")
	}

	live, err := s.ValidateAccess(ctx, sess.AccessToken)
	if err == nil {
		return live, nil
	}
	if !apperror.IsType(err, apperror.TypeUnauthorized) {
		return nil, err
	}

	if sess.RefreshToken == "" {
		return nil, apperror.NewUnauthorized("session expired or invalid")
	}
	return s.Refresh(ctx, sess.RefreshToken)
}

// SignOut removes both halves of a session bundle from Redis. Signing out
// an already-dead token is not an error.
func (s *authService) SignOut(ctx context.Context, accessToken string) error {
	data, err := s.redis.Get(ctx, accessKeyPrefix+accessToken).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("reading session from Redis: %w", err))
	}

	var sess Session
	keys := []string{accessKeyPrefix + accessToken}
	if err := json.Unmarshal(data, &sess); err == nil && sess.RefreshToken != "" {
		keys = append(keys, refreshKeyPrefix+sess.RefreshToken)
	}

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting session from Redis: %w", err))
	}
	return nil
}

// UpdateProfile changes the user's display name and returns the updated user.
func (s *authService) UpdateProfile(ctx context.Context, userID, fullName string) (*User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, apperror.NewValidation("full name is required")
	}
	if len(fullName) > 100 {
		return nil, apperror.NewValidation("full name must be at most 100 characters")
	}

	if err := s.repo.UpdateFullName(ctx, userID, fullName); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating full name: %w", err))
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	if user == nil {
		return nil, apperror.NewNotFound("user")
	}
	return user, nil
}

// ChangePassword replaces the authenticated user's password after verifying
// the current one. Unlike the reset flow there is no token: possession of a
// live session plus the current password is the proof.
func (s *authService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return apperror.NewValidation("password must be at least 8 characters")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	if user == nil {
		return apperror.NewNotFound("user")
	}
	if !verifyPassword(currentPassword, user.PasswordHash) {
		return apperror.NewUnauthorized("current password is incorrect")
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}

	slog.Info("password changed", slog.String("user_id", userID))
	return nil
}

// InitiatePasswordReset creates a single-use reset token for the account
// behind the email, if one exists. It always succeeds from the caller's
// point of view so the endpoint does not reveal which emails are registered.
// Without an SMTP integration the reset link is written to the log; a
// mailer can pick it up from there in deployments that have one.
func (s *authService) InitiatePasswordReset(ctx context.Context, email, redirectTo string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	if user == nil {
		slog.Info("password reset requested for unknown email")
		return nil
	}

	token, err := generateToken()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("generating reset token: %w", err))
	}

	expiresAt := time.Now().UTC().Add(resetTokenTTL)
	if err := s.repo.CreateResetToken(ctx, user.ID, user.Email, hashToken(token), expiresAt); err != nil {
		return apperror.NewInternal(fmt.Errorf("storing reset token: %w", err))
	}

	if redirectTo == "" {
		redirectTo = s.baseURL + "/reset-password"
	}
	slog.Info("password reset link issued",
		slog.String("user_id", user.ID),
		slog.String("link", fmt.Sprintf("%s?token=%s", redirectTo, token)),
	)
	return nil
}

// ResetPassword completes a reset started by InitiatePasswordReset. The
// token is single-use and expires after resetTokenTTL.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return apperror.NewValidation("password must be at least 8 characters")
	}

	rec, err := s.repo.FindResetToken(ctx, hashToken(token))
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("finding reset token: %w", err))
	}
	if rec == nil || rec.UsedAt != nil || time.Now().UTC().After(rec.ExpiresAt) {
		return apperror.NewUnauthorized("reset link is invalid or has expired")
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	if err := s.repo.UpdatePassword(ctx, rec.UserID, hash); err != nil {
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}
	if err := s.repo.MarkResetTokenUsed(ctx, rec.TokenHash); err != nil {
		slog.Warn("failed to mark reset token used", slog.Any("error", err))
	}

	slog.Info("password reset completed", slog.String("user_id", rec.UserID))
	return nil
}

// issueBundle mints a new access/refresh token pair for the identity and
// stores both halves in Redis.
func (s *authService) issueBundle(ctx context.Context, id Identity) (*Session, error) {
	accessToken, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}
	refreshToken, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	sess := &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().UTC().Add(s.sessionTTL),
		User:         id,
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshaling session: %w", err)
	}
	if err := s.redis.Set(ctx, accessKeyPrefix+accessToken, data, s.sessionTTL).Err(); err != nil {
		return nil, fmt.Errorf("storing access token in Redis: %w", err)
	}

	rec, err := json.Marshal(refreshRecord{UserID: id.ID, AccessToken: accessToken})
	if err != nil {
		return nil, fmt.Errorf("marshaling refresh record: %w", err)
	}
	if err := s.redis.Set(ctx, refreshKeyPrefix+refreshToken, rec, s.refreshTTL).Err(); err != nil {
		return nil, fmt.Errorf("storing refresh token in Redis: %w", err)
	}

	return sess, nil
}

// --- Password Hashing (argon2id) ---

// hashPassword creates an argon2id hash of the given password. The output
// format is: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
// This format is compatible with most argon2 libraries and allows self-
// contained verification without separate salt storage.
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads, b64Salt, b64Hash)

	return encoded, nil
}

// verifyPassword checks a plaintext password against an argon2id hash string.
// Returns true if the password matches.
func verifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Constant-time comparison to prevent timing attacks.
	return subtle.ConstantTimeCompare(expectedHash, computedHash) == 1
}

// --- Helpers ---

// generateToken creates a cryptographically random hex-encoded token.
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashToken returns the SHA-256 hex digest of a token. Reset tokens are
// stored hashed so a database leak doesn't expose live reset links.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
