package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hoangnv-dev/taskhub/internal/apperror"
)

// --- Mock Repository ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	createFn             func(ctx context.Context, user *User) error
	findByIDFn           func(ctx context.Context, id string) (*User, error)
	findByEmailFn        func(ctx context.Context, email string) (*User, error)
	emailExistsFn        func(ctx context.Context, email string) (bool, error)
	updateLastLoginFn    func(ctx context.Context, id string) error
	updateFullNameFn     func(ctx context.Context, id, fullName string) error
	updatePasswordFn     func(ctx context.Context, id, passwordHash string) error
	createResetTokenFn   func(ctx context.Context, userID, email, tokenHash string, expiresAt time.Time) error
	findResetTokenFn     func(ctx context.Context, tokenHash string) (*ResetToken, error)
	markResetTokenUsedFn func(ctx context.Context, tokenHash string) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	if m.emailExistsFn != nil {
		return m.emailExistsFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	if m.updateLastLoginFn != nil {
		return m.updateLastLoginFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) UpdateFullName(ctx context.Context, id, fullName string) error {
	if m.updateFullNameFn != nil {
		return m.updateFullNameFn(ctx, id, fullName)
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, passwordHash)
	}
	return nil
}

func (m *mockUserRepo) CreateResetToken(ctx context.Context, userID, email, tokenHash string, expiresAt time.Time) error {
	if m.createResetTokenFn != nil {
		return m.createResetTokenFn(ctx, userID, email, tokenHash, expiresAt)
	}
	return nil
}

func (m *mockUserRepo) FindResetToken(ctx context.Context, tokenHash string) (*ResetToken, error) {
	if m.findResetTokenFn != nil {
		return m.findResetTokenFn(ctx, tokenHash)
	}
	return nil, nil
}

func (m *mockUserRepo) MarkResetTokenUsed(ctx context.Context, tokenHash string) error {
	if m.markResetTokenUsedFn != nil {
		return m.markResetTokenUsedFn(ctx, tokenHash)
	}
	return nil
}

// --- Test Helpers ---

// newTestAuthService creates an authService backed by a mock repo and an
// in-memory Redis. The miniredis instance is cleaned up with the test.
func newTestAuthService(t *testing.T, repo *mockUserRepo) *authService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return &authService{
		repo:       repo,
		redis:      rdb,
		baseURL:    "http://localhost:8080",
		sessionTTL: time.Hour,
		refreshTTL: 30 * 24 * time.Hour,
	}
}

// repoWithUser returns a mock repo holding a single account with the given
// plaintext password already hashed.
func repoWithUser(t *testing.T, password string) *mockUserRepo {
	t.Helper()
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	user := &User{
		ID:           "user-123",
		Email:        "alice@example.com",
		FullName:     "Alice Nguyen",
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	return &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			if email == user.Email {
				return user, nil
			}
			return nil, nil
		},
		findByIDFn: func(ctx context.Context, id string) (*User, error) {
			if id == user.ID {
				return user, nil
			}
			return nil, nil
		},
	}
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	repo := &mockUserRepo{
		emailExistsFn: func(ctx context.Context, email string) (bool, error) {
			return false, nil
		},
		createFn: func(ctx context.Context, user *User) error {
			if user.Email != "alice@example.com" {
				t.Errorf("expected email alice@example.com, got %s", user.Email)
			}
			if user.FullName != "Alice Nguyen" {
				t.Errorf("expected full name Alice Nguyen, got %s", user.FullName)
			}
			if user.PasswordHash == "" {
				t.Error("expected password hash to be set")
			}
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Alice@Example.com",
		FullName: "  Alice Nguyen  ",
		Password: "secure-password-123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.ID == "" {
		t.Error("expected user ID to be generated")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{
		emailExistsFn: func(ctx context.Context, email string) (bool, error) {
			return true, nil
		},
	}

	svc := newTestAuthService(t, repo)
	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "taken@example.com",
		FullName: "Test",
		Password: "secure-password-123",
	})
	assertAppError(t, err, 409)
}

func TestRegister_InvalidEmail(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})
	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "not-an-email",
		FullName: "Test",
		Password: "secure-password-123",
	})
	assertAppError(t, err, 422)
}

func TestRegister_ShortPassword(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})
	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "test@example.com",
		FullName: "Test",
		Password: "short",
	})
	assertAppError(t, err, 422)
}

func TestRegister_CreateError(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			return errors.New("db write error")
		},
	}

	svc := newTestAuthService(t, repo)
	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "test@example.com",
		FullName: "Test",
		Password: "secure-password-123",
	})
	assertAppError(t, err, 500)
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	repo := repoWithUser(t, "secure-password-123")
	svc := newTestAuthService(t, repo)

	sess, err := svc.Login(context.Background(), LoginInput{
		Email:    "  Alice@EXAMPLE.com ",
		Password: "secure-password-123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.AccessToken == "" || sess.RefreshToken == "" {
		t.Fatal("expected both tokens to be set")
	}
	if sess.AccessToken == sess.RefreshToken {
		t.Error("expected distinct access and refresh tokens")
	}
	if sess.User.ID != "user-123" || sess.User.Email != "alice@example.com" {
		t.Errorf("unexpected identity in bundle: %+v", sess.User)
	}
	if time.Until(sess.ExpiresAt) < 55*time.Minute {
		t.Errorf("expected expiry ~1 hour out, got %v", time.Until(sess.ExpiresAt))
	}

	// The issued access token should validate.
	live, err := svc.ValidateAccess(context.Background(), sess.AccessToken)
	if err != nil {
		t.Fatalf("expected issued token to validate: %v", err)
	}
	if live.User.ID != "user-123" {
		t.Errorf("expected user-123 in validated session, got %s", live.User.ID)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := repoWithUser(t, "correct-password")
	svc := newTestAuthService(t, repo)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assertAppError(t, err, 401)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever-password",
	})
	assertAppError(t, err, 401)
}

// --- Token Bundle Tests ---

func TestValidateAccess_UnknownToken(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})
	_, err := svc.ValidateAccess(context.Background(), "no-such-token")
	assertAppError(t, err, 401)
}

func TestRefresh_IssuesNewBundleAndRetiresOld(t *testing.T) {
	repo := repoWithUser(t, "secure-password-123")
	svc := newTestAuthService(t, repo)

	old, err := svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "secure-password-123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	fresh, err := svc.Refresh(context.Background(), old.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh.AccessToken == old.AccessToken || fresh.RefreshToken == old.RefreshToken {
		t.Error("expected refresh to mint new tokens")
	}
	if fresh.User.ID != "user-123" {
		t.Errorf("expected identity to survive refresh, got %s", fresh.User.ID)
	}

	// Both halves of the old bundle should be dead.
	if _, err := svc.ValidateAccess(context.Background(), old.AccessToken); err == nil {
		t.Error("expected old access token to be retired")
	}
	if _, err := svc.Refresh(context.Background(), old.RefreshToken); err == nil {
		t.Error("expected old refresh token to be retired")
	}

	// The new access token works.
	if _, err := svc.ValidateAccess(context.Background(), fresh.AccessToken); err != nil {
		t.Errorf("expected new access token to validate: %v", err)
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})
	_, err := svc.Refresh(context.Background(), "no-such-token")
	assertAppError(t, err, 401)
}

func TestAdoptSession_LiveAccessToken(t *testing.T) {
	repo := repoWithUser(t, "secure-password-123")
	svc := newTestAuthService(t, repo)

	sess, err := svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "secure-password-123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	adopted, err := svc.AdoptSession(context.Background(), sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adopted.AccessToken != sess.AccessToken {
		t.Error("expected a live access token to be adopted as-is")
	}
}

func TestAdoptSession_StaleAccessFallsBackToRefresh(t *testing.T) {
	repo := repoWithUser(t, "secure-password-123")
	svc := newTestAuthService(t, repo)

	sess, err := svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "secure-password-123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Simulate access expiry by deleting the access key directly.
	if err := svc.redis.Del(context.Background(), accessKeyPrefix+sess.AccessToken).Err(); err != nil {
		t.Fatalf("deleting access key: %v", err)
	}

	adopted, err := svc.AdoptSession(context.Background(), sess)
	if err != nil {
		t.Fatalf("expected adoption via refresh, got: %v", err)
	}
	if adopted.AccessToken == sess.AccessToken {
		t.Error("expected a freshly minted access token")
	}
	if adopted.User.ID != "user-123" {
		t.Errorf("expected identity to survive adoption, got %s", adopted.User.ID)
	}
}

func TestAdoptSession_DeadBundle(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})

	_, err := svc.AdoptSession(context.Background(), &Session{
		AccessToken:  "dead-access",
		RefreshToken: "dead-refresh",
	})
	assertAppError(t, err, 401)
}

func TestAdoptSession_Nil(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})
	_, err := svc.AdoptSession(context.Background(), nil)
	assertAppError(t, err, 401)
}

func TestSignOut_RemovesBothTokens(t *testing.T) {
	repo := repoWithUser(t, "secure-password-123")
	svc := newTestAuthService(t, repo)

	sess, err := svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "secure-password-123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := svc.SignOut(context.Background(), sess.AccessToken); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.ValidateAccess(context.Background(), sess.AccessToken); err == nil {
		t.Error("expected access token to be gone after sign out")
	}
	if _, err := svc.Refresh(context.Background(), sess.RefreshToken); err == nil {
		t.Error("expected refresh token to be gone after sign out")
	}
}

func TestSignOut_DeadTokenIsNoop(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})
	if err := svc.SignOut(context.Background(), "already-gone"); err != nil {
		t.Fatalf("expected nil error for dead token, got: %v", err)
	}
}

// --- Profile Tests ---

func TestUpdateProfile_Success(t *testing.T) {
	var capturedName string
	repo := repoWithUser(t, "secure-password-123")
	repo.updateFullNameFn = func(ctx context.Context, id, fullName string) error {
		capturedName = fullName
		return nil
	}

	svc := newTestAuthService(t, repo)
	user, err := svc.UpdateProfile(context.Background(), "user-123", "  Alice N.  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedName != "Alice N." {
		t.Errorf("expected trimmed name, got %q", capturedName)
	}
	if user == nil {
		t.Fatal("expected updated user, got nil")
	}
}

func TestUpdateProfile_EmptyName(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})
	_, err := svc.UpdateProfile(context.Background(), "user-123", "   ")
	assertAppError(t, err, 422)
}

func TestUpdateProfile_NameTooLong(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	_, err := svc.UpdateProfile(context.Background(), "user-123", string(long))
	assertAppError(t, err, 422)
}

// --- Password Hashing Tests ---

func TestHashAndVerifyPassword(t *testing.T) {
	password := "my-secret-password-123"

	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}

	if !verifyPassword(password, hash) {
		t.Error("expected correct password to verify")
	}
	if verifyPassword("wrong-password", hash) {
		t.Error("expected wrong password to fail verification")
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty string", ""},
		{"random text", "not-a-hash"},
		{"too few parts", "$argon2id$v=19$m=65536"},
		{"corrupted salt", "$argon2id$v=19$m=65536,t=3,p=4$!!!invalid$aGFzaA"},
		{"corrupted hash", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$!!!invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if verifyPassword("password", tt.hash) {
				t.Error("expected invalid hash to fail verification")
			}
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	hash1, err := hashPassword("same-password")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	hash2, err := hashPassword("same-password")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash1 == hash2 {
		t.Error("expected different salts to produce different hashes")
	}
}

// --- Change Password Tests ---

func TestChangePassword_Success(t *testing.T) {
	var capturedHash string
	repo := repoWithUser(t, "secure-password-123")
	repo.updatePasswordFn = func(ctx context.Context, id, passwordHash string) error {
		if id != "user-123" {
			t.Errorf("expected user-123, got %s", id)
		}
		capturedHash = passwordHash
		return nil
	}
	svc := newTestAuthService(t, repo)

	err := svc.ChangePassword(context.Background(), "user-123", "secure-password-123", "new-password-456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if capturedHash == "" {
		t.Fatal("expected the new password hash to be stored")
	}
	if !verifyPassword("new-password-456", capturedHash) {
		t.Error("expected stored hash to verify against the new password")
	}
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	repo := repoWithUser(t, "secure-password-123")
	repo.updatePasswordFn = func(ctx context.Context, id, passwordHash string) error {
		t.Error("expected no password update with a wrong current password")
		return nil
	}
	svc := newTestAuthService(t, repo)

	err := svc.ChangePassword(context.Background(), "user-123", "not-the-password", "new-password-456")
	assertAppError(t, err, 401)
}

func TestChangePassword_ShortNewPassword(t *testing.T) {
	svc := newTestAuthService(t, repoWithUser(t, "secure-password-123"))
	err := svc.ChangePassword(context.Background(), "user-123", "secure-password-123", "short")
	assertAppError(t, err, 422)
}

func TestChangePassword_UnknownUser(t *testing.T) {
	svc := newTestAuthService(t, repoWithUser(t, "secure-password-123"))
	err := svc.ChangePassword(context.Background(), "user-999", "secure-password-123", "new-password-456")
	assertAppError(t, err, 404)
}

// --- Password Reset Tests ---

func TestInitiatePasswordReset_Success(t *testing.T) {
	var capturedTokenHash string
	repo := repoWithUser(t, "secure-password-123")
	repo.createResetTokenFn = func(ctx context.Context, userID, email, tokenHash string, expiresAt time.Time) error {
		if userID != "user-123" {
			t.Errorf("expected user-123, got %s", userID)
		}
		capturedTokenHash = tokenHash
		untilExpiry := time.Until(expiresAt)
		if untilExpiry < 55*time.Minute || untilExpiry > 65*time.Minute {
			t.Errorf("expected expiry ~1 hour, got %v", untilExpiry)
		}
		return nil
	}

	svc := newTestAuthService(t, repo)
	if err := svc.InitiatePasswordReset(context.Background(), "alice@example.com", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedTokenHash == "" {
		t.Error("expected token hash to be stored")
	}
}

func TestInitiatePasswordReset_UnknownEmail(t *testing.T) {
	var tokenStored bool
	repo := &mockUserRepo{
		createResetTokenFn: func(ctx context.Context, userID, email, tokenHash string, expiresAt time.Time) error {
			tokenStored = true
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	// Nil error so the endpoint can't be used for email enumeration.
	if err := svc.InitiatePasswordReset(context.Background(), "unknown@example.com", ""); err != nil {
		t.Fatalf("expected nil error for unknown email, got: %v", err)
	}
	if tokenStored {
		t.Error("expected no token stored for unknown email")
	}
}

func TestResetPassword_Success(t *testing.T) {
	var updatedHash string
	var tokenMarkedUsed bool

	repo := &mockUserRepo{
		findResetTokenFn: func(ctx context.Context, tokenHash string) (*ResetToken, error) {
			return &ResetToken{
				UserID:    "user-123",
				Email:     "alice@example.com",
				TokenHash: tokenHash,
				ExpiresAt: time.Now().UTC().Add(30 * time.Minute),
			}, nil
		},
		updatePasswordFn: func(ctx context.Context, id, passwordHash string) error {
			if id != "user-123" {
				t.Errorf("expected user-123, got %s", id)
			}
			updatedHash = passwordHash
			return nil
		},
		markResetTokenUsedFn: func(ctx context.Context, tokenHash string) error {
			tokenMarkedUsed = true
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	if err := svc.ResetPassword(context.Background(), "valid-token", "new-secure-password"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updatedHash == "" {
		t.Error("expected password hash to be updated")
	}
	if !verifyPassword("new-secure-password", updatedHash) {
		t.Error("expected new password to verify against updated hash")
	}
	if !tokenMarkedUsed {
		t.Error("expected token to be marked as used")
	}
}

func TestResetPassword_UnknownToken(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})
	err := svc.ResetPassword(context.Background(), "bad-token", "new-secure-password")
	assertAppError(t, err, 401)
}

func TestResetPassword_UsedToken(t *testing.T) {
	usedAt := time.Now().UTC().Add(-5 * time.Minute)
	repo := &mockUserRepo{
		findResetTokenFn: func(ctx context.Context, tokenHash string) (*ResetToken, error) {
			return &ResetToken{
				UserID:    "user-123",
				ExpiresAt: time.Now().UTC().Add(30 * time.Minute),
				UsedAt:    &usedAt,
			}, nil
		},
	}

	svc := newTestAuthService(t, repo)
	err := svc.ResetPassword(context.Background(), "used-token", "new-secure-password")
	assertAppError(t, err, 401)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	repo := &mockUserRepo{
		findResetTokenFn: func(ctx context.Context, tokenHash string) (*ResetToken, error) {
			return &ResetToken{
				UserID:    "user-123",
				ExpiresAt: time.Now().UTC().Add(-10 * time.Minute),
			}, nil
		},
	}

	svc := newTestAuthService(t, repo)
	err := svc.ResetPassword(context.Background(), "expired-token", "new-secure-password")
	assertAppError(t, err, 401)
}

func TestResetPassword_ShortPassword(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})
	err := svc.ResetPassword(context.Background(), "any-token", "short")
	assertAppError(t, err, 422)
}

// --- Hash Token Tests ---

func TestHashToken_Deterministic(t *testing.T) {
	token := "test-token-12345"
	if hashToken(token) != hashToken(token) {
		t.Error("expected hashToken to be deterministic")
	}
}

func TestHashToken_Length(t *testing.T) {
	// SHA-256 = 32 bytes = 64 hex characters.
	if got := len(hashToken("any-token")); got != 64 {
		t.Errorf("expected 64-char hex hash, got %d chars", got)
	}
}
