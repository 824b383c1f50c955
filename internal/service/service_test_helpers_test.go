package service

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ctlabs-oss/authcore/internal/domain"
	"github.com/ctlabs-oss/authcore/internal/repository"
	"github.com/ctlabs-oss/authcore/internal/security"
)

type sentNotification struct {
	Kind string
	To   string
	Code string
}

// stubNotifier records dispatches synchronously so tests can assert on
// them without sleeping.
type stubNotifier struct {
	mu           sync.Mutex
	mailEnabled  bool
	phoneEnabled bool
	sent         []sentNotification
}

func (n *stubNotifier) MailEnabled() bool  { return n.mailEnabled }
func (n *stubNotifier) PhoneEnabled() bool { return n.phoneEnabled }

func (n *stubNotifier) record(kind, to, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{Kind: kind, To: to, Code: code})
}

func (n *stubNotifier) SendVerificationEmail(to, _, code string, _ time.Duration) {
	n.record("verify_email", to, code)
}

func (n *stubNotifier) SendPasswordResetEmail(to, _, code string, _ time.Duration) {
	n.record("reset_email", to, code)
}

func (n *stubNotifier) SendVerificationSMS(to, code string) {
	n.record("verify_sms", to, code)
}

func (n *stubNotifier) SendPasswordResetSMS(to, code string) {
	n.record("reset_sms", to, code)
}

func (n *stubNotifier) last(t *testing.T) sentNotification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("expected a dispatched notification")
	}
	return n.sent[len(n.sent)-1]
}

func (n *stubNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type harness struct {
	store    *repository.Store
	notifier *stubNotifier
	auth     *AuthService
	users    *UserService
	admin    *AdminService
	tokens   *TokenManager
	codes    *CodeManager
	jwt      *security.JWTManager
}

func newHarness(t *testing.T, mailEnabled, phoneEnabled bool) *harness {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Profile{},
		&domain.Role{},
		&domain.Permission{},
		&domain.UserRole{},
		&domain.RolePermission{},
		&domain.RefreshToken{},
		&domain.VerificationCode{},
	); err != nil {
		t.Fatalf("migrate db: %v", err)
	}

	store := repository.NewStore(db)
	notifier := &stubNotifier{mailEnabled: mailEnabled, phoneEnabled: phoneEnabled}
	jwtMgr := security.NewJWTManager("authcore", "authcore-clients", "test-secret", time.Minute)
	tokens := NewTokenManager("test-pepper", time.Hour)
	codes := NewCodeManager(time.Hour, 10*time.Minute)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	auth, err := NewAuthService(store, security.NewBcryptHasher(4), jwtMgr, tokens, codes, notifier,
		"CUSTOMER", `^.{8,72}$`, quiet)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	return &harness{
		store:    store,
		notifier: notifier,
		auth:     auth,
		users:    NewUserService(store, quiet),
		admin:    NewAdminService(store, quiet),
		tokens:   tokens,
		codes:    codes,
		jwt:      jwtMgr,
	}
}

func (h *harness) registerEmailUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	if _, err := h.auth.Register(t.Context(), RegisterRequest{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  password,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	user, err := h.store.Repos().Users.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		t.Fatalf("find registered user: %v", err)
	}
	return user
}

// verifiedEmailUser registers and fully verifies an account so login
// works.
func (h *harness) verifiedEmailUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	user := h.registerEmailUser(t, email, password)
	if !user.EmailVerified {
		code := h.notifier.last(t).Code
		if _, err := h.auth.VerifyEmail(t.Context(), email, code); err != nil {
			t.Fatalf("verify email: %v", err)
		}
		user, _ = h.store.Repos().Users.FindByID(user.ID)
	}
	return user
}

func (h *harness) login(t *testing.T, identifier, password string) *AuthResponse {
	t.Helper()
	resp, err := h.auth.Login(t.Context(), LoginRequest{
		Identifier: identifier,
		Password:   password,
		DeviceInfo: "test-agent",
		IPAddress:  "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return resp
}
