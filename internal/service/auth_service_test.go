package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ctlabs-oss/authcore/internal/domain"
	"github.com/ctlabs-oss/authcore/internal/repository"
)

func TestRegisterRequiresContactMethod(t *testing.T) {
	h := newHarness(t, true, true)
	_, err := h.auth.Register(t.Context(), RegisterRequest{Password: "longenough"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRegisterRejectsBadPhone(t *testing.T) {
	h := newHarness(t, true, true)
	for _, phone := range []string{"0712345678", "+0712345", "12345", "+1 555 0100"} {
		_, err := h.auth.Register(t.Context(), RegisterRequest{
			PhoneNumber: phone,
			Password:    "longenough",
		})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("phone %q: expected ErrValidation, got %v", phone, err)
		}
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	h := newHarness(t, true, true)
	_, err := h.auth.Register(t.Context(), RegisterRequest{
		Email:    "a@example.com",
		Password: "short",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRegisterNormalizesEmail(t *testing.T) {
	h := newHarness(t, true, false)
	h.registerEmailUser(t, "  Mixed.Case@Example.COM ", "longenough")

	if _, err := h.store.Repos().Users.FindByEmail("mixed.case@example.com"); err != nil {
		t.Fatalf("expected normalized email to be stored: %v", err)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	h := newHarness(t, true, false)
	h.registerEmailUser(t, "dup@example.com", "longenough")

	_, err := h.auth.Register(t.Context(), RegisterRequest{
		Email:    "DUP@example.com",
		Password: "longenough",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegisterWithProviderIssuesCode(t *testing.T) {
	h := newHarness(t, true, false)
	user := h.registerEmailUser(t, "pending@example.com", "longenough")

	if user.EmailVerified {
		t.Fatal("expected email to start unverified")
	}
	sent := h.notifier.last(t)
	if sent.Kind != "verify_email" || sent.To != "pending@example.com" {
		t.Fatalf("expected verification email, got %+v", sent)
	}
	n, err := h.store.Repos().VerificationCodes.CountForUser(user.ID)
	if err != nil {
		t.Fatalf("count codes: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 stored code, got %d", n)
	}
}

func TestRegisterProviderNoneAutoVerifies(t *testing.T) {
	h := newHarness(t, false, false)
	user := h.registerEmailUser(t, "instant@example.com", "longenough")

	if !user.EmailVerified {
		t.Fatal("expected auto-verified email when no provider is configured")
	}
	if h.notifier.count() != 0 {
		t.Fatalf("expected no dispatches, got %d", h.notifier.count())
	}
	n, _ := h.store.Repos().VerificationCodes.CountForUser(user.ID)
	if n != 0 {
		t.Fatalf("expected no stored codes, got %d", n)
	}
}

func TestRegisterEmailTakesPriorityOverPhone(t *testing.T) {
	h := newHarness(t, true, true)
	if _, err := h.auth.Register(t.Context(), RegisterRequest{
		Email:       "both@example.com",
		PhoneNumber: "+59170712345",
		Password:    "longenough",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	sent := h.notifier.last(t)
	if sent.Kind != "verify_email" {
		t.Fatalf("expected email verification to win, got %+v", sent)
	}
	if h.notifier.count() != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", h.notifier.count())
	}
}

func TestRegisterAssignsDefaultRole(t *testing.T) {
	h := newHarness(t, false, false)
	user := h.registerEmailUser(t, "role@example.com", "longenough")

	if len(user.Roles) != 1 || user.Roles[0].Name != "CUSTOMER" {
		t.Fatalf("expected CUSTOMER role, got %+v", user.Roles)
	}
}

func TestLoginSuccessEmbedsAuthorities(t *testing.T) {
	h := newHarness(t, false, false)
	h.registerEmailUser(t, "login@example.com", "longenough")

	resp := h.login(t, "Login@Example.com", "longenough")
	if resp.RefreshToken == "" || !strings.Contains(resp.RefreshToken, ":") {
		t.Fatalf("expected composite refresh token, got %q", resp.RefreshToken)
	}
	if resp.ExpiresIn != 60 {
		t.Fatalf("expected 60s access-token lifetime, got %d", resp.ExpiresIn)
	}

	claims, err := h.jwt.ParseAccessToken(resp.Token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if !claims.HasAuthority("ROLE_CUSTOMER") {
		t.Fatalf("expected ROLE_CUSTOMER authority, got %v", claims.Authorities)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	h := newHarness(t, true, false)
	user := h.registerEmailUser(t, "uniform@example.com", "longenough")

	// unknown identifier
	_, err := h.auth.Login(t.Context(), LoginRequest{Identifier: "ghost@example.com", Password: "longenough"})
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("unknown identifier: expected ErrAuthentication, got %v", err)
	}

	// unverified channel
	_, err = h.auth.Login(t.Context(), LoginRequest{Identifier: "uniform@example.com", Password: "longenough"})
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("unverified: expected ErrAuthentication, got %v", err)
	}

	code := h.notifier.last(t).Code
	if _, err := h.auth.VerifyEmail(t.Context(), "uniform@example.com", code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// wrong password
	_, err = h.auth.Login(t.Context(), LoginRequest{Identifier: "uniform@example.com", Password: "wrongpassword"})
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("wrong password: expected ErrAuthentication, got %v", err)
	}

	// suspended account
	if err := h.admin.ChangeUserStatus(t.Context(), user.ID, domain.StatusSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	_, err = h.auth.Login(t.Context(), LoginRequest{Identifier: "uniform@example.com", Password: "longenough"})
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("suspended: expected ErrAuthentication, got %v", err)
	}
}

func TestRefreshReturnsNewAccessToken(t *testing.T) {
	h := newHarness(t, false, false)
	h.registerEmailUser(t, "refresh@example.com", "longenough")
	resp := h.login(t, "refresh@example.com", "longenough")

	refreshed, err := h.auth.Refresh(t.Context(), resp.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.Token == "" {
		t.Fatal("expected a new access token")
	}
	if refreshed.RefreshToken != "" {
		t.Fatal("refresh must not rotate the refresh token")
	}
	if refreshed.ExpiresIn != 60 {
		t.Fatalf("expected 60s access-token lifetime, got %d", refreshed.ExpiresIn)
	}
}

func TestRefreshReflectsRoleChanges(t *testing.T) {
	h := newHarness(t, false, false)
	user := h.registerEmailUser(t, "promote@example.com", "longenough")
	resp := h.login(t, "promote@example.com", "longenough")

	if _, err := h.admin.CreateRole(t.Context(), "ADMIN"); err != nil {
		t.Fatalf("create role: %v", err)
	}
	if err := h.admin.AssignRole(t.Context(), user.ID, "ADMIN"); err != nil {
		t.Fatalf("assign role: %v", err)
	}

	refreshed, err := h.auth.Refresh(t.Context(), resp.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := h.jwt.ParseAccessToken(refreshed.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !claims.HasAuthority("ROLE_ADMIN") {
		t.Fatalf("expected refreshed token to carry ROLE_ADMIN, got %v", claims.Authorities)
	}
}

func TestRefreshErrorTaxonomy(t *testing.T) {
	h := newHarness(t, false, false)
	user := h.registerEmailUser(t, "taxonomy@example.com", "longenough")
	resp := h.login(t, "taxonomy@example.com", "longenough")

	// malformed composite
	for _, composite := range []string{"", "noseparator", ":missing-id", "missing-secret:"} {
		if _, err := h.auth.Refresh(t.Context(), composite); !errors.Is(err, ErrValidation) {
			t.Fatalf("composite %q: expected ErrValidation, got %v", composite, err)
		}
	}

	// unknown token id
	_, err := h.auth.Refresh(t.Context(), "00000000-0000-0000-0000-000000000000:secret")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: expected ErrNotFound, got %v", err)
	}

	// wrong secret
	tokenID, _, _ := ParseComposite(resp.RefreshToken)
	_, err = h.auth.Refresh(t.Context(), tokenID+":forged-secret")
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("wrong secret: expected ErrAuthentication, got %v", err)
	}

	// revoked
	if err := h.store.Repos().RefreshTokens.RevokeAllForUser(user.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	_, err = h.auth.Refresh(t.Context(), resp.RefreshToken)
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("revoked: expected ErrTokenRevoked, got %v", err)
	}

	// expired
	h.tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	resp2 := h.login(t, "taxonomy@example.com", "longenough")
	h.tokens.now = time.Now
	_, err = h.auth.Refresh(t.Context(), resp2.RefreshToken)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired: expected ErrTokenExpired, got %v", err)
	}
}

func TestRefreshRejectsSuspendedOwner(t *testing.T) {
	h := newHarness(t, false, false)
	user := h.registerEmailUser(t, "frozen@example.com", "longenough")
	resp := h.login(t, "frozen@example.com", "longenough")

	if err := h.admin.ChangeUserStatus(t.Context(), user.ID, domain.StatusSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	// status change revokes sessions, so the revocation error wins
	if _, err := h.auth.Refresh(t.Context(), resp.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestVerifyEmailConsumesCode(t *testing.T) {
	h := newHarness(t, true, false)
	h.registerEmailUser(t, "verify@example.com", "longenough")
	code := h.notifier.last(t).Code

	resp, err := h.auth.VerifyEmail(t.Context(), "VERIFY@example.com", code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if resp.Token != "Email verified successfully." {
		t.Fatalf("unexpected message %q", resp.Token)
	}

	// the code is single use; a second submit on a verified account is
	// idempotent and never reaches code lookup
	resp, err = h.auth.VerifyEmail(t.Context(), "verify@example.com", code)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if resp.Token != "Email is already verified." {
		t.Fatalf("unexpected message %q", resp.Token)
	}
}

func TestVerifyEmailRejectsWrongCode(t *testing.T) {
	h := newHarness(t, true, false)
	h.registerEmailUser(t, "wrongcode@example.com", "longenough")

	_, err := h.auth.VerifyEmail(t.Context(), "wrongcode@example.com", "not-the-code")
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}

func TestVerifyEmailRejectsExpiredCode(t *testing.T) {
	h := newHarness(t, true, false)
	user := h.registerEmailUser(t, "stale@example.com", "longenough")
	code := h.notifier.last(t).Code

	h.codes.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	defer func() { h.codes.now = time.Now }()

	_, err := h.auth.VerifyEmail(t.Context(), "stale@example.com", code)
	if !errors.Is(err, ErrExpiredCode) {
		t.Fatalf("expected ErrExpiredCode, got %v", err)
	}
	// expired codes are not consumed
	n, _ := h.store.Repos().VerificationCodes.CountForUser(user.ID)
	if n != 1 {
		t.Fatalf("expected expired code row to remain, got %d", n)
	}
}

func TestVerifyEmailUnknownUser(t *testing.T) {
	h := newHarness(t, true, false)
	_, err := h.auth.VerifyEmail(t.Context(), "nobody@example.com", "whatever")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestForgotPasswordIssuesResetCode(t *testing.T) {
	h := newHarness(t, true, false)
	h.verifiedEmailUser(t, "forgot@example.com", "longenough")

	resp, err := h.auth.ForgotPassword(t.Context(), "forgot@example.com")
	if err != nil {
		t.Fatalf("forgot: %v", err)
	}
	if resp.Token != "Password reset code sent." {
		t.Fatalf("unexpected message %q", resp.Token)
	}
	sent := h.notifier.last(t)
	if sent.Kind != "reset_email" {
		t.Fatalf("expected reset email, got %+v", sent)
	}
}

func TestForgotPasswordUnknownIdentifier(t *testing.T) {
	h := newHarness(t, true, false)
	_, err := h.auth.ForgotPassword(t.Context(), "nobody@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResetPasswordRevokesAllSessions(t *testing.T) {
	h := newHarness(t, true, false)
	h.verifiedEmailUser(t, "reset@example.com", "longenough")

	first := h.login(t, "reset@example.com", "longenough")
	second := h.login(t, "reset@example.com", "longenough")

	if _, err := h.auth.ForgotPassword(t.Context(), "reset@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	code := h.notifier.last(t).Code

	resp, err := h.auth.ResetPassword(t.Context(), "reset@example.com", code, "brand-new-password")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if resp.Token != "Password reset successfully." {
		t.Fatalf("unexpected message %q", resp.Token)
	}

	// every outstanding session is dead
	for _, composite := range []string{first.RefreshToken, second.RefreshToken} {
		if _, err := h.auth.Refresh(t.Context(), composite); !errors.Is(err, ErrTokenRevoked) {
			t.Fatalf("expected ErrTokenRevoked, got %v", err)
		}
	}

	// old password fails, new one works
	if _, err := h.auth.Login(t.Context(), LoginRequest{Identifier: "reset@example.com", Password: "longenough"}); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("old password: expected ErrAuthentication, got %v", err)
	}
	h.login(t, "reset@example.com", "brand-new-password")
}

func TestResetPasswordRejectsReusedCode(t *testing.T) {
	h := newHarness(t, true, false)
	h.verifiedEmailUser(t, "reuse@example.com", "longenough")

	if _, err := h.auth.ForgotPassword(t.Context(), "reuse@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	code := h.notifier.last(t).Code

	if _, err := h.auth.ResetPassword(t.Context(), "reuse@example.com", code, "brand-new-password"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	_, err := h.auth.ResetPassword(t.Context(), "reuse@example.com", code, "another-password")
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode on reuse, got %v", err)
	}
}

func TestResetPasswordEnforcesPolicy(t *testing.T) {
	h := newHarness(t, true, false)
	_, err := h.auth.ResetPassword(t.Context(), "whoever@example.com", "code", "short")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLogoutDeletesSession(t *testing.T) {
	h := newHarness(t, false, false)
	h.registerEmailUser(t, "logout@example.com", "longenough")
	resp := h.login(t, "logout@example.com", "longenough")

	if err := h.auth.Logout(t.Context(), resp.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := h.auth.Refresh(t.Context(), resp.RefreshToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after logout, got %v", err)
	}
}

func TestLogoutRejectsForgedSecret(t *testing.T) {
	h := newHarness(t, false, false)
	h.registerEmailUser(t, "forged@example.com", "longenough")
	resp := h.login(t, "forged@example.com", "longenough")

	tokenID, _, _ := ParseComposite(resp.RefreshToken)
	if err := h.auth.Logout(t.Context(), tokenID+":forged"); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	// the real session is untouched
	if _, err := h.auth.Refresh(t.Context(), resp.RefreshToken); err != nil {
		t.Fatalf("refresh after forged logout: %v", err)
	}
}

func TestPhoneRegistrationAndVerification(t *testing.T) {
	h := newHarness(t, false, true)
	if _, err := h.auth.Register(t.Context(), RegisterRequest{
		FirstName:   "Phone",
		PhoneNumber: "+59170712345",
		Password:    "longenough",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	sent := h.notifier.last(t)
	if sent.Kind != "verify_sms" || sent.To != "+59170712345" {
		t.Fatalf("expected verification sms, got %+v", sent)
	}
	if len(sent.Code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", sent.Code)
	}

	resp, err := h.auth.VerifyPhone(t.Context(), "+59170712345", sent.Code)
	if err != nil {
		t.Fatalf("verify phone: %v", err)
	}
	if resp.Token != "Phone verified successfully." {
		t.Fatalf("unexpected message %q", resp.Token)
	}

	h.login(t, "+59170712345", "longenough")
}

func TestRepositorySentinelsDoNotLeak(t *testing.T) {
	h := newHarness(t, false, false)
	h.registerEmailUser(t, "leak@example.com", "longenough")

	_, err := h.auth.Login(t.Context(), LoginRequest{Identifier: "missing@example.com", Password: "longenough"})
	if errors.Is(err, repository.ErrNotFound) {
		t.Fatal("repository sentinel must not cross the service boundary")
	}
}
