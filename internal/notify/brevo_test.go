package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrevoMailSenderPostsPayload(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender := NewBrevoMailSender(BrevoConfig{
		APIKey:     "k-123",
		MailSender: "no-reply@example.com",
		BaseURL:    srv.URL,
	}, quietLogger())

	err := sender.SendVerificationEmail(t.Context(), MailMessage{
		To:          "user@example.com",
		Name:        "Ana",
		Code:        "code-1",
		ActionURL:   "https://app.example.com/verify-email?code=code-1",
		ExpiryValue: 24,
		ExpiryUnit:  "hours",
	})
	require.NoError(t, err)

	require.Equal(t, "/v3/smtp/email", gotPath)
	require.Equal(t, "k-123", gotKey)
	require.Equal(t, "no-reply@example.com", gotBody["sender"].(map[string]any)["email"])
	to := gotBody["to"].([]any)[0].(map[string]any)
	require.Equal(t, "user@example.com", to["email"])
	require.Contains(t, gotBody["htmlContent"], "https://app.example.com/verify-email?code=code-1")
}

func TestBrevoPhoneSenderPostsCode(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewBrevoPhoneSender(BrevoConfig{
		APIKey:    "k-123",
		SMSSender: "AuthCore",
		BaseURL:   srv.URL,
	}, quietLogger())

	require.NoError(t, sender.SendCode(t.Context(), "+59170712345", "123456"))
	require.Equal(t, "+59170712345", gotBody["recipient"])
	require.Contains(t, gotBody["content"], "123456")
}

func TestBrevoSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender := NewBrevoMailSender(BrevoConfig{APIKey: "bad", MailSender: "x@example.com", BaseURL: srv.URL}, quietLogger())
	err := sender.SendPasswordResetEmail(t.Context(), MailMessage{To: "user@example.com"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
	require.ErrorContains(t, err, "brevo mail")

	sms := NewBrevoPhoneSender(BrevoConfig{APIKey: "bad", SMSSender: "A", BaseURL: srv.URL}, quietLogger())
	require.Error(t, sms.SendCode(t.Context(), "+59170712345", "1"))
}
