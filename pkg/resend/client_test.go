package resend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req SendEmailRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"user@example.com"}, req.To)
		assert.Equal(t, "Hello", req.Subject)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email-123"}`))
	}))
	defer server.Close()

	client := New(server.URL+"/", "test-key")
	resp, err := client.SendEmail(context.Background(), &SendEmailRequest{
		From:    "QuietDash <hello@quietdash.com>",
		To:      []string{"user@example.com"},
		Subject: "Hello",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "email-123", resp.ID)
}

func TestCreateContact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audiences/aud-1/contacts", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"contact-1"}`))
	}))
	defer server.Close()

	resp, err := New(server.URL, "key").CreateContact(context.Background(), "aud-1", &CreateContactRequest{Email: "user@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "contact-1", resp.ID)
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantMessage   string
		alreadyExists bool
	}{
		{
			name:          "json error",
			status:        http.StatusUnprocessableEntity,
			body:          `{"statusCode":422,"name":"validation_error","message":"Contact already exists"}`,
			wantMessage:   "Contact already exists",
			alreadyExists: true,
		},
		{
			name:        "plain text error",
			status:      http.StatusBadGateway,
			body:        "bad gateway",
			wantMessage: "bad gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(server.URL, "key").SendEmail(context.Background(), &SendEmailRequest{})
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.alreadyExists, apiErr.AlreadyExists())
		})
	}
}
