package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public Resend API endpoint.
const DefaultBaseURL = "https://api.resend.com"

// Client represents a Resend API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new Resend API client.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendEmailRequest is the payload of POST /emails.
type SendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendEmailResponse is returned after an email was accepted.
type SendEmailResponse struct {
	ID string `json:"id"`
}

// CreateContactRequest is the payload of POST /audiences/{id}/contacts.
type CreateContactRequest struct {
	Email        string `json:"email"`
	Unsubscribed bool   `json:"unsubscribed"`
}

// CreateContactResponse is returned after a contact was created.
type CreateContactResponse struct {
	ID string `json:"id"`
}

// APIError is a non 2xx response of the Resend API.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("resend API request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("resend API request failed with status %d: %s", e.StatusCode, e.Message)
}

// AlreadyExists reports whether the error signals a duplicate resource.
func (e *APIError) AlreadyExists() bool {
	return strings.Contains(strings.ToLower(e.Message), "already exists")
}

// doRequest performs an HTTP request to the Resend API and decodes the response into out.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error performing request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{}
		if err := json.Unmarshal(bodyBytes, apiErr); err != nil {
			apiErr.Message = string(bodyBytes)
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if out == nil || len(bodyBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// SendEmail sends a single email.
func (c *Client) SendEmail(ctx context.Context, req *SendEmailRequest) (*SendEmailResponse, error) {
	var resp SendEmailResponse
	if err := c.doRequest(ctx, http.MethodPost, "/emails", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateContact adds a contact to an audience.
func (c *Client) CreateContact(ctx context.Context, audienceID string, req *CreateContactRequest) (*CreateContactResponse, error) {
	var resp CreateContactResponse
	endpoint := "/audiences/" + url.PathEscape(audienceID) + "/contacts"
	if err := c.doRequest(ctx, http.MethodPost, endpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
