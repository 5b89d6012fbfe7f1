package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/charmbracelet/log"
	"github.com/quietdash/quietdash/internal/config"
	"github.com/quietdash/quietdash/internal/metrics"
	"github.com/sethvargo/go-retry"
)

const (
	verificationSubject = "Verify your email for QuietDash waitlist"
	welcomeSubject      = "Welcome to QuietDash! 🎉"

	maxAttempts = 3
)

// ErrVerificationEmailFailed is returned when the verification email could not be delivered.
var ErrVerificationEmailFailed = errors.New("failed to send verification email")

// Sender delivers the waitlist emails and manages the mailing list audience.
type Sender interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendWelcomeEmail(ctx context.Context, to, referralURL string) error
	AddToAudience(ctx context.Context, email string) error
}

// Message is a rendered email ready for delivery.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// transport is a delivery backend.
type transport interface {
	send(ctx context.Context, msg *Message) error
	// addContact must return errAlreadyExists if the contact is known already.
	addContact(ctx context.Context, email string) error
}

var errAlreadyExists = errors.New("contact already exists")

var _ Sender = (*Service)(nil)

// Service sends transactional email through the configured provider with bounded retry.
type Service struct {
	transport    transport
	from         string
	marketingURL string
	retryBase    time.Duration
}

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))

// New creates the email service for the configured provider.
func New(cfg *config.EmailConfig, marketingURL string) (*Service, error) {
	if cfg == nil {
		cfg = &config.EmailConfig{Provider: config.EmailProviderNoop}
	}

	var t transport
	switch cfg.Provider {
	case config.EmailProviderResend:
		t = newResendTransport(cfg.Resend)
	case config.EmailProviderSMTP:
		if cfg.SMTP == nil {
			return nil, fmt.Errorf("smtp configuration is required")
		}
		t = newSMTPTransport(cfg.SMTP)
	case config.EmailProviderNoop, "":
		log.Warn("Email provider not configured, emails will only be logged")
		t = noopTransport{}
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}

	fromName := cfg.FromName
	if fromName == "" {
		fromName = "QuietDash"
	}

	return &Service{
		transport:    t,
		from:         fmt.Sprintf("%s <%s>", fromName, cfg.FromEmail),
		marketingURL: marketingURL,
		retryBase:    time.Second,
	}, nil
}

type verificationData struct {
	VerificationURL string
	Year            int
}

type welcomeData struct {
	ReferralURL string
	Year        int
}

// SendVerificationEmail sends the double opt-in link for a waitlist signup.
func (s *Service) SendVerificationEmail(ctx context.Context, to, token string) error {
	body, err := render("verification.html", verificationData{
		VerificationURL: s.marketingURL + "/verify?token=" + token,
		Year:            time.Now().Year(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerificationEmailFailed, err)
	}

	err = s.retry(ctx, func(ctx context.Context) error {
		return s.transport.send(ctx, &Message{From: s.from, To: to, Subject: verificationSubject, HTML: body})
	})
	metrics.RecordEmail("verification", err == nil)
	if err != nil {
		log.Error("Failed to send verification email", "to", to, "error", err)
		return fmt.Errorf("%w: %w", ErrVerificationEmailFailed, err)
	}

	log.Info("Verification email sent", "to", to)
	return nil
}

// SendWelcomeEmail greets a verified signup and shares their referral link.
func (s *Service) SendWelcomeEmail(ctx context.Context, to, referralURL string) error {
	body, err := render("welcome.html", welcomeData{
		ReferralURL: referralURL,
		Year:        time.Now().Year(),
	})
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	err = s.retry(ctx, func(ctx context.Context) error {
		return s.transport.send(ctx, &Message{From: s.from, To: to, Subject: welcomeSubject, HTML: body})
	})
	metrics.RecordEmail("welcome", err == nil)
	if err != nil {
		log.Error("Failed to send welcome email", "to", to, "error", err)
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	log.Info("Welcome email sent", "to", to)
	return nil
}

// AddToAudience adds the email to the mailing list. Existing contacts count as success.
func (s *Service) AddToAudience(ctx context.Context, email string) error {
	err := s.retry(ctx, func(ctx context.Context) error {
		err := s.transport.addContact(ctx, email)
		if errors.Is(err, errAlreadyExists) {
			log.Info("Contact already exists in audience", "email", email)
			return nil
		}
		return err
	})
	metrics.RecordEmail("audience", err == nil)
	if err != nil {
		log.Error("Failed to add contact to audience", "email", email, "error", err)
		return fmt.Errorf("failed to add contact to audience: %w", err)
	}

	log.Info("Added contact to audience", "email", email)
	return nil
}

// retry runs op up to maxAttempts times with exponential backoff starting at retryBase.
func (s *Service) retry(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := 0
	backoff := retry.WithMaxRetries(maxAttempts-1, retry.NewExponential(s.retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := op(ctx); err != nil {
			log.Warn("Email operation failed", "attempt", attempt, "max_attempts", maxAttempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
