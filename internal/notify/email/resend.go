package email

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/quietdash/quietdash/internal/config"
	"github.com/quietdash/quietdash/pkg/resend"
)

type resendTransport struct {
	client     *resend.Client
	audienceID string
}

func newResendTransport(cfg *config.ResendConfig) *resendTransport {
	if cfg == nil {
		cfg = &config.ResendConfig{}
	}
	return &resendTransport{
		client:     resend.New(cfg.BaseURL, cfg.APIKey),
		audienceID: cfg.AudienceID,
	}
}

func (t *resendTransport) send(ctx context.Context, msg *Message) error {
	resp, err := t.client.SendEmail(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return err
	}
	log.Debug("Resend accepted email", "id", resp.ID, "to", msg.To)
	return nil
}

func (t *resendTransport) addContact(ctx context.Context, email string) error {
	if t.audienceID == "" {
		log.Debug("No Resend audience configured, skipping audience add", "email", email)
		return nil
	}

	_, err := t.client.CreateContact(ctx, t.audienceID, &resend.CreateContactRequest{Email: email})
	var apiErr *resend.APIError
	if errors.As(err, &apiErr) && apiErr.AlreadyExists() {
		return errAlreadyExists
	}
	return err
}
