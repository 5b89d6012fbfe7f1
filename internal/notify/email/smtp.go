package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/quietdash/quietdash/internal/config"
	mail "github.com/xhit/go-simple-mail/v2"
)

// smtpTransport delivers mail through an SMTP relay. It has no audience concept.
type smtpTransport struct {
	config *config.SMTPConfig
}

func newSMTPTransport(cfg *config.SMTPConfig) *smtpTransport {
	return &smtpTransport{config: cfg}
}

func (t *smtpTransport) server() *mail.SMTPServer {
	server := mail.NewSMTPClient()
	server.Host = t.config.Host
	server.Port = t.config.Port
	server.Username = t.config.Username
	server.Password = t.config.Password

	switch {
	case t.config.UseSSL:
		server.Encryption = mail.EncryptionSSLTLS
	case t.config.UseTLS:
		server.Encryption = mail.EncryptionSTARTTLS
	default:
		server.Encryption = mail.EncryptionNone
	}

	if t.config.InsecureSkipVerify {
		server.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second
	return server
}

func (t *smtpTransport) send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	smtpClient, err := t.server().Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() {
		if closeErr := smtpClient.Close(); closeErr != nil {
			log.Warn("Failed to close SMTP client", "error", closeErr)
		}
	}()

	email := mail.NewMSG()
	email.SetFrom(msg.From)
	email.AddTo(msg.To)
	email.SetSubject(msg.Subject)
	email.SetBody(mail.TextHTML, msg.HTML)

	if email.Error != nil {
		return fmt.Errorf("failed to build email: %w", email.Error)
	}

	if err := email.Send(smtpClient); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (t *smtpTransport) addContact(_ context.Context, email string) error {
	log.Debug("SMTP provider has no audience, skipping", "email", email)
	return nil
}
