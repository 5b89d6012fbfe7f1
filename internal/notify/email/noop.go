package email

import (
	"context"

	"github.com/charmbracelet/log"
)

// noopTransport logs and drops every message.
type noopTransport struct{}

func (noopTransport) send(_ context.Context, msg *Message) error {
	log.Debug("Email delivery disabled, dropping message", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (noopTransport) addContact(_ context.Context, email string) error {
	log.Debug("Email delivery disabled, skipping audience add", "email", email)
	return nil
}
