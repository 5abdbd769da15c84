package connectors

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"payslip/internal"
)

const (
	ProviderGmail = "gmail"
	ProviderIMAP  = "imap"
)

type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}

// MessageFromRaw fills the envelope fields of a fetched message from its raw
// RFC 822 bytes. Values already set by the provider are kept.
func MessageFromRaw(provider, fallbackID string, raw []byte, msg internal.FetchedMailMessage) internal.FetchedMailMessage {
	msg.Provider = provider
	msg.Raw = raw

	if env, err := enmime.ReadEnvelope(bytes.NewReader(raw)); err == nil {
		if msg.MessageID == "" {
			msg.MessageID = strings.TrimSpace(env.GetHeader("Message-ID"))
		}
		if msg.Subject == "" {
			msg.Subject = env.GetHeader("Subject")
		}
		if msg.From == "" {
			msg.From = env.GetHeader("From")
		}
		if msg.ReceivedAt == "" {
			if t, err := env.Date(); err == nil {
				msg.ReceivedAt = t.UTC().Format(time.RFC3339)
			}
		}
	}

	if msg.MessageID == "" {
		msg.MessageID = fallbackID
	}
	if msg.ReceivedAt == "" {
		msg.ReceivedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return msg
}
