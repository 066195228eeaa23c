package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"
)

// ResendConfig configures the Resend email sender.
type ResendConfig struct {
	BaseURL string
	APIKey  string
	From    string
}

// Resend sends email through the Resend API.
type Resend struct {
	from   string
	client *resend.Client
}

// NewResend returns an email sender. A nil client uses DefaultHTTPClient.
// An empty BaseURL keeps the SDK default.
func NewResend(cfg ResendConfig, client *http.Client) (*Resend, error) {
	if cfg.APIKey == "" || cfg.From == "" {
		return nil, errors.New("resend api key and from address required")
	}
	if client == nil {
		client = DefaultHTTPClient()
	}
	rc := resend.NewCustomClient(client, cfg.APIKey)
	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("resend base url: %w", err)
		}
		rc.BaseURL = base
	}
	return &Resend{from: cfg.From, client: rc}, nil
}

func (r *Resend) Send(ctx context.Context, to string, msg Message) error {
	subject := msg.Title
	if subject == "" {
		subject = "Notification"
	}
	_, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{to},
		Subject: subject,
		Text:    msg.Body,
		Html:    "<p>" + strings.ReplaceAll(html.EscapeString(msg.Body), "\n", "<br>") + "</p>",
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
