package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// WhatsAppConfig configures the WhatsApp Cloud API sender.
type WhatsAppConfig struct {
	BaseURL       string
	PhoneNumberID string
	Token         string
	CountryCode   string
}

// WhatsApp sends text messages through the WhatsApp Cloud API.
type WhatsApp struct {
	cfg    WhatsAppConfig
	client *http.Client
}

// NewWhatsApp returns a WhatsApp sender. A nil client uses DefaultHTTPClient.
func NewWhatsApp(cfg WhatsAppConfig, client *http.Client) (*WhatsApp, error) {
	if cfg.PhoneNumberID == "" || cfg.Token == "" {
		return nil, errors.New("whatsapp phone number id and token required")
	}
	if client == nil {
		client = DefaultHTTPClient()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &WhatsApp{cfg: cfg, client: client}, nil
}

type whatsAppText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

func (w *WhatsApp) Send(ctx context.Context, to string, msg Message) error {
	body := msg.Body
	if msg.Title != "" {
		body = "*" + msg.Title + "*\n\n" + msg.Body
	}
	payload := whatsAppMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               strings.TrimPrefix(E164(w.cfg.CountryCode, to), "+"),
		Type:             "text",
		Text:             whatsAppText{Body: body},
	}
	endpoint := w.cfg.BaseURL + "/" + w.cfg.PhoneNumberID + "/messages"
	return postJSON(ctx, w.client, "whatsapp", endpoint, payload, bearer(w.cfg.Token))
}
