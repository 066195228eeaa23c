package notify

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// TwilioConfig configures the Twilio SMS and voice senders.
type TwilioConfig struct {
	BaseURL     string
	AccountSID  string
	AuthToken   string
	From        string
	CountryCode string
}

func (c TwilioConfig) validate() error {
	if c.AccountSID == "" || c.AuthToken == "" || c.From == "" {
		return errors.New("twilio account sid, auth token and from number required")
	}
	return nil
}

func (c TwilioConfig) endpoint(resource string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/2010-04-01/Accounts/" + url.PathEscape(c.AccountSID) + "/" + resource + ".json"
}

func (c TwilioConfig) auth(r *http.Request) {
	r.SetBasicAuth(c.AccountSID, c.AuthToken)
}

// TwilioSMS sends SMS through the Twilio Messages API.
type TwilioSMS struct {
	cfg    TwilioConfig
	client *http.Client
}

// NewTwilioSMS returns an SMS sender. A nil client uses DefaultHTTPClient.
func NewTwilioSMS(cfg TwilioConfig, client *http.Client) (*TwilioSMS, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &TwilioSMS{cfg: cfg, client: client}, nil
}

func (s *TwilioSMS) Send(ctx context.Context, to string, msg Message) error {
	form := url.Values{}
	form.Set("To", E164(s.cfg.CountryCode, to))
	form.Set("From", s.cfg.From)
	form.Set("Body", msg.Text())
	return postForm(ctx, s.client, "twilio sms", s.cfg.endpoint("Messages"), form, s.cfg.auth)
}

// TwilioVoice places a call that reads the message aloud.
type TwilioVoice struct {
	cfg    TwilioConfig
	client *http.Client
}

// NewTwilioVoice returns a voice sender. A nil client uses DefaultHTTPClient.
func NewTwilioVoice(cfg TwilioConfig, client *http.Client) (*TwilioVoice, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &TwilioVoice{cfg: cfg, client: client}, nil
}

func (v *TwilioVoice) Send(ctx context.Context, to string, msg Message) error {
	speech := msg.Speech
	if speech == "" {
		speech = msg.Text()
	}
	twiml, err := sayTwiML(speech)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("To", E164(v.cfg.CountryCode, to))
	form.Set("From", v.cfg.From)
	form.Set("Twiml", twiml)
	return postForm(ctx, v.client, "twilio voice", v.cfg.endpoint("Calls"), form, v.cfg.auth)
}

func sayTwiML(text string) (string, error) {
	var b strings.Builder
	b.WriteString(`<Response><Say voice="alice" language="en-IN">`)
	if err := xml.EscapeText(&b, []byte(text)); err != nil {
		return "", err
	}
	b.WriteString(`</Say></Response>`)
	return b.String(), nil
}
