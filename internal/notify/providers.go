package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultSenderID = "BraidsBar"
	ghanaDialCode   = "+233"
	webhookTimeout  = 5 * time.Second
)

var ErrProviderFailure = errors.New("sms provider failure")

type Provider interface {
	Send(ctx context.Context, message, recipient string) error
}

type ProviderConfig struct {
	Kind         string
	WebhookURL   string
	WebhookToken string
	SenderID     string
}

// NewProvider picks an SMS backend. Unknown kinds and a webhook without a
// URL fall back to logging the message.
func NewProvider(cfg ProviderConfig, logger zerolog.Logger) Provider {
	sender := cfg.SenderID
	if sender == "" {
		sender = DefaultSenderID
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", "log":
		return logProvider{logger: logger}
	case "noop":
		return noopProvider{}
	case "fail":
		return failProvider{}
	case "webhook":
		if cfg.WebhookURL == "" {
			logger.Warn().Msg("SMS_PROVIDER=webhook without SMS_WEBHOOK_URL, logging messages instead")
			return logProvider{logger: logger}
		}
		return newWebhookProvider(cfg.WebhookURL, cfg.WebhookToken, sender)
	default:
		logger.Warn().Str("provider", cfg.Kind).Msg("unknown sms provider, logging messages instead")
		return logProvider{logger: logger}
	}
}

// InternationalNumber turns a local 0XXXXXXXXX number into +233XXXXXXXXX.
// Anything else is returned unchanged.
func InternationalNumber(local string) string {
	if len(local) == 10 && strings.HasPrefix(local, "0") {
		return ghanaDialCode + local[1:]
	}
	return local
}

type logProvider struct {
	logger zerolog.Logger
}

func (p logProvider) Send(ctx context.Context, message, recipient string) error {
	p.logger.Info().Str("to", InternationalNumber(recipient)).Str("text", message).Msg("sms")
	return nil
}

type noopProvider struct{}

func (noopProvider) Send(ctx context.Context, message, recipient string) error {
	return nil
}

type failProvider struct{}

func (failProvider) Send(ctx context.Context, message, recipient string) error {
	return ErrProviderFailure
}

// webhookProvider posts each message to an SMS gateway as
// {"from","to","text"} JSON with an optional bearer token.
type webhookProvider struct {
	url    string
	token  string
	sender string
	client *http.Client
}

func newWebhookProvider(url, token, sender string) webhookProvider {
	return webhookProvider{
		url:    url,
		token:  token,
		sender: sender,
		client: &http.Client{Timeout: webhookTimeout},
	}
}

type smsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

func (p webhookProvider) Send(ctx context.Context, message, recipient string) error {
	body, err := json.Marshal(smsRequest{From: p.sender, To: InternationalNumber(recipient), Text: message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: gateway answered %d", ErrProviderFailure, resp.StatusCode)
	}
	return nil
}
