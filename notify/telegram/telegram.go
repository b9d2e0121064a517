// Package telegram is publishing notifications through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"
	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.telegram.org"

// Publisher is sending every message to all configured chats.
type Publisher struct {
	client   *resty.Client
	token    string
	chatIDs  []string
	limiter  *rate.Limiter
	maxTries uint
	logger   *slog.Logger
}

type Opt func(*Publisher)

// WithBaseURL sets the url of the Bot API.
func WithBaseURL(url string) Opt {
	return func(p *Publisher) {
		p.client.SetBaseURL(url)
	}
}

// WithPacing sets the minimum delay between two sends.
func WithPacing(every time.Duration) Opt {
	return func(p *Publisher) {
		if every <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		p.limiter = rate.NewLimiter(rate.Every(every), 1)
	}
}

// WithMaxTries sets how often a message is tried to be sent to a chat.
func WithMaxTries(n uint) Opt {
	return func(p *Publisher) {
		p.maxTries = n
	}
}

func WithTimeout(timeout time.Duration) Opt {
	return func(p *Publisher) {
		p.client.SetTimeout(timeout)
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New returns a Publisher for the bot with token, sending to chatIDs.
func New(token string, chatIDs []string, opts ...Opt) (*Publisher, error) {
	if token == "" {
		return nil, errors.New("telegram bot token missing")
	}
	if len(chatIDs) == 0 {
		return nil, errors.New("no telegram chat ids given")
	}

	p := &Publisher{
		client:   resty.New().SetBaseURL(DefaultBaseURL).SetTimeout(20 * time.Second),
		token:    token,
		chatIDs:  append([]string{}, chatIDs...),
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		maxTries: 3,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Publish is sending msg to every chat. A chat failing doesn't keep the others
// from getting the message.
func (p *Publisher) Publish(ctx context.Context, msg string) error {
	var errs []error

	for _, chatID := range p.chatIDs {
		if err := p.send(ctx, chatID, msg); err != nil {
			p.logger.Error("sending telegram message failed", "chat_id", chatID, "error", err)
			errs = append(errs, fmt.Errorf("Publisher.Publish() - chat %s: %w", chatID, err))
			continue
		}
		p.logger.Debug("sent telegram message", "chat_id", chatID, "length", len([]rune(msg)))
	}

	return errors.Join(errs...)
}

func (p *Publisher) send(ctx context.Context, chatID, msg string) error {
	operation := func() (*apiResponse, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		result := &apiResponse{}
		resp, err := p.client.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"chat_id": chatID,
				"text":    msg,
			}).
			SetResult(result).
			SetError(result).
			Post("/bot" + p.token + "/sendMessage")
		if err != nil {
			return nil, err
		}

		switch code := resp.StatusCode(); {
		case code == http.StatusTooManyRequests:
			if result.Parameters.RetryAfter > 0 {
				return nil, backoff.RetryAfter(result.Parameters.RetryAfter)
			}
			return nil, fmt.Errorf("rate limited: %s", result.Description)
		case code >= 500:
			return nil, fmt.Errorf("server error %d: %s", code, result.Description)
		case code >= 400:
			return nil, backoff.Permanent(fmt.Errorf("request rejected %d: %s", code, result.Description))
		case !result.OK:
			return nil, backoff.Permanent(fmt.Errorf("request not ok: %s", result.Description))
		}

		return result, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(p.maxTries),
	)
	return err
}
