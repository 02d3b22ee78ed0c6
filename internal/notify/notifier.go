package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"CatalogWatcher/internal/logger"
)

// ErrDelivery wraps every failed delivery attempt.
var ErrDelivery = errors.New("notification delivery failed")

// Notifier delivers a message to a user.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// PushoverConfig is everything the Pushover sink needs, passed in at construction.
type PushoverConfig struct {
	AppToken  string
	UserToken string
	APIURL    string
	URLTitle  string
	Timeout   time.Duration
}

// Pushover posts messages to the Pushover messages API.
type Pushover struct {
	cfg    PushoverConfig
	client *http.Client
	log    logger.Logger
}

// NewPushover returns a Pushover sink. client may be nil.
func NewPushover(cfg PushoverConfig, client *http.Client, log logger.Logger) *Pushover {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Pushover{cfg: cfg, client: client, log: log}
}

func (p *Pushover) Send(ctx context.Context, msg Message) error {
	form := url.Values{
		"token":   {p.cfg.AppToken},
		"user":    {p.cfg.UserToken},
		"title":   {msg.Title},
		"message": {msg.Body},
	}
	if msg.URL != "" {
		form.Set("url", msg.URL)
		if p.cfg.URLTitle != "" {
			form.Set("url_title", p.cfg.URLTitle)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrDelivery, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	p.log.Info("Pushover notification sent", logger.String("title", msg.Title))
	return nil
}

// LogNotifier only logs messages. It stands in when no push credentials are configured.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier returns a LogNotifier.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.log.Info("Notification (push disabled)",
		logger.String("title", msg.Title),
		logger.String("body", msg.Body),
		logger.String("url", msg.URL),
	)
	return nil
}
