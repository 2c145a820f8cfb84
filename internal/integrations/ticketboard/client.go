package ticketboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"propcheck/internal/platform/config"
	dErrors "propcheck/pkg/domain-errors"
)

const defaultTimeout = 10 * time.Second

// Client calls the ticket board card API.
type Client struct {
	baseURL string
	apiKey  string
	token   string
	http    *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default client (tests point it at httptest).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func NewClient(cfg config.TicketBoardConfig, opts ...ClientOption) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ticket board base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse ticket board base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ArchiveCard closes a card. A card the board no longer knows about yields
// a CodeAlreadyRemoved error.
func (c *Client) ArchiveCard(ctx context.Context, cardID string) error {
	return c.setClosed(ctx, cardID, true)
}

// RestoreCard reopens a closed card.
func (c *Client) RestoreCard(ctx context.Context, cardID string) error {
	return c.setClosed(ctx, cardID, false)
}

func (c *Client) setClosed(ctx context.Context, cardID string, closed bool) error {
	q := url.Values{}
	q.Set("closed", fmt.Sprintf("%t", closed))
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	if c.token != "" {
		q.Set("token", c.token)
	}
	endpoint := fmt.Sprintf("%s/1/cards/%s?%s", c.baseURL, url.PathEscape(cardID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build ticket board request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeExternal, "call ticket board")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return dErrors.New(dErrors.CodeAlreadyRemoved, fmt.Sprintf("card %s already removed", cardID))
	case resp.StatusCode >= 300:
		return dErrors.New(dErrors.CodeExternal, fmt.Sprintf("ticket board returned status %d", resp.StatusCode))
	}
	return nil
}
