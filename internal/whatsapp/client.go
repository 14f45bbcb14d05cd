package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Outgoing is a finished envelope addressed to a chat.
type Outgoing struct {
	ID        string   `json:"id"`
	To        JID      `json:"to"`
	Timestamp int64    `json:"timestamp"`
	Message   *Message `json:"message"`
}

// Sender hands outgoing messages to whatever owns the WhatsApp session.
type Sender interface {
	Name() string
	Send(ctx context.Context, out *Outgoing) error
}

// Client delivers messages through an HTTP relay that holds the WhatsApp
// session and does the protocol encoding.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Name() string { return "http" }

func (c *Client) Send(ctx context.Context, out *Outgoing) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("relay status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

var _ Sender = (*Client)(nil)
