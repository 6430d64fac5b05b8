package channel

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

// Ntfy publishes markdown messages to an ntfy server. ntfy has no threads:
// every post is a separate notification, and a reply carries the tag
// "thread-<ThreadID>" so clients can group it with its anchor.
type Ntfy struct {
	server string
	client *http.Client
}

// Ensure Ntfy implements Client
var _ Client = (*Ntfy)(nil)

type ntfyPayload struct {
	Topic    string   `json:"topic"`
	Title    string   `json:"title,omitempty"`
	Message  string   `json:"message"`
	Markdown bool     `json:"markdown"`
	Tags     []string `json:"tags,omitempty"`
}

type ntfyResponse struct {
	ID string `json:"id"`
}

// NewNtfyClient creates an ntfy client for the given server URL.
func NewNtfyClient(server string) *Ntfy {
	return &Ntfy{
		server: strings.TrimRight(server, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Post implements Client. channel is the ntfy topic.
func (n *Ntfy) Post(ctx context.Context, channel string, msg Message) (string, error) {
	id, err := n.publish(ctx, channel, msg)
	if err != nil {
		return "", &DeliveryError{Service: "ntfy", Channel: channel, Err: err}
	}
	return id, nil
}

func (n *Ntfy) publish(ctx context.Context, topic string, msg Message) (string, error) {
	payload := ntfyPayload{
		Topic:    topic,
		Title:    msg.Title,
		Message:  PlainText(msg.Blocks),
		Markdown: true,
	}
	if msg.ThreadID != "" {
		payload.Tags = []string{"thread-" + msg.ThreadID}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.server+"/", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ntfy returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}

	var out ntfyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return out.ID, nil
}
