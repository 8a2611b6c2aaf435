package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Jackson16868/mcshop-bot/internal/logger"
)

// Gateway delivers a message to one chat user.
type Gateway interface {
	Send(ctx context.Context, userID string, msg Message) error
}

// HTTPGateway pushes messages as JSON to a chat platform endpoint.
type HTTPGateway struct {
	url    string
	token  string
	client *http.Client
	logger *logger.Logger
}

func NewHTTPGateway(url, token string, timeout time.Duration, log *logger.Logger) *HTTPGateway {
	return &HTTPGateway{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
		logger: log,
	}
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

func (g *HTTPGateway) Send(ctx context.Context, userID string, msg Message) error {
	body, err := json.Marshal(pushRequest{To: userID, Messages: []Message{msg}})
	if err != nil {
		return fmt.Errorf("marshal push: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("push to %s: %w", userID, err)
	}
	defer resp.Body.Close()
	g.logger.LogAPI(http.MethodPost, g.url, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push to %s failed with status %d: %s", userID, resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}

// LogGateway writes replies to the log instead of a chat platform.
type LogGateway struct {
	Logger *logger.Logger
}

func (g LogGateway) Send(_ context.Context, userID string, msg Message) error {
	g.Logger.Info("TRANSPORT", fmt.Sprintf("-> %s\n%s", userID, msg.String()))
	return nil
}
