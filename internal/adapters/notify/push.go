package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/adapters/gateway"
	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/rs/zerolog"
)

// maxPushBatch is the per-request message limit of the push service.
const maxPushBatch = 100

type pushTicket struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type pushResponse struct {
	Data []pushTicket `json:"data"`
}

// HTTPPushSender posts batches of device messages to a push service.
type HTTPPushSender struct {
	url        string
	httpClient *http.Client
}

func NewHTTPPushSender(url string, timeout time.Duration) *HTTPPushSender {
	return &HTTPPushSender{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ ports.PushSender = (*HTTPPushSender)(nil)

// Send delivers msgs in chunks. A ticket reporting an error fails the whole call.
func (s *HTTPPushSender) Send(ctx context.Context, msgs []domain.PushMessage) error {
	for start := 0; start < len(msgs); start += maxPushBatch {
		end := min(start+maxPushBatch, len(msgs))
		if err := s.sendChunk(ctx, msgs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *HTTPPushSender) sendChunk(ctx context.Context, msgs []domain.PushMessage) error {
	payload, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("error marshalling push messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := gateway.Do[pushResponse](s.httpClient, req, func(statusCode int, body []byte) error {
		return &gateway.Error{Gateway: "push", StatusCode: statusCode, Message: string(body)}
	})
	if err != nil {
		return err
	}

	for i, ticket := range resp.Data {
		if ticket.Status == "error" {
			return fmt.Errorf("push to %s rejected: %s", msgs[i].To, ticket.Message)
		}
	}
	return nil
}

// LogPushSender only logs push messages. It stands in when no push service
// URL is configured.
type LogPushSender struct {
	logger zerolog.Logger
}

func NewLogPushSender(logger zerolog.Logger) *LogPushSender {
	return &LogPushSender{logger: logger}
}

func (s *LogPushSender) Send(_ context.Context, msgs []domain.PushMessage) error {
	for _, msg := range msgs {
		s.logger.Info().Str("to", msg.To).Str("title", msg.Title).Msg("push not delivered: no push service configured")
	}
	return nil
}
