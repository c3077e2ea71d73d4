package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaMailer_Send(t *testing.T) {
	w := &fakeWriter{}
	m := &KafkaMailer{writer: w, topic: "booking.emails", logger: zerolog.Nop()}

	err := m.Send(context.Background(), domain.EmailMessage{To: "jane@example.com", Subject: "Booking confirmed", Body: "hi"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "booking.emails", w.msgs[0].Topic)
	assert.Equal(t, "jane@example.com", string(w.msgs[0].Key))

	var decoded domain.EmailMessage
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "Booking confirmed", decoded.Subject)
}

func TestKafkaMailer_SendError(t *testing.T) {
	m := &KafkaMailer{writer: &fakeWriter{err: errors.New("broker down")}, topic: "t", logger: zerolog.Nop()}

	err := m.Send(context.Background(), domain.EmailMessage{To: "x@example.com"})
	assert.ErrorContains(t, err, "broker down")
}

func TestHTTPPushSender(t *testing.T) {
	var received []domain.PushMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []domain.PushMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		received = append(received, batch...)

		resp := pushResponse{}
		for _, m := range batch {
			if m.To == "bad-token" {
				resp.Data = append(resp.Data, pushTicket{Status: "error", Message: "DeviceNotRegistered"})
			} else {
				resp.Data = append(resp.Data, pushTicket{Status: "ok"})
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	sender := NewHTTPPushSender(srv.URL, time.Second)

	msgs := make([]domain.PushMessage, 150)
	for i := range msgs {
		msgs[i] = domain.PushMessage{To: "token", Body: "status changed"}
	}
	require.NoError(t, sender.Send(context.Background(), msgs))
	assert.Len(t, received, 150)

	err := sender.Send(context.Background(), []domain.PushMessage{{To: "bad-token"}})
	assert.ErrorContains(t, err, "DeviceNotRegistered")
}
