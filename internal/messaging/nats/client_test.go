package nats

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, nats.DefaultURL, cfg.URL)
	assert.Equal(t, -1, cfg.MaxReconnects)
	assert.Equal(t, 2*time.Second, cfg.ReconnectWait)
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.Timeout = 100 * time.Millisecond
	_, err := NewClient(cfg)
	assert.ErrorContains(t, err, "failed to connect to NATS")
}

func TestNatsToMessage(t *testing.T) {
	msg := &nats.Msg{Subject: "segments.jobs.run", Data: []byte("{}"), Reply: "_INBOX.1", Header: nats.Header{}}
	msg.Header.Set("Job-Id", "j1")

	m := natsToMessage(msg)
	assert.Equal(t, "segments.jobs.run", m.Subject)
	assert.Equal(t, "_INBOX.1", m.Reply)
	assert.Equal(t, "j1", m.Metadata["Job-Id"])
	assert.False(t, m.Timestamp.IsZero())
}
