package ingest

import (
	"context"
	"sync"
	"testing"

	"building_telemetry/internal/models"

	"github.com/stretchr/testify/require"
)

const validEvent = `{"selector":["net-1","room-1"],"datetime":"2025-03-03T10:00:00+01:00",` +
	`"proto/tm":{"locator":1073610752,"msg_data":600,"analog_io_0":0,"analog_io_1":0,` +
	`"digital_io_5":1,"packet_number":42,"type":"event"}}`

// recorder is a Handler that keeps every dispatched packet.
type recorder struct {
	mu      sync.Mutex
	packets []models.RawPacket
	seen    chan struct{}
	err     error
}

func newRecorder() *recorder { return &recorder{seen: make(chan struct{}, 16)} }

func (r *recorder) Dispatch(_ context.Context, pkt models.RawPacket) error {
	r.mu.Lock()
	r.packets = append(r.packets, pkt)
	r.mu.Unlock()
	r.seen <- struct{}{}
	return r.err
}

func (r *recorder) all() []models.RawPacket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.RawPacket(nil), r.packets...)
}

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser()
	require.NoError(t, err)
	return p
}
