package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"building_telemetry/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamURL(t *testing.T) {
	got := streamURL("https://mesh.example/v1/message-query/", "T1")
	assert.Equal(t, "https://mesh.example/v1/message-query/T1/?query=proto%2Ftm.type%3Aevent&stream=stream%2FT1", got)
}

func TestNewStreamSource_RequiresURLAndNetwork(t *testing.T) {
	_, err := NewStreamSource(StreamConfig{Network: "T1"}, newTestParser(t), newRecorder(), logger.Nop())
	assert.Error(t, err)
	_, err = NewStreamSource(StreamConfig{BaseURL: "http://x"}, newTestParser(t), newRecorder(), logger.Nop())
	assert.Error(t, err)
}

func TestStreamSource_DispatchesDataLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, p, ok := r.BasicAuth(); !ok || u != "mesh" || p != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("stream") != "stream/T1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, ": keepalive\n")
		fmt.Fprint(w, "event: message\n")
		fmt.Fprint(w, "data: {broken\n")
		fmt.Fprintf(w, "data: %s\n\n", validEvent)
	}))
	defer srv.Close()

	rec := newRecorder()
	rec.err = errors.New("pipeline failure is only logged")
	src, err := NewStreamSource(StreamConfig{BaseURL: srv.URL, Network: "T1", Username: "mesh", Password: "secret"},
		newTestParser(t), rec, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	select {
	case <-rec.seen:
	case <-time.After(3 * time.Second):
		t.Fatalf("no event dispatched")
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	pkts := rec.all()
	require.Len(t, pkts, 1)
	assert.Equal(t, "room-1", pkts[0].Selector.DeviceID)
}

func TestStreamSource_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src, err := NewStreamSource(StreamConfig{BaseURL: srv.URL, Network: "T1"}, newTestParser(t), newRecorder(), logger.Nop())
	require.NoError(t, err)

	n, err := src.consume(context.Background())
	assert.Zero(t, n)
	assert.ErrorContains(t, err, "403")
}
