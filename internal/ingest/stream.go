package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"building_telemetry/internal/logger"
)

const (
	dataPrefix      = "data: "
	maxEventSize    = 1 << 20
	minReconnect    = time.Second
	maxReconnect    = 30 * time.Second
	eventQueryValue = "proto/tm.type:event"
)

// StreamConfig points at a network's message-query stream.
type StreamConfig struct {
	BaseURL  string
	Network  string
	Username string
	Password string
}

// StreamSource follows a long-lived HTTP event stream and reconnects when it drops.
type StreamSource struct {
	url      string
	username string
	password string
	client   *http.Client
	parser   *Parser
	handler  Handler
	log      *logger.Logger
}

func NewStreamSource(cfg StreamConfig, parser *Parser, handler Handler, log *logger.Logger) (*StreamSource, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("stream url is required")
	}
	if strings.TrimSpace(cfg.Network) == "" {
		return nil, errors.New("stream network is required")
	}
	return &StreamSource{
		url:      streamURL(cfg.BaseURL, cfg.Network),
		username: cfg.Username,
		password: cfg.Password,
		// no timeout: the body stays open for the lifetime of the stream
		client:  &http.Client{},
		parser:  parser,
		handler: handler,
		log:     log.With("source", "stream"),
	}, nil
}

// streamURL builds <base>/<network>/?stream=stream/<network>&query=proto/tm.type:event.
func streamURL(base, network string) string {
	q := url.Values{}
	q.Set("stream", "stream/"+network)
	q.Set("query", eventQueryValue)
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(network) + "/?" + q.Encode()
}

// Run reads the stream until ctx is canceled, reconnecting with exponential backoff.
func (s *StreamSource) Run(ctx context.Context) error {
	wait := minReconnect
	for {
		n, err := s.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if n > 0 {
			wait = minReconnect
		}
		s.log.Warnw("stream_disconnected", "events", n, "err", err, "retry_in", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
		if wait > maxReconnect {
			wait = maxReconnect
		}
	}
}

// consume handles one connection and returns the number of events seen.
func (s *StreamSource) consume(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, err
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("stream returned %d", resp.StatusCode)
	}
	s.log.Infow("stream_connected")

	events := 0
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), maxEventSize)
	for sc.Scan() {
		line := sc.Bytes()
		if !bytes.HasPrefix(line, []byte(dataPrefix)) {
			continue
		}
		events++
		handle(ctx, s.parser, s.handler, s.log, "stream", line[len(dataPrefix):])
	}
	if err := sc.Err(); err != nil {
		return events, err
	}
	return events, errors.New("stream closed by server")
}
