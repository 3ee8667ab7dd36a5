// Package ingest feeds telemetry events from external sources into the dispatcher.
package ingest

import (
	"context"
	"errors"

	"building_telemetry/internal/logger"
	"building_telemetry/internal/models"
)

// Handler consumes parsed packets; the service Dispatcher satisfies it.
type Handler interface {
	Dispatch(ctx context.Context, pkt models.RawPacket) error
}

// Source runs until ctx is canceled or it fails permanently.
type Source interface {
	Run(ctx context.Context) error
}

// handle parses one payload and dispatches it. Malformed payloads and pipeline
// failures are logged and dropped so one bad event never stops a source.
func handle(ctx context.Context, parser *Parser, h Handler, log *logger.Logger, source string, payload []byte) {
	pkt, err := parser.Parse(payload)
	if err != nil {
		log.Warnw("event_rejected", "source", source, "err", err)
		return
	}
	if err := h.Dispatch(ctx, pkt); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Errorw("event_failed", "source", source, "selector", pkt.Selector.String(), "err", err)
	}
}
