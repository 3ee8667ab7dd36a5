package ingest

import (
	"context"
	"errors"
	"strings"

	"building_telemetry/internal/logger"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig selects the topic and consumer group to read events from.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// messageReader is the part of *kafka.Reader the source needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource consumes one JSON event per message and commits after handling.
type KafkaSource struct {
	reader  messageReader
	parser  *Parser
	handler Handler
	log     *logger.Logger
}

func NewKafkaSource(cfg KafkaConfig, parser *Parser, handler Handler, log *logger.Logger) (*KafkaSource, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka topic must not be empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("kafka consumer group must not be empty")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newKafkaSource(reader, parser, handler, log), nil
}

func newKafkaSource(r messageReader, parser *Parser, handler Handler, log *logger.Logger) *KafkaSource {
	return &KafkaSource{reader: r, parser: parser, handler: handler, log: log.With("source", "kafka")}
}

// Run fetches messages until ctx is canceled. The reader is closed on return.
func (k *KafkaSource) Run(ctx context.Context) error {
	defer func() {
		if err := k.reader.Close(); err != nil {
			k.log.Warnw("kafka_close_failed", "err", err)
		}
	}()
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		handle(ctx, k.parser, k.handler, k.log, "kafka", msg.Value)
		if err := k.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			k.log.Errorw("kafka_commit_failed", "partition", msg.Partition, "offset", msg.Offset, "err", err)
		}
	}
}
