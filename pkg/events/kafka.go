package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/syntor/forge/pkg/logging"
)

// ProducerConfig holds configuration for the Kafka writer
type ProducerConfig struct {
	Acks            string `json:"acks" yaml:"acks"` // "0", "1", "all"
	BatchSize       int    `json:"batch_size" yaml:"batch_size"`
	LingerMs        int    `json:"linger_ms" yaml:"linger_ms"`
	CompressionType string `json:"compression_type" yaml:"compression_type"` // none, gzip, snappy, lz4, zstd
}

// KafkaConfig holds the bus connection settings
type KafkaConfig struct {
	Brokers  []string       `json:"brokers" yaml:"brokers"`
	Topic    string         `json:"topic" yaml:"topic"`
	ClientID string         `json:"client_id" yaml:"client_id"`
	Producer ProducerConfig `json:"producer" yaml:"producer"`
}

// DefaultProducerConfig returns default producer configuration
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Acks:            "1",
		BatchSize:       100,
		LingerMs:        10,
		CompressionType: "snappy",
	}
}

// messageWriter is the part of kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON to a Kafka topic
type KafkaPublisher struct {
	config KafkaConfig
	writer messageWriter
	logger logging.Logger

	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher creates a publisher. No connection is made until the first write.
func NewKafkaPublisher(config KafkaConfig, logger logging.Logger) (*KafkaPublisher, error) {
	if len(config.Brokers) == 0 {
		return nil, errors.New("events: no kafka brokers configured")
	}
	if config.Topic == "" {
		config.Topic = DefaultTopic
	}
	if config.Producer == (ProducerConfig{}) {
		config.Producer = DefaultProducerConfig()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    config.Producer.BatchSize,
		BatchTimeout: time.Duration(config.Producer.LingerMs) * time.Millisecond,
		Compression:  compressionCodec(config.Producer.CompressionType),
		RequiredAcks: requiredAcks(config.Producer.Acks),
		Transport:    &kafka.Transport{ClientID: config.ClientID},
	}
	return newKafkaPublisher(config, writer, logger), nil
}

func newKafkaPublisher(config KafkaConfig, writer messageWriter, logger logging.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		config: config,
		writer: writer,
		logger: logger.With(logging.String("component", "events"), logging.String("topic", config.Topic)),
	}
}

// Publish writes one event keyed by its run
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	msg, err := toMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func toMessage(event Event) (kafka.Message, error) {
	value, err := event.ToJSON()
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to serialize event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "mode", Value: []byte(event.Mode)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339Nano))},
		},
		Time: event.Timestamp,
	}, nil
}

// Close flushes pending writes and closes the connection
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// EnsureTopic creates the topic through the cluster controller if it is missing
func EnsureTopic(ctx context.Context, config KafkaConfig, partitions int) error {
	if len(config.Brokers) == 0 {
		return errors.New("events: no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", config.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to get controller: %w", err)
	}

	controllerConn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("failed to connect to controller: %w", err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             config.Topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	return nil
}

// Tail reads events from the topic, starting at the newest offset unless
// fromStart is set, and hands each to handler until ctx is done. Malformed
// messages are skipped.
func Tail(ctx context.Context, config KafkaConfig, fromStart bool, handler func(Event) error, logger logging.Logger) error {
	if len(config.Brokers) == 0 {
		return errors.New("events: no kafka brokers configured")
	}
	if config.Topic == "" {
		config.Topic = DefaultTopic
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	offset := kafka.LastOffset
	if fromStart {
		offset = kafka.FirstOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		Topic:       config.Topic,
		StartOffset: offset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read event: %w", err)
		}

		event, err := FromJSON(msg.Value)
		if err != nil {
			logger.Warn("skipping malformed event",
				logging.Int64("offset", msg.Offset),
				logging.Int("partition", msg.Partition),
				logging.Err(err),
			)
			continue
		}
		if err := handler(event); err != nil {
			return err
		}
	}
}

func compressionCodec(compression string) kafka.Compression {
	switch compression {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return 0 // No compression
	}
}

func requiredAcks(acks string) kafka.RequiredAcks {
	switch acks {
	case "0":
		return kafka.RequireNone
	case "1":
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}
