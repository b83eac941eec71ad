package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"chain-fraud-lab/internal/domain"
)

// ReportMessageType is the envelope type of published reports.
const ReportMessageType = "fraud_report"

// Envelope wraps every message written to the topic.
type Envelope struct {
	Type string          `json:"type"`
	TS   int64           `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// KafkaPublisher writes reports to a Kafka topic, keyed by entity so all
// reports of one entity land on the same partition.
type KafkaPublisher struct {
	topic    string
	producer sarama.SyncProducer
	logger   zerolog.Logger
	now      func() time.Time
}

// NewKafkaPublisher connects a synchronous producer to brokers.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) (*KafkaPublisher, error) {
	if topic == "" {
		return nil, errors.New("kafka topic empty")
	}
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers")
	}

	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newKafkaPublisher(producer, topic, logger), nil
}

// NewProducerConfig returns the producer settings used for reports.
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 200 * time.Millisecond
	// SyncProducer requires both.
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Version = sarama.V2_1_0_0
	return cfg
}

func newKafkaPublisher(producer sarama.SyncProducer, topic string, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		topic:    topic,
		producer: producer,
		logger:   logger.With().Str("component", "kafka_publisher").Str("topic", topic).Logger(),
		now:      time.Now,
	}
}

// Name returns "kafka".
func (p *KafkaPublisher) Name() string { return "kafka" }

// Publish sends the report and waits for the broker ack.
// SyncProducer does not take a context, so ctx is only checked up front.
func (p *KafkaPublisher) Publish(ctx context.Context, r *domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := p.message(r)
	if err != nil {
		return err
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka publish report %s: %w", r.ID, err)
	}

	p.logger.Debug().
		Str("report_id", r.ID).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("report published")
	return nil
}

func (p *KafkaPublisher) message(r *domain.Report) (*sarama.ProducerMessage, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	payload, err := json.Marshal(Envelope{
		Type: ReportMessageType,
		TS:   p.now().UnixMilli(),
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	return &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(r.Entity),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("report_id"), Value: []byte(r.ID)},
			{Key: []byte("verdict"), Value: []byte(r.Decision.Verdict)},
		},
	}, nil
}

// Close closes the producer.
func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
