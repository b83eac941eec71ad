package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/logging"
)

func sampleReport() *domain.Report {
	return &domain.Report{
		ID:       "r-1",
		Entity:   "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Decision: domain.Decision{Verdict: domain.VerdictSuspectedFraud},
		Findings: []domain.Finding{{ID: "f-1", Kind: "zscore", Severity: domain.SeverityHigh}},
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig())
	defer producer.Close()

	report := sampleReport()
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != report.Entity {
			return errors.New("message not keyed by entity")
		}

		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return err
		}
		if env.Type != ReportMessageType || env.TS != 1700000000000 {
			return errors.New("unexpected envelope header")
		}
		var decoded domain.Report
		if err := json.Unmarshal(env.Data, &decoded); err != nil {
			return err
		}
		if decoded.ID != report.ID || len(decoded.Findings) != 1 {
			return errors.New("report not carried in envelope")
		}
		return nil
	})

	p := newKafkaPublisher(producer, "fraud-reports", logging.Nop())
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }

	require.NoError(t, p.Publish(context.Background(), report))
}

func TestKafkaPublisher_SendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig())
	defer producer.Close()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := newKafkaPublisher(producer, "fraud-reports", logging.Nop())
	err := p.Publish(context.Background(), sampleReport())
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestKafkaPublisher_CancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig())
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newKafkaPublisher(producer, "fraud-reports", logging.Nop())
	assert.ErrorIs(t, p.Publish(ctx, sampleReport()), context.Canceled)
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher([]string{"localhost:9092"}, "", logging.Nop())
	assert.Error(t, err)

	_, err = NewKafkaPublisher(nil, "topic", logging.Nop())
	assert.Error(t, err)
}

type recordingSink struct {
	name  string
	err   error
	got   []*domain.Report
	close int
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, r *domain.Report) error {
	s.got = append(s.got, r)
	return s.err
}

func (s *recordingSink) Close() error {
	s.close++
	return nil
}

func TestFanout_DeliversToAllSinks(t *testing.T) {
	failing := &recordingSink{name: "broken", err: errors.New("down")}
	healthy := &recordingSink{name: "ok"}

	f := NewFanout(failing, nil, healthy)
	assert.Equal(t, 2, f.Len())

	err := f.Publish(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Len(t, healthy.got, 1, "a failing sink must not block the others")

	require.NoError(t, f.Close())
	assert.Equal(t, 1, failing.close)
	assert.Equal(t, 1, healthy.close)
}
