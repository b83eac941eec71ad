package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chain-fraud-lab/internal/detector"
	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/logging"
	"chain-fraud-lab/internal/storage/memory"
)

const (
	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	addrC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func ptr[T any](v T) *T {
	return &v
}

func transfer(block uint64, from, to, value string) domain.RawRecord {
	return domain.TransferRecord{
		BlockNumber: ptr(block),
		From:        from,
		To:          to,
		Value:       ptr(value),
	}
}

// fixture: baseline of the first two entity events is mean 100, std 10.
// Block 3 is a z=3.5 outlier and blocks 3-4 are an A<->B round trip.
func fixture() []domain.RawRecord {
	return []domain.RawRecord{
		transfer(4, addrB, addrA, "100"),
		transfer(1, addrA, addrC, "90"),
		transfer(3, addrA, addrB, "135"),
		transfer(2, addrA, addrC, "110"),
	}
}

func newTestOrchestrator() *Orchestrator {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return New(logging.Nop(), detector.DefaultConfig()).
		WithClock(func() time.Time { return fixed }).
		WithIDGenerator(func() string { return "report-1" })
}

func baseRequest() Request {
	return Request{
		Entity:         addrA,
		Detectors:      []string{"zscore", "wash_trade"},
		Records:        fixture(),
		BaselineFirstN: 2,
	}
}

func TestAnalyze_Report(t *testing.T) {
	o := newTestOrchestrator()

	report, err := o.Analyze(context.Background(), baseRequest())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, "report-1", report.ID)
	assert.Equal(t, 4, report.EventCount)
	assert.Equal(t, []string{"zscore", "wash_trade"}, report.Detectors)
	assert.Equal(t, 2, report.Baseline.SampleCount)
	assert.InDelta(t, 100, report.Baseline.Mean, 1e-9)
	assert.InDelta(t, 10, report.Baseline.StdDev, 1e-9)
	assert.Equal(t, "first 2", report.Baseline.Window)

	counts := map[string]int{}
	for _, f := range report.Findings {
		counts[f.Kind]++
		assert.NotEmpty(t, f.ID)
	}
	assert.Equal(t, map[string]int{"zscore": 1, "wash_trade": 1}, counts)

	assert.Empty(t, report.Faults)
	assert.Equal(t, domain.VerdictSuspectedFraud, report.Decision.Verdict)
	require.NotEmpty(t, report.Counterparties)
}

func TestAnalyze_ConstantBaselineRaisesNoStatisticalFindings(t *testing.T) {
	o := newTestOrchestrator()
	req := Request{
		Entity:    addrA,
		Detectors: []string{"zscore", "cusum"},
		Records: []domain.RawRecord{
			transfer(1, addrA, addrC, "0.1"),
			transfer(2, addrA, addrC, "0.1"),
			transfer(3, addrA, addrC, "0.1"),
			transfer(4, addrA, addrC, "0.1000001"),
		},
		BaselineFirstN: 3,
	}

	report, err := o.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.Baseline.StdDev)
	assert.False(t, report.Baseline.HasSpread())
	assert.Empty(t, report.Findings)
	assert.Empty(t, report.Faults)
}

func TestAnalyze_Deterministic(t *testing.T) {
	o := newTestOrchestrator()

	first, err := o.Analyze(context.Background(), baseRequest())
	require.NoError(t, err)
	second, err := o.Analyze(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyze_BlockRange(t *testing.T) {
	o := newTestOrchestrator()
	req := baseRequest()
	req.FromBlock = 1
	req.ToBlock = 2

	report, err := o.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, report.EventCount)
	assert.Empty(t, report.Findings)
	assert.Equal(t, domain.VerdictClear, report.Decision.Verdict)
}

func TestAnalyze_DroppedRecordsAreNoted(t *testing.T) {
	o := newTestOrchestrator()
	req := baseRequest()
	req.Records = append(req.Records, domain.TransferRecord{BlockNumber: ptr(uint64(9)), From: addrA, To: addrB})

	report, err := o.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, report.Dropped, 1)
	assert.Equal(t, 4, report.Dropped[0].Index)
	assert.Equal(t, 4, report.EventCount)
}

type panicDetector struct{ kind detector.Kind }

func (d panicDetector) Kind() detector.Kind { return d.kind }

func (panicDetector) Detect(detector.Input, detector.Config) ([]domain.Finding, error) {
	panic("boom")
}

type failingDetector struct{ kind detector.Kind }

func (d failingDetector) Kind() detector.Kind { return d.kind }

func (failingDetector) Detect(detector.Input, detector.Config) ([]domain.Finding, error) {
	return nil, errors.New("graph exploded")
}

func TestAnalyze_PartialFailureIsolation(t *testing.T) {
	o := newTestOrchestrator()
	o.detectors[detector.KindCentrality] = panicDetector{kind: detector.KindCentrality}
	o.detectors[detector.KindCUSUM] = failingDetector{kind: detector.KindCUSUM}

	req := baseRequest()
	req.Detectors = []string{"zscore", "wash_trade", "centrality", "cusum"}

	report, err := o.Analyze(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, report.Faults, 2)
	assert.Equal(t, "cusum", report.Faults[0].Detector)
	assert.Equal(t, "graph exploded", report.Faults[0].Error)
	assert.Equal(t, "centrality", report.Faults[1].Detector)
	assert.Contains(t, report.Faults[1].Error, "boom")

	kinds := map[string]bool{}
	for _, f := range report.Findings {
		kinds[f.Kind] = true
	}
	assert.True(t, kinds["zscore"])
	assert.True(t, kinds["wash_trade"])
}

type blockingDetector struct {
	started chan struct{}
	release chan struct{}
}

func (blockingDetector) Kind() detector.Kind { return detector.KindZScore }

func (d blockingDetector) Detect(detector.Input, detector.Config) ([]domain.Finding, error) {
	close(d.started)
	<-d.release
	return []domain.Finding{{Kind: "zscore", Severity: domain.SeverityHigh}}, nil
}

func TestAnalyze_CancellationDiscardsReport(t *testing.T) {
	o := newTestOrchestrator()
	blocker := blockingDetector{started: make(chan struct{}), release: make(chan struct{})}
	defer close(blocker.release)
	o.detectors[detector.KindZScore] = blocker

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-blocker.started
		cancel()
	}()

	req := baseRequest()
	req.Detectors = []string{"zscore"}

	report, err := o.Analyze(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
}

func TestAnalyze_AlreadyCancelled(t *testing.T) {
	o := newTestOrchestrator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := o.Analyze(ctx, baseRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
}

func TestAnalyze_ConfigFaults(t *testing.T) {
	o := newTestOrchestrator()

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"negative threshold", func(r *Request) { r.Options = map[string]float64{"z_threshold": -1} }},
		{"unknown option", func(r *Request) { r.Options = map[string]float64{"mixer_depth": 3} }},
		{"unknown detector", func(r *Request) { r.Detectors = []string{"tornado"} }},
		{"inverted range", func(r *Request) { r.FromBlock, r.ToBlock = 10, 5 }},
		{"negative baseline size", func(r *Request) { r.BaselineFirstN = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mutate(&req)
			report, err := o.Analyze(context.Background(), req)
			assert.ErrorIs(t, err, detector.ErrInvalidConfig)
			assert.Nil(t, report)
		})
	}
}

func TestAnalyze_OptionsOverrideDefaults(t *testing.T) {
	o := newTestOrchestrator()
	req := baseRequest()
	req.Detectors = []string{"zscore"}
	req.Options = map[string]float64{"z_threshold": 4}

	report, err := o.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, report.Findings)
}

func TestAnalyzeStored(t *testing.T) {
	store := memory.NewEventStore()
	o := newTestOrchestrator().WithStore(store)

	for i, rec := range fixture() {
		r := rec.(domain.TransferRecord)
		e := &domain.Event{
			ID:          domain.EventID("", *r.BlockNumber, 0, i),
			Kind:        domain.EventKindTransfer,
			BlockNumber: *r.BlockNumber,
			Sender:      r.From,
			Recipient:   r.To,
		}
		e.Value = mustDecimal(t, *r.Value)
		require.NoError(t, store.Insert(context.Background(), e))
	}

	req := baseRequest()
	req.Records = nil

	report, err := o.AnalyzeStored(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4, report.EventCount)
	assert.Len(t, report.Findings, 2)
}

func TestAnalyzeStored_NoStore(t *testing.T) {
	_, err := newTestOrchestrator().AnalyzeStored(context.Background(), baseRequest())
	assert.ErrorIs(t, err, ErrNoStore)
}
