// Package orchestrator runs one fraud analysis: normalize, baseline,
// fan detectors out, aggregate and decide.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"chain-fraud-lab/internal/address"
	"chain-fraud-lab/internal/decision"
	"chain-fraud-lab/internal/detector"
	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/findings"
	"chain-fraud-lab/internal/idhash"
	"chain-fraud-lab/internal/metrics"
	"chain-fraud-lab/internal/normalization"
	"chain-fraud-lab/internal/observability"
	"chain-fraud-lab/internal/storage"
)

const (
	defaultConcurrency = 4
	counterpartyLimit  = 10
)

// ErrNoStore is returned by AnalyzeStored when no event store is configured.
var ErrNoStore = errors.New("no event store configured")

// Request is one analysis request from the chat collaborator.
type Request struct {
	// Entity is the analyzed address or contract. Empty analyzes the whole window.
	Entity string `json:"entity"`
	// FromBlock and ToBlock bound the window (inclusive). ToBlock 0 means no upper bound.
	FromBlock uint64 `json:"from_block"`
	ToBlock   uint64 `json:"to_block"`
	// Detectors is the allow-list. Empty runs every detector.
	Detectors []string `json:"detectors,omitempty"`
	// Options overrides detector thresholds by option key.
	Options map[string]float64 `json:"options,omitempty"`
	// Records are raw fetcher records. AnalyzeStored ignores them.
	Records []domain.RawRecord `json:"-"`
	// Targets restricts centrality reporting to these addresses.
	Targets []string `json:"targets,omitempty"`
	// BaselineFirstN and BaselineBeforeBlock define the baseline window.
	BaselineFirstN      int    `json:"baseline_first_n,omitempty"`
	BaselineBeforeBlock uint64 `json:"baseline_before_block,omitempty"`
}

// Orchestrator runs analyses. It holds only immutable configuration and is
// safe for concurrent use.
type Orchestrator struct {
	logger      zerolog.Logger
	defaults    detector.Config
	store       storage.EventStore
	concurrency int
	clock       func() time.Time
	newID       func() string
	detectors   map[detector.Kind]detector.Detector
	evaluator   *decision.Evaluator
}

// New creates an orchestrator with the given detector defaults.
func New(logger zerolog.Logger, defaults detector.Config) *Orchestrator {
	return &Orchestrator{
		logger:      logger.With().Str("component", "orchestrator").Logger(),
		defaults:    defaults,
		concurrency: defaultConcurrency,
		clock:       func() time.Time { return time.Now().UTC() },
		newID:       idhash.NewReportID,
		detectors:   detector.Registry(),
		evaluator:   decision.NewEvaluator(),
	}
}

// WithStore sets the event store used by AnalyzeStored.
func (o *Orchestrator) WithStore(store storage.EventStore) *Orchestrator {
	o.store = store
	return o
}

// WithConcurrency bounds the number of detectors running at once.
func (o *Orchestrator) WithConcurrency(n int) *Orchestrator {
	if n > 0 {
		o.concurrency = n
	}
	return o
}

// WithClock sets a custom clock function for deterministic output.
func (o *Orchestrator) WithClock(clock func() time.Time) *Orchestrator {
	o.clock = clock
	return o
}

// WithIDGenerator sets the report id generator.
func (o *Orchestrator) WithIDGenerator(newID func() string) *Orchestrator {
	o.newID = newID
	return o
}

// plan is a validated request.
type plan struct {
	entity string
	kinds  []detector.Kind
	cfg    detector.Config
	window metrics.Window
}

// prepare validates configuration before any event is touched.
func (o *Orchestrator) prepare(req Request) (plan, error) {
	kinds, err := detector.ParseKinds(req.Detectors)
	if err != nil {
		return plan{}, err
	}
	cfg, err := o.defaults.WithOptions(req.Options)
	if err != nil {
		return plan{}, err
	}
	if req.ToBlock != 0 && req.ToBlock < req.FromBlock {
		return plan{}, fmt.Errorf("%w: to_block %d before from_block %d", detector.ErrInvalidConfig, req.ToBlock, req.FromBlock)
	}
	if req.BaselineFirstN < 0 {
		return plan{}, fmt.Errorf("%w: baseline_first_n must be >= 0", detector.ErrInvalidConfig)
	}

	entity := ""
	if req.Entity != "" {
		entity = address.CanonicalOrRaw(req.Entity)
	}

	return plan{
		entity: entity,
		kinds:  kinds,
		cfg:    cfg,
		window: metrics.Window{FirstN: req.BaselineFirstN, BeforeBlock: req.BaselineBeforeBlock},
	}, nil
}

// Analyze runs the selected detectors over the request's raw records.
//
// Configuration faults return an error wrapping detector.ErrInvalidConfig
// before any detector runs. Detector failures become report faults. If ctx
// is cancelled, in-flight detectors are abandoned and ctx.Err() is returned
// without a report.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (*domain.Report, error) {
	p, err := o.prepare(req)
	if err != nil {
		observability.RecordAnalysis("config_fault", 0, 0)
		return nil, err
	}
	return o.run(ctx, req, p, req.Records)
}

// AnalyzeStored loads the window from the event store and analyzes it.
// Records in the request are ignored.
func (o *Orchestrator) AnalyzeStored(ctx context.Context, req Request) (*domain.Report, error) {
	if o.store == nil {
		return nil, ErrNoStore
	}
	p, err := o.prepare(req)
	if err != nil {
		observability.RecordAnalysis("config_fault", 0, 0)
		return nil, err
	}

	start := time.Now()
	stored, err := o.store.GetByAddress(ctx, p.entity, req.FromBlock, req.ToBlock)
	observability.RecordDBQuery("events", "get_by_address", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	records := make([]domain.RawRecord, len(stored))
	for i, e := range stored {
		records[i] = *e
	}
	return o.run(ctx, req, p, records)
}

func (o *Orchestrator) run(ctx context.Context, req Request, p plan, records []domain.RawRecord) (*domain.Report, error) {
	start := time.Now()
	log := o.logger.With().Str("entity", p.entity).Logger()

	if err := ctx.Err(); err != nil {
		observability.RecordAnalysis("cancelled", time.Since(start).Seconds(), 0)
		return nil, err
	}

	norm := normalization.Normalize(records)
	for _, d := range norm.Dropped {
		observability.RecordDropped(d.Kind.String())
		log.Warn().Int("index", d.Index).Str("kind", d.Kind.String()).Str("reason", d.Reason).Msg("dropped record")
	}

	window := filterRange(norm.Events, req.FromBlock, req.ToBlock)
	in := detector.Input{
		Entity:       p.entity,
		Events:       window,
		EntityEvents: metrics.EntityEvents(window, p.entity),
		Baseline:     metrics.Estimate(window, p.entity, p.window),
		Targets:      canonicalTargets(req.Targets),
	}

	raw, faults, err := o.fanOut(ctx, log, in, p)
	if err != nil {
		observability.RecordAnalysis("cancelled", time.Since(start).Seconds(), len(window))
		log.Warn().Err(err).Msg("analysis abandoned")
		return nil, err
	}

	list := findings.Aggregate(raw)
	for i := range list {
		observability.RecordFinding(list[i].Kind, list[i].Severity.String())
	}

	detectors := make([]string, len(p.kinds))
	for i, k := range p.kinds {
		detectors[i] = k.String()
	}

	var counterparties []domain.Counterparty
	if p.entity != "" {
		counterparties = metrics.SummarizeCounterparties(window, p.entity, counterpartyLimit)
	}

	now := o.clock()
	report := &domain.Report{
		ID:             o.newID(),
		Entity:         p.entity,
		FromBlock:      req.FromBlock,
		ToBlock:        req.ToBlock,
		GeneratedAt:    now,
		EventCount:     len(window),
		Detectors:      detectors,
		Baseline:       in.Baseline,
		Findings:       list,
		Faults:         faults,
		Dropped:        norm.Dropped,
		Counterparties: counterparties,
		Decision:       o.evaluator.Evaluate(list),
	}

	status := "ok"
	if len(faults) > 0 {
		status = "partial"
	}
	observability.RecordAnalysis(status, time.Since(start).Seconds(), len(window))
	observability.MarkAnalysisSuccess(now.Unix())

	log.Info().
		Str("report_id", report.ID).
		Int("events", report.EventCount).
		Int("findings", len(list)).
		Int("faults", len(faults)).
		Str("verdict", string(report.Decision.Verdict)).
		Dur("elapsed", time.Since(start)).
		Msg("analysis complete")

	return report, nil
}

// slot holds one detector's outcome. Each goroutine writes only its own slot.
type slot struct {
	findings []domain.Finding
	fault    *domain.DetectorFault
}

// fanOut runs detectors concurrently and concatenates results in the
// fixed detector order. It returns ctx.Err() as soon as ctx is done.
func (o *Orchestrator) fanOut(ctx context.Context, log zerolog.Logger, in detector.Input, p plan) ([]domain.Finding, []domain.DetectorFault, error) {
	slots := make([]slot, len(p.kinds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, kind := range p.kinds {
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				slots[i] = o.runDetector(log, kind, in, p.cfg)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-done:
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		all    []domain.Finding
		faults []domain.DetectorFault
	)
	for _, s := range slots {
		if s.fault != nil {
			faults = append(faults, *s.fault)
			continue
		}
		all = append(all, s.findings...)
	}
	return all, faults, nil
}

// runDetector runs one detector, converting errors and panics into a fault.
func (o *Orchestrator) runDetector(log zerolog.Logger, kind detector.Kind, in detector.Input, cfg detector.Config) (out slot) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out = slot{fault: &domain.DetectorFault{Detector: kind.String(), Error: fmt.Sprintf("panic: %v", r)}}
			log.Error().
				Str("detector", kind.String()).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("detector panicked")
		}
		status := "ok"
		if out.fault != nil {
			status = "error"
		}
		observability.RecordDetectorRun(kind.String(), status, time.Since(start).Seconds())
	}()

	d, ok := o.detectors[kind]
	if !ok {
		return slot{fault: &domain.DetectorFault{Detector: kind.String(), Error: detector.ErrUnknownDetector.Error()}}
	}

	res, err := d.Detect(in, cfg)
	if err != nil {
		log.Error().Err(err).Str("detector", kind.String()).Msg("detector failed")
		return slot{fault: &domain.DetectorFault{Detector: kind.String(), Error: err.Error()}}
	}

	log.Debug().Str("detector", kind.String()).Int("findings", len(res)).Msg("detector finished")
	return slot{findings: res}
}

// filterRange keeps events with FromBlock <= block <= ToBlock (ToBlock 0 is unbounded).
func filterRange(events []domain.Event, fromBlock, toBlock uint64) []domain.Event {
	if fromBlock == 0 && toBlock == 0 {
		return events
	}
	out := make([]domain.Event, 0, len(events))
	for i := range events {
		if storage.InRange(events[i].BlockNumber, fromBlock, toBlock) {
			out = append(out, events[i])
		}
	}
	return out
}

func canonicalTargets(targets []string) []string {
	if len(targets) == 0 {
		return nil
	}
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		if t != "" {
			out = append(out, address.CanonicalOrRaw(t))
		}
	}
	return out
}
