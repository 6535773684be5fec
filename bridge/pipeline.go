package bridge

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NERVsystems/takbridge/cot"
	"github.com/NERVsystems/takbridge/envelope"
	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/limits"
	"github.com/NERVsystems/takbridge/metrics"
	"github.com/NERVsystems/takbridge/sapient"
)

// Pipeline wires the six bridge stages (correlate, dedup, time policy,
// map, smooth, emit) into one deterministic per-message transform, run
// by a single goroutine per session per spec.md §5 so ordering is never
// at the mercy of scheduling.
type Pipeline struct {
	cfg Config

	correlator *Correlator
	dedup      *Deduplicator
	mapper     *Mapper
	smoother   *Smoother
	emitter    *Emitter

	priority map[string]uint8
	logger   *slog.Logger
	metrics  *metrics.Set
}

// NewPipeline validates cfg and builds a Pipeline delivering mapped CoT
// events to sink through a rate-limited Emitter.
func NewPipeline(cfg Config, sink envelope.Sink[cot.CotEvent], m *metrics.Set, logger *slog.Logger, epoch time.Time) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	correlator, err := NewCorrelator(cfg.UidPolicy, cfg.CustomUid, cfg.CorrelatorTTL, cfg.PersistencePath, m, logger)
	if err != nil {
		return nil, err
	}

	mapper := NewMapper(cfg)
	priority := make(map[string]uint8, len(cfg.Priority))
	for k, v := range cfg.Priority {
		priority[k] = v
	}

	emitter := NewEmitter(sink, cfg.MaxUpdatesPerSecond, cfg.MinSeparation, func(t cot.CotType) uint8 {
		return priority[t.String()]
	}, m, epoch)

	return &Pipeline{
		cfg:        cfg,
		correlator: correlator,
		dedup:      NewDeduplicator(cfg.DedupWindow, m),
		mapper:     mapper,
		smoother:   NewSmoother(cfg.Alpha, cfg.Beta, cfg.CorrelatorTTL),
		emitter:    emitter,
		priority:   priority,
		logger:     logger,
		metrics:    m,
	}, nil
}

// maxDetailElementsEmitted is the most detail elements Process ever
// appends to a single CotEvent (one behaviourLabels extension, one
// provenance block).
const maxDetailElementsEmitted = 2

// ValidateAgainstTransport checks that this bridge's configured limits
// do not exceed the carrier's negotiated limits, per spec.md §4.7's
// strict-startup requirement that bridge-side assumptions never promise
// more than the transport can deliver.
func ValidateAgainstTransport(cfg Config, lims limits.Limits) error {
	if cfg.CotStale <= 0 {
		return errs.Field(errs.KindInvalidValue, "cot_stale_seconds", "must be positive")
	}
	if lims.MaxDetailElements > 0 && maxDetailElementsEmitted > lims.MaxDetailElements {
		return errs.New(errs.KindStrictStartupFailed, "bridge emits more detail elements than the transport's MaxDetailElements allows")
	}
	return nil
}

// Process runs one SAPIENT detection through the full pipeline,
// returning (emitted, error). A false, nil result means the message was
// legitimately dropped (duplicate, rate-limited, or below the minimum
// separation gap), not a failure.
func (p *Pipeline) Process(ctx context.Context, det sapient.Detection, observedAt time.Time, rawFrame []byte) (bool, error) {
	uid, err := p.correlator.Resolve(det.NodeID, det.ObjectID, det.DetectionID)
	if err != nil {
		return false, err
	}

	compositeKey := det.NodeID + "\x00" + det.ObjectID + "\x00" + det.DetectionID
	if !p.dedup.Admit(compositeKey, observedAt, rawFrame) {
		return false, nil
	}

	messageTime := cot.NewTimestamp(det.Timestamp)
	observed := cot.NewTimestamp(observedAt)
	resolvedTime := ResolveTime(p.cfg.TimePolicy, p.cfg.MaxSkew, messageTime, observed)
	stale := cot.NewTimestamp(resolvedTime.Time().Add(p.cfg.CotStale))

	cotType, err := p.mapper.MapType(det.ClassificationLabel)
	if err != nil {
		return false, err
	}

	lat, lon := det.Lat, det.Lon
	if p.cfg.Smoothing == SmoothingAlphaBeta {
		lat, lon = p.smoother.Apply(uid, lat, lon, observedAt)
	}

	var point cot.Position
	if det.AltSet {
		point, err = cot.NewPositionFull(lat, lon, det.Alt, true, 0, false, 0, false)
	} else {
		point, err = cot.NewPosition(lat, lon)
	}
	if err != nil {
		return false, err
	}

	detail := cot.NewCotDetail()
	if ext, ok := BehaviourDetail(det.Behaviours); ok {
		detail = detail.Append(ext)
	}
	if det.ClassificationLabel != "" {
		detail = detail.Append(ProvenanceDetail(det.ClassificationLabel, det.ClassificationProbability))
	}

	ev, err := cot.NewEvent(cot.EventParams{
		Uid:    uid,
		Type:   cotType,
		How:    "m-g",
		Time:   resolvedTime,
		Start:  resolvedTime,
		Stale:  stale,
		Point:  point,
		Detail: detail,
	})
	if err != nil {
		return false, err
	}

	return p.emitter.Emit(ctx, ev, observedAt)
}

// Close releases resources held by the pipeline's stages (currently
// just the Correlator's optional persistence handle).
func (p *Pipeline) Close() error {
	return p.correlator.Close()
}

// Run drains enveloped detections from in and feeds each through
// Process, stopping when in is closed (returning nil) or ctx is
// cancelled (returning ctx.Err()). Every error Process returns is
// logged and that detection skipped; Run does not sort errors into
// fatal and transient ones, so no per-message error ends the session.
//
// Each envelope's Observed.Wall is used as Process's observedAt rather
// than re-stamping time.Now() here, so that replaying a recorded
// session (spec.md §8 invariant 6: "record then replay through the
// bridge yields the same output") actually reaches Process with the
// originally-recorded observation time instead of the time replay
// happens to run at. A live ingestion path constructs each envelope via
// envelope.New, which stamps Observed.Wall at arrival time exactly
// once; a replay path instead carries the recorded Entry.WallTime
// through unchanged.
func (p *Pipeline) Run(ctx context.Context, in <-chan envelope.Envelope[sapient.Detection]) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case env, ok := <-in:
				if !ok {
					return nil
				}
				det := env.Message
				if _, err := p.Process(ctx, det, env.Observed.Wall, env.Raw); err != nil {
					p.logger.Warn("pipeline dropped detection", "node_id", det.NodeID, "object_id", det.ObjectID, "error", err)
				}
			}
		}
	})
	return g.Wait()
}
