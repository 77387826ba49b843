// Package probe derives a media.Medium from a drive by issuing MMC commands
// in a fixed order. Later steps pick their commands from what earlier steps
// found, so the order is part of the contract.
package probe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"discprobe/internal/config"
	"discprobe/internal/logging"
	"discprobe/internal/media"
	"discprobe/internal/mmc"
	"discprobe/internal/scsi"
	"discprobe/internal/volume"
)

// Options tunes one Engine.
type Options struct {
	// RunoutBlocks is added to TAO/packet recorded CD data tracks whose
	// run-out blocks read back as data.
	RunoutBlocks int64
	// ShortTrackBlocks is the padded floor below which a track is re-measured
	// from its ISO9660 volume.
	ShortTrackBlocks int64
	ReadCDText       bool
	CheckCSS         bool
	// DriveName labels the medium in tooltips.
	DriveName string
	Logger    *slog.Logger
	Now       func() time.Time
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		RunoutBlocks:     2,
		ShortTrackBlocks: 300,
		ReadCDText:       true,
		CheckCSS:         true,
	}
}

// OptionsFromConfig reads the heuristics from the [probe] table.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		RunoutBlocks:     int64(cfg.Probe.RunoutBlocks),
		ShortTrackBlocks: int64(cfg.Probe.ShortTrackBlocks),
		ReadCDText:       cfg.Probe.ReadCDText,
		CheckCSS:         cfg.Probe.CheckCSS,
		Logger:           logger,
	}
}

// Engine runs probes. It holds no per-probe state and may be shared.
type Engine struct {
	opts   Options
	logger *slog.Logger
}

// New returns an Engine.
func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "probe"),
	}
}

type step struct {
	name string
	fn   func(*run, context.Context) error
	// fatal steps abort the probe; the others only log.
	fatal bool
}

var steps = []step{
	{name: "profile", fn: (*run).determineProfile, fatal: true},
	{name: "speeds", fn: (*run).determineSpeeds},
	{name: "capacity", fn: (*run).determineCapacity},
	{name: "write_caps", fn: (*run).determineWriteCaps},
	{name: "contents", fn: (*run).determineContents, fatal: true},
	{name: "enrichment", fn: (*run).enrich},
}

// run is the state of one probe. Only the goroutine running the probe
// touches it.
type run struct {
	e      *Engine
	t      scsi.Transport
	b      *media.Builder
	log    *slog.Logger
	reader volume.BlockReader

	profile  mmc.Profile
	disc     *mmc.DiscInfo
	atip     *mmc.ATIP
	atipErr  error
	caps     *mmc.Capabilities
	capsErr  error
	capsRead bool
}

// Probe runs every step against t and returns the finished medium. A
// cancelled ctx is returned unwrapped; fatal step failures come back as
// *Error.
func (e *Engine) Probe(ctx context.Context, t scsi.Transport) (*media.Medium, error) {
	r := &run{
		e:      e,
		t:      t,
		b:      media.NewBuilder(),
		log:    logging.WithContext(ctx, e.logger),
		reader: volume.NewReader(t),
	}
	r.b.SetDriveName(e.opts.DriveName)

	started := e.opts.Now()
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.log.Debug("probe step", logging.String(logging.FieldStep, s.name))
		err := s.fn(r, ctx)
		if err == nil {
			continue
		}
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if s.fatal {
			logging.ErrorWithContext(r.log, "probe failed", "probe_failed",
				logging.String(logging.FieldStep, s.name),
				logging.String(logging.FieldSCSICode, scsi.CodeOf(err).String()),
				logging.Error(err),
			)
			return nil, &Error{Step: s.name, Err: err}
		}
		logging.WarnWithContext(r.log, "probe step degraded", "probe_step_degraded",
			logging.String(logging.FieldStep, s.name),
			logging.Error(err),
		)
	}

	r.b.SetProbedAt(e.opts.Now())
	m := r.b.Build()
	capacity, _ := m.Capacity()
	r.log.Info("medium probed",
		logging.String(logging.FieldMediumType, m.Type()),
		logging.String("status", m.Flags().State().String()),
		logging.Int("tracks", m.TrackCount()),
		logging.Int64("capacity_bytes", capacity),
		logging.Duration("elapsed", e.opts.Now().Sub(started)),
	)
	return m, nil
}

// atipInfo reads the ATIP once per probe.
func (r *run) atipInfo(ctx context.Context) (*mmc.ATIP, error) {
	if r.atip == nil && r.atipErr == nil {
		r.atip, r.atipErr = mmc.ReadATIP(ctx, r.t)
	}
	return r.atip, r.atipErr
}

// capabilities reads mode page 2Ah once per probe.
func (r *run) capabilities(ctx context.Context) (*mmc.Capabilities, error) {
	if !r.capsRead {
		r.caps, r.capsErr = mmc.ReadCapabilities(ctx, r.t)
		r.capsRead = true
	}
	return r.caps, r.capsErr
}

func (r *run) flags() media.Flags { return r.b.Flags() }

func (r *run) decision(decisionType, result, reason string) {
	r.log.Debug("probe decision", logging.Args(logging.DecisionAttrs(decisionType, result, reason)...)...)
}
