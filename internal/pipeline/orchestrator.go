// Package pipeline runs one generation request end to end: validate, gate,
// generate, normalize, persist, bill.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/illegalcall/quickai/internal/asset"
	"github.com/illegalcall/quickai/internal/events"
	"github.com/illegalcall/quickai/internal/models"
	"github.com/illegalcall/quickai/internal/provider"
	"github.com/illegalcall/quickai/internal/quota"
)

type Stage string

const (
	StageAuthorized  Stage = "authorized"
	StageGated       Stage = "gated"
	StageGenerating  Stage = "generating"
	StageNormalizing Stage = "normalizing"
	StagePersisted   Stage = "persisted"
	StageBilled      Stage = "billed"
	StageResponded   Stage = "responded"

	// terminal failures
	StageRejected Stage = "rejected"
	StageDenied   Stage = "denied"
	StageFailed   Stage = "failed"
)

// StageError reports which step a request stopped at. Err is the cause and
// can be matched with errors.Is / errors.As.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Outcome is the result of Run. Stage is terminal: responded on success,
// otherwise rejected, denied or failed.
type Outcome struct {
	Stage    Stage
	Content  string
	Creation models.Creation
}

type Executor interface {
	Execute(ctx context.Context, op provider.Operation) (provider.Output, error)
}

type Normalizer interface {
	Normalize(ctx context.Context, raw []byte) (asset.Asset, error)
}

type Appender interface {
	Append(ctx context.Context, c models.Creation) (models.Creation, error)
}

type Recorder interface {
	Observe(kind, outcome string, elapsed time.Duration)
}

type Orchestrator struct {
	gate       *quota.Gate
	executor   Executor
	normalizer Normalizer
	store      Appender
	publisher  events.Publisher
	recorder   Recorder
	logger     *slog.Logger
}

type Options struct {
	Gate       *quota.Gate
	Executor   Executor
	Normalizer Normalizer
	Store      Appender
	Publisher  events.Publisher
	Recorder   Recorder
	Logger     *slog.Logger
}

func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		gate:       opts.Gate,
		executor:   opts.Executor,
		normalizer: opts.Normalizer,
		store:      opts.Store,
		publisher:  opts.Publisher,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
	}
	if o.publisher == nil {
		o.publisher = events.Noop{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "pipeline")
	return o
}

// Run executes op for acct. The account must already be authenticated.
// A reservation taken at the gate is released on every failure after it.
func (o *Orchestrator) Run(ctx context.Context, acct models.Account, op provider.Operation) (Outcome, error) {
	start := time.Now()
	kind := string(op.Kind())
	log := o.logger.With("user_id", acct.ID, "kind", kind)

	fail := func(terminal, at Stage, err error) (Outcome, error) {
		o.observe(kind, terminal, start)
		return Outcome{Stage: terminal}, &StageError{Stage: at, Err: err}
	}

	if err := op.Validate(); err != nil {
		log.Info("Request rejected", "reason", err)
		return fail(StageRejected, StageAuthorized, err)
	}

	res, err := o.gate.Acquire(ctx, acct, op.PremiumOnly())
	if err != nil {
		if errors.Is(err, quota.ErrLimitReached) || errors.Is(err, quota.ErrPremiumOnly) {
			log.Info("Request denied", "reason", err)
			return fail(StageDenied, StageGated, err)
		}
		log.Error("Quota gate unavailable", "error", err)
		return fail(StageFailed, StageGated, err)
	}

	// refunds and billing must not be lost to a client disconnect
	settle := context.WithoutCancel(ctx)

	out, err := o.executor.Execute(ctx, op)
	if err != nil {
		res.Release(settle)
		return fail(StageFailed, StageGenerating, err)
	}

	content := out.Content()
	if out.NeedsNormalization() {
		normalized, err := o.normalizer.Normalize(ctx, out.Image)
		if err != nil {
			log.Error("Normalization failed", "error", err)
			res.Release(settle)
			return fail(StageFailed, StageNormalizing, err)
		}
		content = normalized.URL
	}

	rec := op.Describe()
	created, err := o.store.Append(ctx, models.Creation{
		UserID:  acct.ID,
		Prompt:  rec.Prompt,
		Content: content,
		Type:    rec.Type,
		Publish: rec.Publish,
	})
	if err != nil {
		log.Error("Failed to persist creation", "error", err)
		res.Release(settle)
		return fail(StageFailed, StagePersisted, err)
	}

	res.Commit(settle)
	o.observe(kind, StageResponded, start)
	log.Info("Creation stored", "creation_id", created.ID, "counted", res.Counted(), "usage", res.Used())

	if err := o.publisher.Publish(settle, models.CreationEvent{
		Type:       models.EventCreationCreated,
		CreationID: created.ID,
		UserID:     acct.ID,
		Kind:       created.Type,
		Publish:    created.Publish,
		OccurredAt: created.CreatedAt,
	}); err != nil {
		log.Warn("Failed to publish creation event", "creation_id", created.ID, "error", err)
	}

	return Outcome{Stage: StageResponded, Content: content, Creation: created}, nil
}

func (o *Orchestrator) observe(kind string, terminal Stage, start time.Time) {
	if o.recorder == nil {
		return
	}
	outcome := string(terminal)
	if terminal == StageResponded {
		outcome = "success"
	}
	o.recorder.Observe(kind, outcome, time.Since(start))
}
