// Package supervisor wires the Token Provider, Offset Oracle, ACS Loader,
// Update Stream Reader, Projection Function and Batched Graph Writer into
// the resilient main loop: obtain token, decide offset, load the ACS once,
// stream updates, project and write, and on any failure back off and
// restart from the graph's current offset. Built on a select/ticker
// heartbeat-loop shape, generalized from a fixed interval into
// exponential backoff with a cap.
package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/cuemby/ledgersync/internal/acs"
	"github.com/cuemby/ledgersync/internal/graphstore"
	"github.com/cuemby/ledgersync/internal/ledgerapi"
	"github.com/cuemby/ledgersync/internal/offset"
	"github.com/cuemby/ledgersync/internal/projection"
	"github.com/cuemby/ledgersync/internal/token"
	"github.com/cuemby/ledgersync/pkg/events"
	"github.com/cuemby/ledgersync/pkg/health"
	"github.com/cuemby/ledgersync/pkg/log"
	"github.com/cuemby/ledgersync/pkg/metrics"
	"github.com/cuemby/ledgersync/pkg/types"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 60 * time.Second
)

// Config tunes a Supervisor run.
type Config struct {
	Parties     []string
	Fresh       bool
	IdleTimeout time.Duration
	Writer      graphstore.WriterConfig
}

// Supervisor owns one synchronization run against one profile.
type Supervisor struct {
	client   ledgerapi.Client
	store    graphstore.GraphStore
	provider *token.Provider
	oracle   *offset.Oracle
	cfg      Config

	status   *health.Status
	recorder *events.Recorder
}

// New constructs a Supervisor. recorder may be nil, in which case
// lifecycle events are dropped.
func New(client ledgerapi.Client, store graphstore.GraphStore, provider *token.Provider, oracle *offset.Oracle, cfg Config, status *health.Status, recorder *events.Recorder) *Supervisor {
	return &Supervisor{
		client:   client,
		store:    store,
		provider: provider,
		oracle:   oracle,
		cfg:      cfg,
		status:   status,
		recorder: recorder,
	}
}

// Run blocks until ctx is canceled, driving the token->offset->acs->stream
// loop with exponential backoff between failed attempts.
func (s *Supervisor) Run(ctx context.Context) error {
	logger := log.WithComponent("supervisor")

	if err := s.store.EnsureIndexes(ctx); err != nil {
		return err
	}

	if s.cfg.Fresh {
		logger.Warn().Msg("fresh start requested, clearing graph")
		if err := s.store.Clear(ctx); err != nil {
			return err
		}
	}

	s.provider.StartBackgroundRefresh(ctx)

	backoff := initialBackoff
	acsDone := false

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := s.attempt(ctx, &acsDone); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.status.RecordFailure(err)
			s.publish(events.EventBackoff, err.Error())
			logger.Warn().Err(err).Dur("backoff", backoff).Msg("stream attempt failed, backing off")
			metrics.SupervisorBackoffSeconds.Set(backoff.Seconds())

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = initialBackoff
		metrics.SupervisorBackoffSeconds.Set(0)
	}
}

// attempt runs one full token->offset->(acs)->stream->project->write cycle
// until the stream ends or errors.
func (s *Supervisor) attempt(ctx context.Context, acsDone *bool) error {
	logger := log.WithComponent("supervisor")

	tok, err := s.provider.GetToken(ctx)
	if err != nil {
		return err
	}

	beginExclusive, err := s.oracle.Resolve(ctx, tok, s.cfg.Fresh)
	if err != nil {
		return err
	}

	if !*acsDone {
		loaded, err := acs.Loaded(ctx, s.store)
		if err != nil {
			return err
		}
		if !loaded {
			s.status.SetPhase(health.PhaseLoadingACS)
			s.publish(events.EventACSLoadStarted, "")
			if err := acs.Load(ctx, s.client, s.store, tok, s.cfg.Parties, beginExclusive); err != nil {
				return err
			}
			s.publish(events.EventACSLoadFinished, "")
		}
		*acsDone = true
	}

	s.status.SetPhase(health.PhaseStreaming)
	s.publish(events.EventStreamOpened, "")
	logger.Info().Int64("begin_exclusive", beginExclusive).Msg("opening update stream")

	updates, errCh := s.client.StreamUpdates(ctx, tok, s.cfg.Parties, beginExclusive)
	writer := graphstore.NewWriter(s.store, s.cfg.Writer)

	started := time.Now()
	offsetBefore, _ := s.store.MaxOffset(ctx)
	defer func() {
		offsetAfter, _ := s.store.MaxOffset(ctx)
		logger.Info().Interface("offset_before", offsetBefore).Interface("offset_after", offsetAfter).
			Dur("elapsed", time.Since(started)).Msg("update stream attempt ended")
	}()

	idleTimeout := s.cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}
	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	tickInterval := writer.TimeoutRemaining()
	if tickInterval <= 0 {
		tickInterval = 100 * time.Millisecond
	}
	flushTicker := time.NewTicker(tickInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.finalFlush(ctx, writer)
			return nil

		case u, ok := <-updates:
			if !ok {
				s.finalFlush(ctx, writer)
				s.publish(events.EventStreamClosed, "")
				return drainErr(errCh)
			}
			if !idleTimer.Stop() {
				<-idleTimer.C
			}
			idleTimer.Reset(idleTimeout)

			stmts := projection.Project(u)
			if err := writer.Add(ctx, stmts); err != nil {
				return err
			}
			if u.Kind == types.UpdateKindTransaction {
				s.status.SetOffset(u.Offset)
				metrics.StreamOffsetCurrent.Set(float64(u.Offset))
				metrics.UpdatesProcessedTotal.Inc()
			}

		case <-flushTicker.C:
			if err := writer.FlushIfDue(ctx); err != nil {
				return err
			}

		case <-idleTimer.C:
			s.finalFlush(ctx, writer)
			s.publish(events.EventIdleDisconnect, "")
			metrics.ReconnectsTotal.WithLabelValues("idle").Inc()
			logger.Warn().Dur("idle_timeout", idleTimeout).Msg("update stream idle, forcing reconnect")
			return errors.New("update stream idle timeout exceeded")
		}
	}
}

func (s *Supervisor) finalFlush(ctx context.Context, writer *graphstore.Writer) {
	if err := writer.Flush(ctx, "final"); err != nil {
		log.WithComponent("supervisor").Error().Err(err).Msg("final flush failed")
	}
}

func (s *Supervisor) publish(eventType events.EventType, message string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Publish(eventType, message)
}

func drainErr(errCh <-chan error) error {
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
