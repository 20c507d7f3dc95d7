package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/user/roombot/internal/types"
	"github.com/user/roombot/internal/xmpp"
)

// Source is a connected session that produces events until its stream
// ends. *xmpp.Session satisfies it.
type Source interface {
	Run(ctx context.Context) error
	Events() <-chan xmpp.Event
	LocalName() string
}

// Router classifies raw frames into message events.
type Router interface {
	Route(raw []byte) (types.MessageEvent, bool)
}

// Stats counts dispatched runs.
type Stats struct {
	Dispatched int64
	Failed     int64
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger. A nil logger means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithRouter replaces the default router built from the source's local
// name.
func WithRouter(r Router) Option {
	return func(g *Gateway) { g.router = r }
}

// Gateway connects one session to one agent. Events are handled strictly
// in arrival order and the agent is called synchronously, so replies leave
// in the order of the messages that caused them.
type Gateway struct {
	source Source
	agent  types.Agent
	router Router
	logger *slog.Logger

	dispatched atomic.Int64
	failed     atomic.Int64
}

// New creates a Gateway dispatching events from source to agent.
func New(source Source, agent types.Agent, opts ...Option) *Gateway {
	g := &Gateway{
		source: source,
		agent:  agent,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.router == nil {
		g.router = xmpp.NewRouter(source.LocalName(), g.logger)
	}
	return g
}

// Serve runs the session reader and the dispatch loop until either ends.
// Cancelling ctx is a clean shutdown and returns nil.
func (g *Gateway) Serve(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return g.source.Run(egCtx) })
	eg.Go(func() error { return g.dispatch(egCtx) })

	err := eg.Wait()
	stats := g.Stats()
	g.logger.Info("gateway stopped", "dispatched", stats.Dispatched, "failed", stats.Failed)
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stats returns the run counters.
func (g *Gateway) Stats() Stats {
	return Stats{Dispatched: g.dispatched.Load(), Failed: g.failed.Load()}
}

func (g *Gateway) dispatch(ctx context.Context) error {
	events := g.source.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := g.handle(ctx, ev); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *Gateway) handle(ctx context.Context, ev xmpp.Event) error {
	switch ev.Kind {
	case xmpp.EventOnline:
		hook, ok := g.agent.(types.OnlineHook)
		if !ok {
			return nil
		}
		if err := hook.OnOnline(ctx); err != nil {
			g.logger.Error("online hook", "error", err)
		}
	case xmpp.EventStanza:
		msg, ok := g.router.Route(ev.Raw)
		if !ok {
			return nil
		}
		g.process(ctx, NewRun(msg))
	case xmpp.EventError:
		return ev.Err
	}
	return nil
}

func (g *Gateway) process(ctx context.Context, run *Run) {
	run.Start()
	run.Finish(g.agent.HandleMessage(ctx, run.Event))
	g.dispatched.Add(1)

	if run.Status == RunStatusFailed {
		g.failed.Add(1)
		g.logger.Error("run failed",
			"run_id", string(run.ID),
			"sender", run.Event.SenderID,
			"error", run.Error,
		)
		return
	}
	g.logger.Debug("run complete",
		"run_id", string(run.ID),
		"sender", run.Event.SenderID,
		"duration", run.Duration(),
	)
}
