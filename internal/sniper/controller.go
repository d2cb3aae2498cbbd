package sniper

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/solana"
)

// State is the pipeline controller's position in its lifecycle. Exactly one
// state is active at a time; the handling states form a fixed sequence.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateListening
	StateHandlingEvent
	StateResolving
	StateRiskChecking
	StateSwapping
	StateRecording
	StateReconnecting
)

var stateNames = map[State]string{
	StateIdle:          "idle",
	StateConnecting:    "connecting",
	StateListening:     "listening",
	StateHandlingEvent: "handling_event",
	StateResolving:     "resolving",
	StateRiskChecking:  "risk_checking",
	StateSwapping:      "swapping",
	StateRecording:     "recording",
	StateReconnecting:  "reconnecting",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// validTransitions is the full transition relation. Any handling state can
// fall back to reconnecting: a stage failure aborts the event, never the
// process.
var validTransitions = map[State][]State{
	StateIdle:          {StateConnecting},
	StateConnecting:    {StateListening, StateReconnecting},
	StateListening:     {StateHandlingEvent, StateReconnecting},
	StateHandlingEvent: {StateResolving, StateReconnecting},
	StateResolving:     {StateRiskChecking, StateReconnecting},
	StateRiskChecking:  {StateSwapping, StateReconnecting},
	StateSwapping:      {StateRecording, StateReconnecting},
	StateRecording:     {StateReconnecting},
	StateReconnecting:  {StateConnecting},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to State) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Stage interfaces the controller sequences per event.

// PoolResolver resolves a matched signature into pool mints.
type PoolResolver interface {
	Resolve(ctx context.Context, signature string) (*PoolMints, error)
}

// RiskChecker decides whether a token is acceptable to buy. Fail-closed:
// an undecidable token is an unacceptable one.
type RiskChecker interface {
	Check(ctx context.Context, mint string) bool
}

// BuySwapper obtains a built buy-swap payload for a pool.
type BuySwapper interface {
	Buy(ctx context.Context, quoteMint, baseMint string) (string, error)
}

// PositionRecorder persists the position behind a confirmed buy.
type PositionRecorder interface {
	Record(ctx context.Context, signature string) error
}

// ControllerConfig wires the controller to its stream.
type ControllerConfig struct {
	WebsocketURL   string
	ProgramID      string
	Commitment     string
	ReconnectDelay time.Duration
	// IgnorePumpSuffix skips tokens whose mint carries the launchpad vanity
	// suffix, after the risk gate has already passed them.
	IgnorePumpSuffix bool
}

// pumpSuffix is the vanity mint suffix of pump.fun launches.
const pumpSuffix = "pump"

// Controller owns the subscription lifecycle and runs the pipeline stages
// sequentially for one event at a time. While an event is being handled the
// connection is closed, so a second event cannot arrive; the stream resumes
// on a fresh connection once the event is done, whatever its outcome.
type Controller struct {
	cfg      ControllerConfig
	resolver PoolResolver
	gate     RiskChecker
	swapper  BuySwapper
	executor Executor
	recorder PositionRecorder
	logger   *log.Logger

	// dial is swappable for tests; defaults to solana.DialLogs.
	dial func(ctx context.Context) (*solana.WSConn, error)

	mu    sync.Mutex
	state State
}

// NewController builds a pipeline controller.
func NewController(cfg ControllerConfig, resolver PoolResolver, gate RiskChecker, swapper BuySwapper, executor Executor, recorder PositionRecorder, logger *log.Logger) *Controller {
	c := &Controller{
		cfg:      cfg,
		resolver: resolver,
		gate:     gate,
		swapper:  swapper,
		executor: executor,
		recorder: recorder,
		logger:   logger,
		state:    StateIdle,
	}
	c.dial = func(ctx context.Context) (*solana.WSConn, error) {
		return solana.DialLogs(ctx, cfg.WebsocketURL, nil)
	}
	return c
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()

	if !CanTransition(from, to) {
		c.logger.Printf("ERROR: illegal state transition %s -> %s", from, to)
		return
	}
	c.logger.Printf("state: %s -> %s", from, to)
}

// Run drives the connect/listen/handle loop until the context is canceled.
// No stage failure stops the loop; transport failures schedule a delayed
// reconnect, handled events reconnect immediately.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			c.logger.Printf("connect failed: %v", err)
			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		if err := conn.SubscribeLogs(ctx, c.cfg.ProgramID, c.cfg.Commitment); err != nil {
			c.logger.Printf("subscribe failed: %v", err)
			conn.Close()
			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		c.setState(StateListening)
		c.logger.Printf("listening for pools of program %s (%s)", c.cfg.ProgramID, c.cfg.Commitment)

		handled, err := c.listen(ctx, conn)
		if err != nil {
			conn.Close()
			return err
		}
		if !handled {
			// Transport dropped on its own; back off before redialing.
			observability.RecordReconnect()
			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
		}
	}
}

// listen consumes the stream until an event is matched and handled or the
// transport drops. Returns whether an event was handled.
func (c *Controller) listen(ctx context.Context, conn *solana.WSConn) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case raw, ok := <-conn.Messages():
			if !ok {
				return false, nil
			}
			observability.RecordNotification()

			event := ParseNotification(raw)
			if event == nil {
				continue
			}
			observability.RecordEventMatched(time.Now().Unix())
			c.logger.Printf("pool event matched: %s", event.Signature)

			// Close the connection before touching the event: with the
			// socket down, a second event cannot arrive mid-pipeline.
			c.setState(StateHandlingEvent)
			conn.Close()

			c.handleEvent(ctx, event)
			return true, nil
		}
	}
}

// waitReconnect sits out the reconnect delay.
func (c *Controller) waitReconnect(ctx context.Context) error {
	c.setState(StateReconnecting)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.cfg.ReconnectDelay):
		return nil
	}
}

// handleEvent runs resolve → risk check → buy → record for one event. Every
// failure is terminal for the event only; the caller reconnects afterwards
// regardless of the outcome.
func (c *Controller) handleEvent(ctx context.Context, event *PoolEvent) {
	c.setState(StateResolving)
	start := time.Now()
	mints, err := c.resolver.Resolve(ctx, event.Signature)
	if err != nil {
		observability.RecordStage("resolve", "error", time.Since(start).Seconds())
		if errors.Is(err, ErrNotLiquidityEvent) {
			c.logger.Printf("skipping %s: %v", event.Signature, err)
			observability.RecordPipelineRun("not_liquidity")
		} else {
			c.logger.Printf("resolution of %s failed: %v", event.Signature, err)
			observability.RecordPipelineRun("resolve_failed")
		}
		c.finishEvent()
		return
	}
	observability.RecordStage("resolve", "ok", time.Since(start).Seconds())

	c.setState(StateRiskChecking)
	start = time.Now()
	if !c.gate.Check(ctx, mints.BaseMint) {
		observability.RecordStage("risk_check", "rejected", time.Since(start).Seconds())
		observability.RecordPipelineRun("risk_rejected")
		c.logger.Printf("risk gate rejected %s", mints.BaseMint)
		c.finishEvent()
		return
	}
	observability.RecordStage("risk_check", "ok", time.Since(start).Seconds())

	if c.cfg.IgnorePumpSuffix && strings.HasSuffix(strings.ToLower(mints.BaseMint), pumpSuffix) {
		c.logger.Printf("skipping launchpad token %s", mints.BaseMint)
		observability.RecordPipelineRun("pump_skipped")
		c.finishEvent()
		return
	}

	c.setState(StateSwapping)
	start = time.Now()
	payload, err := c.swapper.Buy(ctx, mints.QuoteMint, mints.BaseMint)
	if err != nil {
		observability.RecordStage("swap", "error", time.Since(start).Seconds())
		observability.RecordPipelineRun("swap_failed")
		c.logger.Printf("buy of %s failed: %v", mints.BaseMint, err)
		c.finishEvent()
		return
	}
	signature, err := c.executor.Execute(ctx, payload)
	if err != nil {
		observability.RecordStage("swap", "error", time.Since(start).Seconds())
		observability.RecordPipelineRun("swap_failed")
		c.logger.Printf("buy execution for %s failed: %v", mints.BaseMint, err)
		c.finishEvent()
		return
	}
	observability.RecordStage("swap", "ok", time.Since(start).Seconds())
	observability.RecordBuyConfirmed()
	c.logger.Printf("bought %s: %s", mints.BaseMint, signature)

	c.setState(StateRecording)
	start = time.Now()
	if err := c.recorder.Record(ctx, signature); err != nil {
		// The trade already succeeded; an unrecorded position is a known
		// inconsistency the operator has to reconcile by hand.
		observability.RecordStage("record", "error", time.Since(start).Seconds())
		observability.RecordPipelineRun("record_failed")
		c.logger.Printf("WARNING: bought %s (sig %s) but recording failed: %v", mints.BaseMint, signature, err)
		c.finishEvent()
		return
	}
	observability.RecordStage("record", "ok", time.Since(start).Seconds())
	observability.RecordPipelineRun("completed")
	c.finishEvent()
}

func (c *Controller) finishEvent() {
	c.setState(StateReconnecting)
}
