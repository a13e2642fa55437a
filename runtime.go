package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// RuntimeConfig configures a Runtime. Zero fields select defaults. All
// capacities are fixed at construction; nothing grows afterwards.
type RuntimeConfig struct {
	// MaxTopics bounds the subscription registry. Default 8.
	MaxTopics int
	// OutboxDepth is the queued publish channel capacity. Default 8.
	OutboxDepth int
	// BufferedCapacity is the number of buffered outbox slots. Default 8.
	BufferedCapacity int
	// PayloadSize bounds each buffered outbox payload. Default 256.
	PayloadSize int
	// SubscribeQoS is the QoS requested for every registered topic.
	SubscribeQoS QoSLevel
	// Logger receives runtime diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Runtime drives a set of modules over one client session from a single
// goroutine. It subscribes to the topics the modules register, dispatches
// every inbound PUBLISH to every module in order, ticks each module on its
// own cadence and flushes the publish outboxes between passes. Module
// callbacks run on the runtime goroutine; the queued outbox channel is the
// only structure other goroutines may touch.
type Runtime struct {
	client       *Client
	modules      Modules
	registry     *TopicRegistry
	queued       *PublisherHandle
	buffered     *BufferedOutbox
	due          []time.Time
	subscribeQoS QoSLevel
	log          *slog.Logger
}

// NewRuntime assembles a runtime over an already constructed client. The
// client's transport must be connected; Run performs the MQTT handshake.
func NewRuntime(client *Client, modules Modules, cfg RuntimeConfig) *Runtime {
	if cfg.MaxTopics == 0 {
		cfg.MaxTopics = 8
	}
	if cfg.OutboxDepth == 0 {
		cfg.OutboxDepth = 8
	}
	if cfg.BufferedCapacity == 0 {
		cfg.BufferedCapacity = 8
	}
	if cfg.PayloadSize == 0 {
		cfg.PayloadSize = 256
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runtime{
		client:       client,
		modules:      modules,
		registry:     NewTopicRegistry(cfg.MaxTopics),
		queued:       NewPublisherHandle(cfg.OutboxDepth),
		buffered:     NewBufferedOutbox(cfg.BufferedCapacity, cfg.PayloadSize),
		due:          make([]time.Time, len(modules)),
		subscribeQoS: cfg.SubscribeQoS,
		log:          log,
	}
}

// Handle returns the queued outbox for use by goroutines outside the event
// loop. Requests are drained every loop iteration.
func (r *Runtime) Handle() *PublisherHandle { return r.queued }

// Run connects the session, registers and starts the modules and then loops
// until ctx is done or a fatal session error occurs. It returns nil on a
// context-initiated shutdown after a best-effort DISCONNECT.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.start(); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			r.log.Debug("runtime stopping", "reason", err)
			return r.client.Disconnect()
		}
		if err := r.step(time.Now()); err != nil {
			return err
		}
	}
}

// start performs the session handshake and the register → subscribe →
// OnStart → initial tick sequence. The initial forced tick pass runs every
// module once so the runtime learns each module's cadence.
func (r *Runtime) start() error {
	if err := r.client.Connect(); err != nil {
		return err
	}
	for _, m := range r.modules {
		m.Register(r.registry)
	}
	if r.registry.Len() > 0 {
		filters := make([]TopicFilter, r.registry.Len())
		for i := range filters {
			filters[i] = TopicFilter{Topic: r.registry.Topic(i), QoS: r.subscribeQoS}
		}
		if err := r.client.Subscribe(filters); err != nil {
			return err
		}
		r.log.Debug("subscribed", "topics", r.registry.Len())
	}
	r.client.OnPublish = r.dispatch
	for _, m := range r.modules {
		m.OnStart(r.buffered)
	}
	if err := r.drainBuffered(); err != nil {
		return err
	}
	if err := r.tickPass(time.Now(), true); err != nil {
		return err
	}
	return r.flushImmediate()
}

// step runs one iteration of the event loop: wait for a packet no longer
// than the nearest deadline, dispatch it, run due ticks and flush the
// outboxes. The immediate-publish flags are checked on entry and after the
// drains, not just after direct dispatch: a message can also arrive through
// the interleaved path while the client awaits an acknowledgement, and that
// dispatch must produce its tick pass in the same processing cycle rather
// than wait out the next receive.
func (r *Runtime) step(now time.Time) error {
	if err := r.flushImmediate(); err != nil {
		return err
	}
	if r.client.KeepAliveDue(now) {
		if err := r.client.Ping(); err != nil {
			return err
		}
	}
	pkt, err := r.client.ReadPacket(r.waitBound(now))
	switch {
	case err == nil:
		if pub, ok := pkt.(*Publish); ok {
			r.dispatch(pub)
		}
	case errors.Is(err, ErrTimeout):
		// Deadline pulse: nothing arrived, fall through to the tick check.
	case isFatal(err):
		return err
	default:
		// Codec error: drop the packet, keep the session.
		r.log.Warn("dropping inbound packet", "err", err)
	}
	if err := r.tickDue(time.Now()); err != nil {
		return err
	}
	if err := r.drainQueued(); err != nil {
		return err
	}
	return r.flushImmediate()
}

// flushImmediate runs a forced tick pass and drain when any module has
// raised its immediate-publish flag, regardless of how the triggering
// dispatch reached the module.
func (r *Runtime) flushImmediate() error {
	if !r.immediateWanted() {
		return nil
	}
	return r.tickPass(time.Now(), true)
}

// waitBound returns how long the next receive may block: until the nearest
// module tick deadline or keep-alive due time, whichever is closer, with a
// small floor so a past-due deadline still lets the transport poll.
func (r *Runtime) waitBound(now time.Time) time.Duration {
	const floor = 5 * time.Millisecond
	wait := DefaultTickInterval
	for _, t := range r.due {
		if d := t.Sub(now); d < wait {
			wait = d
		}
	}
	if ka := r.client.cfg.KeepAlive; ka > 0 {
		kaAt := r.client.lastTx.Add(time.Duration(ka) * time.Second)
		if d := kaAt.Sub(now); d < wait {
			wait = d
		}
	}
	if wait < floor {
		wait = floor
	}
	return wait
}

// dispatch hands one inbound message to every module in composition order.
// There is no per-module topic filtering; modules select their topics.
func (r *Runtime) dispatch(pub *Publish) {
	r.log.Debug("inbound publish", "topic", string(pub.Topic), "len", len(pub.Payload))
	for _, m := range r.modules {
		m.OnMessage(pub)
	}
}

func (r *Runtime) immediateWanted() bool {
	for _, m := range r.modules {
		if m.NeedsImmediatePublish() {
			return true
		}
	}
	return false
}

// tickDue ticks exactly the modules whose deadline has passed.
func (r *Runtime) tickDue(now time.Time) error {
	return r.tickPass(now, false)
}

// tickPass runs OnTick on due modules (or all of them when forced), records
// each module's next deadline and flushes the buffered outbox. A forced pass
// still resets deadlines, matching the contract that OnTick returns the
// interval to the next tick.
func (r *Runtime) tickPass(now time.Time, force bool) error {
	ticked := false
	for i, m := range r.modules {
		if !force && now.Before(r.due[i]) {
			continue
		}
		interval := m.OnTick(r.buffered)
		if interval <= 0 {
			interval = DefaultTickInterval
		}
		r.due[i] = now.Add(interval)
		ticked = true
	}
	if !ticked {
		return nil
	}
	return r.drainBuffered()
}

// drainBuffered publishes and clears the buffered outbox in insertion order.
func (r *Runtime) drainBuffered() error {
	for i := 0; i < r.buffered.Len(); i++ {
		err := r.client.Publish(string(r.buffered.Topic(i)), r.buffered.Payload(i), r.buffered.QoS(i))
		if err != nil {
			if isFatal(err) {
				return err
			}
			r.log.Warn("buffered publish failed", "topic", string(r.buffered.Topic(i)), "err", err)
		}
	}
	r.buffered.Clear()
	return nil
}

// drainQueued forwards everything currently queued on the channel outbox
// without blocking.
func (r *Runtime) drainQueued() error {
	for {
		select {
		case req := <-r.queued.requests():
			if err := r.client.Publish(req.Topic, req.Payload, req.QoS); err != nil {
				if isFatal(err) {
					return err
				}
				r.log.Warn("queued publish failed", "topic", req.Topic, "err", err)
			}
		default:
			return nil
		}
	}
}
