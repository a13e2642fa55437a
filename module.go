package mqtt

import "time"

// DefaultTickInterval is used when a module's OnTick returns a
// non-positive interval.
const DefaultTickInterval = 60 * time.Second

// TopicCollector receives the subscription topics a module declares during
// registration. Add reports whether the topic was accepted; a full collector
// refuses further topics.
type TopicCollector interface {
	Add(topic string) bool
}

// Module is a unit of application behavior driven by the runtime. All
// callbacks run on the runtime goroutine and must not block; long work
// belongs on another goroutine publishing through a PublisherHandle.
//
// Embed NoopModule to get default implementations of everything and override
// only the callbacks the module needs.
type Module interface {
	// Register declares the module's subscription topics. Called once,
	// before the connection is used for anything else.
	Register(topics TopicCollector)

	// OnStart runs once after the subscription exchange completes. Requests
	// published to the outbox are flushed before the main loop starts.
	OnStart(out Outbox)

	// OnMessage is called for every inbound PUBLISH, regardless of topic;
	// modules recognize their topics with Publish.TopicIs. The packet and
	// its byte fields are invalid after the callback returns.
	OnMessage(msg *Publish)

	// OnTick runs when the module's tick deadline passes and returns the
	// interval until its next tick. A non-positive interval selects
	// DefaultTickInterval.
	OnTick(out Outbox) time.Duration

	// NeedsImmediatePublish reports whether the module wants a tick pass and
	// outbox drain in the current processing cycle instead of at the next
	// deadline. Checked after every OnMessage dispatch.
	NeedsImmediatePublish() bool
}

// NoopModule provides default implementations for all Module callbacks.
type NoopModule struct{}

func (NoopModule) Register(TopicCollector)     {}
func (NoopModule) OnStart(Outbox)              {}
func (NoopModule) OnMessage(*Publish)          {}
func (NoopModule) OnTick(Outbox) time.Duration { return DefaultTickInterval }
func (NoopModule) NeedsImmediatePublish() bool { return false }

// Modules composes an ordered list of modules. The runtime registers,
// starts, and dispatches to them in slice order and tracks a separate tick
// deadline per module, so modules with different cadences coexist without
// ticking each other early.
type Modules []Module
