package mqtt

// PublishRequest is an outbound application message queued for the runtime to
// send. Topic and Payload are owned by the request: handles copy caller data
// before queueing so the caller may reuse its buffers immediately.
type PublishRequest struct {
	Topic   string
	Payload []byte
	QoS     QoSLevel
}

// Outbox accepts publish requests from module callbacks. Publish reports
// whether the request was accepted; a full outbox drops and reports false
// rather than blocking the event loop. Dropping is part of the contract:
// modules are expected to size their traffic within the configured bounds
// and may ignore the result, which exists for tests and diagnostics.
type Outbox interface {
	Publish(topic string, payload []byte, qos QoSLevel) bool
}

// PublisherHandle is the channel-backed outbox given to code running outside
// the event loop goroutine. The runtime drains the channel between ticks.
type PublisherHandle struct {
	ch chan PublishRequest
}

// NewPublisherHandle returns a handle with room for depth queued requests.
func NewPublisherHandle(depth int) *PublisherHandle {
	return &PublisherHandle{ch: make(chan PublishRequest, depth)}
}

// Publish queues a request, blocking while the channel is full. The payload
// is copied. Always reports true; it exists to satisfy Outbox.
func (h *PublisherHandle) Publish(topic string, payload []byte, qos QoSLevel) bool {
	h.ch <- PublishRequest{Topic: topic, Payload: append([]byte(nil), payload...), QoS: qos}
	return true
}

// TryPublish queues a request without blocking and reports whether there was
// room.
func (h *PublisherHandle) TryPublish(topic string, payload []byte, qos QoSLevel) bool {
	select {
	case h.ch <- PublishRequest{Topic: topic, Payload: append([]byte(nil), payload...), QoS: qos}:
		return true
	default:
		return false
	}
}

// requests exposes the drain side to the runtime.
func (h *PublisherHandle) requests() <-chan PublishRequest { return h.ch }

// bufferedRequest backs one BufferedOutbox slot with fixed storage.
type bufferedRequest struct {
	topic    [MaxTopicLen]byte
	topicLen uint8
	payload  []byte // allocated once at construction, length reset per use
	used     int
	qos      QoSLevel
}

// BufferedOutbox collects publish requests into preallocated slots for the
// event loop to drain after each tick pass. All storage is allocated at
// construction; a request that does not fit a slot, or arrives when all
// slots are taken, is dropped silently with only the boolean return as
// evidence. Not safe for concurrent use: it belongs to the loop goroutine.
type BufferedOutbox struct {
	slots []bufferedRequest
	n     int
}

// NewBufferedOutbox returns an outbox with capacity slots, each holding a
// payload of at most payloadCap bytes. Topics are bounded by MaxTopicLen.
func NewBufferedOutbox(capacity, payloadCap int) *BufferedOutbox {
	slots := make([]bufferedRequest, capacity)
	for i := range slots {
		slots[i].payload = make([]byte, payloadCap)
	}
	return &BufferedOutbox{slots: slots}
}

// Publish copies the request into the next free slot. It reports false and
// stores nothing when the outbox is full, the topic exceeds MaxTopicLen or
// the payload exceeds the slot payload capacity.
func (o *BufferedOutbox) Publish(topic string, payload []byte, qos QoSLevel) bool {
	if o.n == len(o.slots) {
		return false
	}
	if len(topic) == 0 || len(topic) > MaxTopicLen {
		return false
	}
	slot := &o.slots[o.n]
	if len(payload) > len(slot.payload) {
		return false
	}
	slot.topicLen = uint8(copy(slot.topic[:], topic))
	slot.used = copy(slot.payload, payload)
	slot.qos = qos
	o.n++
	return true
}

// Len returns the number of queued requests.
func (o *BufferedOutbox) Len() int { return o.n }

// Topic returns the topic of the i-th queued request, aliasing outbox
// storage.
func (o *BufferedOutbox) Topic(i int) []byte { return o.slots[i].topic[:o.slots[i].topicLen] }

// Payload returns the payload of the i-th queued request, aliasing outbox
// storage.
func (o *BufferedOutbox) Payload(i int) []byte { return o.slots[i].payload[:o.slots[i].used] }

// QoS returns the QoS of the i-th queued request.
func (o *BufferedOutbox) QoS(i int) QoSLevel { return o.slots[i].qos }

// Clear forgets all queued requests, retaining slot storage.
func (o *BufferedOutbox) Clear() { o.n = 0 }
