package mqtt

// ownedTopic stores a topic in a fixed array so the registry performs no
// allocation after construction.
type ownedTopic struct {
	buf [MaxTopicLen]byte
	len uint8
}

// TopicRegistry is a fixed-capacity set of subscription topics. Modules
// declare their topics into it during runtime startup and the runtime
// subscribes to the collected set in one SUBSCRIBE exchange. Capacity is
// fixed at construction; adding past it reports failure instead of growing.
type TopicRegistry struct {
	topics []ownedTopic
}

// NewTopicRegistry returns a registry holding at most maxTopics topics.
func NewTopicRegistry(maxTopics int) *TopicRegistry {
	return &TopicRegistry{topics: make([]ownedTopic, 0, maxTopics)}
}

// Add copies topic into the registry and reports whether it was stored. It
// fails when the registry is full or the topic is empty or longer than
// MaxTopicLen. Duplicates are stored as given; the broker treats a repeated
// subscription as idempotent.
func (r *TopicRegistry) Add(topic string) bool {
	if len(topic) == 0 || len(topic) > MaxTopicLen {
		return false
	}
	if len(r.topics) == cap(r.topics) {
		return false
	}
	var ot ownedTopic
	ot.len = uint8(copy(ot.buf[:], topic))
	r.topics = append(r.topics, ot)
	return true
}

// Len returns the number of stored topics.
func (r *TopicRegistry) Len() int { return len(r.topics) }

// Cap returns the registry capacity.
func (r *TopicRegistry) Cap() int { return cap(r.topics) }

// Topic returns the i-th stored topic. The returned slice aliases registry
// storage and is invalidated by Clear.
func (r *TopicRegistry) Topic(i int) []byte {
	return r.topics[i].buf[:r.topics[i].len]
}

// Clear empties the registry, retaining its capacity.
func (r *TopicRegistry) Clear() { r.topics = r.topics[:0] }
