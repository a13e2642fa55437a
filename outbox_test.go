package mqtt

import (
	"strings"
	"testing"
)

func TestBufferedOutboxOrderAndDrop(t *testing.T) {
	o := NewBufferedOutbox(2, 16)
	if !o.Publish("a", []byte("1"), QoS0) || !o.Publish("b", []byte("2"), QoS1) {
		t.Fatal("outbox refused requests within capacity")
	}
	// Third request is dropped silently; only the return value reports it.
	if o.Publish("c", []byte("3"), QoS0) {
		t.Error("outbox accepted a request past capacity")
	}
	if o.Len() != 2 {
		t.Fatalf("Len = %d, want 2", o.Len())
	}
	if string(o.Topic(0)) != "a" || string(o.Payload(0)) != "1" || o.QoS(0) != QoS0 {
		t.Errorf("slot 0: %q %q %v", o.Topic(0), o.Payload(0), o.QoS(0))
	}
	if string(o.Topic(1)) != "b" || string(o.Payload(1)) != "2" || o.QoS(1) != QoS1 {
		t.Errorf("slot 1: %q %q %v", o.Topic(1), o.Payload(1), o.QoS(1))
	}
}

func TestBufferedOutboxSizeLimits(t *testing.T) {
	o := NewBufferedOutbox(4, 4)
	if o.Publish("t", []byte("12345"), QoS0) {
		t.Error("outbox accepted a payload over the slot capacity")
	}
	if o.Publish(strings.Repeat("x", MaxTopicLen+1), nil, QoS0) {
		t.Error("outbox accepted an over-length topic")
	}
	if o.Publish("", nil, QoS0) {
		t.Error("outbox accepted an empty topic")
	}
	if !o.Publish("t", []byte("1234"), QoS0) {
		t.Error("outbox refused a payload of exactly the slot capacity")
	}
	if o.Len() != 1 {
		t.Errorf("Len = %d after rejections, want 1", o.Len())
	}
}

func TestBufferedOutboxClearReusesSlots(t *testing.T) {
	o := NewBufferedOutbox(1, 8)
	o.Publish("first", []byte("aaaa"), QoS0)
	o.Clear()
	if o.Len() != 0 {
		t.Fatalf("Len = %d after Clear", o.Len())
	}
	if !o.Publish("second", []byte("bb"), QoS1) {
		t.Fatal("outbox refused a request after Clear")
	}
	if string(o.Topic(0)) != "second" || string(o.Payload(0)) != "bb" {
		t.Errorf("slot 0 after reuse: %q %q", o.Topic(0), o.Payload(0))
	}
}

func TestBufferedOutboxCopiesPayload(t *testing.T) {
	o := NewBufferedOutbox(1, 8)
	payload := []byte("data")
	o.Publish("t", payload, QoS0)
	payload[0] = 'X'
	if string(o.Payload(0)) != "data" {
		t.Errorf("outbox aliased caller payload: %q", o.Payload(0))
	}
}

func TestPublisherHandle(t *testing.T) {
	h := NewPublisherHandle(1)
	if !h.TryPublish("t", []byte("1"), QoS0) {
		t.Fatal("TryPublish failed with room in the queue")
	}
	if h.TryPublish("t", []byte("2"), QoS0) {
		t.Error("TryPublish succeeded on a full queue")
	}
	req := <-h.requests()
	if req.Topic != "t" || string(req.Payload) != "1" || req.QoS != QoS0 {
		t.Errorf("drained %+v", req)
	}
	// Publish blocks instead of failing; with room it completes at once.
	if !h.Publish("t", []byte("3"), QoS1) {
		t.Error("Publish reported failure")
	}
	if req := <-h.requests(); string(req.Payload) != "3" || req.QoS != QoS1 {
		t.Errorf("drained %+v", req)
	}
}

func TestPublisherHandleCopiesPayload(t *testing.T) {
	h := NewPublisherHandle(1)
	payload := []byte("data")
	h.TryPublish("t", payload, QoS0)
	payload[0] = 'X'
	if req := <-h.requests(); string(req.Payload) != "data" {
		t.Errorf("handle aliased caller payload: %q", req.Payload)
	}
}
