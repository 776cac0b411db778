package events

import (
	"context"
	"testing"

	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
)

func TestNewPublisherFallsBackWhenDisabled(t *testing.T) {
	pub := NewPublisher(config.KafkaConfig{Enabled: false, Brokers: []string{"127.0.0.1:9092"}})
	if _, ok := pub.(LogPublisher); !ok {
		t.Fatalf("disabled kafka should use LogPublisher, got %T", pub)
	}
	if err := pub.Publish(context.Background(), OrderEvent{Type: "order.created"}); err != nil {
		t.Fatalf("log publisher should not fail: %v", err)
	}
}

func TestNewPublisherBuildsKafkaWriter(t *testing.T) {
	pub := NewPublisher(config.KafkaConfig{Enabled: true, Brokers: []string{"127.0.0.1:9092"}, Topic: "orders", PublishTimeoutMS: 250})
	kp, ok := pub.(*KafkaPublisher)
	if !ok {
		t.Fatalf("expected KafkaPublisher, got %T", pub)
	}
	if kp.writer.Topic != "orders" {
		t.Fatalf("unexpected topic %s", kp.writer.Topic)
	}
	if kp.timeout.Milliseconds() != 250 {
		t.Fatalf("unexpected timeout %v", kp.timeout)
	}
	_ = pub.Close()
}
