package publisher

import (
	"context"
	"testing"

	"saasgate/backend/internal/activity/domain"
)

func TestNewKafkaPublisher_Disabled(t *testing.T) {
	if p := NewKafkaPublisher(nil, "topic"); p != nil {
		t.Error("no brokers should disable the publisher")
	}
	if p := NewKafkaPublisher([]string{"localhost:9092"}, ""); p != nil {
		t.Error("empty topic should disable the publisher")
	}
}

func TestKafkaPublisher_NilSafe(t *testing.T) {
	var p *KafkaPublisher
	if err := p.Publish(context.Background(), &domain.Entry{ID: "e1"}); err != nil {
		t.Errorf("nil Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestNewConsumer_RequiresConfig(t *testing.T) {
	if _, err := NewConsumer(nil, "topic", "group"); err == nil {
		t.Error("missing brokers should fail")
	}
	if _, err := NewConsumer([]string{"localhost:9092"}, "topic", ""); err == nil {
		t.Error("missing group should fail")
	}
}
