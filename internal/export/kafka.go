package export

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/getsentry/callprof/internal/calltree"
)

type (
	MessageWriter interface {
		WriteMessages(ctx context.Context, msgs ...kafka.Message) error
		Close() error
	}

	// CallTreeMessage is the payload published for every finished session.
	CallTreeMessage struct {
		CallTree   *calltree.Node `json:"call_tree"`
		DurationNS uint64         `json:"duration_ns"`
		Name       string         `json:"name"`
		NodeCount  int            `json:"node_count"`
		SessionID  string         `json:"session_id"`
		StartNS    uint64         `json:"start_ns"`
	}

	KafkaPublisher struct {
		writer MessageWriter
	}
)

// NewKafkaWriter returns an asynchronous writer to topic. Messages are
// balanced on their key so all trees of a session land on one partition.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Async:        true,
		Balancer:     kafka.CRC32Balancer{},
		BatchSize:    10,
		Compression:  kafka.Lz4,
		ReadTimeout:  3 * time.Second,
		Topic:        topic,
		WriteTimeout: 3 * time.Second,
	}
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish sends root, keyed by sessionID. Nil trees are skipped.
func (p *KafkaPublisher) Publish(ctx context.Context, sessionID string, root *calltree.Node) error {
	if root == nil {
		return nil
	}
	b, err := json.Marshal(CallTreeMessage{
		CallTree:   root,
		DurationNS: root.DurationNS,
		Name:       root.Signature(),
		NodeCount:  root.Count(),
		SessionID:  sessionID,
		StartNS:    root.StartNS,
	})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(sessionID),
		Value: b,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
