package network

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// SummaryPublisher receives the summary of every run.
type SummaryPublisher interface {
	PublishRun(summary RunSummary) error
}

// Publisher publishes run summaries to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	last          map[string][]byte
	mu            sync.RWMutex
}

// NewPublisher creates a summary publisher. MQTT_PUBLISH_PREFIX overrides
// prefix; both empty means "blueways".
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if env := os.Getenv("MQTT_PUBLISH_PREFIX"); env != "" {
		prefix = env
	}
	if prefix == "" {
		prefix = "blueways"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,    // QoS 0, summaries are informational
		retain:        true, // Retain so late subscribers see the last run
		last:          make(map[string][]byte),
	}
}

// PublishRun publishes each pass summary to its own topic
// ({prefix}/align, {prefix}/trace) and the combined summary to {prefix}/run.
func (p *Publisher) PublishRun(summary RunSummary) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	if summary.Align != nil {
		if err := p.publish("align", summary.Align); err != nil {
			return err
		}
	}
	if summary.Trace != nil {
		if err := p.publish("trace", summary.Trace); err != nil {
			return err
		}
	}
	if summary.Timestamp == 0 {
		summary.Timestamp = time.Now().Unix()
	}
	return p.publish("run", summary)
}

func (p *Publisher) publish(subtopic string, v interface{}) error {
	topic := fmt.Sprintf("%s/%s", p.publishPrefix, subtopic)

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s summary: %w", subtopic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	p.mu.Lock()
	p.last[subtopic] = payload
	p.mu.Unlock()

	log.Printf("Published %s summary to %s", subtopic, topic)
	return nil
}

// LastPublished returns the last payload sent for a subtopic ("align",
// "trace" or "run").
func (p *Publisher) LastPublished(subtopic string) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	payload, ok := p.last[subtopic]
	return payload, ok
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
