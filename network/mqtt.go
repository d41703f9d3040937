package network

import (
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttConnectAttempts = 3
	mqttConnectTimeout  = 10 * time.Second
)

// NewMQTTClient builds a paho client from config. Environment variables
// MQTT_BROKER, MQTT_CLIENT_ID, MQTT_USERNAME and MQTT_PASSWORD take
// precedence over the file. With no broker configured MQTT is disabled and
// the returned client is nil.
func NewMQTTClient(cfg MQTTConfig) mqtt.Client {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = cfg.Broker
	}
	if broker == "" {
		log.Println("MQTT disabled: no broker configured")
		return nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = cfg.ClientID
	}
	if clientID == "" {
		clientID = "blueways"
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" {
		username = cfg.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" {
			password = cfg.Password
		}
		opts.SetPassword(password)
	}

	// A run is short-lived: connect once, publish, disconnect.
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetCleanSession(true)

	return mqtt.NewClient(opts)
}

// ConnectWithRetry connects client, doubling the delay between attempts.
func ConnectWithRetry(client mqtt.Client, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			log.Printf("Retrying MQTT connection in %v...", delay)
			time.Sleep(delay)
			delay *= 2
		}

		log.Println("Connecting to MQTT broker...")
		token := client.Connect()
		if !token.WaitTimeout(mqttConnectTimeout) {
			lastErr = fmt.Errorf("connection timeout")
			log.Println("MQTT connection timeout")
			continue
		}
		if err := token.Error(); err != nil {
			lastErr = err
			log.Printf("MQTT connection failed: %v", err)
			continue
		}

		log.Println("Successfully connected to MQTT broker")
		return nil
	}
	return fmt.Errorf("connecting to MQTT broker: %w", lastErr)
}

// ConnectPublisher creates, connects and wraps an MQTT client. It returns
// nil when MQTT is not configured.
func ConnectPublisher(cfg MQTTConfig) (*Publisher, error) {
	client := NewMQTTClient(cfg)
	if client == nil {
		return nil, nil
	}
	if err := ConnectWithRetry(client, mqttConnectAttempts, time.Second); err != nil {
		return nil, err
	}
	return NewPublisher(client, cfg.PublishPrefix), nil
}

// Close disconnects the publisher's client.
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		log.Println("Disconnecting from MQTT broker...")
		p.client.Disconnect(250) // 250ms quiesce time
	}
}
