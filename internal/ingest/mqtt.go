package ingest

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client wraps a paho MQTT client. Reports are published with QoS 0 and the
// retain flag so new subscribers see the latest statistics immediately.
type Client struct {
	client mqtt.Client
}

// Connect connects to the broker and keeps reconnecting on connection loss.
func Connect(broker, clientID string) (*Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("ingest: connection to %s lost: %v", broker, err)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", broker, token.Error())
	}
	log.Printf("ingest: connected to MQTT broker at %s", broker)

	return &Client{client: client}, nil
}

// Publish sends a retained payload to topic.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 0, true, payload)
	token.Wait()
	return token.Error()
}

// Subscribe delivers every payload received on topic to handler.
func (c *Client) Subscribe(topic string, handler func(payload []byte)) error {
	token := c.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(250)
}
