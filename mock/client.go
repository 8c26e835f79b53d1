// Package mock provides an in-memory [mqtt.Client] for running the bridge
// without a broker.
package mock

import (
	"encoding/json"
	"io"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lone-faerie/cfstats/log"
)

// Message is a message published to a [Client].
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// Client implements [mqtt.Client] by recording each published message and
// holding the handlers of each subscription until a message is delivered
// with [Client.Deliver]. If the writer of the client is non-nil, every
// published message is also written to it as JSON.
type Client struct {
	connected bool
	opts      *mqtt.ClientOptions
	w         io.Writer

	mu        sync.Mutex
	published []Message
	handlers  map[string]mqtt.MessageHandler
}

// NewClient returns a new Client with the given options, writing published
// messages to w. w may be nil.
func NewClient(o *mqtt.ClientOptions, w io.Writer) *Client {
	if o == nil {
		o = mqtt.NewClientOptions()
	}
	return &Client{
		opts:     o,
		w:        w,
		handlers: make(map[string]mqtt.MessageHandler),
	}
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) IsConnectionOpen() bool {
	return c.IsConnected()
}

func (c *Client) Connect() mqtt.Token {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	if c.opts.OnConnect != nil {
		c.opts.OnConnect(c)
	}
	return &mqtt.DummyToken{}
}

func (c *Client) Disconnect(_ uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	var p []byte
	switch v := payload.(type) {
	case []byte:
		p = append([]byte(nil), v...)
	case string:
		p = []byte(v)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, Message{topic, qos, retained, p})

	if c.w == nil {
		return &mqtt.DummyToken{}
	}
	raw := json.RawMessage(p)
	if !json.Valid(p) {
		raw, _ = json.Marshal(string(p))
	}
	e := json.NewEncoder(c.w)
	e.SetIndent("", "  ")
	if err := e.Encode(map[string]json.RawMessage{topic: raw}); err != nil {
		log.Error("Error encoding "+topic, err)
	}
	if s, ok := c.w.(interface{ Sync() error }); ok {
		s.Sync()
	}
	return &mqtt.DummyToken{}
}

func (c *Client) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = callback
	return &mqtt.DummyToken{}
}

func (c *Client) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic := range filters {
		c.handlers[topic] = callback
	}
	return &mqtt.DummyToken{}
}

func (c *Client) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		delete(c.handlers, topic)
	}
	return &mqtt.DummyToken{}
}

func (c *Client) AddRoute(topic string, callback mqtt.MessageHandler) {
	c.Subscribe(topic, 0, callback)
}

func (c *Client) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.NewOptionsReader(c.opts)
}

// Deliver calls the handler subscribed to topic with payload. It reports
// whether there was a subscription for topic.
func (c *Client) Deliver(topic string, payload []byte) bool {
	c.mu.Lock()
	h, ok := c.handlers[topic]
	c.mu.Unlock()
	if !ok {
		return false
	}
	h(c, &message{topic: topic, payload: payload})
	return true
}

// Subscribed reports whether there is a subscription for topic.
func (c *Client) Subscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handlers[topic]
	return ok
}

// Messages returns every message published to c, oldest first.
func (c *Client) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.published...)
}

// Published returns the payloads published to topic, oldest first.
func (c *Client) Published(topic string) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var p [][]byte
	for _, m := range c.published {
		if m.Topic == topic {
			p = append(p, m.Payload)
		}
	}
	return p
}

// Last returns the most recent payload published to topic.
func (c *Client) Last(topic string) ([]byte, bool) {
	p := c.Published(topic)
	if len(p) == 0 {
		return nil, false
	}
	return p[len(p)-1], true
}

// Topics returns the topics with a published message whose topic has the
// given prefix.
func (c *Client) Topics(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]bool)
	var topics []string
	for _, m := range c.published {
		if strings.HasPrefix(m.Topic, prefix) && !seen[m.Topic] {
			seen[m.Topic] = true
			topics = append(topics, m.Topic)
		}
	}
	return topics
}

type message struct {
	topic   string
	payload []byte
}

func (m *message) Duplicate() bool   { return false }
func (m *message) Qos() byte         { return 0 }
func (m *message) Retained() bool    { return false }
func (m *message) MessageID() uint16 { return 0 }
func (m *message) Ack()              {}

func (m *message) Topic() string {
	return m.topic
}

func (m *message) Payload() []byte {
	return m.payload
}
