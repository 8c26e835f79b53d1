// Package discovery implements Home Assistant MQTT device discovery for zones.
//
// See https://www.home-assistant.io/integrations/mqtt/#device-discovery-payload
package discovery

import (
	"context"
	"encoding/json"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lone-faerie/cfstats/config"
	"github.com/lone-faerie/cfstats/log"
)

const (
	Button = "button"
	Sensor = "sensor"
)

const (
	Diagnostic = "diagnostic"
)

// Component is a single entity of the discovery payload, keyed by its
// abbreviated options.
type Component map[Option]any

// Discoverer is implemented by metrics that provide components.
type Discoverer interface {
	Discover(*Discovery)
}

// Discovery is the device discovery payload of a single zone.
type Discovery struct {
	Origin     *Origin              `json:"o"`
	Device     *Device              `json:"dev"`
	Components map[string]Component `json:"cmps"`

	cfg *config.DiscoveryConfig

	AvailabilityTopic string `json:"-"`
	ObjectID          string `json:"-"`
	NodeID            string `json:"-"`
}

// New returns the discovery payload for zone, with the components of each
// of cmps.
func New(cfg *config.DiscoveryConfig, zone *config.ZoneConfig, cmps ...Discoverer) *Discovery {
	d := &Discovery{
		Origin:            NewOrigin(),
		Device:            NewDevice(zone),
		Components:        make(map[string]Component),
		cfg:               cfg,
		AvailabilityTopic: cfg.Availability,
		ObjectID:          zone.ID,
		NodeID:            cfg.NodeID,
	}
	if d.NodeID == "" {
		d.NodeID = "cfstats"
	}
	for i := range cmps {
		cmps[i].Discover(d)
	}
	return d
}

// Topic returns the discovery topic of d in the form
// <prefix>/device/<node_id>/<zone_id>/config.
func (d *Discovery) Topic() string {
	elems := []string{d.cfg.Prefix, "device", d.NodeID, d.ObjectID, "config"}
	return strings.Join(elems, "/")
}

// waitToken waits for the first of ctx.Done() or t.Done() and returns t.Error(), or nil if
// ctx.Done() finished first.
func waitToken(ctx context.Context, t mqtt.Token) error {
	select {
	case <-ctx.Done():
		return nil
	case <-t.Done():
	}
	return t.Error()
}

// Publish publishes the discovery payload of d.
func (d *Discovery) Publish(ctx context.Context, c mqtt.Client) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	topic := d.Topic()
	log.Debug("Publishing discovery", "topic", topic, "components", len(d.Components))
	return waitToken(ctx, c.Publish(topic, d.cfg.QoS, d.cfg.Retained, payload))
}

// Remove publishes an empty retained payload to the discovery topic of d,
// which removes the device and its entities from Home Assistant.
func (d *Discovery) Remove(ctx context.Context, c mqtt.Client) error {
	return waitToken(ctx, c.Publish(d.Topic(), d.cfg.QoS, true, []byte{}))
}

// SubscribeFunc subscribes to the birth topic of Home Assistant and calls f
// in a new goroutine each time Home Assistant comes online.
func SubscribeFunc(ctx context.Context, c mqtt.Client, cfg *config.DiscoveryConfig, f func(context.Context)) error {
	t := c.Subscribe(cfg.StatusTopic(), 0, func(_ mqtt.Client, msg mqtt.Message) {
		if string(msg.Payload()) != "online" {
			return
		}
		log.Debug("Home Assistant online", "topic", msg.Topic())
		go f(ctx)
	})
	return waitToken(ctx, t)
}
