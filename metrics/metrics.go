// Package metrics provides the zone analytics metrics published by the bridge.
package metrics

import (
	"context"
	"encoding"
	"encoding/json"
	"time"

	"github.com/lone-faerie/cfstats/config"
	"github.com/lone-faerie/cfstats/log"
)

// Metric is the interface for providing a metric over MQTT.
type Metric interface {
	// Type returns a constant string representing the type of the metric.
	Type() string
	// Topic returns the topic the metric will be published to.
	Topic() string
	// SetInterval sets the update interval of the metric.
	SetInterval(time.Duration)
	// Start starts listening for updates of the metric. This may only be called once
	// per metric. Any calls to Start after stopping the metric will do nothing.
	Start(context.Context) error
	// Update forces the metric to update regardless of the update interval.
	// If an update is already in progress, Update waits for it to finish first.
	Update(context.Context) error
	// Updated returns the channel the result of each update is sent on. A nil
	// value indicates a successful update. If a result is not received before
	// the next update, it is replaced by the result of that update.
	Updated() <-chan error
	// Stop stops the metric from listening to updates and cancels any update in
	// progress. The metric may not be restarted after stopping.
	Stop()

	String() string
	encoding.TextAppender
	json.Marshaler
}

// New returns a slice of a [Zone] for each zone in the given config. If any
// zone returns an error, it is logged and will not be in the slice.
func New(cfg *config.Config, opts ...ZoneOption) []Metric {
	m := make([]Metric, 0, len(cfg.Zones))
	for i := range cfg.Zones {
		z, err := NewZone(&cfg.Zones[i], cfg, opts...)
		if err != nil {
			log.Error("Couldn't initialize zone", err, "zone", cfg.Zones[i].ID)
			continue
		}
		m = append(m, z)
	}
	return m
}

// SetInterval sets the update interval of the given metrics.
func SetInterval(d time.Duration, m ...Metric) {
	for _, mm := range m {
		mm.SetInterval(d)
	}
}

// Start starts listening for updates of the given metrics. The returned
// error is the first error encountered, or nil if there were no errors.
func Start(ctx context.Context, m ...Metric) error {
	var e, err error
	for _, mm := range m {
		if e = mm.Start(ctx); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// Stop stops the given metrics from listening to updates. The metrics may
// not be restarted after stopping.
func Stop(m ...Metric) {
	for _, mm := range m {
		mm.Stop()
	}
}
