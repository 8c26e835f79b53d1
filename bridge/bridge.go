// Package bridge publishes the sensor states of each zone to the MQTT broker.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"

	"github.com/lone-faerie/cfstats/config"
	"github.com/lone-faerie/cfstats/discovery"
	"github.com/lone-faerie/cfstats/log"
	"github.com/lone-faerie/cfstats/metrics"
	"github.com/lone-faerie/cfstats/sensor"
)

// Bridge is the mqtt client that bridges zone metrics to the mqtt broker.
type Bridge struct {
	client mqtt.Client

	baseTopic string
	discovery *config.DiscoveryConfig
	metrics   []metrics.Metric
	states    sync.Map
	sink      sensor.Publisher

	updates chan metrics.Metric

	ready chan struct{}
	done  chan struct{}
	err   error

	mu     sync.Mutex
	wg     sync.WaitGroup
	once   sync.Once
	cancel context.CancelFunc
}

var noopLogger = mqtt.NOOPLogger{}

// ErrNoMetrics is returned by [Bridge.Start] if the bridge has no zones.
var ErrNoMetrics = errors.New("no zones")

// New returns a new Bridge with the given config and options. The config will be used to fill
// in any necessary values not provided by the options. The bridge must have [Bridge.Start]
// called on it before it may be used.
func New(cfg *config.Config, opts ...Option) *Bridge {
	b := &Bridge{}

	for _, opt := range opts {
		opt(b)
	}

	if b.client == nil {
		b.client = mqtt.NewClient(cfg.MQTT.ClientOptions())
	}

	if len(b.metrics) == 0 {
		b.metrics = metrics.New(cfg)
	}

	if b.discovery == nil && cfg.Discovery.Enabled {
		b.discovery = &cfg.Discovery
	}

	if cfg.MQTT.LogLevel < log.LevelDisabled && mqtt.ERROR == noopLogger {
		WithLogLevel(cfg.MQTT.LogLevel)(b)
	}

	if b.baseTopic == "" {
		if cfg.BaseTopic != "" {
			b.baseTopic = cfg.BaseTopic
		} else {
			b.baseTopic = config.DefaultBaseTopic
		}
	}

	return b
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

// ctxDone indicates whether the given context has been canceled.
func ctxDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// maybeSend sends t on ch, unless the given context is cancelled before it can send.
// maybeSend returns true if t was sent and false if the context was canceled.
func maybeSend[T any](ctx context.Context, ch chan<- T, t T) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- t:
		return true
	}
}

// zoneID returns the zone id of m, or its topic if m is not a zone.
func zoneID(m metrics.Metric) string {
	if z, ok := m.(interface{ ID() string }); ok {
		return z.ID()
	}
	return m.Topic()
}

// refreshed handles the result of a refresh of m. The states payload of m is
// published regardless of err, so a failed refresh replaces any previous
// values with null.
func (b *Bridge) refreshed(ctx context.Context, m metrics.Metric, err error) {
	b.updateState(ctx, m, err)

	if err != nil && !errors.Is(err, context.Canceled) {
		log.WarnError("Unable to refresh zone", err, "zone", zoneID(m))
	}

	maybeSend(ctx, b.updates, m)
}

// loopMetric is the event loop for the given metric and listens for updates on its [metrics.Metric.Updated] channel.
func (b *Bridge) loopMetric(ctx context.Context, i int, m metrics.Metric) {
	defer func() {
		m.Stop()

		b.mu.Lock()
		b.metrics[i] = nil
		b.mu.Unlock()

		if b.states.CompareAndSwap(m.Topic(), true, false) && !ctxDone(ctx) {
			if err := waitToken(ctx, b.publishStates(false)); err != nil {
				log.WarnError("Unable to publish states", err)
			}
		}

		b.wg.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-m.Updated():
			if !ok {
				log.Debug("Zone stopped", "zone", zoneID(m))
				return
			}

			b.refreshed(ctx, m, err)
		}
	}
}

// nilToken implements [mqtt.Token] with a nil channel.
type nilToken struct{}

func (nilToken) Wait() bool                       { return true }
func (nilToken) WaitTimeout(_ time.Duration) bool { return true }
func (nilToken) Done() <-chan struct{}            { return nil }
func (nilToken) Error() error                     { return nil }

// doneToken implements [mqtt.Token] that is already complete.
type doneToken struct{}

var closed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (doneToken) Wait() bool                       { return true }
func (doneToken) WaitTimeout(_ time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{}            { return closed }
func (doneToken) Error() error                     { return nil }

// publish publishes the states payload of m to its topic, and to the sink of the bridge if
// there is one.
func (b *Bridge) publish(ctx context.Context, m metrics.Metric) mqtt.Token {
	if b.sink != nil {
		if z, ok := m.(*metrics.Zone); ok {
			if err := sensor.Apply(ctx, b.sink, z.ID(), z.States()); err != nil {
				log.WarnError("Unable to update sink", err, "zone", z.ID())
			}
		}
	}

	data, err := m.AppendText(nil)
	if err != nil {
		log.WarnError("Unable to marshal zone", err, "zone", zoneID(m))
		return nilToken{}
	}

	return b.client.Publish(m.Topic(), 0, false, data)
}

// loop is the event loop for the bridge and publishes any metrics received on the updates channel.
func (b *Bridge) loop(ctx context.Context) {
	defer func() {
		if b.client.IsConnected() || b.client.IsConnectionOpen() {
			t := b.publishStates(true)
			t.Wait()

			b.client.Disconnect(500)
		}

		b.wg.Wait()

		close(b.done)
	}()

	var t mqtt.Token = nilToken{}

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-b.updates:
			t = b.publish(ctx, m)
		case <-t.Done():
			if err := t.Error(); err != nil {
				log.WarnError("Unable to publish update", err)
			}

			t = nilToken{}
		}
	}
}

// updateState updates the state for the given metric in the bridge's states map. If the state changed,
// updateState returns true and publishes the updated states to the LWT topic.
func (b *Bridge) updateState(ctx context.Context, m metrics.Metric, err error) (updated bool) {
	key := m.Topic()
	state := err == nil

	if updated = b.states.CompareAndSwap(key, !state, state); !updated {
		return
	}

	log.Debug("State changed", "topic", key, "from", !state, "to", state)

	t := b.publishStates(false)
	if err := waitToken(ctx, t); err != nil {
		log.WarnError("Unable to publish states", err)
	}

	return
}

// parseInterval returns the interval of an update payload, i.e. {"interval": "10m"} or
// {"interval": 600} in seconds. The boolean is false if the payload has no valid interval.
// Any other payload, such as the press payload of a button, has no interval.
func parseInterval(payload []byte) (time.Duration, bool) {
	if len(payload) == 0 || payload[0] != '{' {
		return 0, false
	}

	var mm map[string]any

	if err := json.Unmarshal(payload, &mm); err != nil {
		log.Debug("Invalid update payload", "error", err)
		return 0, false
	}

	var d time.Duration

	switch v := mm["interval"].(type) {
	case nil:
		return 0, false
	case string:
		var err error
		if d, err = time.ParseDuration(v); err != nil {
			log.Warn("Invalid interval", "interval", v)
			return 0, false
		}
	case float64:
		d = time.Duration(v * float64(time.Second))
	default:
		log.Warn("Invalid interval", "interval", v)
		return 0, false
	}

	if d <= 0 {
		log.Warn("Invalid interval", "interval", d)
		return 0, false
	}

	if d < config.MinInterval {
		log.Warn("Interval too short, using minimum", "interval", d, "minimum", config.MinInterval)
		d = config.MinInterval
	}

	return d, true
}

// handleUpdatePayload applies the interval of an update payload to m, if it has one.
func handleUpdatePayload(m metrics.Metric, payload []byte) {
	if d, ok := parseInterval(payload); ok {
		log.Debug("Setting interval", "topic", m.Topic(), "interval", d)
		m.SetInterval(d)
	}
}

// metricHandler returns a [mqtt.MessageHandler] for the given metric that handles the "/update" and "/stop"
// topics of the metric.
func (b *Bridge) metricHandler(ctx context.Context, m metrics.Metric) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		switch {
		case strings.HasSuffix(msg.Topic(), "/update"):
			go func(payload []byte) {
				handleUpdatePayload(m, payload)
				b.refreshed(ctx, m, m.Update(ctx))
			}(msg.Payload())
		case strings.HasSuffix(msg.Topic(), "/stop"):
			go m.Stop()
		}
	}
}

// startMetric starts the given metric and its event loop.
func (b *Bridge) startMetric(ctx context.Context, i int, m metrics.Metric) {
	if m.Topic() == "" {
		log.Debug("No topic, skipping", "zone", zoneID(m))
		return
	}

	if err := m.Start(ctx); err != nil {
		log.Error("Could not start zone", err, "zone", zoneID(m))
		b.states.Store(m.Topic(), false)

		return
	}

	// Zones are unavailable until their first refresh succeeds.
	b.states.Store(m.Topic(), false)

	t := b.client.SubscribeMultiple(map[string]byte{
		m.Topic() + "/update": 0,
		m.Topic() + "/stop":   0,
	}, b.metricHandler(ctx, m))
	if err := waitToken(ctx, t); err != nil {
		log.Error("Could not subscribe to "+m.Topic(), err)
		m.Stop()

		return
	}

	b.wg.Add(1)

	go b.loopMetric(ctx, i, m)
}

// start starts the bridge's metrics and the bridge's event loop.
func (b *Bridge) start(ctx context.Context) {
	defer close(b.ready)

	for i, m := range b.metrics {
		b.startMetric(ctx, i, m)

		if ctxDone(ctx) {
			b.wg.Wait()
			close(b.done)

			return
		}
	}

	go b.loop(ctx)

	t := b.publishStates(false)
	if err := waitToken(ctx, t); err != nil {
		b.err = err
	}

	t = b.client.Subscribe(b.baseTopic+"/bridge/stop", 0, func(_ mqtt.Client, _ mqtt.Message) {
		go b.Stop()
	})
	if err := waitToken(ctx, t); err != nil && b.err == nil {
		b.err = err
	}

	t = b.client.Subscribe(b.baseTopic+"/bridge/update", 0, func(_ mqtt.Client, msg mqtt.Message) {
		go func(payload []byte) {
			if d, ok := parseInterval(payload); ok {
				b.setInterval(d)
			}

			b.update(ctx)
		}(msg.Payload())
	})
	if err := waitToken(ctx, t); err != nil && b.err == nil {
		b.err = err
	}

	if b.discovery != nil {
		if err := b.discover(ctx); err != nil && b.err == nil {
			b.err = err
		}
	}
}

// Start connects to the broker and starts polling each zone. Start returns once connected;
// [Bridge.Ready] is closed once every zone has been started.
func (b *Bridge) Start(ctx context.Context) error {
	if len(b.metrics) == 0 {
		return ErrNoMetrics
	}

	t := b.client.Connect()
	if err := waitToken(ctx, t); err != nil {
		return err
	}

	b.once.Do(func() {
		b.ready = make(chan struct{})
		b.done = make(chan struct{})
		b.updates = make(chan metrics.Metric)

		ctx, b.cancel = context.WithCancel(ctx)

		go b.start(ctx)
	})

	return nil
}

// Stop stops every zone, publishes the LWT payload and disconnects from the broker.
func (b *Bridge) Stop() {
	log.Debug("Stopping bridge")

	if b.ready == nil {
		return
	}

	<-b.ready
	b.cancel()
	<-b.done
}

// Ready returns a channel that is closed once the bridge has started.
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// Done returns a channel that is closed once the bridge has stopped.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Error returns the first error encountered while starting the bridge.
func (b *Bridge) Error() error {
	return b.err
}

// update forces every zone to refresh concurrently and returns the first error.
func (b *Bridge) update(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var g errgroup.Group

	for _, m := range b.metrics {
		if m == nil {
			continue
		}

		if ctxDone(ctx) {
			break
		}

		g.Go(func() error {
			err := m.Update(ctx)
			b.refreshed(ctx, m, err)

			return err
		})
	}

	return g.Wait()
}

// setInterval sets the poll interval of every running zone.
func (b *Bridge) setInterval(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	running := make([]metrics.Metric, 0, len(b.metrics))

	for _, m := range b.metrics {
		if m != nil {
			running = append(running, m)
		}
	}

	metrics.SetInterval(d, running...)
}

// Update forces every zone to refresh and returns the first error encountered.
func (b *Bridge) Update(ctx context.Context) error {
	return b.update(ctx)
}

// publishStates publishes the bridge's states map to the LWT topic. If lwt is true, publishState
// publishes the client's LWT payload instead.
func (b *Bridge) publishStates(lwt bool) mqtt.Token {
	var (
		payload []byte
		opts    = b.client.OptionsReader()
	)

	if opts.WillTopic() == "" {
		return doneToken{}
	}

	if lwt {
		payload = opts.WillPayload()
	} else {
		payload = []byte{'{'}
		first := true

		b.states.Range(func(k, v any) bool {
			if !first {
				payload = append(payload, ',')
			}

			payload = strconv.AppendQuote(payload, k.(string))
			payload = append(payload, ':')
			payload = strconv.AppendBool(payload, v.(bool))

			first = false

			return true
		})

		payload = append(payload, '}')
	}

	return b.client.Publish(opts.WillTopic(), opts.WillQos(), opts.WillRetained(), payload)
}

// zoneDiscovery returns the discovery payload of each zone of the bridge.
func (b *Bridge) zoneDiscovery() []*discovery.Discovery {
	b.mu.Lock()
	defer b.mu.Unlock()

	var d []*discovery.Discovery

	for _, m := range b.metrics {
		z, ok := m.(*metrics.Zone)
		if !ok {
			continue
		}

		zone := &config.ZoneConfig{ID: z.ID(), Name: z.Name()}
		d = append(d, discovery.New(b.discovery, zone, z))
	}

	return d
}

// publishDiscovery publishes the discovery payload of every zone.
func (b *Bridge) publishDiscovery(ctx context.Context) error {
	var errs []error

	for _, d := range b.zoneDiscovery() {
		if err := d.Publish(ctx, b.client); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (b *Bridge) discover(ctx context.Context) error {
	if err := b.publishDiscovery(ctx); err != nil {
		return err
	}

	return discovery.SubscribeFunc(ctx, b.client, b.discovery, func(ctx context.Context) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}

		if err := b.publishDiscovery(ctx); err != nil {
			log.WarnError("Unable to publish discovery", err)
		}

		b.update(ctx)
	})
}
