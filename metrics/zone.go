package metrics

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/lone-faerie/cfstats/cloudflare"
	"github.com/lone-faerie/cfstats/config"
	"github.com/lone-faerie/cfstats/internal/byteutil"
	"github.com/lone-faerie/cfstats/log"
	"github.com/lone-faerie/cfstats/sensor"
)

// Zone polls the analytics of a single zone and resolves the sensor states
// of each poll.
type Zone struct {
	id     string
	name   string
	topic  string
	unit   byteutil.ByteSize
	defs   []sensor.Definition
	client *cloudflare.Client

	mu       sync.RWMutex
	interval time.Duration
	states   []sensor.State
	snap     cloudflare.Snapshot
	err      error
	last     time.Time

	refresh sync.Mutex
	reset   chan struct{}
	once    sync.Once
	stop    context.CancelFunc
	ch      chan error
	done    chan struct{}
}

// ZoneOption configures a [Zone].
type ZoneOption func(*zoneOptions)

type zoneOptions struct {
	client *cloudflare.Client
	opts   []cloudflare.Option
}

// WithClient sets the client used to fetch the analytics of the zone.
func WithClient(c *cloudflare.Client) ZoneOption {
	return func(o *zoneOptions) {
		o.client = c
	}
}

// WithClientOptions adds options to the client created for the zone. It has
// no effect if combined with [WithClient].
func WithClientOptions(opts ...cloudflare.Option) ZoneOption {
	return func(o *zoneOptions) {
		o.opts = append(o.opts, opts...)
	}
}

// NewZone returns a new Zone for the given zone config. Any unset values of
// cfg are taken from global, which may be nil.
func NewZone(cfg *config.ZoneConfig, global *config.Config, opts ...ZoneOption) (*Zone, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errInvalidConfig("zone", err)
	}

	var o zoneOptions
	for _, opt := range opts {
		opt(&o)
	}

	z := &Zone{
		id:       cfg.ID,
		name:     cfg.DisplayName(),
		topic:    cfg.Topic,
		unit:     cfg.Unit(),
		interval: cfg.Interval,
		reset:    make(chan struct{}, 1),
	}
	if z.interval <= 0 && global != nil {
		z.interval = global.Interval
	}
	if z.interval <= 0 {
		z.interval = config.DefaultInterval
	}
	if z.topic == "" {
		base := config.DefaultBaseTopic
		if global != nil && global.BaseTopic != "" {
			base = global.BaseTopic
		}
		z.topic = base + "/zone/" + cfg.ID
	}

	z.defs = sensor.Catalog(z.unit)
	z.states = sensor.Unavailable(z.defs)

	if o.client != nil {
		z.client = o.client
	} else {
		copts := slices.Clone(o.opts)
		if cfg.Since != 0 {
			copts = append(copts, cloudflare.WithSince(cfg.Since))
		}
		z.client = cloudflare.NewClient(cloudflare.Credential{
			ZoneID:   cfg.ID,
			APIToken: cfg.APIToken,
		}, copts...)
	}

	return z, nil
}

func (z *Zone) Type() string {
	return "zone"
}

func (z *Zone) Topic() string {
	return z.topic
}

// ID returns the zone identifier.
func (z *Zone) ID() string {
	return z.id
}

// Name returns the configured name of the zone, or its id.
func (z *Zone) Name() string {
	return z.name
}

// Unit returns the unit of the zone's bandwidth sensors.
func (z *Zone) Unit() byteutil.ByteSize {
	return z.unit
}

// Definitions returns the sensor definitions of the zone.
func (z *Zone) Definitions() []sensor.Definition {
	return z.defs
}

// Interval returns the poll interval of the zone.
func (z *Zone) Interval() time.Duration {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.interval
}

// SetInterval sets the poll interval of the zone. If the zone is running,
// the next poll is rescheduled to d from now.
func (z *Zone) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	z.mu.Lock()
	changed := d != z.interval
	z.interval = d
	z.mu.Unlock()
	if !changed {
		return
	}
	select {
	case z.reset <- struct{}{}:
	default:
	}
}

func (z *Zone) loop(ctx context.Context) {
	defer close(z.done)
	defer close(z.ch)

	timer := time.NewTimer(0)
	defer timer.Stop()

	var (
		err    error
		ch     chan error
		polled bool
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-z.reset:
			// The first poll is always immediate.
			if polled {
				timer.Reset(z.Interval())
			}
		case <-timer.C:
			err = z.Refresh(ctx)
			if ctx.Err() != nil {
				return
			}
			log.Debug("Zone refreshed", "zone", z.id, "error", err)
			polled = true
			timer.Reset(z.Interval())
			ch = z.ch
		case ch <- err:
			ch = nil
		}
	}
}

// Start polls the zone immediately and then every interval after the
// previous poll completes.
func (z *Zone) Start(ctx context.Context) (err error) {
	err = errAlreadyRunning(z)
	z.once.Do(func() {
		ctx, z.stop = context.WithCancel(ctx)
		z.ch = make(chan error)
		z.done = make(chan struct{})
		go z.loop(ctx)
		err = nil
	})
	return
}

func errAlreadyRunning(z *Zone) error {
	return &Error{"zone " + z.id, ErrAlreadyRunning}
}

// Refresh fetches the analytics of the zone once and replaces the sensor
// states with the result. If the fetch fails, every sensor becomes
// unavailable until the next successful refresh and the error is returned.
// Refreshes of the same zone never overlap.
func (z *Zone) Refresh(ctx context.Context) error {
	z.refresh.Lock()
	defer z.refresh.Unlock()

	snap, err := z.client.FetchSnapshot(ctx)

	var states []sensor.State
	if err != nil {
		snap = nil
		states = sensor.Unavailable(z.defs)
	} else {
		states = sensor.Resolve(z.defs, snap, z.unit)
	}

	z.mu.Lock()
	z.snap = snap
	z.states = states
	z.err = err
	z.last = time.Now()
	z.mu.Unlock()

	return err
}

// Update forces the zone to refresh, waiting for any refresh in progress.
func (z *Zone) Update(ctx context.Context) error {
	return z.Refresh(ctx)
}

// Updated returns the channel the result of each scheduled refresh is sent
// on. It is nil until the zone is started.
func (z *Zone) Updated() <-chan error {
	return z.ch
}

// Stop cancels any refresh in progress and stops polling the zone.
func (z *Zone) Stop() {
	z.once.Do(func() {})
	if z.stop == nil {
		return
	}
	z.stop()
	<-z.done
}

// States returns a copy of the current sensor states.
func (z *Zone) States() []sensor.State {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return slices.Clone(z.states)
}

// Snapshot returns a copy of the snapshot of the last refresh, or nil if
// the last refresh failed or there has been none.
func (z *Zone) Snapshot() cloudflare.Snapshot {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return maps.Clone(z.snap)
}

// Err returns the error of the last refresh.
func (z *Zone) Err() error {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.err
}

// LastUpdate returns the time the last refresh completed.
func (z *Zone) LastUpdate() time.Time {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.last
}

// AppendText implements [encoding.TextAppender] by appending the state
// payload of the zone.
func (z *Zone) AppendText(b []byte) ([]byte, error) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return sensor.AppendJSON(b, z.states), nil
}

// MarshalJSON implements [json.Marshaler]. It returns the same payload as
// [Zone.AppendText].
func (z *Zone) MarshalJSON() ([]byte, error) {
	return z.AppendText(nil)
}

func (z *Zone) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Zone %s", z.name)
	if z.name != z.id {
		fmt.Fprintf(&sb, " (%s)", z.id)
	}
	fmt.Fprintf(&sb, "\ninterval: %v\nbandwidth unit: %v\ntopic: %s", z.Interval(), z.unit, z.topic)
	if last := z.LastUpdate(); !last.IsZero() {
		fmt.Fprintf(&sb, "\nlast update: %s", last.Format(time.RFC3339))
	}
	if err := z.Err(); err != nil {
		fmt.Fprintf(&sb, "\nerror: %v", err)
	}
	return sb.String()
}
