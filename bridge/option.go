package bridge

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lone-faerie/cfstats/config"
	"github.com/lone-faerie/cfstats/log"
	"github.com/lone-faerie/cfstats/metrics"
	"github.com/lone-faerie/cfstats/sensor"
)

type Option func(*Bridge)

func WithClient(c mqtt.Client) Option {
	return func(b *Bridge) {
		b.client = c
	}
}

// WithDiscovery enables discovery with the given config, regardless of
// whether it is enabled in the config of the bridge.
func WithDiscovery(cfg *config.DiscoveryConfig) Option {
	return func(b *Bridge) {
		b.discovery = cfg
	}
}

func WithMetrics(m ...metrics.Metric) Option {
	return func(b *Bridge) {
		b.metrics = append(b.metrics, m...)
	}
}

// WithSink mirrors the sensor states of each zone to p after every refresh.
func WithSink(p sensor.Publisher) Option {
	return func(b *Bridge) {
		b.sink = p
	}
}

func WithBaseTopic(topic string) Option {
	return func(b *Bridge) {
		b.baseTopic = topic
	}
}

// WithLogLevel routes the logs of the MQTT client at or above level to the
// logger of the [log] package.
func WithLogLevel(level log.Level) Option {
	return func(b *Bridge) {
		var (
			noop     = mqtt.NOOPLogger{}
			errorLog mqtt.Logger = noop
			warnLog  mqtt.Logger = noop
			debugLog mqtt.Logger = noop
		)

		switch {
		case level <= log.LevelDebug:
			debugLog = log.DebugLogger()
			fallthrough
		case level <= log.LevelWarn:
			warnLog = log.WarnLogger()
			fallthrough
		case level <= log.LevelError:
			errorLog = log.ErrorLogger()
		}

		mqtt.ERROR = errorLog
		mqtt.CRITICAL = errorLog
		mqtt.WARN = warnLog
		mqtt.DEBUG = debugLog
	}
}
