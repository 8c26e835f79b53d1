package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lone-faerie/cfstats/cloudflare"
	"github.com/lone-faerie/cfstats/config"
	"github.com/lone-faerie/cfstats/metrics"
	"github.com/lone-faerie/cfstats/mock"
)

const (
	testZone  = "023e105f4ecef8ad9ca31a8372d0c353"
	zoneTopic = "cfstats/zone/" + testZone
	willTopic = "cfstats/bridge/status"
)

type testServer struct {
	*httptest.Server
	status atomic.Int32
	hits   atomic.Int32
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	fixture, err := os.ReadFile("../cloudflare/testdata/dashboard.json")
	require.NoError(t, err)

	ts := &testServer{}
	ts.status.Store(http.StatusOK)
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)
		code := int(ts.status.Load())
		w.WriteHeader(code)
		if code == http.StatusOK {
			_, _ = w.Write(fixture)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestConfig() *config.Config {
	cfg := config.Default()
	cfg.Zones = []config.ZoneConfig{{
		ID:       testZone,
		APIToken: "token",
		Name:     "example.com",
		Interval: time.Hour,
		Topic:    zoneTopic,
	}}
	cfg.MQTT.BirthWillTopic = willTopic
	cfg.Discovery.Availability = willTopic
	return cfg
}

func newTestBridge(t *testing.T, ts *testServer, opts ...Option) (*Bridge, *mock.Client) {
	t.Helper()
	cfg := newTestConfig()
	z, err := metrics.NewZone(&cfg.Zones[0], cfg, metrics.WithClientOptions(
		cloudflare.WithBaseURL(ts.URL),
		cloudflare.WithHTTPClient(ts.Client()),
	))
	require.NoError(t, err)

	client := mock.NewClient(cfg.MQTT.ClientOptions(), nil)
	opts = append([]Option{WithClient(client), WithMetrics(z)}, opts...)
	b := New(cfg, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		b.Stop()
	})
	require.NoError(t, b.Start(ctx))
	select {
	case <-b.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("bridge not ready")
	}
	require.NoError(t, b.Error())
	return b, client
}

// waitPayloads waits for at least n payloads to be published to topic.
func waitPayloads(t *testing.T, c *mock.Client, topic string, n int) [][]byte {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(c.Published(topic)) >= n
	}, 5*time.Second, 10*time.Millisecond, "waiting for %d payloads on %s", n, topic)
	return c.Published(topic)
}

func decode(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

// lastStates returns the last availability map published, or nil.
func lastStates(c *mock.Client) map[string]any {
	p, _ := c.Last(willTopic)
	var m map[string]any
	_ = json.Unmarshal(p, &m)
	return m
}

func TestBridgeStart(t *testing.T) {
	ts := newTestServer(t)
	_, client := newTestBridge(t, ts)

	p := waitPayloads(t, client, zoneTopic, 1)
	payload := decode(t, p[0])
	require.EqualValues(t, 1000, payload["requests.all"])
	require.EqualValues(t, 3, payload["bandwidth.all"])
	require.Contains(t, payload, "requests.bot")
	require.Nil(t, payload["requests.bot"])

	require.Eventually(t, func() bool {
		p, ok := client.Last(willTopic)
		return ok && string(p) == `{"`+zoneTopic+`":true}`
	}, 5*time.Second, 10*time.Millisecond)

	for _, topic := range []string{
		zoneTopic + "/update",
		zoneTopic + "/stop",
		"cfstats/bridge/update",
		"cfstats/bridge/stop",
		"homeassistant/status",
	} {
		require.True(t, client.Subscribed(topic), "not subscribed to %s", topic)
	}

	disc, ok := client.Last("homeassistant/device/cfstats/" + testZone + "/config")
	require.True(t, ok, "discovery not published")
	cmps, ok := decode(t, disc)["cmps"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, cmps, "cloudflare_"+testZone+"_requests_all")
	require.Contains(t, cmps, "cloudflare_"+testZone+"_refresh")
}

func TestBridgeRefreshFailure(t *testing.T) {
	ts := newTestServer(t)
	_, client := newTestBridge(t, ts)
	waitPayloads(t, client, zoneTopic, 1)

	ts.status.Store(http.StatusTooManyRequests)
	require.True(t, client.Deliver(zoneTopic+"/update", []byte("PRESS")))

	p := waitPayloads(t, client, zoneTopic, 2)
	payload := decode(t, p[1])
	require.NotEmpty(t, payload)
	for key, v := range payload {
		require.Nil(t, v, "stale value for %s", key)
	}
	require.Eventually(t, func() bool {
		return lastStates(client)[zoneTopic] == false
	}, 5*time.Second, 10*time.Millisecond)

	ts.status.Store(http.StatusOK)
	require.True(t, client.Deliver(zoneTopic+"/update", nil))

	p = waitPayloads(t, client, zoneTopic, 3)
	require.EqualValues(t, 1000, decode(t, p[2])["requests.all"])
	require.Eventually(t, func() bool {
		return lastStates(client)[zoneTopic] == true
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBridgeUpdate(t *testing.T) {
	ts := newTestServer(t)
	b, client := newTestBridge(t, ts)
	waitPayloads(t, client, zoneTopic, 1)

	hits := ts.hits.Load()
	require.NoError(t, b.Update(context.Background()))
	require.Equal(t, hits+1, ts.hits.Load())
	waitPayloads(t, client, zoneTopic, 2)

	require.True(t, client.Deliver("cfstats/bridge/update", nil))
	waitPayloads(t, client, zoneTopic, 3)
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		payload string
		want    time.Duration
		ok      bool
	}{
		{`{"interval":"10m"}`, 10 * time.Minute, true},
		{`{"interval":600}`, 10 * time.Minute, true},
		{`{"interval":90.5}`, 90*time.Second + 500*time.Millisecond, true},
		{`{"interval":"5s"}`, config.MinInterval, true},
		{`{"interval":1}`, config.MinInterval, true},
		{`{"interval":0}`, 0, false},
		{`{"interval":"-1m"}`, 0, false},
		{`{"interval":"soon"}`, 0, false},
		{`{"interval":true}`, 0, false},
		{`{}`, 0, false},
		{`{"interval":`, 0, false},
		{`PRESS`, 0, false},
		{``, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseInterval([]byte(tt.payload))
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseInterval(%s) = %v, %v, want %v, %v", tt.payload, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBridgeUpdateInterval(t *testing.T) {
	ts := newTestServer(t)
	b, client := newTestBridge(t, ts)
	waitPayloads(t, client, zoneTopic, 1)

	b.mu.Lock()
	z := b.metrics[0].(*metrics.Zone)
	b.mu.Unlock()
	require.Equal(t, time.Hour, z.Interval())

	require.True(t, client.Deliver(zoneTopic+"/update", []byte(`{"interval":"10m"}`)))
	require.Eventually(t, func() bool {
		return z.Interval() == 10*time.Minute
	}, 5*time.Second, 10*time.Millisecond)
	waitPayloads(t, client, zoneTopic, 2)

	require.True(t, client.Deliver(zoneTopic+"/update", []byte(`{"interval":900}`)))
	require.Eventually(t, func() bool {
		return z.Interval() == 15*time.Minute
	}, 5*time.Second, 10*time.Millisecond)
	waitPayloads(t, client, zoneTopic, 3)

	require.True(t, client.Deliver("cfstats/bridge/update", []byte(`{"interval":"5s"}`)))
	require.Eventually(t, func() bool {
		return z.Interval() == config.MinInterval
	}, 5*time.Second, 10*time.Millisecond)
	waitPayloads(t, client, zoneTopic, 4)
}

func TestBridgeStop(t *testing.T) {
	ts := newTestServer(t)
	b, client := newTestBridge(t, ts)
	waitPayloads(t, client, zoneTopic, 1)

	require.True(t, client.Deliver("cfstats/bridge/stop", nil))
	select {
	case <-b.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("bridge not stopped")
	}

	p, ok := client.Last(willTopic)
	require.True(t, ok)
	require.Equal(t, "offline", string(p))
	require.False(t, client.IsConnected())
}

type recordingSink struct {
	mu     sync.Mutex
	states map[string]any
}

func (s *recordingSink) SetState(_ context.Context, id string, value any, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = value
	return nil
}

func (s *recordingSink) SetUnavailable(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = nil
	return nil
}

func (s *recordingSink) get(id string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.states[id]
	return v, ok
}

func TestBridgeSink(t *testing.T) {
	ts := newTestServer(t)
	sink := &recordingSink{states: make(map[string]any)}
	_, client := newTestBridge(t, ts, WithSink(sink))
	waitPayloads(t, client, zoneTopic, 1)

	require.Eventually(t, func() bool {
		v, _ := sink.get("cloudflare_" + testZone + "_requests_all")
		return v == int64(1000)
	}, 5*time.Second, 10*time.Millisecond)

	v, ok := sink.get("cloudflare_" + testZone + "_requests_bot")
	require.True(t, ok)
	require.Nil(t, v)
}

func TestStartNoMetrics(t *testing.T) {
	cfg := newTestConfig()
	cfg.Zones = nil
	b := New(cfg, WithClient(mock.NewClient(nil, nil)))
	require.ErrorIs(t, b.Start(context.Background()), ErrNoMetrics)
}
