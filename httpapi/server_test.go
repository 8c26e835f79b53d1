package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lone-faerie/cfstats/cloudflare"
	"github.com/lone-faerie/cfstats/internal/byteutil"
	"github.com/lone-faerie/cfstats/sensor"
)

const testZone = "023e105f4ecef8ad9ca31a8372d0c353"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	defs := sensor.Catalog(byteutil.MB)
	s := NewStore()
	s.Register(testZone, "example.com", defs)

	snap := cloudflare.Snapshot{
		"requests.all":  int64(1000),
		"bandwidth.all": int64(3145728),
	}
	states := sensor.Resolve(defs, snap, byteutil.MB)
	require.NoError(t, sensor.Apply(context.Background(), s, testZone, states))
	return s
}

func TestServer(t *testing.T) {
	srv := NewServer(newTestStore(t), "")
	h := srv.Handler()

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantBody   string
	}{
		{"health", "/healthz", http.StatusOK, `{"status":"ok"}`},
		{"zones", "/zones", http.StatusOK, `[{"id":"` + testZone + `","name":"example.com","sensors":17}]`},
		{"zones trailing slash", "/zones/", http.StatusOK, `[{"id":"` + testZone + `","name":"example.com","sensors":17}]`},
		{"sensor", "/zones/" + testZone + "/requests.all", http.StatusOK, `{"key":"requests.all","name":"Requests (All)","state":1000,"unit":"requests"}`},
		{"sensor by name", "/zones/example.com/bandwidth.all", http.StatusOK, `{"key":"bandwidth.all","name":"Bandwidth (All)","state":3,"unit":"MB"}`},
		{"unavailable", "/zones/" + testZone + "/requests.bot", http.StatusOK, `{"key":"requests.bot","name":"Requests (Bots)","state":"unavailable","unit":"requests"}`},
		{"unknown key", "/zones/" + testZone + "/requests.nope", http.StatusNotFound, ""},
		{"unknown zone", "/zones/nope", http.StatusNotFound, ""},
		{"unknown zone sensor", "/zones/nope/requests.all", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			require.Equal(t, tt.wantStatus, res.StatusCode)
			if tt.wantBody != "" {
				require.Equal(t, "application/json", res.Header.Get("Content-Type"))
				require.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestServerZone(t *testing.T) {
	h := NewServer(newTestStore(t), "").Handler()

	req := httptest.NewRequest(http.MethodGet, "/zones/"+testZone, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		States []struct {
			Key   string `json:"key"`
			State any    `json:"state"`
		} `json:"states"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, testZone, body.ID)
	require.Equal(t, "example.com", body.Name)
	require.Len(t, body.States, 17)
	require.Equal(t, "requests.all", body.States[0].Key)
	require.EqualValues(t, 1000, body.States[0].State)
	require.Equal(t, "unavailable", body.States[1].State)
}

func TestServerMethodNotAllowed(t *testing.T) {
	h := NewServer(NewStore(), "").Handler()

	req := httptest.NewRequest(http.MethodPost, "/zones", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id := sensor.ID(testZone, "requests.all")
	require.NoError(t, s.SetUnavailable(ctx, id))
	st, ok := s.State(testZone, "requests.all")
	require.True(t, ok)
	require.False(t, st.Available)
	require.Nil(t, st.Value)

	require.NoError(t, s.SetState(ctx, id, int64(5), ""))
	st, _ = s.State(testZone, "requests.all")
	require.True(t, st.Available)
	require.Equal(t, int64(5), st.Value)
	require.Equal(t, "requests", st.Unit)

	require.ErrorIs(t, s.SetState(ctx, "cloudflare_nope_requests_all", 1, ""), ErrUnknownSensor)
	require.ErrorIs(t, s.SetUnavailable(ctx, "cloudflare_nope_requests_all"), ErrUnknownSensor)

	_, ok = s.State("nope", "requests.all")
	require.False(t, ok)
}
