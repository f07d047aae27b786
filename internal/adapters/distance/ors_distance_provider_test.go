package distance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/ports"
)

type memLegCache struct {
	mu   sync.Mutex
	legs map[string]map[string]ports.DistanceResult
}

func newMemLegCache() *memLegCache {
	return &memLegCache{legs: map[string]map[string]ports.DistanceResult{}}
}

func (m *memLegCache) GetMany(_ context.Context, origin string, dests []string) (map[string]ports.DistanceResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]ports.DistanceResult{}
	for _, d := range dests {
		if r, ok := m.legs[origin][d]; ok {
			out[d] = r
		}
	}
	return out, nil
}

func (m *memLegCache) PutMany(_ context.Context, origin string, results map[string]ports.DistanceResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.legs[origin] == nil {
		m.legs[origin] = map[string]ports.DistanceResult{}
	}
	for k, v := range results {
		m.legs[origin][k] = v
	}
	return nil
}

// matrixServer answers every destination with 1000 m / 100 s times its
// index, failing the first failures requests with status.
func matrixServer(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "/v2/matrix/driving-car", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		if n <= failures {
			http.Error(w, "busy", status)
			return
		}

		var req legQuery
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.Equal(t, []int{0}, req.Sources)
		assert.Equal(t, "m", req.Units)
		assert.Len(t, req.Locations, len(req.Destinations)+1)

		dist := make([]*float64, len(req.Destinations))
		dur := make([]*float64, len(req.Destinations))
		for i := range req.Destinations {
			m, s := float64(i+1)*1000, float64(i+1)*100
			dist[i], dur[i] = &m, &s
		}
		_ = json.NewEncoder(w).Encode(legTable{
			Distances: [][]*float64{dist},
			Durations: [][]*float64{dur},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testProvider(t *testing.T, url string, cache ports.LegCache) *ORSDistanceProvider {
	t.Helper()
	p, err := NewORSDistanceProvider("test-key", cache, ORSConfig{
		BaseURL:           url,
		RequestsPerMinute: 600000,
		RetryBackoff:      time.Millisecond,
	})
	require.NoError(t, err)
	return p
}

var (
	home  = domain.Coordinates{Lat: 40, Lon: -75}
	destA = domain.Coordinates{Lat: 40.01, Lon: -75}
	destB = domain.Coordinates{Lat: 40.02, Lon: -75}
)

func TestORSGetDistancesUsesCache(t *testing.T) {
	srv, calls := matrixServer(t, 0, 0)
	cache := newMemLegCache()
	p := testProvider(t, srv.URL, cache)
	ctx := context.Background()

	got, err := p.GetDistances(ctx, home, []domain.Coordinates{destA, destB, destA, home})
	require.NoError(t, err)
	assert.Equal(t, ports.DistanceResult{DistanceMeters: 1000, DurationSeconds: 100}, got[destA.Key()])
	assert.Equal(t, ports.DistanceResult{DistanceMeters: 2000, DurationSeconds: 200}, got[destB.Key()])
	assert.Equal(t, ports.DistanceResult{}, got[home.Key()])
	assert.Equal(t, int32(1), calls.Load())

	// Second lookup is served from the cache.
	again, err := p.GetDistance(ctx, home, destB)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, again.DistanceMeters)
	assert.Equal(t, int32(1), calls.Load())
}

func TestORSRetriesTransientFailures(t *testing.T) {
	srv, calls := matrixServer(t, 2, http.StatusServiceUnavailable)
	p := testProvider(t, srv.URL, nil)

	got, err := p.GetDistance(context.Background(), home, destA)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.DurationSeconds)
	assert.Equal(t, int32(3), calls.Load())
}

func TestORSDoesNotRetryClientErrors(t *testing.T) {
	srv, calls := matrixServer(t, 10, http.StatusBadRequest)
	p := testProvider(t, srv.URL, nil)

	_, err := p.GetDistance(context.Background(), home, destA)
	require.Error(t, err)

	var oe *orsError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, http.StatusBadRequest, oe.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestORSGivesUpAfterMaxAttempts(t *testing.T) {
	srv, calls := matrixServer(t, 10, http.StatusTooManyRequests)
	p := testProvider(t, srv.URL, nil)

	_, err := p.GetDistance(context.Background(), home, destA)
	require.Error(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestORSNullRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"distances":[[null]],"durations":[[null]]}`))
	}))
	t.Cleanup(srv.Close)
	p := testProvider(t, srv.URL, nil)

	_, err := p.GetDistance(context.Background(), home, destA)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no route")
}

func TestORSErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"object envelope", `{"error":{"code":6004,"message":"Request parameters exceed the server configuration limits."}}`, "Request parameters exceed the server configuration limits."},
		{"string envelope", `{"error":"Access to this API has been disallowed"}`, "Access to this API has been disallowed"},
		{"plain text", "bad gateway\n", "bad gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)
			p := testProvider(t, srv.URL, nil)

			_, err := p.GetDistance(context.Background(), home, destA)
			var oe *orsError
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, http.StatusForbidden, oe.Status)
			assert.Equal(t, tt.want, oe.Message)
		})
	}
}

func TestORSRetryDelay(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("Retry-After", "3")
	rec.WriteHeader(http.StatusTooManyRequests)
	throttled := readORSError(rec.Result())
	assert.Equal(t, 3*time.Second, throttled.RetryAfter)
	assert.True(t, shouldRetry(throttled))

	assert.Equal(t, 3*time.Second, retryDelay(throttled, time.Second))
	assert.Equal(t, 5*time.Second, retryDelay(throttled, 5*time.Second))
	assert.Equal(t, time.Second, retryDelay(&orsError{Status: http.StatusBadGateway}, time.Second))

	rec = httptest.NewRecorder()
	rec.Header().Set("Retry-After", "3600")
	rec.WriteHeader(http.StatusServiceUnavailable)
	assert.Equal(t, maxRetryAfter, readORSError(rec.Result()).RetryAfter)

	assert.False(t, shouldRetry(&orsError{Status: http.StatusNotFound}))
}

func TestNewORSRequiresKey(t *testing.T) {
	_, err := NewORSDistanceProvider("", nil, ORSConfig{})
	require.Error(t, err)
}

func TestORSConfigDefaults(t *testing.T) {
	c := ORSConfig{BaseURL: "http://example.test/"}.withDefaults()
	assert.Equal(t, "http://example.test", c.BaseURL)
	assert.Equal(t, "driving-car", c.Profile)
	assert.Equal(t, 40, c.RequestsPerMinute)
}
