package distance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/platform/obs"
	"sidekick-route-service/internal/ports"
)

// ORSConfig tunes the OpenRouteService client. Zero fields take defaults.
type ORSConfig struct {
	BaseURL           string
	Profile           string
	Timeout           time.Duration
	RequestsPerMinute int
	// Initial retry delay, doubled after each failed attempt.
	RetryBackoff time.Duration
}

func (c ORSConfig) withDefaults() ORSConfig {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openrouteservice.org"
	}
	if c.Profile == "" {
		c.Profile = "driving-car"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 40
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// ORSDistanceProvider prices truck legs with the OpenRouteService matrix
// endpoint, reading through an optional leg cache. Safe for concurrent use.
type ORSDistanceProvider struct {
	session      *http.Client
	apiKey       string
	baseURL      string
	profile      string
	limiter      *rate.Limiter
	retryBackoff time.Duration
	legCache     ports.LegCache
}

var _ ports.DistanceMatrixProvider = (*ORSDistanceProvider)(nil)

// legCache may be nil.
func NewORSDistanceProvider(apiKey string, legCache ports.LegCache, cfg ORSConfig) (*ORSDistanceProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	cfg = cfg.withDefaults()

	return &ORSDistanceProvider{
		session:      &http.Client{Timeout: cfg.Timeout},
		apiKey:       apiKey,
		baseURL:      cfg.BaseURL,
		profile:      cfg.Profile,
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		retryBackoff: cfg.RetryBackoff,
		legCache:     legCache,
	}, nil
}

func (o *ORSDistanceProvider) GetDistance(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (ports.DistanceResult, error) {
	results, err := o.GetDistances(ctx, origin, []domain.Coordinates{destination})
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf("get distances %s -> %s: %w", origin.Key(), destination.Key(), err)
	}

	result, ok := results[destination.Key()]
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("no distance result for %s -> %s", origin.Key(), destination.Key())
	}
	return result, nil
}

// GetDistances prices the legs from origin to each destination, keyed by
// Coordinates.Key. A destination at the origin's key costs nothing.
func (o *ORSDistanceProvider) GetDistances(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "ors.GetDistances")(&err)

	out := make(map[string]ports.DistanceResult, len(destinations))
	originKey := origin.Key()

	seen := make(map[string]struct{}, len(destinations))
	destList := make([]domain.Coordinates, 0, len(destinations))
	for _, d := range destinations {
		k := d.Key()
		if k == originKey {
			out[k] = ports.DistanceResult{}
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		destList = append(destList, d)
	}
	if len(destList) == 0 {
		return out, nil
	}

	hits := map[string]ports.DistanceResult{}
	if o.legCache != nil {
		keys := make([]string, 0, len(destList))
		for _, d := range destList {
			keys = append(keys, d.Key())
		}
		if hits, err = o.legCache.GetMany(ctx, originKey, keys); err != nil {
			return nil, fmt.Errorf("ORS get leg cache: %w", err)
		}
	}

	misses := make([]domain.Coordinates, 0, len(destList))
	for _, d := range destList {
		if r, ok := hits[d.Key()]; ok {
			out[d.Key()] = r
			continue
		}
		misses = append(misses, d)
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := o.fetchLegs(ctx, origin, misses)
	if err != nil {
		return nil, err
	}

	if o.legCache != nil {
		if err := o.legCache.PutMany(ctx, originKey, fetched); err != nil {
			log.Printf("op=leg_cache_put origin=%s err=%v", originKey, err)
		}
	}

	for k, v := range fetched {
		out[k] = v
	}
	return out, nil
}
