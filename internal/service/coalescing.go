package service

import (
	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/portfolio-service/internal/cache"
	"github.com/kjstillabower/portfolio-service/internal/models"
	"github.com/kjstillabower/portfolio-service/internal/observability"
)

// requestCoalescer lets concurrent misses for one key share a single refresh.
// Callers arriving after the refresh finished start a new one.
type requestCoalescer struct {
	group singleflight.Group
}

func newRequestCoalescer() *requestCoalescer {
	return &requestCoalescer{}
}

// do runs fn once per key among overlapping callers and hands every caller its result.
func (rc *requestCoalescer) do(key cache.Key, fn func() (models.ForecastResult, error)) (models.ForecastResult, error) {
	v, err, shared := rc.group.Do(string(key), func() (interface{}, error) {
		return fn()
	})
	if shared {
		observability.RequestCoalescingHitsTotal.Inc()
	}
	if err != nil {
		return models.ForecastResult{}, err
	}
	return v.(models.ForecastResult), nil
}
