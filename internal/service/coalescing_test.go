package service

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/portfolio-service/internal/cache"
	"github.com/kjstillabower/portfolio-service/internal/models"
)

func TestRequestCoalescer_Do_ConcurrentRequests(t *testing.T) {
	rc := newRequestCoalescer()
	var calls atomic.Int32
	release := make(chan struct{})

	fn := func() (models.ForecastResult, error) {
		calls.Add(1)
		<-release
		return models.ForecastResult{Now: models.CurrentConditions{Temperature: 10}}, nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]models.ForecastResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = rc.do("43.651,-79.347,auto", fn)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Errorf("request %d error = %v, want nil", i, errs[i])
		}
		if results[i].Now.Temperature != 10 {
			t.Errorf("request %d temperature = %d, want 10", i, results[i].Now.Temperature)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fn call count = %d, want 1 (coalescing failed)", got)
	}
}

func TestRequestCoalescer_Do_ErrorPropagation(t *testing.T) {
	rc := newRequestCoalescer()
	wantErr := errors.New("api failure")

	_, err := rc.do("k", func() (models.ForecastResult, error) {
		return models.ForecastResult{}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("do() error = %v, want %v", err, wantErr)
	}
}

// TestRequestCoalescer_Do_SequentialCallsRunAgain verifies results are not
// remembered once a call has finished.
func TestRequestCoalescer_Do_SequentialCallsRunAgain(t *testing.T) {
	rc := newRequestCoalescer()
	var calls atomic.Int32
	fn := func() (models.ForecastResult, error) {
		calls.Add(1)
		return models.ForecastResult{}, nil
	}

	_, _ = rc.do("k", fn)
	_, _ = rc.do("k", fn)
	if got := calls.Load(); got != 2 {
		t.Errorf("fn call count = %d, want 2", got)
	}
}

func TestRequestCoalescer_Do_DifferentKeys(t *testing.T) {
	rc := newRequestCoalescer()
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func() (models.ForecastResult, error) {
		calls.Add(1)
		<-release
		return models.ForecastResult{}, nil
	}

	var wg sync.WaitGroup
	for _, key := range []cache.Key{"1.000,2.000,auto", "3.000,4.000,auto"} {
		key := key
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = rc.do(key, fn)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 2 {
		t.Errorf("fn call count = %d, want 2", got)
	}
}
