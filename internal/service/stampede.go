package service

import (
	"sync"

	"github.com/kjstillabower/portfolio-service/internal/cache"
)

// stampedeTracker counts misses in progress per key. A count above one means
// several requests are refreshing the same key at once.
type stampedeTracker struct {
	mu           sync.Mutex
	activeMisses map[cache.Key]int
}

func newStampedeTracker() *stampedeTracker {
	return &stampedeTracker{activeMisses: make(map[cache.Key]int)}
}

// begin records a miss for key and returns the number now in progress.
// The caller must call end(key) once its refresh has finished.
func (st *stampedeTracker) begin(key cache.Key) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.activeMisses[key]++
	return st.activeMisses[key]
}

func (st *stampedeTracker) end(key cache.Key) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.activeMisses[key] <= 1 {
		delete(st.activeMisses, key)
		return
	}
	st.activeMisses[key]--
}

// inProgress returns the number of misses in progress for key.
func (st *stampedeTracker) inProgress(key cache.Key) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.activeMisses[key]
}
