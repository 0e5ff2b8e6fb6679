package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/duelrooms/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing.
// Queued values are returned first; once a queue is drained, String falls back to
// a deterministic sequence (R00001, R00002, ...) so repeated room creation never collides.
type MockRandom struct {
	mu sync.Mutex

	stringResults []string
	generated     int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// String returns the next queued result, or the next value of the fallback sequence
func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.stringResults) > 0 {
		result := r.stringResults[0]
		r.stringResults = r.stringResults[1:]
		return result
	}
	r.generated++
	return fmt.Sprintf("R%0*d", max(length-1, 1), r.generated)
}

// QueueString adds values to the String result queue
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stringResults = append(r.stringResults, values...)
}

// QueuedStrings returns how many queued String results are still unused
func (r *MockRandom) QueuedStrings() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stringResults)
}

// Reset clears all queued results and restarts the fallback sequence
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stringResults = nil
	r.generated = 0
}
