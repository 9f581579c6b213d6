package model

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDGenerator hands out lexicographically sortable ULIDs from a monotonic
// entropy source. Safe for concurrent use.
type IDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *IDGenerator) New() string {
	return g.NewAt(time.Now().UTC())
}

func (g *IDGenerator) NewAt(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}

var (
	defaultIDsOnce sync.Once
	defaultIDs     *IDGenerator
)

// NewID returns an id from the process-wide generator.
func NewID() string {
	defaultIDsOnce.Do(func() { defaultIDs = NewIDGenerator() })
	return defaultIDs.New()
}

// IsID reports whether s parses as a ULID.
func IsID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
