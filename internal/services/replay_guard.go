package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"foodsnap-core/pkg/logging"
)

// ReplayGuard drops webhook events that were already processed
type ReplayGuard struct {
	processed       map[string]time.Time
	mutex           sync.Mutex
	cleanupInterval time.Duration
	ttl             time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewReplayGuard creates a guard remembering events for 24 hours
func NewReplayGuard() *ReplayGuard {
	g := &ReplayGuard{
		processed:       make(map[string]time.Time),
		cleanupInterval: time.Hour,
		ttl:             24 * time.Hour,
		stopCleanup:     make(chan struct{}),
	}
	go g.cleanupLoop()
	return g
}

// IsReplay records the event and reports whether it was seen before.
// Events without an id cannot be checked and are allowed through.
func (g *ReplayGuard) IsReplay(eventID string, timestampMs int64) bool {
	if eventID == "" {
		logging.Infof("Webhook event id is empty, skipping replay check")
		return false
	}

	key := eventKey(eventID, timestampMs)

	g.mutex.Lock()
	defer g.mutex.Unlock()
	if seen, ok := g.processed[key]; ok {
		logging.Infof("Replay detected - event: %s, first seen at: %v", eventID, seen)
		return true
	}
	g.processed[key] = time.Now()
	return false
}

// Forget drops a recorded event so a redelivery is processed again
func (g *ReplayGuard) Forget(eventID string, timestampMs int64) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	delete(g.processed, eventKey(eventID, timestampMs))
}

// Len returns the number of remembered events
func (g *ReplayGuard) Len() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return len(g.processed)
}

// Stop ends the cleanup goroutine
func (g *ReplayGuard) Stop() {
	g.stopOnce.Do(func() { close(g.stopCleanup) })
}

func eventKey(eventID string, timestampMs int64) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", eventID, timestampMs)))
	return hex.EncodeToString(hash[:])
}

func (g *ReplayGuard) cleanupLoop() {
	ticker := time.NewTicker(g.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.cleanup(time.Now())
		case <-g.stopCleanup:
			return
		}
	}
}

func (g *ReplayGuard) cleanup(now time.Time) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	before := len(g.processed)
	for key, seen := range g.processed {
		if now.Sub(seen) > g.ttl {
			delete(g.processed, key)
		}
	}
	if removed := before - len(g.processed); removed > 0 {
		logging.Infof("Replay guard cleanup: removed %d expired events, remaining: %d", removed, len(g.processed))
	}
}
