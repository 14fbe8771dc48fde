package pollers

import "sync"

// Guard provides per-trigger mutual exclusion. A slow source API can make a
// poll cycle outlast its interval; without the guard two concurrent passes
// over the same trigger race on fingerprint keys and double-emit runs.
type Guard struct {
	mu    sync.Mutex
	inUse map[string]bool
}

func NewGuard() *Guard {
	return &Guard{inUse: make(map[string]bool)}
}

// TryAcquire claims the trigger, returning false when a previous pass still
// holds it. Callers that get false skip the trigger for this cycle.
func (g *Guard) TryAcquire(triggerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inUse[triggerID] {
		return false
	}

	g.inUse[triggerID] = true

	return true
}

// Release frees the trigger for the next cycle.
func (g *Guard) Release(triggerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.inUse, triggerID)
}
