package recorder

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry maps room IDs to their recording attempt controllers.
// It enforces the at-most-one-live-attempt-per-channel invariant: Start is
// an insert-if-absent under the registry lock, so two concurrent starts for
// the same channel yield exactly one attempt.
//
// A finished controller stays in its slot (its terminal status remains
// pollable) until the next Start replaces it or Remove evicts it.
type Registry struct {
	log         *zap.Logger
	mu          sync.Mutex
	controllers map[string]*Controller
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		log:         log.Named("registry"),
		controllers: make(map[string]*Controller),
	}
}

// Start launches a recording attempt for the channel unless one is still
// alive. Returns the controller now owning the slot and whether this call
// started it; a duplicate start is a silent no-op.
func (r *Registry) Start(cfg ControllerConfig) (*Controller, bool) {
	r.mu.Lock()
	if cur, ok := r.controllers[cfg.ChannelID]; ok && cur.Alive() {
		r.mu.Unlock()
		return cur, false
	}
	c := NewController(cfg)
	r.controllers[cfg.ChannelID] = c
	r.mu.Unlock()

	go c.Run()
	return c, true
}

// Stop requests termination of the channel's live attempt, if any.
// Idempotent; a stop for an unknown or finished channel is a no-op.
// Non-blocking: the attempt keeps running until its process is reaped.
func (r *Registry) Stop(id string) {
	if c := r.Get(id); c != nil {
		c.Stop()
	}
}

// Get returns the channel's current controller (live or terminal), or nil.
func (r *Registry) Get(id string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controllers[id]
}

// Alive reports whether the channel has a live attempt.
func (r *Registry) Alive(id string) bool {
	c := r.Get(id)
	return c != nil && c.Alive()
}

// Remove stops the channel's attempt, waits for it to fully exit, and
// evicts the slot. Used when a channel is deleted.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	c := r.controllers[id]
	delete(r.controllers, id)
	r.mu.Unlock()

	if c != nil {
		c.Stop()
		<-c.Done()
	}
}

// AttemptStatus is a point-in-time view of one attempt for observers.
type AttemptStatus struct {
	AttemptID string    `json:"attempt_id"`
	ChannelID string    `json:"channel_id"`
	Status    string    `json:"status"`
	Color     string    `json:"color"`
	Alive     bool      `json:"alive"`
	StartedAt time.Time `json:"started_at"`
	FinalPath string    `json:"final_path,omitempty"`
}

// Snapshot returns the status of every known attempt, keyed by room ID.
func (r *Registry) Snapshot() map[string]AttemptStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]AttemptStatus, len(r.controllers))
	for id, c := range r.controllers {
		st := c.Status()
		out[id] = AttemptStatus{
			AttemptID: c.AttemptID(),
			ChannelID: id,
			Status:    st.String(),
			Color:     st.Color(),
			Alive:     c.Alive(),
			StartedAt: c.StartedAt(),
			FinalPath: c.FinalPath(),
		}
	}
	return out
}

// StopAll stops every live attempt and waits for each to exit.
// Used on shutdown so no provisional file is left without finalization.
func (r *Registry) StopAll() {
	r.mu.Lock()
	cs := make([]*Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		cs = append(cs, c)
	}
	r.mu.Unlock()

	for _, c := range cs {
		c.Stop()
	}
	for _, c := range cs {
		<-c.Done()
	}
}
