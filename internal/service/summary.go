package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"go.uber.org/zap"
)

type SummaryOptions struct {
	// TTL controls how long we serve the in-memory snapshot.
	// 150–400ms works well for ~1s polling; default 250ms.
	TTL time.Duration
	// RefreshTimeout bounds Redis work for a single refresh.
	RefreshTimeout time.Duration
	// Allow serving stale on refresh error (graceful degrade).
	AllowStaleOnError bool
}

func (o *SummaryOptions) setDefaults() {
	if o.TTL <= 0 {
		o.TTL = 250 * time.Millisecond
	}
	if o.RefreshTimeout <= 0 {
		o.RefreshTimeout = 300 * time.Millisecond
	}
}

// ChannelSummary is one row of the status polling surface: the persisted
// channel joined with its current attempt state.
type ChannelSummary struct {
	ID        string    `json:"id"`
	Remark    string    `json:"remark"`
	Status    string    `json:"status"` // attempt status, or "Idle" when none
	Color     string    `json:"color"`
	Alive     bool      `json:"alive"`
	AttemptID string    `json:"attempt_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// SummaryResult lets the handler set headers/telemetry.
type SummaryResult struct {
	Data        []ChannelSummary
	PatrolState string
	CacheHit    bool
	GeneratedAt time.Time // snapshot timestamp
}

// SummaryService serves a cached, coalesced view of all channel statuses.
// The UI polls ~1/s per client; the cache keeps that from hammering Redis,
// and singleflight collapses concurrent refreshes into one.
type SummaryService struct {
	log *zap.Logger
	svc *RecorderService

	mu      sync.RWMutex
	cache   []ChannelSummary
	patrol  string
	expires time.Time
	genAt   time.Time

	opts SummaryOptions
	now  func() time.Time

	sg singleflight.Group
}

// NewSummaryService wires the recorder service and cache policy.
// Reuse a single instance per process (handlers call Get()).
func NewSummaryService(log *zap.Logger, svc *RecorderService, opts SummaryOptions) *SummaryService {
	opts.setDefaults()

	return &SummaryService{
		log:  log.Named("summary_service"),
		svc:  svc,
		opts: opts,
		now:  time.Now,
	}
}

// Get returns the cached snapshot or refreshes it when expired.
// Multiple concurrent refreshes are coalesced.
func (s *SummaryService) Get(ctx context.Context) (SummaryResult, error) {
	// Fast path: fresh cache
	s.mu.RLock()
	if s.cache != nil && s.now().Before(s.expires) {
		out := SummaryResult{Data: cloneSummaries(s.cache), PatrolState: s.patrol, CacheHit: true, GeneratedAt: s.genAt}
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	// Slow path: singleflight refresh
	v, err, _ := s.sg.Do("summary-refresh", func() (any, error) {
		// Double-check freshness after we won the flight
		s.mu.RLock()
		if s.cache != nil && s.now().Before(s.expires) {
			out := SummaryResult{Data: cloneSummaries(s.cache), PatrolState: s.patrol, CacheHit: true, GeneratedAt: s.genAt}
			s.mu.RUnlock()
			return out, nil
		}
		s.mu.RUnlock()

		ctx, cancel := context.WithTimeout(ctx, s.opts.RefreshTimeout)
		defer cancel()

		data, patrol, err := s.refresh(ctx)
		if err != nil {
			// Refresh failed: optionally serve stale, else propagate error
			if s.opts.AllowStaleOnError {
				s.mu.RLock()
				if s.cache != nil {
					out := SummaryResult{Data: cloneSummaries(s.cache), PatrolState: s.patrol, CacheHit: true, GeneratedAt: s.genAt}
					s.mu.RUnlock()
					s.log.Warn("summary refresh failed; serving stale", zap.Error(err))
					return out, nil
				}
				s.mu.RUnlock()
			}
			return nil, err
		}

		// Publish new snapshot
		genAt := s.now()
		s.mu.Lock()
		s.cache = data
		s.patrol = patrol
		s.genAt = genAt
		s.expires = genAt.Add(s.opts.TTL)
		s.mu.Unlock()

		return SummaryResult{Data: cloneSummaries(data), PatrolState: patrol, GeneratedAt: genAt}, nil
	})
	if err != nil {
		return SummaryResult{}, err
	}
	return v.(SummaryResult), nil
}

// refresh joins the channel list from Redis with the live registry snapshot.
func (s *SummaryService) refresh(ctx context.Context) ([]ChannelSummary, string, error) {
	chans, err := s.svc.ListChannels(ctx)
	if err != nil {
		return nil, "", err
	}
	attempts := s.svc.RegistrySnapshot()

	out := make([]ChannelSummary, 0, len(chans))
	for _, ch := range chans {
		row := ChannelSummary{
			ID:     ch.ID,
			Remark: ch.Remark,
			Status: "Idle",
			Color:  "gray",
		}
		if a, ok := attempts[ch.ID]; ok {
			row.Status = a.Status
			row.Color = a.Color
			row.Alive = a.Alive
			row.AttemptID = a.AttemptID
			row.StartedAt = a.StartedAt
		}
		out = append(out, row)
	}
	return out, s.svc.PatrolStatus(), nil
}

func cloneSummaries(in []ChannelSummary) []ChannelSummary {
	out := make([]ChannelSummary, len(in))
	copy(out, in)
	return out
}
