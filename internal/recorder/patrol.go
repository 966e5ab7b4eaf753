package recorder

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edgewatch/livepatrol/internal/domain/channel"
	"github.com/edgewatch/livepatrol/internal/domain/settings"
	"go.uber.org/zap"
)

// ChannelSource yields the tracked channels in a stable order.
type ChannelSource interface {
	Channels(ctx context.Context) ([]*channel.Channel, error)
}

// SettingsSource yields the current global settings.
type SettingsSource interface {
	PatrolSettings(ctx context.Context) (*settings.Settings, error)
}

// LaunchFunc starts a recording attempt for a channel under the given
// settings. Implementations must be non-blocking beyond the registry
// insert; the attempt itself runs in its own goroutine.
type LaunchFunc func(ch *channel.Channel, s *settings.Settings)

// Patrol is the long-lived loop that re-evaluates all tracked channels while
// the current time falls inside the configured daily window.
//
// Start and Stop are idempotent. Stop blocks until the loop goroutine has
// fully exited, so callers may tear down shared state right after it
// returns. Attempts already started are never aborted by a scheduler stop.
type Patrol struct {
	log      *zap.Logger
	registry *Registry
	channels ChannelSource
	settings SettingsSource
	launch   LaunchFunc

	// Delay knobs, shortened in tests.
	tick           time.Duration // between whole-loop iterations
	outOfWindow    time.Duration // re-check delay while outside the window
	configErrDelay time.Duration // back-off after a malformed window
	jitterMin      time.Duration // inter-channel delay lower bound
	jitterMax      time.Duration // inter-channel delay upper bound

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	status atomic.Value // string
}

func NewPatrol(log *zap.Logger, registry *Registry, channels ChannelSource, settingsSrc SettingsSource, launch LaunchFunc) *Patrol {
	p := &Patrol{
		log:            log.Named("patrol"),
		registry:       registry,
		channels:       channels,
		settings:       settingsSrc,
		launch:         launch,
		tick:           1 * time.Second,
		outOfWindow:    60 * time.Second,
		configErrDelay: 10 * time.Second,
		jitterMin:      5 * time.Second,
		jitterMax:      10 * time.Second,
	}
	p.status.Store("stopped")
	return p
}

// Start launches the patrol loop. No-op if already running.
func (p *Patrol) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
	p.log.Info("patrol started")
}

// Stop cancels the loop and joins it. No-op if not running.
func (p *Patrol) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.log.Info("patrol stopped")
}

// Running reports whether the loop is active.
func (p *Patrol) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Status returns the current patrol status line for the polling surface.
func (p *Patrol) Status() string {
	return p.status.Load().(string)
}

func (p *Patrol) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer p.status.Store("stopped")

	for ctx.Err() == nil {
		s, err := p.settings.PatrolSettings(ctx)
		if err != nil {
			p.status.Store("degraded: settings unavailable")
			p.log.Warn("settings read failed", zap.Error(err))
			sleepCtx(ctx, p.configErrDelay)
			continue
		}

		start, end, err := parseWindow(s.PatrolStart, s.PatrolEnd)
		if err != nil {
			// Recoverable: the operator may fix the window while we back off.
			p.status.Store("degraded: bad patrol window")
			p.log.Warn("malformed patrol window",
				zap.String("start", s.PatrolStart), zap.String("end", s.PatrolEnd), zap.Error(err))
			sleepCtx(ctx, p.configErrDelay)
			continue
		}

		if inWindow(minutesNow(time.Now()), start, end) {
			p.status.Store(fmt.Sprintf("patrolling (%s-%s)", s.PatrolStart, s.PatrolEnd))
			p.sweep(ctx, s)
		} else {
			p.status.Store("paused (outside window)")
			sleepCtx(ctx, p.outOfWindow)
		}

		sleepCtx(ctx, p.tick)
	}
}

// sweep starts one attempt for every channel without a live one, spacing the
// starts with a randomized delay so resolution requests don't burst against
// the upstream service in lockstep.
func (p *Patrol) sweep(ctx context.Context, s *settings.Settings) {
	chans, err := p.channels.Channels(ctx)
	if err != nil {
		p.log.Warn("channel list read failed", zap.Error(err))
		return
	}

	for _, ch := range chans {
		if ctx.Err() != nil {
			return
		}
		if p.registry.Alive(ch.ID) {
			continue
		}

		p.log.Info("patrol starting attempt", zap.String("channel_id", ch.ID))
		p.launch(ch, s)

		jitter := p.jitterMin + time.Duration(rand.Int63n(int64(p.jitterMax-p.jitterMin)+1))
		sleepCtx(ctx, jitter)
	}
}

// sleepCtx sleeps for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// parseWindow parses "HH:MM" window bounds into minutes since midnight.
func parseWindow(startStr, endStr string) (start, end int, err error) {
	start, err = parseClock(startStr)
	if err != nil {
		return 0, 0, fmt.Errorf("start: %w", err)
	}
	end, err = parseClock(endStr)
	if err != nil {
		return 0, 0, fmt.Errorf("end: %w", err)
	}
	return start, end, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func minutesNow(now time.Time) int {
	return now.Hour()*60 + now.Minute()
}

// inWindow reports whether now (minutes since midnight) falls inside the
// daily window. end < start means the window wraps past midnight.
func inWindow(now, start, end int) bool {
	if end < start {
		return now >= start || now <= end
	}
	return start <= now && now <= end
}
