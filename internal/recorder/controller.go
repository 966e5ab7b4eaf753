package recorder

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/edgewatch/livepatrol/internal/domain/channel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ControllerConfig carries everything one recording attempt needs, captured
// at start time. Settings edits after start do not affect a running attempt.
type ControllerConfig struct {
	Log        *zap.Logger
	ChannelID  string
	Resolver   Resolver
	Supervisor *Supervisor
	Policy     ProxyPolicy
	Params     []channel.Param
	Ext        string
	OutputDir  string
}

// Controller owns the lifecycle of one recording attempt for one channel:
// resolve, then capture, then a terminal status. Observers poll Status();
// updates are single atomic swaps so a poller never sees a torn value.
type Controller struct {
	attemptID string
	channelID string
	startedAt time.Time

	log *zap.Logger
	cfg ControllerConfig

	status        atomic.Int32
	stopRequested atomic.Bool
	finalPath     atomic.Value // string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	logBuf *LogBuffer
}

// NewController creates a controller in the Checking state. The caller runs
// Run in its own goroutine; the registry does this.
func NewController(cfg ControllerConfig) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		attemptID: uuid.New().String(),
		channelID: cfg.ChannelID,
		startedAt: time.Now(),
		log:       cfg.Log.Named("attempt").With(zap.String("channel_id", cfg.ChannelID)),
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		logBuf:    new(LogBuffer),
	}
	c.status.Store(int32(StatusChecking))
	c.finalPath.Store("")
	return c
}

// Run executes the attempt to completion. Blocking; called once.
func (c *Controller) Run() {
	defer close(c.done)
	c.log.Info("attempt started", zap.String("attempt_id", c.attemptID))

	locator, err := c.cfg.Resolver.Resolve(c.ctx, c.channelID, c.cfg.Policy)
	if err != nil {
		// Not live and lookup faults end the attempt the same way: nothing
		// recorded, channel stays eligible for the next patrol pass.
		if !errors.Is(err, ErrNotLive) {
			c.log.Warn("resolution failed", zap.Error(err))
		} else {
			c.log.Info("channel not live")
		}
		c.status.Store(int32(StatusNotLive))
		return
	}

	c.log.Info("stream resolved, starting capture")
	c.status.Store(int32(StatusRecording))

	res, err := c.cfg.Supervisor.Capture(c.ctx, CaptureRequest{
		ChannelID: c.channelID,
		Locator:   locator,
		Params:    c.cfg.Params,
		Ext:       c.cfg.Ext,
		OutputDir: c.cfg.OutputDir,
		ProxyURL:  c.cfg.Policy.CaptureProxyURL(),
		Start:     time.Now(),
	}, c.logBuf)

	switch {
	case errors.Is(err, ErrToolMissing):
		c.log.Error("capture binary missing", zap.Error(err))
		c.status.Store(int32(StatusToolMissing))
	case err != nil:
		c.log.Error("capture failed", zap.Error(err))
		c.status.Store(int32(StatusProcessError))
	case c.stopRequested.Load():
		c.finalPath.Store(res.FinalPath)
		c.log.Info("recording stopped manually")
		c.status.Store(int32(StatusStoppedManually))
	default:
		c.finalPath.Store(res.FinalPath)
		c.log.Info("recording ended naturally")
		c.status.Store(int32(StatusEndedNaturally))
	}
}

// Stop requests cooperative termination of the attempt. Idempotent and safe
// after the attempt has already finished.
func (c *Controller) Stop() {
	c.stopRequested.Store(true)
	c.cancel()
}

// Status returns the current attempt status.
func (c *Controller) Status() Status {
	return Status(c.status.Load())
}

// Alive reports whether the attempt is still running.
func (c *Controller) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Done is closed when the attempt goroutine has fully exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// AttemptID returns the attempt's unique identifier.
func (c *Controller) AttemptID() string { return c.attemptID }

// ChannelID returns the owning channel's room ID.
func (c *Controller) ChannelID() string { return c.channelID }

// StartedAt returns when the attempt was created.
func (c *Controller) StartedAt() time.Time { return c.startedAt }

// FinalPath returns the finalized recording path, or "" if none exists.
func (c *Controller) FinalPath() string {
	return c.finalPath.Load().(string)
}

// Logs returns the last n capture-process output lines, newest first.
func (c *Controller) Logs(n int) []string {
	return c.logBuf.Read(n)
}
