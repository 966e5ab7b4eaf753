package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/edgewatch/livepatrol/internal/domain/channel"
	"github.com/edgewatch/livepatrol/internal/domain/settings"
	"github.com/edgewatch/livepatrol/internal/recorder"
	"go.uber.org/zap"
)

// -----------------------------------------------------------------------------
// RecorderService
// -----------------------------------------------------------------------------
//
// Runtime model
//   • Single process, many concurrent requests plus the patrol loop.
//   • Mutations for the SAME channel ID are serialized via a per-ID gate.
//   • Reads (Get/List/status) are lock-free.
//
// Contract
//   • The registry is the runtime source of truth for live attempts; Redis
//     is the source of truth for tracked channels and settings.
//   • Starting is insert-if-absent in the registry: a second start while an
//     attempt is alive is a no-op, never a replacement.
//   • Delete stops any live attempt and waits for it to fully exit before
//     removing the channel from Redis. Recording files stay on disk.

// ErrChannelExists signals a create for an already tracked room ID.
var ErrChannelExists = errors.New("channel already exists")

// ChannelStore is the persistence surface the service needs for tracked
// channels. *redis.ChannelRepository implements it.
type ChannelStore interface {
	HasID(ctx context.Context, id string) (bool, error)
	Upsert(ctx context.Context, ch *channel.Channel) error
	GetByID(ctx context.Context, id string) (*channel.Channel, error)
	GetAll(ctx context.Context) ([]*channel.Channel, error)
	Delete(ctx context.Context, id string) error
}

// SettingsStore persists the single global settings record.
// *redis.SettingsRepository implements it.
type SettingsStore interface {
	Get(ctx context.Context) (*settings.Settings, error)
	Put(ctx context.Context, s *settings.Settings) error
}

// RecorderService coordinates the stores (Redis), the attempt registry, and
// the patrol scheduler.
type RecorderService struct {
	log        *zap.Logger
	channels   ChannelStore
	settings   SettingsStore
	registry   *recorder.Registry
	resolver   recorder.Resolver
	supervisor *recorder.Supervisor
	patrol     *recorder.Patrol

	recordingsDir string

	// per-channel locks to serialize mutating requests on the same ID
	muxes sync.Map // map[string]*gate
}

// gate is a tiny 1-token semaphore with TryLock semantics (non-blocking fast-fail).
type gate struct{ ch chan struct{} }

func newGate() *gate {
	g := &gate{ch: make(chan struct{}, 1)}
	g.ch <- struct{}{} // token present => unlocked
	return g
}
func (g *gate) Lock() { <-g.ch }
func (g *gate) Unlock() {
	select {
	case g.ch <- struct{}{}:
	default:
		panic("unlock of unlocked gate")
	}
}

// NewRecorderService wires the stores, registry, resolver, supervisor, and
// patrol loop together.
func NewRecorderService(log *zap.Logger, channels ChannelStore, settingsStore SettingsStore, resolver recorder.Resolver, supervisor *recorder.Supervisor, recordingsDir string) *RecorderService {
	svc := &RecorderService{
		log:           log.Named("recorder_service"),
		channels:      channels,
		settings:      settingsStore,
		registry:      recorder.NewRegistry(log),
		resolver:      resolver,
		supervisor:    supervisor,
		recordingsDir: recordingsDir,
	}

	svc.patrol = recorder.NewPatrol(log, svc.registry, svc, svc, svc.launchFromPatrol)

	return svc
}

// lock acquires the per-ID gate (blocking). Always returns a valid unlock func.
func (s *RecorderService) lock(id string) func() {
	v, _ := s.muxes.LoadOrStore(id, newGate())
	g := v.(*gate)
	g.Lock()
	return func() { g.Unlock() }
}

// Channels implements recorder.ChannelSource for the patrol loop.
func (s *RecorderService) Channels(ctx context.Context) ([]*channel.Channel, error) {
	return s.channels.GetAll(ctx)
}

// PatrolSettings implements recorder.SettingsSource for the patrol loop.
func (s *RecorderService) PatrolSettings(ctx context.Context) (*settings.Settings, error) {
	return s.settings.Get(ctx)
}

// ----- Channel CRUD -----

// CreateChannel validates and persists a new tracked channel.
func (s *RecorderService) CreateChannel(ctx context.Context, ch *channel.Channel) error {
	if err := ch.Validate(); err != nil {
		return err
	}

	unlock := s.lock(ch.ID)
	defer unlock()

	exists, err := s.channels.HasID(ctx, ch.ID)
	if err != nil {
		return fmt.Errorf("has id: %w", err)
	}
	if exists {
		return ErrChannelExists
	}

	if err := s.channels.Upsert(ctx, ch); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	s.log.Info("channel created", zap.String("channel_id", ch.ID))
	return nil
}

// ChannelMod is a partial channel update; nil fields are left untouched.
type ChannelMod struct {
	Remark       *string            `json:"remark"`
	FFmpegParams *map[string]string `json:"ffmpeg_params"`
}

// ModifyChannel applies a partial update to an existing channel.
func (s *RecorderService) ModifyChannel(ctx context.Context, id string, mod ChannelMod) (*channel.Channel, error) {
	unlock := s.lock(id)
	defer unlock()

	ch, err := s.channels.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if mod.Remark != nil {
		ch.Remark = *mod.Remark
	}
	if mod.FFmpegParams != nil {
		ch.FFmpegParams = *mod.FFmpegParams
	}
	if err := ch.Validate(); err != nil {
		return nil, err
	}

	if err := s.channels.Upsert(ctx, ch); err != nil {
		return nil, fmt.Errorf("upsert: %w", err)
	}
	return ch, nil
}

// DeleteChannel stops any live attempt (waiting for it to exit) and removes
// the channel from the store.
func (s *RecorderService) DeleteChannel(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	// Stop-then-wait before touching the store: the attempt goroutine may
	// still be finalizing its provisional file.
	s.registry.Remove(id)

	if err := s.channels.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("channel deleted", zap.String("channel_id", id))
	return nil
}

// GetChannel returns one tracked channel.
func (s *RecorderService) GetChannel(ctx context.Context, id string) (*channel.Channel, error) {
	return s.channels.GetByID(ctx, id)
}

// ListChannels returns all tracked channels in room-ID order.
func (s *RecorderService) ListChannels(ctx context.Context) ([]*channel.Channel, error) {
	return s.channels.GetAll(ctx)
}

// ----- Recording commands -----

// StartRecording starts a recording attempt for the channel. Returns whether
// this call started a new attempt; false means one was already alive.
func (s *RecorderService) StartRecording(ctx context.Context, id string) (bool, error) {
	ch, err := s.channels.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	st, err := s.settings.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("settings: %w", err)
	}
	_, started := s.startAttempt(ch, st)
	return started, nil
}

// startAttempt computes the effective attempt inputs and inserts it into the
// registry. Shared by the manual start command and the patrol loop.
func (s *RecorderService) startAttempt(ch *channel.Channel, st *settings.Settings) (*recorder.Controller, bool) {
	return s.registry.Start(recorder.ControllerConfig{
		Log:        s.log,
		ChannelID:  ch.ID,
		Resolver:   s.resolver,
		Supervisor: s.supervisor,
		Policy:     recorder.PolicyFromSettings(st),
		Params:     channel.EffectiveParams(ch.FFmpegParams),
		Ext:        channel.EffectiveFormat(ch.FFmpegParams),
		OutputDir:  filepath.Join(s.recordingsDir, ch.ID),
	})
}

// launchFromPatrol starts an attempt on behalf of the patrol loop. The sweep
// iterates a channel-list snapshot that may predate a concurrent delete, so
// existence is re-checked under the per-ID gate before inserting into the
// registry. DeleteChannel holds the same gate across registry removal and
// store deletion, so a deleted channel never gains a fresh attempt.
func (s *RecorderService) launchFromPatrol(ch *channel.Channel, st *settings.Settings) {
	unlock := s.lock(ch.ID)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	exists, err := s.channels.HasID(ctx, ch.ID)
	if err != nil {
		s.log.Warn("existence check failed, skipping launch",
			zap.String("channel_id", ch.ID), zap.Error(err))
		return
	}
	if !exists {
		return
	}
	s.startAttempt(ch, st)
}

// StopRecording requests termination of the channel's live attempt, if any.
func (s *RecorderService) StopRecording(id string) {
	s.registry.Stop(id)
}

// AttemptLogs returns the last n capture-process output lines for the
// channel's current attempt. ok is false when no attempt is known.
func (s *RecorderService) AttemptLogs(id string, n int) ([]string, bool) {
	c := s.registry.Get(id)
	if c == nil {
		return nil, false
	}
	return c.Logs(n), true
}

// RegistrySnapshot exposes the registry state for the summary service and
// the debug surface.
func (s *RecorderService) RegistrySnapshot() map[string]recorder.AttemptStatus {
	return s.registry.Snapshot()
}

// ----- Patrol commands -----

func (s *RecorderService) StartPatrol()         { s.patrol.Start() }
func (s *RecorderService) StopPatrol()          { s.patrol.Stop() }
func (s *RecorderService) PatrolRunning() bool  { return s.patrol.Running() }
func (s *RecorderService) PatrolStatus() string { return s.patrol.Status() }

// Shutdown stops the patrol loop and every live attempt, waiting for each
// attempt to finalize its output file.
func (s *RecorderService) Shutdown() {
	s.patrol.Stop()
	s.registry.StopAll()
}

// ----- Settings -----

func (s *RecorderService) GetSettings(ctx context.Context) (*settings.Settings, error) {
	return s.settings.Get(ctx)
}

func (s *RecorderService) PutSettings(ctx context.Context, st *settings.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	return s.settings.Put(ctx, st)
}

// ----- Recording history -----

// Recordings lists the finalized recordings for a channel, newest first.
// The on-disk files are the history; nothing else is persisted.
func (s *RecorderService) Recordings(id string) ([]*recorder.RecordingFile, error) {
	dir := filepath.Join(s.recordingsDir, id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil // never recorded yet
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}

	out := make([]*recorder.RecordingFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		rf, err := recorder.ParseFinalName(e.Name())
		if err != nil {
			continue // provisional or foreign file
		}
		out = append(out, rf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	return out, nil
}

// DeleteRecording removes one finalized recording file.
func (s *RecorderService) DeleteRecording(id, name string) error {
	// The name must parse as a finalized recording for this channel; this
	// also rules out path traversal since parsed names contain no separators.
	rf, err := recorder.ParseFinalName(name)
	if err != nil {
		return err
	}
	if rf.ChannelID != id {
		return fmt.Errorf("recording %q does not belong to channel %s", name, id)
	}
	return os.Remove(filepath.Join(s.recordingsDir, id, name))
}
