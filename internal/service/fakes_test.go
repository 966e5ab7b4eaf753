package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/edgewatch/livepatrol/internal/domain/channel"
	"github.com/edgewatch/livepatrol/internal/domain/settings"
	"github.com/edgewatch/livepatrol/internal/recorder"
	"github.com/edgewatch/livepatrol/internal/redis"
)

var errStore = errors.New("store unavailable")

// memChannelStore is an in-memory ChannelStore. Setting err makes every
// call fail with it, for exercising degraded paths.
type memChannelStore struct {
	mu  sync.Mutex
	m   map[string]*channel.Channel
	err error
}

func newMemChannelStore() *memChannelStore {
	return &memChannelStore{m: make(map[string]*channel.Channel)}
}

func (s *memChannelStore) HasID(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.m[id]
	return ok, nil
}

func (s *memChannelStore) Upsert(_ context.Context, ch *channel.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := *ch
	s.m[ch.ID] = &cp
	return nil
}

func (s *memChannelStore) GetByID(_ context.Context, id string) (*channel.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	ch, ok := s.m[id]
	if !ok {
		return nil, redis.ErrChannelNotFound
	}
	cp := *ch
	return &cp, nil
}

func (s *memChannelStore) GetAll(_ context.Context) ([]*channel.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*channel.Channel, 0, len(s.m))
	for _, ch := range s.m {
		cp := *ch
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memChannelStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.m[id]; !ok {
		return redis.ErrChannelNotFound
	}
	delete(s.m, id)
	return nil
}

func (s *memChannelStore) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// memSettingsStore is an in-memory SettingsStore. Like the Redis repository
// it hands out defaults until something is stored.
type memSettingsStore struct {
	mu sync.Mutex
	s  *settings.Settings
}

func (st *memSettingsStore) Get(_ context.Context) (*settings.Settings, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s == nil {
		return settings.Default(), nil
	}
	cp := *st.s
	return &cp, nil
}

func (st *memSettingsStore) Put(_ context.Context, s *settings.Settings) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	cp := *s
	st.s = &cp
	return nil
}

type resolverFunc func(ctx context.Context, roomID string, policy recorder.ProxyPolicy) (string, error)

func (f resolverFunc) Resolve(ctx context.Context, roomID string, policy recorder.ProxyPolicy) (string, error) {
	return f(ctx, roomID, policy)
}

// notLiveResolver reports every channel offline, so attempts terminate
// without ever reaching the capture layer.
var notLiveResolver = resolverFunc(func(context.Context, string, recorder.ProxyPolicy) (string, error) {
	return "", recorder.ErrNotLive
})
