package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/edgewatch/livepatrol/internal/domain/channel"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrChannelNotFound = errors.New("channel not found")

	channelKeyPrefix = "livepatrol:channel:"
	channelIDsKey    = "livepatrol:channels" // SET of room IDs: {"42", "123", ...}
)

// ChannelRepository provides Redis-backed persistence for tracked channels.
type ChannelRepository struct {
	client *Client
	log    *zap.Logger
}

func newChannelRepository(log *zap.Logger, client *Client) *ChannelRepository {
	return &ChannelRepository{
		log:    log.Named("channel_repo"),
		client: client,
	}
}

// HasID returns true if a channel with the given room ID exists.
func (r *ChannelRepository) HasID(ctx context.Context, id string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, channelIDsKey, id).Result()
	if err != nil {
		return false, fmt.Errorf("set is member: %w", err)
	}
	return ok, nil
}

// Upsert persists a channel and adds its ID to the index set.
func (r *ChannelRepository) Upsert(ctx context.Context, ch *channel.Channel) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, channelKey(ch.ID), payload, 0)
	pipe.SAdd(ctx, channelIDsKey, ch.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// GetByID fetches a channel by room ID.
// Returns ErrChannelNotFound if the key does not exist.
func (r *ChannelRepository) GetByID(ctx context.Context, id string) (*channel.Channel, error) {
	value, err := r.client.Get(ctx, channelKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	ch, err := decodeChannel(value)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return ch, nil
}

// GetAll returns all tracked channels, ordered by room ID. The stable order
// matters: the patrol scheduler iterates this list directly.
func (r *ChannelRepository) GetAll(ctx context.Context) ([]*channel.Channel, error) {
	ids, err := r.client.SMembers(ctx, channelIDsKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("set members: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	keys := channelKeys(ids)
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}

	return parseMGetValues(keys, vals)
}

// Delete removes a channel by room ID. Returns ErrChannelNotFound if the key
// was not present.
func (r *ChannelRepository) Delete(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, channelKey(id))
	pipe.SRem(ctx, channelIDsKey, id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if del.Val() == 0 {
		return ErrChannelNotFound
	}
	return nil
}

// channelKey constructs the Redis key for a room ID.
func channelKey(id string) string {
	return channelKeyPrefix + id
}

// channelKeys constructs the Redis keys for multiple room IDs.
func channelKeys(ids []string) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = channelKey(id)
	}
	return keys
}

func decodeChannel(raw []byte) (*channel.Channel, error) {
	var ch channel.Channel
	if err := json.Unmarshal(raw, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// parseMGetValues converts Redis MGET results to Channel structs.
func parseMGetValues(keys []string, vals []interface{}) ([]*channel.Channel, error) {
	out := make([]*channel.Channel, 0, len(vals))

	for i, v := range vals {
		if v == nil {
			return nil, fmt.Errorf("key %s at index %d: %w", keys[i], i, ErrChannelNotFound)
		}

		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("key %s at index %d: unexpected type (got %T, want string)", keys[i], i, v)
		}
		ch, err := decodeChannel([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("key %s at index %d: decode channel: %w", keys[i], i, err)
		}
		out = append(out, ch)
	}
	return out, nil
}
