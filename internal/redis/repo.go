package redis

import "go.uber.org/zap"

// Repository bundles the per-entity repos over one shared client.
type Repository struct {
	log    *zap.Logger
	client *Client

	Channels *ChannelRepository
	Settings *SettingsRepository
}

func NewRepository(log *zap.Logger, client *Client) *Repository {
	log = log.Named("repo")

	return &Repository{
		log,
		client,
		newChannelRepository(log, client),
		newSettingsRepository(log, client),
	}
}
