package guilds

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/ReneKroon/ttlcache/v2"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/database"
)

const (
	cacheTTL   = 300 * time.Second
	cacheLimit = 1000
)

// Store is the persistence the manager reads through to.
type Store interface {
	Guild(ctx context.Context, guildID snowflake.ID) (*database.Guild, error)
	CreateGuild(ctx context.Context, guildID snowflake.ID) error
	SetPrefix(ctx context.Context, guildID snowflake.ID, prefix string) error
	SetMusicChannel(ctx context.Context, guildID snowflake.ID, channelID *snowflake.ID) error
	SetLogChannel(ctx context.Context, guildID snowflake.ID, channelID *snowflake.ID) error
}

// Settings is a cached copy of a guild row with the prefix resolved.
type Settings struct {
	GuildID        snowflake.ID
	Prefix         string
	MusicChannelID *snowflake.ID
	LogChannelID   *snowflake.ID
}

// Manager serves guild settings from a TTL cache backed by Store.
type Manager struct {
	store Store
	cache *ttlcache.Cache
	log   *slog.Logger

	mu            sync.RWMutex
	defaultPrefix string
}

func New(store Store, defaultPrefix string, log *slog.Logger) *Manager {
	cache := ttlcache.NewCache()
	cache.SetTTL(cacheTTL)
	cache.SetCacheSizeLimit(cacheLimit)

	return &Manager{
		store:         store,
		cache:         cache,
		log:           log.With("component", "guilds"),
		defaultPrefix: defaultPrefix,
	}
}

func (m *Manager) DefaultPrefix() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPrefix
}

// SetDefaultPrefix changes the prefix given to guilds that have none stored.
func (m *Manager) SetDefaultPrefix(prefix string) {
	m.mu.Lock()
	m.defaultPrefix = prefix
	m.mu.Unlock()
}

// Get returns the settings for guildID, creating the row on first use and
// storing the default prefix when the guild has none.
func (m *Manager) Get(ctx context.Context, guildID snowflake.ID) (Settings, error) {
	if v, err := m.cache.Get(guildID.String()); err == nil {
		return v.(Settings), nil
	}

	g, err := m.store.Guild(ctx, guildID)
	if errors.Is(err, database.ErrNotFound) {
		m.log.Debug("Creating guild settings", "guild_id", guildID)
		if err := m.store.CreateGuild(ctx, guildID); err != nil {
			return Settings{}, err
		}
		g = &database.Guild{ID: guildID}
	} else if err != nil {
		return Settings{}, err
	}

	s := Settings{
		GuildID:        guildID,
		MusicChannelID: g.MusicChannelID,
		LogChannelID:   g.LogChannelID,
	}
	if g.Prefix != nil && *g.Prefix != "" {
		s.Prefix = *g.Prefix
	} else {
		s.Prefix = m.DefaultPrefix()
		if err := m.store.SetPrefix(ctx, guildID, s.Prefix); err != nil {
			return Settings{}, err
		}
	}

	m.put(s)
	return s, nil
}

func (m *Manager) put(s Settings) {
	if err := m.cache.Set(s.GuildID.String(), s); err != nil {
		m.log.Warn("Failed to cache guild settings", "guild_id", s.GuildID, "error", err)
	}
}

func (m *Manager) update(ctx context.Context, guildID snowflake.ID, write func() error, apply func(*Settings)) error {
	s, err := m.Get(ctx, guildID)
	if err != nil {
		return err
	}
	if err := write(); err != nil {
		return err
	}
	apply(&s)
	m.put(s)
	return nil
}

func (m *Manager) Prefix(ctx context.Context, guildID snowflake.ID) (string, error) {
	s, err := m.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	return s.Prefix, nil
}

func (m *Manager) SetPrefix(ctx context.Context, guildID snowflake.ID, prefix string) error {
	return m.update(ctx, guildID,
		func() error { return m.store.SetPrefix(ctx, guildID, prefix) },
		func(s *Settings) { s.Prefix = prefix },
	)
}

// MusicChannel returns the last text channel a music command ran in, if any.
func (m *Manager) MusicChannel(ctx context.Context, guildID snowflake.ID) (*snowflake.ID, error) {
	s, err := m.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return s.MusicChannelID, nil
}

// SetMusicChannel stores channelID unless it is already the music channel.
func (m *Manager) SetMusicChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	s, err := m.Get(ctx, guildID)
	if err != nil {
		return err
	}
	if s.MusicChannelID != nil && *s.MusicChannelID == channelID {
		return nil
	}
	return m.update(ctx, guildID,
		func() error { return m.store.SetMusicChannel(ctx, guildID, &channelID) },
		func(s *Settings) { s.MusicChannelID = &channelID },
	)
}

func (m *Manager) ClearMusicChannel(ctx context.Context, guildID snowflake.ID) error {
	return m.update(ctx, guildID,
		func() error { return m.store.SetMusicChannel(ctx, guildID, nil) },
		func(s *Settings) { s.MusicChannelID = nil },
	)
}

func (m *Manager) LogChannel(ctx context.Context, guildID snowflake.ID) (*snowflake.ID, error) {
	s, err := m.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return s.LogChannelID, nil
}

// SetLogChannel stores channelID; nil clears it.
func (m *Manager) SetLogChannel(ctx context.Context, guildID snowflake.ID, channelID *snowflake.ID) error {
	return m.update(ctx, guildID,
		func() error { return m.store.SetLogChannel(ctx, guildID, channelID) },
		func(s *Settings) { s.LogChannelID = channelID },
	)
}

// Expire drops guildID from the cache so the next Get reads the store.
func (m *Manager) Expire(guildID snowflake.ID) {
	_ = m.cache.Remove(guildID.String())
}

func (m *Manager) Purge() error {
	return m.cache.Purge()
}

// Keys returns the cached guild ids in ascending order.
func (m *Manager) Keys() []snowflake.ID {
	keys := m.cache.GetKeys()
	ids := make([]snowflake.ID, 0, len(keys))
	for _, k := range keys {
		id, err := snowflake.Parse(k)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Cached returns the cached settings for guildID without touching the store.
func (m *Manager) Cached(guildID snowflake.ID) (Settings, bool) {
	v, err := m.cache.Get(guildID.String())
	if err != nil {
		return Settings{}, false
	}
	return v.(Settings), true
}

func (m *Manager) Len() int {
	return m.cache.Count()
}

func (m *Manager) Close() error {
	return m.cache.Close()
}
