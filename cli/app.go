package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/onnwee/spectacles-xix/booksapi"
	"github.com/onnwee/spectacles-xix/bot"
	"github.com/onnwee/spectacles-xix/config"
	"github.com/onnwee/spectacles-xix/crypto"
	"github.com/onnwee/spectacles-xix/db"
	"github.com/onnwee/spectacles-xix/mastodonapi"
	"github.com/onnwee/spectacles-xix/oauth"
	"github.com/onnwee/spectacles-xix/play"
	"github.com/onnwee/spectacles-xix/twitterapi"
)

// app holds the resources shared by the subcommands.
type app struct {
	cfg   *config.Config
	db    *sql.DB
	store *db.Store
	rdb   *redis.Client
}

func openApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	sealer, err := newSealer(cfg)
	if err != nil {
		return nil, err
	}
	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		return nil, err
	}
	store := db.NewStore(database, sealer)
	if err := store.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &app{cfg: cfg, db: database, store: store}, nil
}

// newSealer returns nil when no key is configured; tokens are then stored
// in plaintext.
func newSealer(cfg *config.Config) (crypto.Sealer, error) {
	if cfg.EncryptionKey == "" {
		slog.Warn("ENCRYPTION_KEY not set, oauth tokens are stored in plaintext")
		return nil, nil
	}
	s, err := crypto.NewAESGCM(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	return s, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			slog.Warn("close redis", slog.Any("err", err))
		}
	}
	if err := a.db.Close(); err != nil {
		slog.Error("failed to close database", slog.Any("err", err))
	}
}

func (a *app) composer() *play.Composer {
	return play.NewComposer(a.cfg.MaxMessageLength, a.cfg.Location(), a.cfg.Locale)
}

// books returns the Google Books client, or nil when it cannot be built. A
// Redis outage only disables the cache.
func (a *app) books(ctx context.Context) bot.Books {
	var cache booksapi.Cache
	if a.cfg.RedisEnabled() {
		rdb, err := booksapi.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
		if err != nil {
			slog.Warn("book cache disabled", slog.Any("err", err))
		} else {
			a.rdb = rdb
			cache = booksapi.NewRedisCache(rdb)
		}
	}
	c, err := booksapi.New(ctx, cache, a.cfg.BookCacheTTL, booksapi.ClientOptions(a.cfg.GoogleServiceAccountFile, a.cfg.GoogleAPIKey)...)
	if err != nil {
		slog.Error("book lookup disabled", slog.Any("err", err))
		return nil
	}
	return c
}

// buildTargets returns the enabled platforms, Mastodon first.
func buildTargets(ctx context.Context, cfg *config.Config, tokens oauth.Store, noTweet, noToot bool) []bot.Target {
	var targets []bot.Target
	switch {
	case noToot:
		slog.Info("mastodon disabled by flag")
	case !cfg.MastodonEnabled():
		slog.Info("mastodon disabled: instance or access token missing")
	default:
		targets = append(targets, bot.Target{
			Platform:  db.PlatformMastodon,
			Publisher: mastodonapi.New(ctx, cfg.MastodonInstance, cfg.MastodonAccessToken),
		})
	}
	switch {
	case noTweet:
		slog.Info("x disabled by flag")
	case !cfg.XEnabled():
		slog.Info("x disabled: client id missing")
	default:
		src := oauth.NewSource(oauth.XConfig(cfg.XClientID, cfg.XClientSecret, cfg.XAPIBase), tokens, oauth.ProviderX)
		targets = append(targets, bot.Target{
			Platform:  db.PlatformTwitter,
			Publisher: twitterapi.New(cfg.XAPIBase, src.Client(ctx)),
		})
	}
	return targets
}
