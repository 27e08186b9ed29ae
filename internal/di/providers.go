package di

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"startupconnect/internal/chat/handler"
	"startupconnect/internal/chat/service"
	"startupconnect/internal/common"
	"startupconnect/internal/config"
	"startupconnect/internal/dbmongo"
	"startupconnect/internal/dbmysql"
	"startupconnect/internal/fanout"
	"startupconnect/internal/media"
	"startupconnect/internal/presence"
	"startupconnect/internal/realtime"
	"startupconnect/internal/user"
)

// ChatApp is everything cmd/chat-svc serves.
type ChatApp struct {
	Config      *config.Config
	DB          *gorm.DB
	Tokens      *common.TokenManager
	Dispatcher  *fanout.Dispatcher
	Gateway     *realtime.Gateway
	ChatHandler *handler.ChatHandler
	UserHandler *user.Handler
	Media       *media.HTTPServer
	Streams     *realtime.StreamServer
	WebSocket   *realtime.WSHandler
}

// MediaApp is everything cmd/media-server serves.
type MediaApp struct {
	Config *config.Config
	Media  *media.HTTPServer
}

func ProvideDatabase(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := dbmysql.NewDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func ProvideTokenManager(cfg *config.Config) *common.TokenManager {
	return common.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
}

func ProvideRealtimeConfig(cfg *config.Config) config.RealtimeConfig {
	return cfg.Realtime
}

// ProvideBus returns the Redis bus when REDIS_ENABLED is set and a
// process-local bus otherwise.
func ProvideBus(cfg *config.Config) (fanout.Bus, func(), error) {
	if !cfg.Redis.Enabled {
		bus := fanout.NewLocalBus()
		return bus, func() { _ = bus.Close() }, nil
	}

	client, err := fanout.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	bus, err := fanout.NewRedisBus(ctx, client, cfg.Redis.ChannelPrefix)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	log.Printf("Fan-out bus: redis %s", cfg.Redis.URL)
	return bus, func() {
		_ = bus.Close()
		_ = client.Close()
	}, nil
}

// ProvideDispatcher starts the worker pool with live delivery and offline
// notices subscribed.
func ProvideDispatcher(cfg *config.Config, bus fanout.Bus, tracker *presence.Tracker, notifications dbmysql.NotificationRepository) (*fanout.Dispatcher, func()) {
	d := fanout.NewDispatcher(cfg.Realtime.DispatchWorkers, cfg.Realtime.DispatchBufferSize)
	d.Subscribe(fanout.NewBusObserver(bus))
	d.Subscribe(fanout.NewOfflineObserver(tracker, notifications))
	return d, d.Shutdown
}

// ProvideBlobStore connects GridFS. It returns a nil store when MongoDB is
// disabled; uploads and downloads then answer 503.
func ProvideBlobStore(cfg *config.Config) (handler.BlobStore, func(), error) {
	if !cfg.MongoDB.Enabled {
		log.Println("MongoDB disabled, attachment storage unavailable")
		return nil, func() {}, nil
	}
	client, err := dbmongo.NewMongoConnection(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Close(ctx)
	}
	return dbmongo.NewAttachmentStorage(client), cleanup, nil
}

func ProvideFileSource(blobs handler.BlobStore) media.FileSource {
	if blobs == nil {
		return nil
	}
	return blobs
}

func ProvideChatHandler(cfg *config.Config, dir service.Directory, chat service.ChatService, blobs handler.BlobStore, notifications dbmysql.NotificationRepository) *handler.ChatHandler {
	return handler.NewChatHandler(dir, chat, blobs, notifications, cfg.Server.MediaBaseURL)
}

func ProvideWSHandler(cfg *config.Config, gw *realtime.Gateway, tokens *common.TokenManager) *realtime.WSHandler {
	return realtime.NewWSHandler(gw, tokens, cfg.Realtime, cfg.Server.AllowedOrigins)
}

func ProvideGateway(chat service.ChatService, bus fanout.Bus, tracker *presence.Tracker, rt config.RealtimeConfig) (*realtime.Gateway, func()) {
	gw := realtime.NewGateway(chat, bus, tracker, rt)
	return gw, gw.Shutdown
}
