//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"startupconnect/internal/chat/repository"
	"startupconnect/internal/chat/service"
	"startupconnect/internal/common"
	"startupconnect/internal/config"
	"startupconnect/internal/dbmysql"
	"startupconnect/internal/fanout"
	"startupconnect/internal/media"
	"startupconnect/internal/presence"
	"startupconnect/internal/realtime"
	"startupconnect/internal/user"
)

var storeSet = wire.NewSet(
	ProvideDatabase,
	repository.NewConversationRepository,
	repository.NewMessageRepository,
	dbmysql.NewNotificationRepository,
	user.NewUserRepository,
	presence.NewRepository,
	presence.NewTracker,
)

var serviceSet = wire.NewSet(
	ProvideTokenManager,
	ProvideBus,
	ProvideDispatcher,
	wire.Bind(new(service.Publisher), new(*fanout.Dispatcher)),
	wire.Bind(new(service.UserLookup), new(user.UserRepository)),
	wire.Bind(new(user.TokenIssuer), new(*common.TokenManager)),
	wire.Bind(new(user.PresenceReader), new(*presence.Tracker)),
	service.NewDirectory,
	service.NewChatService,
	user.NewUserService,
)

// InitializeChatService wires the full chat node.
func InitializeChatService(cfg *config.Config) (*ChatApp, func(), error) {
	wire.Build(
		ProvideRealtimeConfig,
		storeSet,
		serviceSet,
		ProvideBlobStore,
		ProvideFileSource,
		ProvideGateway,
		ProvideWSHandler,
		ProvideChatHandler,
		user.NewHandler,
		media.NewHTTPServer,
		realtime.NewStreamServer,
		wire.Struct(new(ChatApp), "*"),
	)
	return nil, nil, nil
}

// InitializeMediaServer wires the standalone attachment download server.
func InitializeMediaServer(cfg *config.Config) (*MediaApp, func(), error) {
	wire.Build(
		ProvideBlobStore,
		ProvideFileSource,
		media.NewHTTPServer,
		wire.Struct(new(MediaApp), "*"),
	)
	return nil, nil, nil
}
