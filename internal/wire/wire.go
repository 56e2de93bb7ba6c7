//go:build wireinject
// +build wireinject

package wire

import (
	"roomly/internal/chat/handler"
	"roomly/internal/chat/hub"
	"roomly/internal/chat/repository"
	"roomly/internal/chat/service"
	"roomly/internal/dbmysql"
	"roomly/internal/user"

	"github.com/google/wire"
)

func InitializeChatService() (*Application, func(), error) {
	wire.Build(
		ProvideConfig,
		ProvideLogger,
		dbmysql.NewMySQL,
		repository.NewMessageRepository,
		user.NewDirectory,
		service.NewChatService,
		hub.NewHub,
		handler.NewChatHandler,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}
