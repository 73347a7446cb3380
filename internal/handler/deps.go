package handler

import (
	"roomchat/internal/app/chat"
	"roomchat/internal/app/store"
	"roomchat/internal/configs"
)

// AppDeps carries everything the HTTP handlers need.
type AppDeps struct {
	Core   *chat.Core
	Store  store.Store
	Config *configs.AppConfig

	// PasswordCost is the bcrypt cost for new passwords; zero means bcrypt.DefaultCost.
	PasswordCost int
}
