package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"roomchat/internal/pkg/limiter"
	"roomchat/internal/pkg/logx"
	"roomchat/internal/pkg/resp"
)

const (
	AuthRate  = 1
	AuthBurst = 10
	WSRate    = 0.5
	WSBurst   = 10
)

// Router builds the HTTP handler tree. The returned cleanup func stops the
// rate limiters' sweepers.
func Router(deps *AppDeps) (http.Handler, func()) {
	authLimiter := limiter.NewIPRateLimiter(rate.Limit(AuthRate), AuthBurst)
	wsLimiter := limiter.NewIPRateLimiter(rate.Limit(WSRate), WSBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			// Non-browser clients send no Origin.
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"status":       "ok",
			"service":      "roomchat",
			"connections":  deps.Core.Registry.Count(),
			"online_users": deps.Core.Registry.OnlineCount(),
		})
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Use(authLimiter.Middleware)
			auth.Post("/register", HandleRegister(deps))
			auth.Post("/login", HandleLogin(deps))
		})

		api.Get("/rooms", HandleListRooms(deps))
		api.Get("/rooms/{id}", HandleGetRoom(deps))
		api.Get("/rooms/{id}/online", HandleListRoomOnline(deps))

		api.Group(func(authed chi.Router) {
			authed.Use(RequireAuth(deps))

			authed.Get("/users/me", HandleGetMe(deps))
			authed.Get("/users", HandleListUsers(deps))
			authed.Get("/users/online", HandleListOnlineUsers(deps))
			authed.Get("/users/{id}", HandleGetUser(deps))

			authed.Post("/rooms", HandleCreateRoom(deps))
			authed.Post("/rooms/join", HandleJoinRoom(deps))
			authed.Post("/rooms/leave", HandleLeaveRoom(deps))
			authed.Patch("/rooms/{id}", HandleUpdateRoom(deps))
			authed.Delete("/rooms/{id}", HandleDeleteRoom(deps))
			authed.Post("/rooms/{id}/archive", HandleArchiveRoom(deps))

			authed.Get("/messages", HandleListMessages(deps))
		})
	})

	r.Get("/ws", HandleWebSocket(deps, wsUpgrader, wsLimiter))

	return r, func() {
		authLimiter.Close()
		wsLimiter.Close()
	}
}
