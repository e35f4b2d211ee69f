package api

import (
	"fmt"
	"furnishop/internal/config"
	"furnishop/internal/http-server/handlers/chat"
	"furnishop/internal/http-server/handlers/errors"
	"furnishop/internal/http-server/handlers/files"
	"furnishop/internal/http-server/handlers/key"
	"furnishop/internal/http-server/handlers/user"
	"furnishop/internal/http-server/middleware/authenticate"
	"furnishop/internal/http-server/middleware/timeout"
	"furnishop/internal/lib/sl"
	"furnishop/internal/ws"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	chat.Core
	files.Core
	key.Core
	user.Core
	ws.Watcher
}

// NewRouter builds the /api/v1 routes. Files and the websocket sit outside
// the header auth group: browsers reach them through links and upgrades.
func NewRouter(conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/files/{id}", files.Download(log, handler, handler))
		if hub != nil {
			v1.Get("/ws", ws.ServeWs(hub, handler, handler, log))
		}

		v1.Group(func(r chi.Router) {
			r.Use(timeout.Timeout(conf.Listen.Timeout))
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Use(authenticate.New(log, handler))

			r.Route("/chats", func(r chi.Router) {
				r.Post("/", chat.Create(log, handler))
				r.Get("/waiting", chat.ListWaiting(log, handler))
				r.Get("/customer/{id}", chat.ListByCustomer(log, handler))
				r.Get("/dealer/{id}", chat.ListByDealer(log, handler))
				r.Get("/product/{id}", chat.ListByProduct(log, handler))
				r.Get("/{id}", chat.Get(log, handler))
				r.Get("/{id}/messages", chat.Messages(log, handler))
				r.Post("/{id}/messages", chat.Send(log, handler))
				r.Post("/{id}/status", chat.SetStatus(log, handler))
				r.Post("/{id}/assign", chat.Assign(log, handler))
			})
			r.Post("/files", files.Upload(log, handler))
			r.Route("/users", func(r chi.Router) {
				r.Get("/", user.GetUser(log, handler))
				r.Post("/", user.CreateUser(log, handler))
				r.Post("/block", user.BlockUser(log, handler))
			})
			r.Route("/key", func(r chi.Router) {
				r.Post("/new", key.Generate(log, handler))
			})
		})
	})

	return router
}

func New(conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  NewRouter(conf, log, handler, hub),
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
