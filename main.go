package main

import (
	"context"
	"flag"
	"furnishop/ai/gpt"
	"furnishop/bot"
	"furnishop/impl/core"
	"furnishop/internal/chat"
	"furnishop/internal/config"
	"furnishop/internal/database"
	"furnishop/internal/http-server/api"
	"furnishop/internal/lib/logger"
	"furnishop/internal/lib/sl"
	"furnishop/internal/realtime"
	"furnishop/internal/ws"
	"log/slog"
	"time"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath)

	lg.Info("starting furnishop chat", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	var backend chat.Backend
	db, err := repository.NewMongoClient(conf, lg)
	if err != nil {
		lg.With(
			sl.Err(err),
		).Error("mongo client")
	}
	if db != nil {
		if err = db.EnsureChatIndexes(); err != nil {
			lg.With(sl.Err(err)).Warn("ensure chat indexes")
		}
		backend = db
		lg.With(
			slog.String("host", conf.Mongo.Host),
			slog.String("port", conf.Mongo.Port),
			slog.String("user", conf.Mongo.User),
			slog.String("database", conf.Mongo.Database),
		).Info("mongo client initialized")
	} else {
		backend = chat.NewMemoryBackend()
		lg.Warn("mongo disabled, chat sessions kept in memory")
	}

	store := chat.NewStore(backend, lg)

	relay, err := realtime.NewRedisRelay(conf, store.Broker(), lg)
	if err != nil {
		lg.With(sl.Err(err)).Error("redis relay")
	}
	if relay != nil {
		store.SetRelay(relay)
		go relay.Run(context.Background())
		lg.With(
			slog.String("address", conf.Redis.Address),
			slog.String("channel", conf.Redis.Channel),
		).Info("redis relay initialized")
	}

	handler := core.New(store, lg)
	handler.SetAuthKey(conf.Listen.ApiKey)
	if db != nil {
		handler.SetRepository(db)
		handler.SetProductCatalog(db)
		handler.SetFileStorage(db, conf.Files.Secret, time.Duration(conf.Files.TTL)*time.Minute)
	}

	responder := gpt.NewResponder(conf, lg)
	if responder != nil {
		handler.SetAssistant(responder)
		lg.With(
			sl.Secret("openai_key", conf.OpenAI.ApiKey),
			slog.String("model", conf.OpenAI.Model),
		).Info("assistant initialized")
	}

	if conf.Telegram.Enabled {
		tgBot, err := bot.NewTgBot(conf.Telegram.ApiKey, conf.Telegram.ChatId, lg)
		if err != nil {
			lg.With(sl.Err(err)).Error("failed to initialize telegram bot")
		} else {
			handler.SetNotifier(tgBot)
			lg.With(
				slog.Int64("chat_id", conf.Telegram.ChatId),
			).Info("telegram notifier initialized")
		}
	}

	hub := ws.NewHub(lg)
	go hub.Run()

	// *** blocking start with http server ***
	err = api.New(conf, lg, handler, hub)
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Error("service stopped")
}
