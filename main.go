package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nanofab-cli/checker"
	"nanofab-cli/client"
	"nanofab-cli/config"
	"nanofab-cli/handlers"
	"nanofab-cli/storage"
	"nanofab-cli/tui"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()

	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			time.Local = loc
		} else {
			fmt.Fprintf(os.Stderr, "bad NANOFAB_TZ %q: %v (using system timezone)\n", cfg.Timezone, err)
		}
	}

	if len(os.Args) > 1 && os.Args[1] == "watch" {
		runWatcher(cfg)
		return
	}
	runTUI(cfg)
}

// runTUI starts the interactive terminal UI. The alt screen owns the
// terminal, so logs go to a file under the config dir.
func runTUI(cfg *config.Config) {
	var logOut io.Writer = io.Discard
	if dir, err := config.Dir(); err == nil {
		if f, err := os.OpenFile(filepath.Join(dir, "nanofab-cli.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
			defer f.Close()
			logOut = f
		}
	}
	log := zerolog.New(logOut).With().Timestamp().Logger()

	cl, err := client.New(cfg.PortalBaseURL, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init client: %v\n", err)
		os.Exit(1)
	}
	if err := tui.Launch(cl, log); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// runWatcher starts the Telegram bot and the periodic openings checks.
func runWatcher(cfg *config.Config) {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if cfg.TelegramToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN not set")
	}

	store := storage.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := store.Ping(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}

	cl, err := client.New(cfg.PortalBaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client")
	}
	login, ok, err := config.LoadLogin()
	if err != nil || !ok {
		login = client.Login{Username: cfg.PortalUsername, Password: cfg.PortalPassword}
	}
	if login.Username == "" {
		log.Fatal().Msg("no portal login: save one via the TUI or set NANOFAB_USERNAME and NANOFAB_PASSWORD")
	}
	if err := cl.Authenticate(context.Background(), login); err != nil {
		log.Fatal().Err(err).Msg("portal login failed")
	}
	log.Info().Str("user", login.Username).Msg("logged in to the portal")
	go cl.KeepAlive(context.Background())

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram connect failed")
	}
	log.Info().Str("account", bot.Self.UserName).Msg("authorized on telegram")

	checkerService := checker.New(bot, cl, store, log)
	checkerService.HorizonDays = cfg.HorizonDays
	go checkerService.Start()

	handler := handlers.New(bot, store, cl, checkerService, log)
	handler.HorizonDays = cfg.HorizonDays

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	log.Info().Msg("bot is running")

	for update := range updates {
		if update.Message != nil {
			handleMessage(bot, handler, update.Message)
		} else if update.CallbackQuery != nil {
			handleCallback(handler, update.CallbackQuery)
		}
	}
}

func handleMessage(bot *tgbotapi.BotAPI, h *handlers.Handler, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.HandleStart(msg)

	case "openings":
		h.HandleOpenings(msg)

	case "watch":
		h.HandleWatch(msg)

	case "my_watches":
		h.HandleMyWatches(msg)

	case "cancel":
		h.HandleCancel(msg)

	default:
		bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "Unknown command. Try /start"))
	}
}

func handleCallback(h *handlers.Handler, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil {
		return
	}

	switch {
	case strings.HasPrefix(cq.Data, "pick:"):
		h.HandleToolPick(cq, strings.TrimPrefix(cq.Data, "pick:"))

	default:
		h.Bot.Request(tgbotapi.NewCallback(cq.ID, "Unknown action"))
	}
}
