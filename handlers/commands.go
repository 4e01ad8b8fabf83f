package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nanofab-cli/client"
	"nanofab-cli/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// CheckerInterface is the slice of the checker the handlers need.
type CheckerInterface interface {
	CheckWatchNow(chatID int64, toolID string)
}

type Handler struct {
	Bot     *tgbotapi.BotAPI
	Store   *storage.Storage
	Client  *client.Client
	Checker CheckerInterface
	Log     zerolog.Logger

	// HorizonDays bounds how far ahead /openings looks. Zero means two
	// weeks.
	HorizonDays int
}

func New(bot *tgbotapi.BotAPI, store *storage.Storage, cl *client.Client, checker CheckerInterface, log zerolog.Logger) *Handler {
	return &Handler{
		Bot:     bot,
		Store:   store,
		Client:  cl,
		Checker: checker,
		Log:     log,
	}
}

func (h *Handler) HandleStart(msg *tgbotapi.Message) {
	text := "👋 Hi! I watch NanoFab tools and tell you when bookable time opens up.\n\n" +
		"Commands:\n" +
		"/openings <tool> [min duration] — show current openings on a tool\n" +
		"/watch <tool> [min duration] — get notified about new openings\n" +
		"/my_watches — list your watches\n" +
		"/cancel <tool> — stop watching a tool\n\n" +
		"A minimum duration like 2h or 90m drops openings shorter than that."
	h.Bot.Send(tgbotapi.NewMessage(msg.Chat.ID, text))
}

// HandleOpenings runs a one-off availability check for a tool.
func (h *Handler) HandleOpenings(msg *tgbotapi.Message) {
	query, minDuration, err := splitArgs(msg.CommandArguments())
	if err != nil {
		h.Bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "⚠️ "+err.Error()))
		return
	}
	if query == "" {
		h.Bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "Which tool? Try /openings sputter"))
		return
	}
	h.resolveTool(msg.Chat.ID, query, pendingPick{Action: actionOpenings, MinDuration: minDuration})
}

// HandleWatch creates a standing watch on a tool.
func (h *Handler) HandleWatch(msg *tgbotapi.Message) {
	query, minDuration, err := splitArgs(msg.CommandArguments())
	if err != nil {
		h.Bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "⚠️ "+err.Error()))
		return
	}
	if query == "" {
		h.Bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "Which tool? Try /watch sputter 2h"))
		return
	}
	h.resolveTool(msg.Chat.ID, query, pendingPick{Action: actionWatch, MinDuration: minDuration})
}

func (h *Handler) HandleMyWatches(msg *tgbotapi.Message) {
	watches, err := h.Store.ListChatWatches(msg.Chat.ID)
	if err != nil {
		h.Log.Warn().Err(err).Msg("list chat watches")
		h.Bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "⚠️ Could not load your watches."))
		return
	}
	if len(watches) == 0 {
		h.Bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "You are not watching any tools.\n\nUse /watch <tool> to start."))
		return
	}

	var b strings.Builder
	b.WriteString("📬 Your watches:\n")
	for _, w := range watches {
		b.WriteString("\n• " + w.ToolLabel)
		if w.MinDuration > 0 {
			fmt.Fprintf(&b, " (at least %s)", w.MinDuration)
		}
	}
	h.Bot.Send(tgbotapi.NewMessage(msg.Chat.ID, b.String()))
}

// HandleCancel removes a watch. Without arguments it only works when
// the chat has exactly one watch.
func (h *Handler) HandleCancel(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	watches, err := h.Store.ListChatWatches(chatID)
	if err != nil {
		h.Log.Warn().Err(err).Msg("list chat watches")
		h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Could not load your watches."))
		return
	}
	if len(watches) == 0 {
		h.Bot.Send(tgbotapi.NewMessage(chatID, "You are not watching any tools."))
		return
	}

	query := strings.TrimSpace(msg.CommandArguments())
	var target *storage.Watch
	switch {
	case query == "" && len(watches) == 1:
		target = watches[0]
	case query == "":
		h.Bot.Send(tgbotapi.NewMessage(chatID, "You have several watches. Which tool? Try /cancel sputter"))
		return
	default:
		for _, w := range watches {
			if strings.Contains(strings.ToLower(w.ToolLabel), strings.ToLower(query)) {
				if target != nil {
					h.Bot.Send(tgbotapi.NewMessage(chatID, "More than one watch matches. Be more specific."))
					return
				}
				target = w
			}
		}
		if target == nil {
			h.Bot.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf("No watch matches %q.", query)))
			return
		}
	}

	if err := h.Store.DeleteWatch(chatID, target.ToolID); err != nil {
		h.Log.Warn().Err(err).Msg("delete watch")
		h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Could not remove the watch."))
		return
	}
	h.Bot.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ No longer watching %s.", target.ToolLabel)))
}

// splitArgs separates a tool query from an optional trailing duration
// like "2h" or "90m".
func splitArgs(args string) (query string, minDuration time.Duration, err error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", 0, nil
	}
	last := fields[len(fields)-1]
	if d, derr := time.ParseDuration(last); derr == nil {
		if d <= 0 {
			return "", 0, fmt.Errorf("minimum duration must be positive, got %s", last)
		}
		return strings.Join(fields[:len(fields)-1], " "), d, nil
	}
	return strings.Join(fields, " "), 0, nil
}

func (h *Handler) createWatch(chatID int64, tool client.Tool, minDuration time.Duration) {
	w := &storage.Watch{
		ChatID:      chatID,
		ToolID:      tool.ID,
		ToolLabel:   tool.Label,
		MinDuration: minDuration,
	}
	if err := h.Store.SaveWatch(w); err != nil {
		h.Log.Warn().Err(err).Msg("save watch")
		h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Could not save the watch."))
		return
	}

	text := fmt.Sprintf("✅ Watching %s.", tool.Label)
	if minDuration > 0 {
		text = fmt.Sprintf("✅ Watching %s for openings of at least %s.", tool.Label, minDuration)
	}
	h.Bot.Send(tgbotapi.NewMessage(chatID, text))

	if h.Checker != nil {
		h.Checker.CheckWatchNow(chatID, tool.ID)
	}
}

func (h *Handler) sendOpenings(chatID int64, tool client.Tool, minDuration time.Duration) {
	ctx := context.Background()
	horizon := h.HorizonDays
	if horizon <= 0 {
		horizon = 14
	}
	now := time.Now()
	until := now.AddDate(0, 0, horizon)
	bookings, err := h.Client.ToolBookings(ctx, tool, &now, &until)
	if err != nil {
		h.Log.Warn().Err(err).Str("tool", tool.Label).Msg("fetch bookings")
		h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Could not fetch the tool's schedule. Try again later."))
		return
	}

	free := bookings.Invert()
	free.SubtractBefore(now)
	free.SubtractWeekends(now)
	free.SubtractAfterHours(now)
	if minDuration > 0 {
		free.SubtractShorterThan(minDuration)
	}

	var rendered string
	if free.Len() == 0 {
		rendered = fmt.Sprintf("No openings in the next %d days.", horizon)
	} else {
		rendered = free.String()
	}
	reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("Openings on %s:\n```\n%s\n```", tool.Label, rendered))
	reply.ParseMode = "Markdown"
	h.Bot.Send(reply)
}
