package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"nanofab-cli/client"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	actionOpenings = "openings"
	actionWatch    = "watch"

	// maxPickButtons keeps the inline keyboard to one screen.
	maxPickButtons = 8
)

// pendingPick is a tool choice waiting on the user. Callback data is
// capped at 64 bytes, so buttons carry an index into Tools instead of
// a tool ID.
type pendingPick struct {
	Action      string        `json:"action"`
	MinDuration time.Duration `json:"min_duration"`
	Tools       []client.Tool `json:"tools"`
}

// resolveTool matches a query against the tool list and either acts on
// the single match or asks the user to pick one.
func (h *Handler) resolveTool(chatID int64, query string, pick pendingPick) {
	tools, err := h.tools(context.Background())
	if err != nil {
		h.Log.Warn().Err(err).Msg("fetch tools")
		h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Could not load the tool list. Try again later."))
		return
	}

	matches := matchTools(tools, query)
	switch {
	case len(matches) == 0:
		h.Bot.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf("No tool matches %q.", query)))
	case len(matches) == 1:
		h.dispatch(chatID, matches[0], pick)
	case len(matches) > maxPickButtons:
		h.Bot.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf("%d tools match %q. Be more specific.", len(matches), query)))
	default:
		pick.Tools = matches
		if err := h.Store.SavePick(chatID, pick); err != nil {
			h.Log.Warn().Err(err).Msg("save pick")
			h.Bot.Send(tgbotapi.NewMessage(chatID, "⚠️ Something went wrong. Try again."))
			return
		}
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Several tools match %q. Which one?", query))
		msg.ReplyMarkup = buildPickKeyboard(matches)
		h.Bot.Send(msg)
	}
}

// HandleToolPick answers a pick:<index> callback from the keyboard.
func (h *Handler) HandleToolPick(cq *tgbotapi.CallbackQuery, indexStr string) {
	chatID := cq.Message.Chat.ID

	index, err := strconv.Atoi(indexStr)
	if err != nil {
		h.Bot.Request(tgbotapi.NewCallback(cq.ID, "⚠️ Bad choice"))
		return
	}

	data, err := h.Store.GetPick(chatID)
	if err != nil || data == nil {
		h.Bot.Request(tgbotapi.NewCallback(cq.ID, "That choice expired. Run the command again."))
		return
	}
	var pick pendingPick
	if err := json.Unmarshal(data, &pick); err != nil {
		h.Log.Warn().Err(err).Msg("unmarshal pick")
		h.Bot.Request(tgbotapi.NewCallback(cq.ID, "That choice expired. Run the command again."))
		return
	}
	if index < 0 || index >= len(pick.Tools) {
		h.Bot.Request(tgbotapi.NewCallback(cq.ID, "⚠️ Bad choice"))
		return
	}

	h.Store.DeletePick(chatID)
	h.Bot.Request(tgbotapi.NewCallback(cq.ID, pick.Tools[index].Label))

	// Replace the prompt so the buttons cannot be pressed twice.
	edit := tgbotapi.NewEditMessageText(chatID, cq.Message.MessageID,
		fmt.Sprintf("Selected %s.", pick.Tools[index].Label))
	h.Bot.Send(edit)

	h.dispatch(chatID, pick.Tools[index], pick)
}

func (h *Handler) dispatch(chatID int64, tool client.Tool, pick pendingPick) {
	switch pick.Action {
	case actionWatch:
		h.createWatch(chatID, tool, pick.MinDuration)
	case actionOpenings:
		go h.sendOpenings(chatID, tool, pick.MinDuration)
	default:
		h.Log.Warn().Str("action", pick.Action).Msg("unknown pick action")
	}
}

func buildPickKeyboard(tools []client.Tool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, tool := range tools {
		label := tool.Label
		if runes := []rune(label); len(runes) > 40 {
			label = string(runes[:37]) + "..."
		}
		btn := tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("pick:%d", i))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// tools returns the portal's tool list, served from the Redis cache
// when fresh.
func (h *Handler) tools(ctx context.Context) ([]client.Tool, error) {
	if data, err := h.Store.GetTools(); err == nil && data != nil {
		var tools []client.Tool
		if err := json.Unmarshal(data, &tools); err == nil {
			return tools, nil
		}
	}
	tools, err := h.Client.Tools(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.Store.SaveTools(tools); err != nil {
		h.Log.Warn().Err(err).Msg("cache tools")
	}
	return tools, nil
}

func matchTools(tools []client.Tool, query string) []client.Tool {
	query = strings.ToLower(query)
	var matches []client.Tool
	for _, tool := range tools {
		if strings.Contains(strings.ToLower(tool.Label), query) {
			matches = append(matches, tool)
		}
	}
	return matches
}
