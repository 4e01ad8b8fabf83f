package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nanofab-cli/client"
	"nanofab-cli/schedule"
	"nanofab-cli/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// defaultHorizonDays is how far into the future bookings are fetched
// for a watch check when no horizon is configured.
const defaultHorizonDays = 14

type Checker struct {
	Bot    *tgbotapi.BotAPI
	Client *client.Client
	Store  *storage.Storage
	Log    zerolog.Logger

	// HorizonDays overrides the default check lookahead when positive.
	HorizonDays int
}

func New(bot *tgbotapi.BotAPI, cl *client.Client, store *storage.Storage, log zerolog.Logger) *Checker {
	return &Checker{
		Bot:    bot,
		Client: cl,
		Store:  store,
		Log:    log,
	}
}

// Opening is one free stretch on a tool's schedule. A nil bound means
// the stretch is open on that side.
type Opening struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// Key identifies an opening across checks.
func (o Opening) Key() string {
	return boundKey(o.Start) + "/" + boundKey(o.End)
}

func boundKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

// Start seeds the openings cache for existing watches without
// notifying, then begins the periodic check loop.
func (c *Checker) Start() {
	c.Log.Info().Msg("checker started")
	c.initializeExistingWatches()
	go c.adaptiveCheckLoop()
}

// initializeExistingWatches caches current openings for every watch so
// the first periodic check only reports changes, not the whole board.
func (c *Checker) initializeExistingWatches() {
	watches, err := c.Store.ListWatches()
	if err != nil {
		c.Log.Warn().Err(err).Msg("list watches")
		return
	}
	c.Log.Info().Int("watches", len(watches)).Msg("initializing openings cache")
	for _, w := range watches {
		openings, err := c.fetchOpenings(context.Background(), w)
		if err != nil {
			c.Log.Warn().Err(err).Str("tool", w.ToolLabel).Msg("initial fetch failed")
			continue
		}
		if err := c.Store.SaveLastOpenings(w.ChatID, w.ToolID, openings); err != nil {
			c.Log.Warn().Err(err).Msg("cache openings")
		}
	}
}

// adaptiveCheckLoop checks every 20 minutes during the day and backs
// off to 3 hours between 1:00 and 8:00.
func (c *Checker) adaptiveCheckLoop() {
	for {
		hour := time.Now().Hour()
		var sleep time.Duration
		if hour >= 1 && hour < 8 {
			sleep = 3 * time.Hour
		} else {
			sleep = 20 * time.Minute
		}
		c.Log.Debug().Dur("next_check_in", sleep).Msg("check scheduled")
		time.Sleep(sleep)
		c.checkAll()
	}
}

func (c *Checker) checkAll() {
	watches, err := c.Store.ListWatches()
	if err != nil {
		c.Log.Warn().Err(err).Msg("list watches")
		return
	}
	c.Log.Info().Int("watches", len(watches)).Msg("running availability check")
	for _, w := range watches {
		c.checkWatch(w, false)
	}
}

// checkWatch fetches a watch's current openings and notifies the chat.
// When initial is true every current opening is reported and cached;
// otherwise only openings absent from the previous check are sent.
func (c *Checker) checkWatch(w *storage.Watch, initial bool) {
	openings, err := c.fetchOpenings(context.Background(), w)
	if err != nil {
		c.Log.Warn().Err(err).Str("tool", w.ToolLabel).Int64("chat", w.ChatID).Msg("check failed")
		return
	}

	if initial {
		if len(openings) > 0 {
			c.notify(w, openings, fmt.Sprintf("Current openings on %s:", w.ToolLabel))
		}
		if err := c.Store.SaveLastOpenings(w.ChatID, w.ToolID, openings); err != nil {
			c.Log.Warn().Err(err).Msg("cache openings")
		}
		return
	}

	fresh := newOpenings(c.previousOpenings(w), openings)
	if len(fresh) > 0 {
		c.notify(w, fresh, fmt.Sprintf("New openings on %s!", w.ToolLabel))
		if err := c.Store.SaveLastOpenings(w.ChatID, w.ToolID, openings); err != nil {
			c.Log.Warn().Err(err).Msg("cache openings")
		}
	}
}

// CheckWatchNow runs a check for one watch without waiting for the
// next loop tick. Used right after a watch is created.
func (c *Checker) CheckWatchNow(chatID int64, toolID string) {
	w, err := c.Store.GetWatch(chatID, toolID)
	if err != nil || w == nil {
		c.Log.Warn().Err(err).Int64("chat", chatID).Str("tool_id", toolID).Msg("watch not found")
		return
	}
	go c.checkWatch(w, true)
}

func (c *Checker) fetchOpenings(ctx context.Context, w *storage.Watch) ([]Opening, error) {
	tool := client.Tool{ID: w.ToolID, Label: w.ToolLabel}
	horizon := c.HorizonDays
	if horizon <= 0 {
		horizon = defaultHorizonDays
	}
	now := time.Now()
	until := now.AddDate(0, 0, horizon)
	bookings, err := c.Client.ToolBookings(ctx, tool, &now, &until)
	if err != nil {
		return nil, err
	}
	return computeOpenings(bookings, now, w.MinDuration), nil
}

// computeOpenings turns a tool's booked slots into the openings worth
// telling a user about: free stretches in the future, on weekdays,
// inside working hours, and at least minDuration long when set.
func computeOpenings(bookings schedule.Timetable[string], now time.Time, minDuration time.Duration) []Opening {
	free := bookings.Invert()
	free.SubtractBefore(now)
	free.SubtractWeekends(now)
	free.SubtractAfterHours(now)
	if minDuration > 0 {
		free.SubtractShorterThan(minDuration)
	}
	openings := make([]Opening, 0, free.Len())
	for _, slot := range free.Slots() {
		openings = append(openings, Opening{Start: slot.Start, End: slot.End})
	}
	return openings
}

func (c *Checker) previousOpenings(w *storage.Watch) []Opening {
	data, err := c.Store.GetLastOpenings(w.ChatID, w.ToolID)
	if err != nil || data == nil {
		return nil
	}
	var prev []Opening
	if err := json.Unmarshal(data, &prev); err != nil {
		c.Log.Warn().Err(err).Msg("unmarshal cached openings")
		return nil
	}
	return prev
}

// newOpenings returns the openings in cur that were not present in
// prev. With no previous data everything counts as new.
func newOpenings(prev, cur []Opening) []Opening {
	if len(prev) == 0 {
		return cur
	}
	seen := make(map[string]bool, len(prev))
	for _, o := range prev {
		seen[o.Key()] = true
	}
	fresh := make([]Opening, 0, len(cur))
	for _, o := range cur {
		if !seen[o.Key()] {
			fresh = append(fresh, o)
		}
	}
	return fresh
}

func (c *Checker) notify(w *storage.Watch, openings []Opening, header string) {
	slots := make([]schedule.Slot[struct{}], 0, len(openings))
	for _, o := range openings {
		slots = append(slots, schedule.NewSlot(o.Start, o.End, struct{}{}))
	}
	table := schedule.NewSorted(slots)
	msg := tgbotapi.NewMessage(w.ChatID, fmt.Sprintf("%s\n```\n%s\n```", header, table.String()))
	msg.ParseMode = "Markdown"
	if _, err := c.Bot.Send(msg); err != nil {
		c.Log.Warn().Err(err).Int64("chat", w.ChatID).Msg("send notification")
		return
	}
	c.Log.Info().Int64("chat", w.ChatID).Int("openings", len(openings)).Msg("notification sent")
}
