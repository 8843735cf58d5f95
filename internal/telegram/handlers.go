package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/common"
	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/prayer"
)

var (
	// /prayers [YYYY-MM-DD]
	rePrayers = regexp.MustCompile(`^/prayers(?:@[\w_]+)?(?:\s+(\d{4}-\d{2}-\d{2}))?$`)
	reNext    = regexp.MustCompile(`^/next(?:@[\w_]+)?$`)
	reNow     = regexp.MustCompile(`^/now(?:@[\w_]+)?$`)
	// /slot HH:MM
	reSlot = regexp.MustCompile(`^/slot(?:@[\w_]+)?\s+(\d{1,2}):(\d{2})$`)
	reHelp = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

// PrayerService is what the bot needs from a prayer.Service.
type PrayerService interface {
	Location() prayer.Location
	TimeZone() *time.Location
	GetPrayerTimes(ctx context.Context, date time.Time) (prayer.DaySchedule, error)
	IsPrayerTime(ctx context.Context, at time.Time) (bool, prayer.PrayerName)
	GetNextPrayer(ctx context.Context, at time.Time) (prayer.NextPrayer, error)
	NextAvailableSlot(ctx context.Context, at time.Time) (prayer.Slot, error)
}

// Sender is the subset of *tgbotapi.BotAPI used for replies.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Handlers struct {
	api Sender
	svc PrayerService
	now func() time.Time

	// allowedChat restricts commands to one chat when non-zero.
	allowedChat int64
}

func NewHandlers(api Sender, svc PrayerService, allowedChat int64) *Handlers {
	return &Handlers{api: api, svc: svc, now: time.Now, allowedChat: allowedChat}
}

func (h *Handlers) HandleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m == nil || m.Chat == nil {
		return
	}
	if h.allowedChat != 0 && m.Chat.ID != h.allowedChat {
		log.Debug().Int64("chat_id", m.Chat.ID).Msg("telegram: ignoring message from unauthorised chat")
		return
	}
	if reply := h.Respond(ctx, m.Text); reply != "" {
		h.reply(m.Chat.ID, reply)
	}
}

// Respond returns the reply text for a command, or "" for anything else.
func (h *Handlers) Respond(ctx context.Context, text string) string {
	txt := strings.TrimSpace(text)
	switch {
	case rePrayers.MatchString(txt):
		g := rePrayers.FindStringSubmatch(txt)
		return h.handlePrayers(ctx, g[1])

	case reNext.MatchString(txt):
		return h.handleNext(ctx)

	case reNow.MatchString(txt):
		return h.handleNow(ctx)

	case reSlot.MatchString(txt):
		g := reSlot.FindStringSubmatch(txt)
		return h.handleSlot(ctx, g[1], g[2])

	case reHelp.MatchString(txt):
		return helpText

	case strings.HasPrefix(txt, "/"):
		return "Unknown command. Send /help for the list."
	}
	return ""
}

const helpText = "Commands\n\n" +
	"- /prayers [YYYY-MM-DD] - Prayer windows for today or the given date\n" +
	"- /next - Next prayer and minutes until it starts\n" +
	"- /now - Whether a prayer window is active right now\n" +
	"- /slot HH:MM - First publish time at or after HH:MM today outside prayer windows"

func (h *Handlers) handlePrayers(ctx context.Context, dateArg string) string {
	tz := h.svc.TimeZone()
	date := h.now().In(tz)
	if dateArg != "" {
		d, err := time.ParseInLocation(common.DateLayout, dateArg, tz)
		if err != nil {
			return "Invalid date, use YYYY-MM-DD."
		}
		date = d
	}

	sched, err := h.svc.GetPrayerTimes(ctx, date)
	if err != nil {
		return "Could not load prayer times: " + err.Error()
	}

	loc := h.svc.Location()
	var b strings.Builder
	fmt.Fprintf(&b, "Prayer times for %s, %s on %s (source: %s)\n", loc.City, loc.Country, sched.Date, sched.Source)
	for _, name := range sched.Names() {
		w := sched.Windows[name]
		fmt.Fprintf(&b, "\n%-9s %s - %s (%d min)", name, w.Start, w.End, w.DurationMinutes)
	}
	if sched.ShiftedDays != 0 {
		fmt.Fprintf(&b, "\n\nEstimated from cached times %d day(s) away.", abs(sched.ShiftedDays))
	}
	return b.String()
}

func (h *Handlers) handleNext(ctx context.Context) string {
	next, err := h.svc.GetNextPrayer(ctx, h.now())
	if err != nil {
		return "Could not determine the next prayer: " + err.Error()
	}
	at := next.Time.In(h.svc.TimeZone())
	return fmt.Sprintf("Next: %s at %s (in %d min)", next.Name, at.Format("15:04"), next.MinutesUntil)
}

func (h *Handlers) handleNow(ctx context.Context) string {
	active, name := h.svc.IsPrayerTime(ctx, h.now())
	if !active {
		return "No prayer window is active right now."
	}
	return fmt.Sprintf("%s prayer window is active now.", name)
}

func (h *Handlers) handleSlot(ctx context.Context, hh, mm string) string {
	hour, _ := strconv.Atoi(hh)
	minute, _ := strconv.Atoi(mm)
	if hour > 23 || minute > 59 {
		return "Invalid time, use HH:MM."
	}

	tz := h.svc.TimeZone()
	today := h.now().In(tz)
	at := prayer.NewClock(hour, minute).On(today)

	slot, err := h.svc.NextAvailableSlot(ctx, at)
	if err != nil {
		return "Could not compute a slot: " + err.Error()
	}
	if !slot.Shifted {
		return fmt.Sprintf("%s is free for publishing.", at.Format("15:04"))
	}
	return fmt.Sprintf("%s falls in %s; next free slot is %s.",
		at.Format("15:04"), slot.Prayer, slot.ScheduledAt.In(tz).Format("15:04"))
}

func (h *Handlers) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram: reply failed")
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
