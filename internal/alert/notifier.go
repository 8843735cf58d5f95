package alert

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultRateLimit suppresses repeats of the same service/subject pair.
const DefaultRateLimit = 30 * time.Minute

// Severity is carried to channels that can render it.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one admin notification.
type Alert struct {
	ID       string
	Service  string
	Subject  string
	Message  string
	Severity Severity
	SentAt   time.Time
}

// Channel delivers an alert through one medium.
type Channel interface {
	Name() string
	Send(ctx context.Context, a Alert) error
}

// Notifier fans an alert out to every configured channel, rate limited per
// service and subject.
type Notifier struct {
	channels []Channel
	window   time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewNotifier(window time.Duration, channels ...Channel) *Notifier {
	if window <= 0 {
		window = DefaultRateLimit
	}
	active := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if ch != nil {
			active = append(active, ch)
		}
	}
	return &Notifier{
		channels: active,
		window:   window,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// Channels returns the names of the configured channels.
func (n *Notifier) Channels() []string {
	out := make([]string, 0, len(n.channels))
	for _, ch := range n.channels {
		out = append(out, ch.Name())
	}
	return out
}

// Notify sends the alert on every channel. It reports whether at least one
// channel accepted it; rate-limited alerts report false.
func (n *Notifier) Notify(ctx context.Context, subject, message, service string) bool {
	if !n.allow(service, subject) {
		log.Info().Str("service", service).Str("subject", subject).Msg("alert suppressed by rate limit")
		return false
	}
	if len(n.channels) == 0 {
		log.Warn().Str("service", service).Str("subject", subject).Msg("no alert channels configured")
		return false
	}

	a := Alert{
		ID:       uuid.NewString(),
		Service:  service,
		Subject:  subject,
		Message:  message,
		Severity: SeverityCritical,
		SentAt:   n.now(),
	}

	// Channels send in parallel so one slow channel costs a single timeout.
	var (
		wg        sync.WaitGroup
		delivered atomic.Bool
	)
	for _, ch := range n.channels {
		wg.Go(func() {
			if err := ch.Send(ctx, a); err != nil {
				log.Error().Err(err).Str("channel", ch.Name()).Str("alert_id", a.ID).Msg("alert delivery failed")
				return
			}
			log.Info().Str("channel", ch.Name()).Str("alert_id", a.ID).Str("subject", subject).Msg("alert delivered")
			delivered.Store(true)
		})
	}
	wg.Wait()
	return delivered.Load()
}

// allow records the attempt and trims entries older than twice the window.
func (n *Notifier) allow(service, subject string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	key := service + "|" + subject
	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.window {
		return false
	}
	n.lastSent[key] = now

	for k, t := range n.lastSent {
		if now.Sub(t) > 2*n.window {
			delete(n.lastSent, k)
		}
	}
	return true
}
