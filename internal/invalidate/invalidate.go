// internal/invalidate/invalidate.go
//
// Cross-process binding cache invalidation over Redis pub/sub.
//
// Context
// -------
// Publish, unpublish, attach, and detach happen in the dashboard, which may
// run in another process than the edge.  The dashboard (or `edgectl
// invalidate`) publishes an Event; every edge instance runs Listen and drops
// the affected cache entries.  TTLs keep the worst case bounded when a
// message is lost.
//
// Wire format
// -----------
//
//	{"host":"mycampaign.com"}   attach or detach of one hostname
//	{"page_id":7}               publish or unpublish of one page
//	{"all":true}                purge everything
package invalidate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is used when configuration leaves the channel empty.
const DefaultChannel = "pageedge:bindings"

// Event names what to drop.  Exactly one field should be set.
type Event struct {
	Host   string `json:"host,omitempty"`
	PageID uint64 `json:"page_id,omitempty"`
	All    bool   `json:"all,omitempty"`
}

// Validate rejects empty or ambiguous events.
func (e Event) Validate() error {
	n := 0
	if e.Host != "" {
		n++
	}
	if e.PageID != 0 {
		n++
	}
	if e.All {
		n++
	}
	if n != 1 {
		return errors.New("invalidate: event must set exactly one of host, page_id, all")
	}
	return nil
}

// Target is what events are applied to.  *tenant.Cache implements it.
type Target interface {
	Invalidate(host string)
	InvalidatePage(pageID uint64)
	Purge()
}

// Targets fans one event out to several caches.
type Targets []Target

func (ts Targets) Invalidate(host string) {
	for _, t := range ts {
		t.Invalidate(host)
	}
}

func (ts Targets) InvalidatePage(pageID uint64) {
	for _, t := range ts {
		t.InvalidatePage(pageID)
	}
}

func (ts Targets) Purge() {
	for _, t := range ts {
		t.Purge()
	}
}

// Apply decodes payload and applies it to t.
func Apply(t Target, payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("invalidate: decode: %w", err)
	}
	ev.Host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(ev.Host)), ".")
	if err := ev.Validate(); err != nil {
		return ev, err
	}
	switch {
	case ev.All:
		t.Purge()
	case ev.PageID != 0:
		t.InvalidatePage(ev.PageID)
	default:
		t.Invalidate(ev.Host)
	}
	return ev, nil
}

// Publisher sends events to every listening edge.
type Publisher struct {
	rdb     *redis.Client
	channel string
}

// NewPublisher returns a Publisher on channel (DefaultChannel when empty).
func NewPublisher(rdb *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{rdb: rdb, channel: channel}
}

// Publish sends ev and returns the number of subscribers that received it.
func (p *Publisher) Publish(ctx context.Context, ev Event) (int64, error) {
	if err := ev.Validate(); err != nil {
		return 0, err
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return 0, err
	}
	return p.rdb.Publish(ctx, p.channel, b).Result()
}

// Listen subscribes to channel and applies events to t until ctx ends.
// Malformed messages are logged and skipped.
func Listen(ctx context.Context, rdb *redis.Client, channel string, t Target) error {
	if channel == "" {
		channel = DefaultChannel
	}
	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed so startup fails loudly.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("invalidate: subscribe %s: %w", channel, err)
	}
	zap.L().Info("invalidation listener online", zap.String("channel", channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("invalidate: subscription closed")
			}
			ev, err := Apply(t, msg.Payload)
			if err != nil {
				zap.L().Warn("invalidation skipped",
					zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			zap.L().Debug("binding cache invalidated",
				zap.String("host", ev.Host),
				zap.Uint64("page_id", ev.PageID),
				zap.Bool("all", ev.All))
		}
	}
}

// NewClient parses a redis:// URL into a client.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalidate: redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
