// Package notifications provides real-time notification delivery over Redis pub/sub and websockets.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"appx/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const userChannelPrefix = "notifications:user:"

// Notifier publishes notification payloads into per-user Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// SubscribeUsers listens on every user channel and hands each message to
// deliver until ctx is cancelled. It returns once the subscription is live.
func (n *Notifier) SubscribeUsers(ctx context.Context, deliver func(userID uint, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s*: %w", userChannelPrefix, err)
	}

	go func() {
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				userID, valid := ParseUserChannel(msg.Channel)
				if !valid {
					middleware.Logger.Warn("ignoring message on malformed channel", slog.String("channel", msg.Channel))
					continue
				}
				safeDeliver(deliver, userID, msg.Payload)
			}
		}
	}()
	return nil
}

func safeDeliver(deliver func(uint, string), userID uint, payload string) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.Error("panic delivering notification",
				slog.Uint64("user_id", uint64(userID)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	deliver(userID, payload)
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user id from a channel produced by UserChannel.
func ParseUserChannel(channel string) (uint, bool) {
	rest, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
