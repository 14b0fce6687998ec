package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix        = "user:%d"
	RelationCountsPrefix = "user:%d:relation_counts"
	UnreadCountPrefix    = "user:%d:unread_notifications"
)

const (
	UserTTL           = 5 * time.Minute
	RelationCountsTTL = 2 * time.Minute
	UnreadCountTTL    = 30 * time.Second
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func RelationCountsKey(userID uint) string {
	return fmt.Sprintf(RelationCountsPrefix, userID)
}

func UnreadCountKey(userID uint) string {
	return fmt.Sprintf(UnreadCountPrefix, userID)
}

// Invalidate deletes keys. Errors are ignored; entries expire on their own.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateRelationCounts(ctx context.Context, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, RelationCountsKey(id))
	}
	Invalidate(ctx, keys...)
}

func InvalidateUnreadCount(ctx context.Context, userID uint) {
	Invalidate(ctx, UnreadCountKey(userID))
}
