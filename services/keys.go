package services

import (
	"fmt"

	"chat-relay/domain"
)

// Cache key layout. List caches are coarse-grained: one entry for all
// users, one for all rooms. Paginated room reads cache one entry per
// (room, first, after) tuple under a shared room prefix, so one write can
// invalidate every cached page of that room in a single prefix drop.
const (
	keyAllUsers = "all_users"
	keyAllRooms = "all_rooms"
)

func messagesKey(cmd domain.GetMessagesCommand) string {
	first, after := "", ""
	if cmd.First != nil {
		first = fmt.Sprintf("%d", *cmd.First)
	}
	if cmd.After != nil {
		after = *cmd.After
	}
	return fmt.Sprintf("%s%s:%s", messagesPrefix(cmd.RoomID), first, after)
}

func messagesPrefix(room domain.RoomID) string {
	return fmt.Sprintf("messages_by_room:%d:", room)
}
