package realtime

import (
	"context"

	"github.com/teamsync/teamsync/internal/events"
)

const teamStreamPrefix = "team."

// Events pushed on team streams.
const (
	EventMemberJoined  = "member.joined"
	EventMemberRemoved = "member.removed"
	EventChatMessage   = "chat.message"
	EventPong          = "pong"
)

// TeamStream is the stream name frames for teamID carry.
func TeamStream(teamID string) string {
	return teamStreamPrefix + roomKey(teamID)
}

// Subscribe forwards roster events from bus to the matching team rooms.
// The whole room, the removed member included, hears about a removal
// before that member's sockets are closed.
func (h *Hub) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.MemberJoinedEvent, "realtime", func(_ context.Context, event events.Event) error {
		if joined, ok := event.(events.MemberJoined); ok {
			h.Broadcast(joined.TeamID, Message{Event: EventMemberJoined, Data: joined, SentAt: joined.At})
		}
		return nil
	})

	bus.Subscribe(events.MemberRemovedEvent, "realtime", func(_ context.Context, event events.Event) error {
		removed, ok := event.(events.MemberRemoved)
		if !ok {
			return nil
		}
		h.Broadcast(removed.TeamID, Message{Event: EventMemberRemoved, Data: removed, SentAt: removed.At})
		h.Kick(removed.TeamID, removed.MemberID)
		return nil
	})
}
