package realtime

import "strings"

// RoomTopic names a broadcast group. Two kinds exist: a wish's update
// stream and a user's private inbox.
type RoomTopic string

const (
	wishRoomPrefix = "wish:"
	userRoomPrefix = "user:"
)

// WishRoom is the topic carrying one wish's update and interaction stream.
func WishRoom(wishID string) RoomTopic {
	return RoomTopic(wishRoomPrefix + wishID)
}

// UserRoom is a user's private inbox topic, auto-joined at connect time by
// every connection belonging to that user.
func UserRoom(userID UserID) RoomTopic {
	return RoomTopic(userRoomPrefix + string(userID))
}

// WishID extracts the wish id from a wish room topic.
func (t RoomTopic) WishID() (string, bool) {
	id, ok := strings.CutPrefix(string(t), wishRoomPrefix)
	return id, ok
}

// RoomRouter maps topics to subscribed connections. A reverse index per
// connection keeps LeaveAll exact without scanning every room.
//
// Like the Registry, it is unsynchronized; the Core serializes access.
type RoomRouter struct {
	rooms  map[RoomTopic]map[ConnectionID]struct{}
	joined map[ConnectionID]map[RoomTopic]struct{}
}

func NewRoomRouter() *RoomRouter {
	return &RoomRouter{
		rooms:  make(map[RoomTopic]map[ConnectionID]struct{}),
		joined: make(map[ConnectionID]map[RoomTopic]struct{}),
	}
}

// Join subscribes a connection to a room. Joining twice is a no-op.
func (rr *RoomRouter) Join(room RoomTopic, conn ConnectionID) {
	members := rr.rooms[room]
	if members == nil {
		members = make(map[ConnectionID]struct{})
		rr.rooms[room] = members
	}
	members[conn] = struct{}{}

	topics := rr.joined[conn]
	if topics == nil {
		topics = make(map[RoomTopic]struct{})
		rr.joined[conn] = topics
	}
	topics[room] = struct{}{}
}

// Leave unsubscribes a connection from a room, a no-op if absent. Empty
// room entries are removed.
func (rr *RoomRouter) Leave(room RoomTopic, conn ConnectionID) {
	if members, ok := rr.rooms[room]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(rr.rooms, room)
		}
	}
	if topics, ok := rr.joined[conn]; ok {
		delete(topics, room)
		if len(topics) == 0 {
			delete(rr.joined, conn)
		}
	}
}

// LeaveAll removes a connection from every room it belongs to. Called on
// disconnect; a connection that skipped this would keep receiving room
// traffic through a dead membership entry.
func (rr *RoomRouter) LeaveAll(conn ConnectionID) {
	for room := range rr.joined[conn] {
		if members, ok := rr.rooms[room]; ok {
			delete(members, conn)
			if len(members) == 0 {
				delete(rr.rooms, room)
			}
		}
	}
	delete(rr.joined, conn)
}

// Members returns a snapshot of the room's member set.
func (rr *RoomRouter) Members(room RoomTopic) []ConnectionID {
	members := rr.rooms[room]
	out := make([]ConnectionID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// Contains reports whether a connection is currently in a room.
func (rr *RoomRouter) Contains(room RoomTopic, conn ConnectionID) bool {
	_, ok := rr.rooms[room][conn]
	return ok
}
