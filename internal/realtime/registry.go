package realtime

// UserID identifies a registered user. Issued by the auth layer; opaque here.
type UserID string

// ConnectionID identifies one live transport connection.
type ConnectionID string

// Registry tracks the set of open connections per user. Presence is always
// derived from it: a user is online iff they own at least one connection.
// No separate online flag is kept anywhere, so the registry cannot drift.
//
// The registry is not safe for concurrent use; the Core serializes every
// access under its mutex.
type Registry struct {
	users map[UserID]map[ConnectionID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[UserID]map[ConnectionID]struct{}),
	}
}

// Register adds a connection to the user's set. Registering an
// already-present pair is a no-op.
func (r *Registry) Register(user UserID, conn ConnectionID) {
	set := r.users[user]
	if set == nil {
		set = make(map[ConnectionID]struct{})
		r.users[user] = set
	}
	set[conn] = struct{}{}
}

// Unregister removes a connection from the user's set, a no-op if absent.
// When the set drains, the user entry is deleted entirely: an empty-set
// entry left behind would make IsOnline report a phantom online user.
func (r *Registry) Unregister(user UserID, conn ConnectionID) {
	set, ok := r.users[user]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.users, user)
	}
}

// IsOnline reports whether the user has at least one open connection.
func (r *Registry) IsOnline(user UserID) bool {
	return len(r.users[user]) > 0
}

// ConnectionsOf returns a snapshot of the user's connection set. Mutating
// the returned map never touches registry state.
func (r *Registry) ConnectionsOf(user UserID) map[ConnectionID]struct{} {
	set := r.users[user]
	out := make(map[ConnectionID]struct{}, len(set))
	for id := range set {
		out[id] = struct{}{}
	}
	return out
}

// OnlineUsers returns every user holding at least one connection.
func (r *Registry) OnlineUsers() []UserID {
	out := make([]UserID, 0, len(r.users))
	for user := range r.users {
		out = append(out, user)
	}
	return out
}
