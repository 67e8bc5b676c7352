package detail

import "sync"

// Registry keeps the mounted detail view of each user. Mounting a new view
// closes the previous one, which discards its pending results.
type Registry struct {
	mu    sync.Mutex
	views map[string]*View
}

func NewRegistry() *Registry {
	return &Registry{views: make(map[string]*View)}
}

// Mount registers v as the view of user.
func (r *Registry) Mount(user string, v *View) {
	r.mu.Lock()
	prev := r.views[user]
	r.views[user] = v
	r.mu.Unlock()
	if prev != nil && prev != v {
		prev.Close()
	}
}

// Get returns the view mounted for user.
func (r *Registry) Get(user string) (*View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[user]
	return v, ok
}

// Unmount closes and forgets the view of user.
func (r *Registry) Unmount(user string) bool {
	r.mu.Lock()
	v, ok := r.views[user]
	delete(r.views, user)
	r.mu.Unlock()
	if ok {
		v.Close()
	}
	return ok
}

// Len returns the number of mounted views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// UnmountListing closes and forgets every view of a listing, returning how
// many there were.
func (r *Registry) UnmountListing(id string) int {
	r.mu.Lock()
	var closed []*View
	for user, v := range r.views {
		if v.id == id {
			closed = append(closed, v)
			delete(r.views, user)
		}
	}
	r.mu.Unlock()
	for _, v := range closed {
		v.Close()
	}
	return len(closed)
}
