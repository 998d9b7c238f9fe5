package maestro

import "sync"

// Registry is the owned collection of live widgets, keyed by widget
// identifier. Create, Get and Remove are the only mutation entry points.
type Registry struct {
	mu      sync.Mutex
	widgets map[string]Widget
}

func NewRegistry() *Registry {
	return &Registry{widgets: make(map[string]Widget)}
}

// Create registers a widget. A live widget under the same key is stopped
// and superseded; the server reissuing a tool id replaces the instance.
func (r *Registry) Create(w Widget) {
	r.mu.Lock()
	old, exists := r.widgets[w.ID()]
	r.widgets[w.ID()] = w
	r.mu.Unlock()

	if exists {
		old.Stop()
	}
}

func (r *Registry) Get(id string) (Widget, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.widgets[id]
	return w, ok
}

// Remove stops and deletes the widget. Returns false if no widget holds
// the key.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	w, ok := r.widgets[id]
	delete(r.widgets, id)
	r.mu.Unlock()

	if ok {
		w.Stop()
	}
	return ok
}

// Len reports the number of live widgets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.widgets)
}

// StopAll stops and removes every live widget; used on page-level teardown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	widgets := make([]Widget, 0, len(r.widgets))
	for _, w := range r.widgets {
		widgets = append(widgets, w)
	}
	r.widgets = make(map[string]Widget)
	r.mu.Unlock()

	for _, w := range widgets {
		w.Stop()
	}
}
