package maestro

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWidget struct {
	id    string
	kind  WidgetKind
	stops int32
}

func (w *stubWidget) ID() string       { return w.id }
func (w *stubWidget) Kind() WidgetKind { return w.kind }
func (w *stubWidget) Stop()            { atomic.AddInt32(&w.stops, 1) }

func (w *stubWidget) stopCount() int { return int(atomic.LoadInt32(&w.stops)) }

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry()
	w := &stubWidget{id: "a", kind: KindMetronome}

	r.Create(w)

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Same(t, Widget(w), got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryCreateSupersedes(t *testing.T) {
	r := NewRegistry()
	first := &stubWidget{id: "a", kind: KindMetronome}
	second := &stubWidget{id: "a", kind: KindMetronome}

	r.Create(first)
	r.Create(second)

	// The superseded widget is stopped, not leaked.
	assert.Equal(t, 1, first.stopCount())
	assert.Equal(t, 0, second.stopCount())

	got, _ := r.Get("a")
	assert.Same(t, Widget(second), got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	w := &stubWidget{id: "a", kind: KindTuner}
	r.Create(w)

	assert.True(t, r.Remove("a"))
	assert.Equal(t, 1, w.stopCount())
	assert.Equal(t, 0, r.Len())

	// Removing an absent key reports false and stops nothing.
	assert.False(t, r.Remove("a"))
	assert.Equal(t, 1, w.stopCount())
}

func TestRegistryStopAll(t *testing.T) {
	r := NewRegistry()
	a := &stubWidget{id: "a", kind: KindMetronome}
	b := &stubWidget{id: "b", kind: KindPracticeTimer}
	r.Create(a)
	r.Create(b)

	r.StopAll()

	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 1, a.stopCount())
	assert.Equal(t, 1, b.stopCount())
}
