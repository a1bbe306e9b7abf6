package patchbay

// EventKind identifies a kind of graph change event.
type EventKind uint8

const (
	EventNodeAdded     EventKind = iota // fires after a node is inserted
	EventNodeRemoved                    // fires after a node and its incident edges are removed
	EventEdgeAdded                      // fires after an edge is inserted
	EventEdgeRemoved                    // fires after an edge is removed (including eviction)
	EventValueChanged                   // fires when an unconnected input value is edited
	EventConfigChanged                  // fires when a node config option (shader source, waveform, ...) is edited
	EventBypassChanged                  // fires when a node's bypass flag is toggled
	EventSurfaceChanged                 // fires when a node moves to another render surface
	EventGraphReplaced                  // fires after a persisted patch atomically replaces the store
)

// Structural reports whether the event changes graph topology and therefore
// invalidates cached evaluation orders and shader plans. Value and bypass
// edits deliberately do not: they must never force edge-index rebuilds or
// order recomputation.
func (k EventKind) Structural() bool {
	switch k {
	case EventNodeAdded, EventNodeRemoved, EventEdgeAdded, EventEdgeRemoved,
		EventSurfaceChanged, EventGraphReplaced:
		return true
	default:
		return false
	}
}

// Event describes a single change to a Graph. Node and Edge are set when the
// event concerns one; zero otherwise.
type Event struct {
	Kind EventKind
	Node NodeID
	Edge EdgeID
}

// Notifier fans graph change events out to subscribers. Dispatch is
// synchronous and in subscription order; subscribers must not mutate the
// graph from inside a callback (no locking — single-threaded model).
type Notifier struct {
	listeners []listener
	nextID    uint32
}

type listener struct {
	id uint32
	fn func(Event)
}

// Subscription allows removing a registered listener.
type Subscription struct {
	id uint32
	n  *Notifier
}

// Subscribe registers fn to receive every subsequent event.
func (n *Notifier) Subscribe(fn func(Event)) Subscription {
	n.nextID++
	n.listeners = append(n.listeners, listener{id: n.nextID, fn: fn})
	return Subscription{id: n.nextID, n: n}
}

// Remove unregisters this subscription so its callback no longer fires.
// The entry is removed from the slice to avoid nil iteration waste.
func (s Subscription) Remove() {
	if s.n == nil {
		return
	}
	ls := s.n.listeners
	for i := range ls {
		if ls[i].id == s.id {
			copy(ls[i:], ls[i+1:])
			ls[len(ls)-1] = listener{}
			s.n.listeners = ls[:len(ls)-1]
			return
		}
	}
}

// publish delivers an event to every listener.
func (n *Notifier) publish(ev Event) {
	for _, l := range n.listeners {
		l.fn(ev)
	}
}

// debouncer delays reacting to a burst of triggers until the burst settles.
// Time is the frame clock, not the wall clock, so headless fixed-step runs
// debounce identically to windowed ones.
type debouncer struct {
	window  float64 // settle time in seconds
	lastAt  float64
	pending bool
}

// Trigger records a change at the given time, restarting the settle window.
func (d *debouncer) Trigger(now float64) {
	d.pending = true
	d.lastAt = now
}

// Settled reports whether a pending burst has gone quiet for the full window,
// consuming the pending flag when it has. A zero window settles on the next
// check.
func (d *debouncer) Settled(now float64) bool {
	if !d.pending || now-d.lastAt < d.window {
		return false
	}
	d.pending = false
	return true
}
