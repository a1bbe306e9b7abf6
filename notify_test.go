package patchbay

import "testing"

func TestNotifierDispatchOrder(t *testing.T) {
	var n Notifier
	var got []int
	n.Subscribe(func(Event) { got = append(got, 1) })
	n.Subscribe(func(Event) { got = append(got, 2) })
	n.publish(Event{Kind: EventNodeAdded})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("dispatch order = %v, want [1 2]", got)
	}
}

func TestSubscriptionRemove(t *testing.T) {
	var n Notifier
	calls := 0
	sub := n.Subscribe(func(Event) { calls++ })
	keep := 0
	n.Subscribe(func(Event) { keep++ })

	n.publish(Event{})
	sub.Remove()
	n.publish(Event{})
	n.publish(Event{})

	if calls != 1 {
		t.Errorf("removed listener fired %d times, want 1", calls)
	}
	if keep != 3 {
		t.Errorf("surviving listener fired %d times, want 3", keep)
	}
	sub.Remove() // double remove is a no-op
}

func TestEventKindStructural(t *testing.T) {
	structural := []EventKind{
		EventNodeAdded, EventNodeRemoved, EventEdgeAdded, EventEdgeRemoved,
		EventSurfaceChanged, EventGraphReplaced,
	}
	for _, k := range structural {
		if !k.Structural() {
			t.Errorf("%d not structural", k)
		}
	}
	for _, k := range []EventKind{EventValueChanged, EventConfigChanged, EventBypassChanged} {
		if k.Structural() {
			t.Errorf("%d wrongly structural", k)
		}
	}
}

func TestGraphPublishesMutationEvents(t *testing.T) {
	g := newTestGraph(t)
	var kinds []EventKind
	g.Notify.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })

	a := mustAddNode(t, g, "oscillator")
	b := mustAddNode(t, g, "add")
	mustConnect(t, g, a, "output", b, "a")
	if err := g.SetInputValue(b.ID, "b", 2.0); err != nil {
		t.Fatal(err)
	}
	if err := g.SetConfig(a.ID, "waveform", "square"); err != nil {
		t.Fatal(err)
	}
	if err := g.SetBypassed(b.ID, true); err != nil {
		t.Fatal(err)
	}
	if err := g.SetSurface(a.ID, "aux"); err != nil {
		t.Fatal(err)
	}
	if err := g.RemoveNode(a.ID); err != nil {
		t.Fatal(err)
	}

	want := []EventKind{
		EventNodeAdded, EventNodeAdded, EventEdgeAdded,
		EventValueChanged, EventConfigChanged, EventBypassChanged, EventSurfaceChanged,
		EventEdgeRemoved, EventNodeRemoved,
	}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event[%d] = %d, want %d", i, kinds[i], want[i])
		}
	}
}

func TestEvictionPublishesRemovalFirst(t *testing.T) {
	g := newTestGraph(t)
	a := mustAddNode(t, g, "oscillator")
	b := mustAddNode(t, g, "oscillator")
	sink := mustAddNode(t, g, "add")
	mustConnect(t, g, a, "output", sink, "a")

	var kinds []EventKind
	g.Notify.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })
	mustConnect(t, g, b, "output", sink, "a")

	want := []EventKind{EventEdgeRemoved, EventEdgeAdded}
	if len(kinds) != 2 || kinds[0] != want[0] || kinds[1] != want[1] {
		t.Errorf("eviction events = %v, want %v", kinds, want)
	}
}

func TestReplacePublishesSingleEvent(t *testing.T) {
	g := newTestGraph(t)
	mustAddNode(t, g, "oscillator")

	var kinds []EventKind
	g.Notify.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })
	if err := g.Replace(nil, nil); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if len(kinds) != 1 || kinds[0] != EventGraphReplaced {
		t.Errorf("replace events = %v, want one EventGraphReplaced", kinds)
	}
	if g.Len() != 0 {
		t.Errorf("graph has %d nodes after empty replace", g.Len())
	}
}

func TestDebouncerSettlesAfterWindow(t *testing.T) {
	d := debouncer{window: 0.1}
	if d.Settled(5) {
		t.Error("settled with nothing pending")
	}
	d.Trigger(1.0)
	if d.Settled(1.05) {
		t.Error("settled inside the window")
	}
	if !d.Settled(1.1) {
		t.Error("not settled at the window boundary")
	}
	if d.Settled(2.0) {
		t.Error("settled twice for one burst")
	}
}

func TestDebouncerRestartsOnRetrigger(t *testing.T) {
	d := debouncer{window: 0.1}
	d.Trigger(1.0)
	d.Trigger(1.08)
	if d.Settled(1.1) {
		t.Error("settled despite retrigger")
	}
	if !d.Settled(1.18) {
		t.Error("not settled after the burst went quiet")
	}
}

func TestDebouncerZeroWindow(t *testing.T) {
	var d debouncer
	d.Trigger(3.0)
	if !d.Settled(3.0) {
		t.Error("zero window should settle immediately")
	}
}
