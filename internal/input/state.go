package input

// State is the snapshot of key state for a single frame.
type State struct {
	held     KeySet
	pressed  KeySet
	released KeySet
}

// Pressed reports whether key is held this frame.
func (s State) Pressed(key Key) bool { return s.held.Has(key) }

// JustPressed reports whether key went down this frame.
func (s State) JustPressed(key Key) bool { return s.pressed.Has(key) }

// JustReleased reports whether key went up this frame.
func (s State) JustReleased(key Key) bool { return s.released.Has(key) }

// AnyPressed reports whether any of keys is held.
func (s State) AnyPressed(keys ...Key) bool {
	for _, key := range keys {
		if s.Pressed(key) {
			return true
		}
	}
	return false
}

// Held exposes the raw held set.
func (s State) Held() KeySet { return s.held }

// Tracker derives edge transitions from successive held sets.
type Tracker struct {
	previous KeySet
}

// Next records the keys held this frame and returns the resulting snapshot.
func (t *Tracker) Next(held KeySet) State {
	if t == nil {
		return State{held: held}
	}
	//1.- Bits that flipped on are presses, bits that flipped off are releases.
	state := State{
		held:     held,
		pressed:  held &^ t.previous,
		released: t.previous &^ held,
	}
	t.previous = held
	return state
}
