package battle

// readiness is a one-shot "battle started" signal. A continuation registered
// before it fires runs exactly once when it does; registering again before
// that replaces the earlier one. After firing, Wait runs fn immediately.
// Only the room goroutine touches it.
type readiness struct {
	fired   bool
	pending func()
}

func (r *readiness) Wait(fn func()) {
	if r.fired {
		fn()
		return
	}
	r.pending = fn
}

func (r *readiness) Fire() {
	if r.fired {
		return
	}
	r.fired = true
	if fn := r.pending; fn != nil {
		r.pending = nil
		fn()
	}
}

func (r *readiness) Fired() bool { return r.fired }
