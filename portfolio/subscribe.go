package portfolio

// Subscribe returns a channel that receives every committed snapshot and a
// function that ends the subscription. The channel holds one value; a slow
// subscriber only ever sees the most recent snapshot.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	e.subsMu.Lock()
	if e.closed {
		e.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subsMu.Unlock()

	cancel := func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (e *Engine) Subscribers() int {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	return len(e.subs)
}

// Close ends all subscriptions. Later commits are not published.
func (e *Engine) Close() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
}

// publish delivers snap to every subscriber. Snapshots older than one already
// published are dropped.
func (e *Engine) publish(snap Snapshot) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	if snap.Version <= e.published {
		return
	}
	e.published = snap.Version
	for _, ch := range e.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Replace the unread value.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
