package playback

// do runs fn on the adapter goroutine and waits for it.
func (a *Adapter) do(fn func()) {
	done := make(chan struct{})
	if !a.post(func() { fn(); close(done) }) {
		return
	}
	select {
	case <-done:
	case <-a.stopped:
	}
}
