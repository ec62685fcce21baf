package pipeline

import "sync"

// emitter delivers events to a ProgressFunc on a separate goroutine.
// Sends never block: when the buffer is full the event is dropped.
type emitter struct {
	ch      chan Event
	wg      sync.WaitGroup
	dropped int
}

func newEmitter(fn ProgressFunc, size int) *emitter {
	if fn == nil {
		return &emitter{}
	}
	e := &emitter{ch: make(chan Event, size)}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for event := range e.ch {
			fn(event)
		}
	}()
	return e
}

// send queues event. Callers serialize sends.
func (e *emitter) send(event Event) {
	if e.ch == nil {
		return
	}
	select {
	case e.ch <- event:
	default:
		e.dropped++
	}
}

// close flushes queued events and waits for the consumer to finish.
func (e *emitter) close() {
	if e.ch == nil {
		return
	}
	close(e.ch)
	e.wg.Wait()
}
