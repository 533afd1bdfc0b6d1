package portal

import "sync"

type Observer func(State)

// Delivers states to observers in publish order on its own goroutine so a
// slow observer never stalls the upload. close waits for the queue to drain.
type notifier struct {
	wake      chan struct{}
	done      chan struct{}
	observers []Observer
	queue     []State
	closed    bool
	mu        sync.Mutex
}

func newNotifier(observers []Observer) *notifier {
	if len(observers) == 0 {
		return nil
	}

	n := &notifier{
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		observers: observers,
	}
	go n.run()
	return n
}

func (n *notifier) signal() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *notifier) publish(s State) {
	if n == nil {
		return
	}

	n.mu.Lock()
	n.queue = append(n.queue, s)
	n.mu.Unlock()

	n.signal()
}

func (n *notifier) run() {
	defer close(n.done)

	for range n.wake {
		n.mu.Lock()
		batch := n.queue
		n.queue = nil
		closed := n.closed
		n.mu.Unlock()

		for _, s := range batch {
			for _, o := range n.observers {
				o(s)
			}
		}

		if closed {
			return
		}
	}
}

func (n *notifier) close() {
	if n == nil {
		return
	}

	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	n.signal()
	<-n.done
}
