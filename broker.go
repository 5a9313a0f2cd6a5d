package templog

import "sync/atomic"

// Broker fans captured readings out to live subscribers (the
// WebSocket stream and the latest-reading tracker). Subscriber
// channels are buffered and sends are non-blocking, so a stalled
// client can never hold up the polling loop.
type Broker struct {
	stopCh    chan struct{}
	publishCh chan Sample
	subCh     chan chan Sample
	unsubCh   chan chan Sample
	subCount  atomic.Int64
}

func NewBroker() *Broker {
	return &Broker{
		stopCh:    make(chan struct{}),
		publishCh: make(chan Sample, 1),
		subCh:     make(chan chan Sample, 1),
		unsubCh:   make(chan chan Sample, 1),
	}
}

// Start runs the fan-out loop until Stop. Run it on its own goroutine.
func (b *Broker) Start() {
	subs := map[chan Sample]struct{}{}
	for {
		select {
		case <-b.stopCh:
			return
		case ch := <-b.subCh:
			subs[ch] = struct{}{}
			b.subCount.Store(int64(len(subs)))
		case ch := <-b.unsubCh:
			delete(subs, ch)
			b.subCount.Store(int64(len(subs)))
		case s := <-b.publishCh:
			for ch := range subs {
				select {
				case ch <- s:
				default:
					// Slow subscriber; drop rather than block.
				}
			}
		}
	}
}

func (b *Broker) Stop() {
	close(b.stopCh)
}

func (b *Broker) Subscribe() chan Sample {
	ch := make(chan Sample, 256)
	b.subCh <- ch
	return ch
}

// Unsubscribe is safe to call after Stop; subscriber teardown often
// races shutdown.
func (b *Broker) Unsubscribe(ch chan Sample) {
	select {
	case b.unsubCh <- ch:
	case <-b.stopCh:
	}
}

func (b *Broker) Publish(s Sample) {
	b.publishCh <- s
}

// SubCount reports the number of live subscribers.
func (b *Broker) SubCount() int64 {
	return b.subCount.Load()
}
