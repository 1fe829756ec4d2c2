// Package broadcast fans job progress snapshots out to long-lived
// subscribers. Producers (job manager mutators on worker goroutines) only
// enqueue; a single consumer goroutine owns all outbound delivery, so a
// slow subscriber can never stall job progress. Queues are bounded with a
// drop-oldest policy: subscribers always converge on the newest snapshot.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/netscope-network/netscope/pkg/job"
	"github.com/netscope-network/netscope/pkg/util"
)

// Event is one progress snapshot tagged with its mutation kind.
type Event struct {
	Kind  string
	JobID string
	Job   *job.Job
}

const (
	queueDepth      = 256
	subscriberDepth = 64
)

// Broadcaster implements job.Sink and delivers events to subscribers.
type Broadcaster struct {
	queue chan Event
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	dropped atomic.Uint64
}

// New creates a broadcaster and starts its delivery goroutine.
func New() *Broadcaster {
	b := &Broadcaster{
		queue: make(chan Event, queueDepth),
		done:  make(chan struct{}),
		subs:  make(map[uint64]*Subscription),
	}
	b.wg.Add(1)
	go b.deliver()
	return b
}

// Publish enqueues one snapshot. Never blocks: when the queue is full the
// oldest pending event is dropped. Ordering of retained events within a
// job is preserved because there is a single consumer.
func (b *Broadcaster) Publish(kind, jobID string, snapshot *job.Job) {
	ev := Event{Kind: kind, JobID: jobID, Job: snapshot}
	for {
		select {
		case <-b.done:
			return
		case b.queue <- ev:
			return
		default:
		}
		// Queue full: drop the oldest and retry.
		select {
		case <-b.queue:
			b.dropped.Add(1)
		default:
		}
	}
}

// deliver fans queued events out to matching subscribers.
func (b *Broadcaster) deliver() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case ev := <-b.queue:
			b.mu.Lock()
			for _, sub := range b.subs {
				if !sub.matches(ev.JobID) {
					continue
				}
				sub.push(ev)
			}
			b.mu.Unlock()
		}
	}
}

// Dropped reports how many events were discarded under backpressure.
func (b *Broadcaster) Dropped() uint64 { return b.dropped.Load() }

// SubscriberCount returns the number of registered subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Subscribe registers a subscriber. An empty jobID receives every job's
// events; SetFilter narrows it later.
func (b *Broadcaster) Subscribe(jobID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id: b.nextID,
		b:  b,
		ch: make(chan Event, subscriberDepth),
	}
	sub.filter.Store(jobID)
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub.id] = sub
	util.Logger.Debugf("subscriber %d registered (filter=%q), total %d", sub.id, jobID, len(b.subs))
	return sub
}

// unsubscribe prunes a subscriber.
func (b *Broadcaster) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Close stops delivery and closes every subscription.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
	b.mu.Unlock()

	close(b.done)
	b.wg.Wait()
}

// Subscription is one subscriber's bounded event stream.
type Subscription struct {
	id     uint64
	b      *Broadcaster
	ch     chan Event
	filter atomic.Value // string: job id, "" = all
	drops  atomic.Uint64
}

// Events returns the receive channel. It is closed on Close.
func (s *Subscription) Events() <-chan Event { return s.ch }

// SetFilter narrows the subscription to a single job.
func (s *Subscription) SetFilter(jobID string) { s.filter.Store(jobID) }

// Dropped reports events discarded because this subscriber lagged.
func (s *Subscription) Dropped() uint64 { return s.drops.Load() }

// Close deregisters the subscription.
func (s *Subscription) Close() { s.b.unsubscribe(s.id) }

func (s *Subscription) matches(jobID string) bool {
	f, _ := s.filter.Load().(string)
	return f == "" || f == jobID
}

// push delivers with drop-oldest when the subscriber's buffer is full.
// Called only from the broadcaster's single delivery goroutine.
func (s *Subscription) push(ev Event) {
	for {
		select {
		case s.ch <- ev:
			return
		default:
		}
		select {
		case <-s.ch:
			s.drops.Add(1)
		default:
		}
	}
}
