package usecase

import (
	"sync"

	"dashboard/domain"
	"dashboard/interface/exporter"
)

const (
	subscriberBuffer = 4
)

type subscription struct {
	id uint64
	ch chan Snapshot
}

// Notifier fans snapshots out to subscribers of (address, block). A slow
// subscriber misses updates; Publish never blocks.
type Notifier struct {
	mu          sync.Mutex
	nextID      uint64
	subscribers map[string][]subscription
	metrics     *exporter.Metrics
}

func NewNotifier(metrics *exporter.Metrics) *Notifier {
	return &Notifier{
		subscribers: make(map[string][]subscription),
		metrics:     metrics,
	}
}

func subscriptionKey(address domain.Address, block domain.BlockReference) string {
	return string(address) + "|" + block.String()
}

// Subscribe returns a channel receiving every snapshot published for
// (address, block) and a func that ends the subscription and closes it.
func (n *Notifier) Subscribe(address domain.Address, block domain.BlockReference) (<-chan Snapshot, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	sub := subscription{id: n.nextID, ch: make(chan Snapshot, subscriberBuffer)}
	key := subscriptionKey(address, block)
	n.subscribers[key] = append(n.subscribers[key], sub)
	n.metrics.SubscriberAdded()

	var once sync.Once
	cancel := func() {
		once.Do(func() { n.remove(key, sub.id) })
	}
	return sub.ch, cancel
}

// Publish delivers snapshot to every current subscriber and returns how many
// received it.
func (n *Notifier) Publish(address domain.Address, block domain.BlockReference, snapshot Snapshot) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	delivered := 0
	for _, sub := range n.subscribers[subscriptionKey(address, block)] {
		select {
		case sub.ch <- snapshot:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of open subscriptions for (address, block).
func (n *Notifier) Subscribers(address domain.Address, block domain.BlockReference) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subscribers[subscriptionKey(address, block)])
}

func (n *Notifier) remove(key string, id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	subs := n.subscribers[key]
	for i, sub := range subs {
		if sub.id != id {
			continue
		}
		close(sub.ch)
		subs = append(subs[:i], subs[i+1:]...)
		n.metrics.SubscriberRemoved()
		break
	}
	if len(subs) == 0 {
		delete(n.subscribers, key)
	} else {
		n.subscribers[key] = subs
	}
}
