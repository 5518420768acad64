// Package notify is an optional Redis-backed cross-process notifier for
// asynchronous query completion, modeled on the teacher's
// internal/queue.RedisListNotifier: LPUSH/BRPOP instead of pub/sub, so a
// signal persists in Redis even when nothing is listening yet and each
// signal is delivered to exactly one waiter.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "mqi:notify:session:"

// Notifier lets one process signal "an async result is ready" for a
// session and another process (or another goroutine in the same process)
// block-wait for that signal, without both needing to hold the same
// Session value.
type Notifier struct {
	client *redis.Client

	mu     sync.Mutex
	subs   map[string][]*subscription
	closed bool
}

type subscription struct {
	ch     chan struct{}
	cancel context.CancelFunc
}

// Open connects to Redis at addr/db. It does not verify connectivity;
// the first Notify call surfaces a connection failure. Subscribe never
// reports one: its background goroutine keeps retrying.
func Open(addr string, db int) *Notifier {
	return &Notifier{
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		subs:   make(map[string][]*subscription),
	}
}

// Notify signals that sessionID has a ready async result. Exactly one
// Subscribe waiter (in this process or another) receives each signal.
func (n *Notifier) Notify(ctx context.Context, sessionID string) error {
	return n.client.LPush(ctx, keyPrefix+sessionID, "1").Err()
}

// Subscribe returns a channel that receives a value when Notify is called
// for sessionID, via a background goroutine blocked on BRPOP. The channel
// holds at most one pending value; a signal popped while one is still
// unread is dropped. The channel is closed when ctx is done or the
// Notifier is closed.
func (n *Notifier) Subscribe(ctx context.Context, sessionID string) <-chan struct{} {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(ch)
		return ch
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{ch: ch, cancel: cancel}
	n.subs[sessionID] = append(n.subs[sessionID], sub)
	n.mu.Unlock()

	key := keyPrefix + sessionID
	go func() {
		defer func() {
			n.removeSub(sessionID, sub)
			close(ch)
		}()

		for {
			if subCtx.Err() != nil {
				return
			}
			result, err := n.client.BRPop(subCtx, 1*time.Second, key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if subCtx.Err() != nil {
					return
				}
				select {
				case <-subCtx.Done():
					return
				case <-time.After(100 * time.Millisecond):
				}
				continue
			}
			if len(result) >= 2 {
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch
}

// Close releases the Redis client and cancels every outstanding
// Subscribe goroutine.
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	for _, subs := range n.subs {
		for _, s := range subs {
			s.cancel()
		}
	}
	n.subs = nil
	n.mu.Unlock()
	return n.client.Close()
}

func (n *Notifier) removeSub(sessionID string, target *subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	subs := n.subs[sessionID]
	for i, s := range subs {
		if s == target {
			n.subs[sessionID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}
