package types

import (
	"context"
	"log"
	"sync"
)

type PostFn = func(msg Message)

type MessageHandler interface {
	Run(ctx context.Context, wg *sync.WaitGroup, post PostFn)
	Receive(message Message)
}

// MessageBus fans every posted message out to all receivers on one goroutine.
// Posting never blocks the caller: when the bus is full the message is dropped.
type MessageBus struct {
	bus       chan Message
	receivers []MessageHandler

	mu      sync.Mutex
	dropped int
}

func NewMessageBus(bus chan Message, receivers ...MessageHandler) *MessageBus {
	return &MessageBus{bus: bus, receivers: receivers}
}

// Post queues msg for delivery.
func (mb *MessageBus) Post(msg Message) {
	busCapacity := cap(mb.bus)
	busLen := len(mb.bus)
	if busLen > busCapacity/2 {
		log.Printf("WARNING: Bus capacity over 50%% [ %d / %d ]", busLen, busCapacity)
	}
	select {
	case mb.bus <- msg:
	default:
		mb.mu.Lock()
		mb.dropped++
		dropped := mb.dropped
		mb.mu.Unlock()
		log.Printf("WARNING: Bus full, dropped %s (%d dropped so far)", msg.MessageType, dropped)
	}
}

// Dropped returns how many messages were discarded because the bus was full.
func (mb *MessageBus) Dropped() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.dropped
}

// Run starts the receivers and the fan-out loop and returns. Receivers must
// register their goroutines on wg before returning from their own Run.
func (mb *MessageBus) Run(ctx context.Context, wg *sync.WaitGroup) {
	for _, x := range mb.receivers {
		x.Run(ctx, wg, mb.Post)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-mb.bus:
				for _, x := range mb.receivers {
					x.Receive(msg)
				}
			}
		}
	}()
}
