// Package telemetry fans per-tick biome snapshots out to websocket
// subscribers as msgpack-encoded frames.
package telemetry

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Frame is one biome's per-tick telemetry sample. Encoded once per publish,
// shared by every subscriber.
type Frame struct {
	BiomeID     string    `msgpack:"biome_id"`
	Name        string    `msgpack:"name"`
	Tick        uint64    `msgpack:"tick"`
	Registers   int       `msgpack:"registers"`
	Purity      float64   `msgpack:"purity"`
	Populations []float64 `msgpack:"populations"`
	Failed      bool      `msgpack:"failed"`
	CapturedAt  time.Time `msgpack:"captured_at"`
}

// Hub distributes encoded frames to subscribers. Slow subscribers drop
// frames rather than stalling the tick loop.
type Hub struct {
	log         zerolog.Logger
	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:         log.With().Str("component", "telemetry").Logger(),
		subscribers: make(map[chan []byte]struct{}),
	}
}

// Subscribe registers a new subscriber channel. The returned cancel function
// must be called exactly once when the subscriber goes away.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		delete(h.subscribers, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish encodes the frame and delivers it to every subscriber without
// blocking.
func (h *Hub) Publish(frame Frame) {
	data, err := msgpack.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Str("biome_id", frame.BiomeID).Msg("Failed to encode telemetry frame")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- data:
		default:
			// Subscriber is behind; drop the frame for it.
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
