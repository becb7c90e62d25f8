// Package realtime pushes ordered annotation snapshots to open subscriptions.
package realtime

import (
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/courtside/courtside/internal/model"
)

// Hub fans annotation snapshots out to subscribers per video. Every publish
// delivers the full list in playback-timestamp order, so a consumer never has
// to merge deltas. Subscribers must call their cancel func when done; the hub
// holds their channel until then.
type Hub struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[uuid.UUID]map[int64]chan []model.Annotation
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[int64]chan []model.Annotation)}
}

// Subscribe registers a listener for one video. The returned channel receives a
// full ordered snapshot on every change. Cancel closes the channel and releases
// the listener slot.
func (h *Hub) Subscribe(videoID uuid.UUID) (<-chan []model.Annotation, func()) {
	ch, cancel := h.register(videoID)
	return ch, cancel
}

// SubscribeSeeded registers a listener and delivers the seed snapshot to that
// listener only. Existing subscriptions see nothing; they already hold the
// current state.
func (h *Hub) SubscribeSeeded(videoID uuid.UUID, seed []model.Annotation) (<-chan []model.Annotation, func()) {
	ch, cancel := h.register(videoID)
	snap := make([]model.Annotation, len(seed))
	copy(snap, seed)
	// Freshly created buffered channel, nothing else can fill it yet.
	ch <- snap
	return ch, cancel
}

func (h *Hub) register(videoID uuid.UUID) (chan []model.Annotation, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan []model.Annotation, 8)
	if h.subs[videoID] == nil {
		h.subs[videoID] = make(map[int64]chan []model.Annotation)
	}
	h.subs[videoID][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if listeners, ok := h.subs[videoID]; ok {
			if c, ok := listeners[id]; ok {
				delete(listeners, id)
				close(c)
			}
			if len(listeners) == 0 {
				delete(h.subs, videoID)
			}
		}
	}
	return ch, cancel
}

// Publish delivers the snapshot to every open subscription for the video.
// Sends are non-blocking; a subscriber that stopped draining misses the
// intermediate snapshot and catches up on the next publish.
func (h *Hub) Publish(videoID uuid.UUID, snapshot []model.Annotation) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[videoID] {
		// Copy per subscriber so one consumer cannot mutate another's view.
		snap := make([]model.Annotation, len(snapshot))
		copy(snap, snapshot)
		select {
		case ch <- snap:
		default:
		}
	}
}

// DropVideo closes every subscription for a video. Called when the video is
// deleted so listeners observe the end of the stream.
func (h *Hub) DropVideo(videoID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs[videoID] {
		delete(h.subs[videoID], id)
		close(ch)
	}
	delete(h.subs, videoID)
}

// Listeners reports the number of open subscriptions for a video.
func (h *Hub) Listeners(videoID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[videoID])
}
