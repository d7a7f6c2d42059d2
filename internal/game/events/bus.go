package events

import (
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// EventBus delivers battle events on the publishing goroutine. Subscribers
// see events in the order they subscribed, then function handlers in the
// order they were added, so a replayed battle produces the same traces.
type EventBus struct {
	mu           sync.RWMutex
	subscribers  map[string]Subscriber
	order        []string
	funcHandlers map[string][]EventHandler
	logger       zerolog.Logger
}

func NewEventBus(logger zerolog.Logger) *EventBus {
	return &EventBus{
		subscribers:  make(map[string]Subscriber),
		funcHandlers: make(map[string][]EventHandler),
		logger:       logger.With().Str("component", "EventBus").Logger(),
	}
}

// Subscribe registers s under s.ID(). Registering an id again swaps the
// subscriber but keeps its place in the delivery order.
func (eb *EventBus) Subscribe(s Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := s.ID()
	if _, ok := eb.subscribers[id]; !ok {
		eb.order = append(eb.order, id)
	}
	eb.subscribers[id] = s
	eb.logger.Debug().Str("subscriber_id", id).Int("subscribers", len(eb.order)).Msg("Subscriber registered")
}

func (eb *EventBus) Unsubscribe(subscriberID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if _, ok := eb.subscribers[subscriberID]; !ok {
		return
	}
	delete(eb.subscribers, subscriberID)
	for i, id := range eb.order {
		if id == subscriberID {
			eb.order = append(eb.order[:i], eb.order[i+1:]...)
			break
		}
	}
	eb.logger.Debug().Str("subscriber_id", subscriberID).Msg("Subscriber removed")
}

// SubscribeFunc calls handler for every event of eventType. The returned id
// is informational; function handlers cannot be removed.
func (eb *EventBus) SubscribeFunc(eventType string, handler EventHandler) string {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.funcHandlers[eventType] = append(eb.funcHandlers[eventType], handler)
	handlerID := eventType + "_func_" + strconv.Itoa(len(eb.funcHandlers[eventType]))
	eb.logger.Debug().
		Str("event_type", eventType).
		Str("handler_id", handlerID).
		Msg("Function handler registered")

	return handlerID
}

// Publish hands event to every interested receiver before returning. A
// receiver that panics is logged and the rest still run.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	eventType := event.Type()
	eb.logger.Debug().
		Str("event_type", eventType).
		Str("game_id", event.GameID()).
		Msg("Publishing event")

	for _, id := range eb.order {
		s := eb.subscribers[id]
		if !s.InterestedIn(eventType) {
			continue
		}
		eb.deliver(eventType, "subscriber_id", id, func() { s.HandleEvent(event) })
	}
	for i, handler := range eb.funcHandlers[eventType] {
		eb.deliver(eventType, "handler_id", eventType+"_func_"+strconv.Itoa(i+1), func() { handler(event) })
	}
}

func (eb *EventBus) deliver(eventType, key, id string, call func()) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error().
				Str(key, id).
				Str("event_type", eventType).
				Interface("panic", r).
				Msg("Event receiver panicked")
		}
	}()
	call()
}

func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.order)
}

func (eb *EventBus) FuncHandlerCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.funcHandlers[eventType])
}
