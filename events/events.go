package events

import (
	"github.com/pkg/errors"
	"reflect"
	"sync"
)

// EventHandler defines a callback invoked with a published event. A returned error stops the publication and is
// returned to the publisher.
type EventHandler[T any] func(T) error

// globalEventHandlers maps event type names to the EventHandler objects invoked for every event of that type,
// regardless of the EventEmitter publishing it.
var globalEventHandlers = make(map[string][]any)

// globalEventHandlersLock guards globalEventHandlers.
var globalEventHandlersLock sync.RWMutex

func eventTypeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// SubscribeAny adds an EventHandler invoked for every event of type T published by any EventEmitter.
// Note: handlers subscribed here live for the rest of the program and should not capture short-lived objects.
func SubscribeAny[T any](callback EventHandler[T]) {
	name := eventTypeName[T]()

	globalEventHandlersLock.Lock()
	defer globalEventHandlersLock.Unlock()
	globalEventHandlers[name] = append(globalEventHandlers[name], callback)
}

// EventEmitter publishes events of type T to its own subscribers and to the global subscribers of T. The zero value
// is ready to use. An EventEmitter is not safe for concurrent subscription and publication.
type EventEmitter[T any] struct {
	// subscriptions defines the EventHandler methods invoked when an event is published to this emitter.
	subscriptions []EventHandler[T]
}

// Publish calls every subscribed EventHandler, then every global EventHandler for T, stopping at the first error.
func (e *EventEmitter[T]) Publish(event T) error {
	for _, subscription := range e.subscriptions {
		if err := subscription(event); err != nil {
			return err
		}
	}

	globalEventHandlersLock.RLock()
	callbacks := globalEventHandlers[eventTypeName[T]()]
	globalEventHandlersLock.RUnlock()

	for _, callback := range callbacks {
		handler, ok := callback.(EventHandler[T])
		if !ok {
			return errors.Errorf("global event handler for %v has an unexpected type %T", eventTypeName[T](), callback)
		}
		if err := handler(event); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe adds an EventHandler invoked for every event published by this emitter.
func (e *EventEmitter[T]) Subscribe(callback EventHandler[T]) {
	e.subscriptions = append(e.subscriptions, callback)
}

// Subscribers returns the amount of handlers subscribed to this emitter.
func (e *EventEmitter[T]) Subscribers() int {
	return len(e.subscriptions)
}
