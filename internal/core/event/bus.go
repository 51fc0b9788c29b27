package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted in tick N are
// delivered in tick N+1, when the dispatch system calls SwapBuffers and
// DispatchAll. Emit and dispatch are game-loop only; Subscribe may be
// called from any goroutine.
type Bus struct {
	mu       sync.Mutex // protects handlers
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	order    []reflect.Type // first-emit order, keeps dispatch deterministic
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event for the next dispatch.
func Emit[T any](b *Bus, ev T) {
	t := typeOf[T]()
	if _, seen := b.back[t]; !seen {
		if _, known := b.front[t]; !known {
			b.order = append(b.order, t)
		}
	}
	b.back[t] = append(b.back[t], ev)
}

// Subscribe registers a handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeOf[T]()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// Pending returns how many events of type T wait in the back buffer.
func Pending[T any](b *Bus) int {
	return len(b.back[typeOf[T]()])
}

// SwapBuffers moves queued events to the front buffer and empties the back.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers front-buffer events to their handlers, grouped by
// type in first-emit order. Returns the number of events delivered.
func (b *Bus) DispatchAll() int {
	b.mu.Lock()
	handlers := make(map[reflect.Type][]func(any), len(b.handlers))
	for t, hs := range b.handlers {
		handlers[t] = hs
	}
	b.mu.Unlock()

	n := 0
	for _, t := range b.order {
		for _, ev := range b.front[t] {
			for _, h := range handlers[t] {
				h(ev)
			}
			n++
		}
		b.front[t] = b.front[t][:0]
	}
	return n
}
