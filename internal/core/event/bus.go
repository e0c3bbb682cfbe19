package event

import "reflect"

// Bus is a double-buffered event bus. Events emitted during frame N are
// delivered during frame N+1, in emission order across all event types.
// A Bus belongs to the frame loop goroutine.
type Bus struct {
	pending  []queued // emitted this frame
	ready    []queued // delivered by DispatchAll
	handlers map[reflect.Type][]func(any)
}

type queued struct {
	kind  reflect.Type
	event any
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]func(any))}
}

// Emit queues event for delivery after the next SwapBuffers.
func Emit[T any](b *Bus, event T) {
	b.pending = append(b.pending, queued{kind: reflect.TypeOf((*T)(nil)).Elem(), event: event})
}

// Subscribe registers fn for events of type T. Handlers of one type run in
// subscription order.
func Subscribe[T any](b *Bus, fn func(T)) {
	kind := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[kind] = append(b.handlers[kind], func(ev any) { fn(ev.(T)) })
}

// SwapBuffers makes this frame's events deliverable and starts an empty
// pending queue. Called once at frame start.
func (b *Bus) SwapBuffers() {
	clear(b.ready)
	b.ready, b.pending = b.pending, b.ready[:0]
}

// DispatchAll delivers the ready events. Events emitted by handlers wait for
// the next frame.
func (b *Bus) DispatchAll() {
	for _, q := range b.ready {
		for _, h := range b.handlers[q.kind] {
			h(q.event)
		}
	}
}
