package pubsub

import (
	"reflect"
	"runtime"
)

// Handler receives messages published on a topic. Handle is invoked
// synchronously from Publish with the topic name and the published data.
type Handler interface {
	Handle(topic string, data any)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(topic string, data any)

// Handle calls f(topic, data).
func (f HandlerFunc) Handle(topic string, data any) {
	f(topic, data)
}

// pointerIdentity keys handlers whose dynamic type is a reference kind.
// Two handlers collide only when both the type and the referenced code or
// data pointer match.
type pointerIdentity struct {
	typ reflect.Type
	ptr uintptr
}

// identityKey derives the subscriber-set key for a handler. Func-kind and
// pointer-kind handlers are keyed on identity (type plus pointer), other
// comparable handlers on value equality. Handlers that carry no usable
// identity at all (non-comparable value types) get a fresh key per
// registration, so they are never deduplicated.
//
// Func identity is the code pointer, so closures created from the same
// literal share an identity. Handlers that need per-instance identity
// should be pointer receivers rather than HandlerFunc closures.
func identityKey(h Handler) (any, error) {
	if h == nil {
		return nil, ErrInvalidCallback
	}

	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.UnsafePointer:
		if v.IsNil() {
			return nil, ErrInvalidCallback
		}
		return pointerIdentity{typ: v.Type(), ptr: v.Pointer()}, nil
	default:
		if v.Comparable() {
			return h, nil
		}
		// Non-zero-size allocation, so every registration gets a
		// distinct address.
		return new(int), nil
	}
}

// handlerName produces a diagnostic identity for a handler, used when
// logging subscriber failures. Functions resolve to their symbol name,
// everything else to its dynamic type.
func handlerName(h Handler) string {
	v := reflect.ValueOf(h)
	if v.Kind() == reflect.Func {
		if fn := runtime.FuncForPC(v.Pointer()); fn != nil {
			return fn.Name()
		}
	}
	return reflect.TypeOf(h).String()
}
