//go:build js && wasm

package webgpu

import (
	"errors"
	"fmt"
	"syscall/js"
)

// await blocks until the promise settles. It must not be called from a
// JS callback: the callback would block the event loop the promise
// needs to resolve.
func await(v js.Value) (js.Value, error) {
	if v.Type() != js.TypeObject || v.Get("then").Type() != js.TypeFunction {
		return v, nil
	}
	type settled struct {
		v  js.Value
		ok bool
	}
	done := make(chan settled, 1)

	onResolve := js.FuncOf(func(this js.Value, args []js.Value) any {
		done <- settled{arg(args), true}
		return nil
	})
	defer onResolve.Release()
	onReject := js.FuncOf(func(this js.Value, args []js.Value) any {
		done <- settled{arg(args), false}
		return nil
	})
	defer onReject.Release()

	v.Call("then", onResolve, onReject)
	r := <-done
	if !r.ok {
		return js.Undefined(), jsError(r.v)
	}
	return r.v, nil
}

func arg(args []js.Value) js.Value {
	if len(args) == 0 {
		return js.Undefined()
	}
	return args[0]
}

// jsError converts a rejection reason or GPUError into a Go error.
func jsError(v js.Value) error {
	switch {
	case v.IsUndefined() || v.IsNull():
		return errors.New("webgpu: promise rejected")
	case v.Type() == js.TypeObject && v.Get("message").Type() == js.TypeString:
		return fmt.Errorf("webgpu: %s", v.Get("message").String())
	default:
		return fmt.Errorf("webgpu: %s", v.String())
	}
}

// bytesToJS copies b into a new Uint8Array.
func bytesToJS(b []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(b))
	js.CopyBytesToJS(arr, b)
	return arr
}

// obj builds a plain JS object.
type obj = map[string]any

// list builds a JS array from values.
func list[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// destroy calls destroy() on a GPU object if it is set.
func destroy(v js.Value) {
	if v.Truthy() && v.Get("destroy").Type() == js.TypeFunction {
		v.Call("destroy")
	}
}
