// Package failfast provides controlled-panic assertions for programmer
// errors detected at construction time (nil required collaborators,
// malformed builder usage). It must never be used for runtime conditions
// a caller can trigger — those are returned as errors per spec.md
// section 7.
package failfast

import (
	"fmt"
	"reflect"
	"runtime/debug"
)

// Err panics, with a stack trace, if err != nil.
func Err(err error) {
	if err != nil {
		panic(fmt.Errorf("fail-fast: %w\n%s", err, debug.Stack()))
	}
}

// If panics with the formatted message if condition is false.
func If(condition bool, message string, args ...interface{}) {
	if !condition {
		panic(fmt.Errorf("fail-fast: "+message, args...))
	}
}

// NotNil panics if ptr is nil, including typed-nil pointers and functions.
func NotNil(ptr interface{}, name string) {
	if ptr == nil {
		panic(fmt.Errorf("fail-fast: %s is nil", name))
	}
	v := reflect.ValueOf(ptr)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		if v.IsNil() {
			panic(fmt.Errorf("fail-fast: %s is nil", name))
		}
	}
}
