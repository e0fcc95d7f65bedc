// Package assert holds invariant checks that panic when violated.
package assert

import (
	"fmt"
)

// Length panics unless value has exactly expected bytes
func Length(value string, expected int) {
	if len(value) != expected {
		msg := fmt.Sprintf("assert.Length expected %d actual %d", expected, len(value))
		panic(msg)
	}
}

// NotEmpty panics when value is empty; name identifies it in the message
func NotEmpty(name, value string) {
	if value == "" {
		panic(fmt.Sprintf("assert.NotEmpty %s is empty", name))
	}
}
