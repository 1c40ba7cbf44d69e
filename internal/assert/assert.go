package assert

import (
	"fmt"
)

// Length panics when value is not exactly expected bytes long
func Length(value string, expected int) {
	if len(value) != expected {
		panic(fmt.Sprintf("assert.Length expected %d actual %d", expected, len(value)))
	}
}
