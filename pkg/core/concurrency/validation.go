package concurrency

import "fmt"

// failFastIf panics if condition is true (fail-fast principle)
func failFastIf(condition bool, message string) {
	if condition {
		panic(fmt.Errorf("fail-fast: %s", message))
	}
}
