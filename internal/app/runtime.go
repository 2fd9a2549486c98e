package app

import (
	"os"
	"sync"
)

const testModeEnv = "OFFICEHUB_TEST_MODE"

var (
	testModeOnce sync.Once
	testMode     bool
)

// InTestMode reports whether the process should skip runtime side effects.
// Test binaries set OFFICEHUB_TEST_MODE=1 before main runs.
func InTestMode() bool {
	testModeOnce.Do(func() {
		testMode = os.Getenv(testModeEnv) == "1"
	})
	return testMode
}
