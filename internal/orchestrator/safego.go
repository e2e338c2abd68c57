package orchestrator

import (
	"fmt"
	"runtime/debug"

	"github.com/ternarybob/arbor"
)

// safeGo runs fn in a goroutine with panic recovery, so a single worker
// panic cannot take down the whole process. Panics are logged and the
// goroutine exits; the caller's wait group (if any) must still be released
// by fn itself in a defer, since recover() here runs after fn's own defers.
func safeGo(logger arbor.ILogger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("recovered from panic in goroutine")
			}
		}()
		fn()
	}()
}
