package build

import (
	"fmt"
	"os"
	"runtime/debug"
)

// Critical should be called when a sanity check has failed — something that
// indicates the wire codec or routing state has been corrupted, or a
// developer invariant has been violated. Outside of testing it prints the
// call stack and a message to stderr; it never panics in a standard build,
// so a corrupted frame degrades to a dropped message instead of a crashed
// gateway (see spec §7, "unknown-policy is fatal to the frame... but never
// crashes the process").
func Critical(v ...interface{}) {
	s := fmt.Sprintln(v...)
	if Release != "testing" {
		debug.PrintStack()
		os.Stderr.WriteString("Critical error: " + s)
		return
	}
	panic("Critical error: " + s)
}
