//go:build !windows

package supervisor

import (
	"os"
	"syscall"
)

var handoffSignals = []os.Signal{syscall.SIGHUP}
