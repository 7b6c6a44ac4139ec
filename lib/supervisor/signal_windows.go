//go:build windows

package supervisor

import "os"

var handoffSignals []os.Signal
