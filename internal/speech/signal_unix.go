//go:build unix

package speech

import (
	"os"
	"syscall"
)

var (
	sigPause  os.Signal = syscall.SIGSTOP
	sigResume os.Signal = syscall.SIGCONT
)
