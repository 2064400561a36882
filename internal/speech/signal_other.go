//go:build !unix

package speech

import "os"

var sigPause, sigResume os.Signal
