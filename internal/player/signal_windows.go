//go:build windows

package player

import (
	"errors"
	"os"
)

const canSuspend = false

var errNoSuspend = errors.New("process suspension not supported")

func suspend(*os.Process) error { return errNoSuspend }

func resume(*os.Process) error { return nil }
