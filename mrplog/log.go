// Package mrplog is a thin leveled-logging facade over
// github.com/brutella/hc/log, the logging library the teacher
// repository pulls in and calls directly (log.Info.Panic(err)). Every
// other package in this module logs through here instead of touching
// brutella/hc/log directly, so verbosity can be controlled from one
// place.
package mrplog

import (
	"fmt"

	hclog "github.com/brutella/hc/log"
)

// Verbosity controls which levels are emitted. Debug-level tracing
// (state transitions, request and status lines, socket closes) is
// gated behind it.
var Verbosity = LevelInfo

type Level int

const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

// Debugf logs frame- and message-level tracing when Verbosity >= LevelDebug.
func Debugf(format string, args ...interface{}) {
	if Verbosity >= LevelDebug {
		hclog.Debug.Println(fmt.Sprintf(format, args...))
	}
}

// Infof logs stage transitions and connection lifecycle events.
func Infof(format string, args ...interface{}) {
	if Verbosity >= LevelInfo {
		hclog.Info.Println(fmt.Sprintf(format, args...))
	}
}

// Errorf logs terminal failures.
func Errorf(format string, args ...interface{}) {
	hclog.Info.Println("ERROR: " + fmt.Sprintf(format, args...))
}
