package mmdvm

import (
	"runtime/debug"
)

// Set at build time via `-ldflags "-X 'github.com/oresmaa/lapphund/src.LAPPHUND_VERSION=X'"`
var LAPPHUND_VERSION string

func Version() string {
	if LAPPHUND_VERSION != "" {
		return LAPPHUND_VERSION
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(unknown)"
}
