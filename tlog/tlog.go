// Package tlog provides the terrain core's structured logging surface,
// a thin wrapper over charmbracelet/log shared by every component so
// log lines are consistently tagged by subsystem.
package tlog

import (
	"os"

	"github.com/charmbracelet/log"
)

var root = log.NewWithOptions(os.Stderr, log.Options{
	Prefix:          "terrain",
	ReportTimestamp: true,
})

// New returns a logger tagged with component, e.g. "heightfield" or
// "clipmap".
func New(component string) *log.Logger {
	return root.WithPrefix("terrain/" + component)
}
