package base

import (
	"bytes"
	"flag"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
)

// Command is the base type embedded by every CLI command. It carries the
// shared UI and logger so commands stay small.
type Command struct {
	// UI is the terminal UI for command output.
	UI cli.Ui

	// Log is the logger for the command.
	Log hclog.Logger
}

// NewCommand creates a base command with the given UI and logger.
func NewCommand(ui cli.Ui, log hclog.Logger) *Command {
	return &Command{
		UI:  ui,
		Log: log,
	}
}

// FlagSet wraps flag.FlagSet with help rendering for command Help output.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet creates a FlagSet around a standard flag set.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	return &FlagSet{FlagSet: f}
}

// StringVar defines a string flag on the set.
func (f *FlagSet) StringVar(p *string, name, value, usage string) {
	f.FlagSet.StringVar(p, name, value, usage)
}

// BoolVar defines a bool flag on the set.
func (f *FlagSet) BoolVar(p *bool, name string, value bool, usage string) {
	f.FlagSet.BoolVar(p, name, value, usage)
}

// IntVar defines an int flag on the set.
func (f *FlagSet) IntVar(p *int, name string, value int, usage string) {
	f.FlagSet.IntVar(p, name, value, usage)
}

// Help renders the flag defaults as an indented block for appending to a
// command's Help text.
func (f *FlagSet) Help() string {
	var buf bytes.Buffer
	f.FlagSet.SetOutput(&buf)
	f.FlagSet.PrintDefaults()
	if buf.Len() == 0 {
		return ""
	}
	return "\n\nOptions:\n\n" + buf.String()
}
