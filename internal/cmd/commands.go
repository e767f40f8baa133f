package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/waypost/waypost/internal/cmd/base"
	"github.com/waypost/waypost/internal/cmd/commands/operator"
	"github.com/waypost/waypost/internal/cmd/commands/server"
	"github.com/waypost/waypost/internal/cmd/commands/version"
)

// Commands is the mapping of all available CLI commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	baseCommand := base.NewCommand(ui, log)

	Commands = map[string]cli.CommandFactory{
		"server": func() (cli.Command, error) {
			return &server.Command{Command: baseCommand}, nil
		},
		"operator": func() (cli.Command, error) {
			return &operator.Command{Command: baseCommand}, nil
		},
		"operator rebuild-view": func() (cli.Command, error) {
			return &operator.RebuildViewCommand{Command: baseCommand}, nil
		},
		"operator status": func() (cli.Command, error) {
			return &operator.StatusCommand{Command: baseCommand}, nil
		},
		"operator discover": func() (cli.Command, error) {
			return &operator.DiscoverCommand{Command: baseCommand}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: baseCommand}, nil
		},
	}
}
