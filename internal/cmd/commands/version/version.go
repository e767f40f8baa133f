package version

import (
	"github.com/waypost/waypost/internal/cmd/base"
	"github.com/waypost/waypost/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the Waypost version"
}

func (c *Command) Help() string {
	return `Usage: waypost version

  This command prints the Waypost version.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output(version.Version)
	return 0
}
