package operator

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/waypost/waypost/internal/cmd/base"
	"github.com/waypost/waypost/internal/config"
	"github.com/waypost/waypost/pkg/database"
	"github.com/waypost/waypost/pkg/models"
	"github.com/waypost/waypost/pkg/nodeview"
)

type DiscoverCommand struct {
	*base.Command

	flagConfig string
	flagFormat string
}

func (c *DiscoverCommand) Synopsis() string {
	return "Scan the database for unregistered entity candidates"
}

func (c *DiscoverCommand) Help() string {
	return `Usage: waypost operator discover

  This command scans the live database for tables and views matching the
  entity naming conventions (tb_, v_, tv_, mv_ prefixes) and prints
  registry entry proposals for anything not yet registered. It never
  writes the registry.` +
		c.Flags().Help()
}

func (c *DiscoverCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(
		flag.NewFlagSet("discover", flag.ExitOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "(Required) Path to Waypost config file",
	)
	f.StringVar(
		&c.flagFormat, "format", "text",
		"Output format: text or yaml.",
	)

	return f
}

func (c *DiscoverCommand) Run(args []string) int {
	logger, ui := c.Log, c.UI

	// Parse flags.
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	// Validate flags.
	if c.flagConfig == "" {
		ui.Error("config flag is required")
		return 1
	}
	if c.flagFormat != "text" && c.flagFormat != "yaml" {
		ui.Error(fmt.Sprintf("unknown format %q (want text or yaml)", c.flagFormat))
		return 1
	}

	// Parse configuration.
	cfg, err := config.Load(c.flagConfig)
	if err != nil {
		ui.Error(fmt.Sprintf("error parsing config file: %v", err))
		return 1
	}

	// Initialize database.
	db, err := database.Connect(cfg.DatabaseConfig(), logger)
	if err != nil {
		ui.Error(fmt.Sprintf("error initializing database: %v", err))
		return 1
	}

	// Already-registered entities are not proposed again.
	var registered []string
	if err := db.Model(&models.RegisteredEntity{}).
		Pluck("entity_name", &registered).Error; err != nil {
		ui.Error(fmt.Sprintf("error listing registered entities: %v", err))
		return 1
	}
	exclude := make(map[string]bool, len(registered))
	for _, name := range registered {
		exclude[name] = true
	}

	discoverer := nodeview.NewDiscoverer(db, logger)
	candidates, err := discoverer.Discover(context.Background(), exclude)
	if err != nil {
		ui.Error(fmt.Sprintf("error scanning database: %v", err))
		return 1
	}

	if len(candidates) == 0 {
		ui.Info("No unregistered entity candidates found")
		return 0
	}

	switch c.flagFormat {
	case "yaml":
		out, err := yaml.Marshal(candidates)
		if err != nil {
			ui.Error(fmt.Sprintf("error encoding candidates: %v", err))
			return 1
		}
		ui.Output(strings.TrimRight(string(out), "\n"))

	default:
		ui.Info(fmt.Sprintf("Found %d candidate entities:", len(candidates)))
		for _, cand := range candidates {
			ui.Output("")
			ui.Output(fmt.Sprintf("  %s (type %s)", cand.EntityName, cand.TypeName))
			ui.Output(fmt.Sprintf("    pk_column:    %s", cand.PKColumn))
			if cand.ViewTable != "" {
				ui.Output(fmt.Sprintf("    view_table:   %s", cand.ViewTable))
			}
			if cand.TVTable != "" {
				ui.Output(fmt.Sprintf("    tv_table:     %s", cand.TVTable))
			}
			if cand.MVTable != "" {
				ui.Output(fmt.Sprintf("    mv_table:     %s", cand.MVTable))
			}
			if cand.SourceTable != "" {
				ui.Output(fmt.Sprintf("    source_table: %s", cand.SourceTable))
			}
		}
	}
	return 0
}
