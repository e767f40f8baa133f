package server

import (
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/waypost/waypost/internal/config"
	"github.com/waypost/waypost/pkg/nodeview"
)

// Server contains the server configuration.
type Server struct {
	// Config is the config for the server.
	Config *config.Config

	// DB is the database for the server.
	DB *gorm.DB

	// Logger is the logger for the server.
	Logger hclog.Logger

	// Manager owns the unified node view and its generation.
	Manager *nodeview.Manager

	// Resolver answers node lookups. In the default wiring this is the
	// cached resolver; with the cache disabled it is the direct one.
	Resolver nodeview.NodeResolver

	// Types hydrates resolved node payloads into registered Go types.
	Types *nodeview.TypeRegistry

	// Discoverer proposes registry candidates from the live schema.
	Discoverer *nodeview.Discoverer
}
