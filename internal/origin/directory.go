// Package origin resolves a tenant identity to its physical streaming origin.
package origin

import (
	"context"
	"log/slog"

	"github.com/streamvault/mediagate/internal/catalog"
	"github.com/streamvault/mediagate/internal/config"
)

// Origin is the resolved physical host for a tenant's media. Degraded marks
// results produced from the configured defaults instead of a catalog row.
type Origin struct {
	ServerID      string
	Host          string
	AdminUser     string
	AdminPassword string
	Degraded      bool
}

// Lookup is the catalog read the directory depends on.
type Lookup interface {
	OriginForTenant(ctx context.Context, tenantLogin string) (catalog.OriginServer, error)
}

// Directory maps tenants to origin servers, degrading to a configured default
// host and credential instead of failing. Reads stay available when the
// catalog row is missing or the lookup errors; every such fallback is logged
// as a degraded-mode event.
type Directory struct {
	lookup Lookup
	cfg    config.OriginConfig
	logger *slog.Logger
}

func NewDirectory(log *slog.Logger, lookup Lookup, cfg config.OriginConfig) *Directory {
	if log == nil {
		log = slog.Default()
	}
	return &Directory{
		lookup: lookup,
		cfg:    cfg,
		logger: log.With(slog.String("service", "origin")),
	}
}

// Resolve returns the origin server assigned to tenantLogin. It never fails:
// a lookup error or a missing assignment yields the default origin with
// Degraded set.
func (d *Directory) Resolve(ctx context.Context, tenantLogin string) Origin {
	if d.lookup != nil {
		server, err := d.lookup.OriginForTenant(ctx, tenantLogin)
		if err == nil {
			return Origin{
				ServerID:      server.ID,
				Host:          server.Address,
				AdminUser:     server.AdminUser,
				AdminPassword: server.AdminPassword,
			}
		}
		d.logger.Warn("origin lookup failed, serving from default origin",
			slog.String("tenant", tenantLogin),
			slog.String("default_host", d.cfg.DefaultHost),
			slog.Any("error", err),
		)
	}
	return Origin{
		Host:          d.cfg.DefaultHost,
		AdminUser:     d.cfg.AdminUser,
		AdminPassword: d.cfg.DefaultPassword,
		Degraded:      true,
	}
}
