package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ecommercehub/storefront/internal/identity"
	"github.com/ecommercehub/storefront/pkg/config"
	"github.com/ecommercehub/storefront/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig     `koanf:"server"`
	Log        config.LogConfig      `koanf:"log"`
	PProf      config.PProfConfig    `koanf:"pprof"`
	Shutdown   config.ShutdownConfig `koanf:"shutdown"`
	Catalog    CatalogConfig         `koanf:"catalog"`
	Cart       CartConfig            `koanf:"cart"`
	Identity   IdentityConfig        `koanf:"identity"`
	Database   config.DatabaseConfig `koanf:"database"`
	Nats       config.NATSConfig     `koanf:"nats"`
}

// CatalogConfig selects the product source and the page size of the browse
// endpoint.
type CatalogConfig struct {
	Source   string `koanf:"source"` // "static", "file" or "postgres"
	File     string `koanf:"file"`   // catalog JSON path, source "file" only
	PageSize int    `koanf:"pageSize"`
}

func (c *CatalogConfig) Validate() error {
	switch c.Source {
	case "", "static":
	case "file":
		if c.File == "" {
			return fmt.Errorf("catalog source is 'file' but catalog.file is not configured")
		}
	case "postgres":
	default:
		return fmt.Errorf("unknown catalog source: %s", c.Source)
	}
	if c.PageSize < 0 {
		return fmt.Errorf("invalid catalog page size: %d", c.PageSize)
	}
	return nil
}

// CartConfig holds the cart storage location and pricing parameters.
type CartConfig struct {
	// ProfileID labels published cart events with the owning storefront
	// profile. A single-tenant deployment can leave the default.
	ProfileID             string  `koanf:"profileId"`
	StorageDir            string  `koanf:"storageDir"`
	TaxRate               float64 `koanf:"taxRate"`
	FreeShippingThreshold float64 `koanf:"freeShippingThreshold"`
	FlatShippingFee       float64 `koanf:"flatShippingFee"`
}

func (c *CartConfig) Validate() error {
	if c.TaxRate < 0 || c.TaxRate >= 1 {
		return fmt.Errorf("invalid cart tax rate: %v", c.TaxRate)
	}
	if c.FreeShippingThreshold < 0 {
		return fmt.Errorf("invalid free shipping threshold: %v", c.FreeShippingThreshold)
	}
	if c.FlatShippingFee < 0 {
		return fmt.Errorf("invalid flat shipping fee: %v", c.FlatShippingFee)
	}
	return nil
}

// IdentityConfig configures the built-in JWT identity provider.
type IdentityConfig struct {
	Secret string              `koanf:"secret"`
	TTL    time.Duration       `koanf:"ttl"`
	Users  []identity.SeedUser `koanf:"users"`
}

func (c *IdentityConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("identity secret is not configured")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("identity session TTL is not configured")
	}
	return nil
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString("\n--- Server Configuration ---\n")
	b.WriteString(fmt.Sprintf("  server.port: %d\n", c.HTTPServer.Port))
	b.WriteString(fmt.Sprintf("  server.maxHeaderBytes: %d\n", c.HTTPServer.MaxHeaderBytes))
	b.WriteString(fmt.Sprintf("  server.timeout.read: %v\n", c.HTTPServer.Timeout.Read))
	b.WriteString(fmt.Sprintf("  server.timeout.write: %v\n", c.HTTPServer.Timeout.Write))
	b.WriteString(fmt.Sprintf("  server.timeout.idle: %v\n", c.HTTPServer.Timeout.Idle))
	b.WriteString(fmt.Sprintf("  server.timeout.readHeader: %v\n", c.HTTPServer.Timeout.ReadHeader))

	b.WriteString("\n--- Catalog ---\n")
	b.WriteString(fmt.Sprintf("  catalog.source: %s\n", c.Catalog.Source))
	b.WriteString(fmt.Sprintf("  catalog.pageSize: %d\n", c.Catalog.PageSize))
	if c.Catalog.Source == "postgres" {
		b.WriteString(fmt.Sprintf("  database.url: %s\n", maskURL(c.Database.URL)))
		b.WriteString(fmt.Sprintf("  database.connect.timeout: %s\n", c.Database.Timeout))
	}

	b.WriteString("\n--- Cart ---\n")
	b.WriteString(fmt.Sprintf("  cart.profileId: %s\n", c.Cart.ProfileID))
	b.WriteString(fmt.Sprintf("  cart.storageDir: %s\n", c.Cart.StorageDir))
	b.WriteString(fmt.Sprintf("  cart.taxRate: %v\n", c.Cart.TaxRate))
	b.WriteString(fmt.Sprintf("  cart.freeShippingThreshold: %v\n", c.Cart.FreeShippingThreshold))
	b.WriteString(fmt.Sprintf("  cart.flatShippingFee: %v\n", c.Cart.FlatShippingFee))

	b.WriteString("\n--- Identity ---\n")
	b.WriteString(fmt.Sprintf("  identity.ttl: %s\n", c.Identity.TTL))
	b.WriteString(fmt.Sprintf("  identity.users: %d seeded\n", len(c.Identity.Users)))

	b.WriteString("\n--- Messaging ---\n")
	if c.Nats.Url != "" {
		b.WriteString(fmt.Sprintf("  nats.url: %s\n", c.Nats.Url))
		b.WriteString(fmt.Sprintf("  nats.timeout: %s\n", c.Nats.Timeout))
	} else {
		b.WriteString("  nats: disabled\n")
	}

	b.WriteString("\n--- Observability & Logging ---\n")
	b.WriteString(fmt.Sprintf("  log.level: %s\n", c.Log.Level))
	b.WriteString(fmt.Sprintf("  pprof.enabled: %t\n", c.PProf.Enabled))
	b.WriteString(fmt.Sprintf("  pprof.address: %s\n", c.PProf.Addr))

	b.WriteString("\n--- Application Behavior ---\n")
	b.WriteString(fmt.Sprintf("  shutdown.timeout: %s\n", c.Shutdown.Timeout))

	return b.String()
}

func maskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	// Mask the URL by replacing the username and password with "****"
	parts := strings.Split(url, "@")
	if len(parts) == 2 {
		return "****@" + parts[1]
	}
	return "****"
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	if err := c.Cart.Validate(); err != nil {
		return err
	}
	if err := c.Identity.Validate(); err != nil {
		return err
	}
	if c.Catalog.Source == "postgres" {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}
	if c.Nats.Url != "" {
		if err := c.Nats.Validate(); err != nil {
			return err
		}
	}
	return nil
}
