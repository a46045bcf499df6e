// internal/config/model.go
//
// Typed configuration model for the edge.
//
// Context
// -------
// These structs define the tree that loader.go builds from three overlay
// layers:
//
//   - optional `conf/.env`                       dotenv values
//   - `conf/global.yaml`                         primary static file
//   - `PAGEEDGE_`-prefixed environment overrides highest precedence
//
// String values of the form `vault:<mount>/<path>#<key>` are swapped for the
// secret before validation, so the model never stores Vault URIs.
//
// Notes
// -----
//   - Struct tags use `koanf:"…"`; koanf ignores `yaml` tags by default.
//   - Durations are Go duration strings ("500ms", "30s").
//   - The `Paths` block is filled at runtime; YAML must not try to set it.
package config

import "time"

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

// Database holds the control-plane DSN and its secret.  The DSN template
// may contain one `%s` verb for the password.
type Database struct {
	GlobalDSN      string `koanf:"global_dsn"      validate:"required"`
	GlobalPassword string `koanf:"global_password"`
}

// Edge configures tenant resolution.
type Edge struct {
	RootDomain     string        `koanf:"root_domain"     validate:"required,fqdn|hostname"`
	DevHost        string        `koanf:"dev_host"`
	RenderPrefix   string        `koanf:"render_prefix"   validate:"required,startswith=/"`
	BypassPrefixes []string      `koanf:"bypass_prefixes" validate:"dive,startswith=/"`
	LookupTimeout  time.Duration `koanf:"lookup_timeout"  validate:"gt=0,lte=5s"`
	CacheTTL       time.Duration `koanf:"cache_ttl"       validate:"gte=0"`
	NegativeTTL    time.Duration `koanf:"negative_ttl"    validate:"gte=0"`
	EvictInterval  time.Duration `koanf:"evict_interval"  validate:"gte=0"`
	MaxEntries     int           `koanf:"max_entries"     validate:"gte=0"`
	UnboundPolicy  string        `koanf:"unbound_policy"  validate:"omitempty,oneof=passthrough notfound"`
	Preload        bool          `koanf:"preload"`
}

// Render configures the render route's snapshot cache.  A zero TTL turns
// the cache off.
type Render struct {
	SnapshotTTL     time.Duration `koanf:"snapshot_ttl"     validate:"gte=0"`
	SnapshotEntries int           `koanf:"snapshot_entries" validate:"gte=1"`
}

// Session configures the platform session refresh.
type Session struct {
	CookieName    string        `koanf:"cookie_name"`
	HashKey       string        `koanf:"hash_key"       validate:"required,min=32"`
	BlockKey      string        `koanf:"block_key"      validate:"omitempty,len=32"`
	MaxAge        time.Duration `koanf:"max_age"        validate:"gte=0"`
	RefreshWindow time.Duration `koanf:"refresh_window" validate:"gte=0"`
}

// Redis configures the invalidation bus.  Empty URL disables it.
type Redis struct {
	URL     string `koanf:"url"     validate:"omitempty,url"`
	Channel string `koanf:"channel"`
}

// Log configures the process logger.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // PAGEEDGE_ROOT or discovered parent
}

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Edge     Edge     `koanf:"edge"`
	Render   Render   `koanf:"render"`
	Session  Session  `koanf:"session"`
	Redis    Redis    `koanf:"redis"`
	Log      Log      `koanf:"log"`
	Paths    Paths    `koanf:"-"`
}
