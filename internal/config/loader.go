// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` from three layers (highest
precedence last):

  1. Optional `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `PAGEEDGE_`, where `__` maps to "."
     (e.g. `PAGEEDGE_EDGE__ROOT_DOMAIN → edge.root_domain`).

Defaults are loaded first so a sparse YAML file still yields a working edge.
After merging, `vault:` references are resolved, the tree is validated, and
the result is cached in an `atomic.Pointer` for lock-free reads.  `Reload()`
simply calls `Load()` again and swaps the pointer.

Instrumentation
---------------
  - DEBUG: root discovery, YAML read, env overlay.
  - ERROR: YAML parse, env overlay, unmarshal, secret, validation failures.
  - INFO:  final "config loaded" with key highlights.
  - Logs use the global sugared logger (`zap.S()`), so early boot problems
    surface even before the file logger is installed.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const envPrefix = "PAGEEDGE_"

var current atomic.Pointer[Config]

var errDSNVerbs = errors.New("config: database.global_dsn may contain at most one %s verb")

// SecretResolver turns a `vault:` reference into its value.  *vault.Client
// satisfies it through ResolveRef.
type SecretResolver interface {
	ResolveRef(ctx context.Context, ref string) (string, error)
}

// defaults mirror conf/global.yaml so tests and bare deployments agree.
var defaults = map[string]any{
	"http.listen_addr":        ":8080",
	"edge.render_prefix":      "/p",
	"edge.lookup_timeout":     "500ms",
	"edge.cache_ttl":          "30s",
	"edge.negative_ttl":       "10s",
	"edge.evict_interval":     "1m",
	"edge.max_entries":        10000,
	"edge.unbound_policy":     "passthrough",
	"render.snapshot_ttl":     "30s",
	"render.snapshot_entries": 1000,
	"session.cookie_name":     "pe_session",
	"session.max_age":         "336h",
	"session.refresh_window":  "24h",
	"log.level":               "info",
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves PAGEEDGE_ROOT or climbs directories until
// conf/global.yaml is found.  Falls back to the executable's parent when the
// binary lives in <root>/bin.
func rootDir() string {
	if r := os.Getenv(envPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, and env overrides, resolves secrets through sr (may
// be nil when no value uses `vault:`), validates, and caches the Config.
func Load(ctx context.Context, sr SecretResolver) (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)
	return loadFrom(ctx, root, sr)
}

func loadFrom(ctx context.Context, root string, sr SecretResolver) (*Config, error) {
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, err
	}

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, envPrefix), "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, &cfg, sr); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"root_domain", cfg.Edge.RootDomain,
		"unbound_policy", cfg.Edge.UnboundPolicy,
		"redis", cfg.Redis.URL != "",
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// NeedsVault reports whether the merged tree references Vault.  cmd/web
// uses it to decide whether to dial Vault before Load.
func NeedsVault() bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, envPrefix) && strings.Contains(kv, "=vault:") {
			return true
		}
	}
	b, err := os.ReadFile(filepath.Join(rootDir(), "conf", "global.yaml"))
	return err == nil && strings.Contains(string(b), "vault:")
}

// resolveSecrets swaps `vault:` references for their values.
func resolveSecrets(ctx context.Context, cfg *Config, sr SecretResolver) error {
	fields := []*string{
		&cfg.Database.GlobalPassword,
		&cfg.Session.HashKey,
		&cfg.Session.BlockKey,
		&cfg.Redis.URL,
	}
	for _, f := range fields {
		if !strings.HasPrefix(*f, "vault:") {
			continue
		}
		if sr == nil {
			return fmt.Errorf("config: %q needs vault but no client was supplied", *f)
		}
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		val, err := sr.ResolveRef(sctx, strings.TrimPrefix(*f, "vault:"))
		cancel()
		if err != nil {
			return err
		}
		*f = val
	}
	return nil
}

// DSN returns the control-plane DSN with the password filled in.
func (c *Config) DSN() string {
	if strings.Contains(c.Database.GlobalDSN, "%s") {
		return fmt.Sprintf(c.Database.GlobalDSN, c.Database.GlobalPassword)
	}
	return c.Database.GlobalDSN
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }

func Reload(ctx context.Context, sr SecretResolver) error {
	_, err := Load(ctx, sr)
	return err
}
