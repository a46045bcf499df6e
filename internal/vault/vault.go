// internal/vault/vault.go
//
// Vault client wrapper used at boot to resolve `vault:` config references.
//
// Context
// -------
//   - Concurrency-safe wrapper around the HashiCorp Vault Go SDK.
//   - KV-v2 reads with a per-key TTL cache, plus token renewal through the
//     SDK's LifetimeWatcher while the process runs.
//   - References look like `<mount>/<path>#<key>`, e.g.
//     `secret/pageedge#db_password`.
//
// Environment expectations
// ------------------------
//   - VAULT_ADDR   scheme and host of the Vault server.
//   - VAULT_TOKEN  initial token (falls back to ~/.vault-token via the SDK).
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// DefaultTTL caches a resolved secret for the lifetime of one boot.
const DefaultTTL = 10 * time.Minute

// ErrBadRef is returned for references without a "#key" part.
var ErrBadRef = errors.New("vault: reference must look like mount/path#key")

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api *vault.Client

	mu    sync.RWMutex
	cache map[string]cached // "path#key" → value + expiry
}

type cached struct {
	val string
	exp time.Time
}

// New builds a client from the environment and, when the token is
// renewable, keeps it alive until ctx ends.
func New(ctx context.Context) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		api.SetToken(tok)
	}

	c := &Client{api: api, cache: make(map[string]cached)}
	go c.renew(ctx)
	return c, nil
}

// ResolveRef implements config.SecretResolver.
func (c *Client) ResolveRef(ctx context.Context, ref string) (string, error) {
	path, key, ok := ParseRef(ref)
	if !ok {
		return "", ErrBadRef
	}
	return c.GetKV(ctx, path, key, DefaultTTL)
}

// ParseRef splits "mount/path#key".
func ParseRef(ref string) (path, key string, ok bool) {
	path, key, ok = strings.Cut(ref, "#")
	if !ok || path == "" || key == "" || !strings.Contains(path, "/") {
		return "", "", false
	}
	return path, key, true
}

// GetKV reads one key from a KV-v2 secret, caching it for ttl when ttl > 0.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.mu.RLock()
		cv, ok := c.cache[canonical]
		c.mu.RUnlock()
		if ok && time.Now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel, _ := strings.Cut(secretPath, "/")
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}
	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("vault: key %q not found in %q", key, secretPath)
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("vault: %s is not a string", canonical)
	}

	if ttl > 0 {
		c.mu.Lock()
		c.cache[canonical] = cached{val: val, exp: time.Now().Add(ttl)}
		c.mu.Unlock()
	}
	return val, nil
}

// renew keeps a renewable token alive.  Non-renewable tokens are left
// alone; failures are logged and retried with a fixed pause.
func (c *Client) renew(ctx context.Context) {
	for {
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			zap.L().Warn("vault token renew failed", zap.Error(err))
			if !sleep(ctx, 30*time.Second) {
				return
			}
			continue
		}
		if renewable, _ := sec.TokenIsRenewable(); !renewable {
			zap.L().Info("vault token is not renewable")
			return
		}

		w, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
		if err != nil {
			zap.L().Warn("vault watcher init failed", zap.Error(err))
			if !sleep(ctx, 30*time.Second) {
				return
			}
			continue
		}
		go w.Start()

	watch:
		for {
			select {
			case <-ctx.Done():
				w.Stop()
				return
			case err := <-w.DoneCh():
				w.Stop()
				if err != nil {
					zap.L().Warn("vault token renewal stopped", zap.Error(err))
				}
				break watch
			case ev := <-w.RenewCh():
				zap.L().Debug("vault token renewed", zap.Time("at", ev.RenewedAt))
			}
		}
		if !sleep(ctx, 15*time.Second) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
