// cmd/web/main.go
//
// Edge HTTP entry point.
//
// Start-up
// --------
//
//  1. Load config (dialing Vault first when any value is a `vault:` ref).
//
//  2. Start the daily rotating logger.
//
//  3. Open the control-plane DB and build the binding cache, optionally
//     warmed with every active binding.
//
//  4. Subscribe to the Redis invalidation channel when configured.
//
//  5. Build the platform router (/healthz, /metrics, render route) and wrap
//     it, outermost first, with Security → ForceHTTPS → tenant middleware.
//
//  6. Serve until SIGINT/SIGTERM, then drain.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/pageedge/internal/binding"
	"github.com/yanizio/pageedge/internal/config"
	"github.com/yanizio/pageedge/internal/database"
	"github.com/yanizio/pageedge/internal/invalidate"
	"github.com/yanizio/pageedge/internal/logger"
	"github.com/yanizio/pageedge/internal/middleware"
	"github.com/yanizio/pageedge/internal/page"
	"github.com/yanizio/pageedge/internal/routing"
	"github.com/yanizio/pageedge/internal/server"
	"github.com/yanizio/pageedge/internal/session"
	"github.com/yanizio/pageedge/internal/tenant"
	"github.com/yanizio/pageedge/internal/vault"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("edge: %v", err)
	}
}

func run(ctx context.Context) error {
	//
	// ── 1.  Config ──────────────────────────────────────────────────────
	//
	var sr config.SecretResolver
	if config.NeedsVault() {
		vc, err := vault.New(ctx)
		if err != nil {
			return err
		}
		sr = vc
	}
	cfg, err := config.Load(ctx, sr)
	if err != nil {
		return err
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	logOut, err := logger.New(cfg.Paths.Root, cfg.Log.Level, cfg.Log.Tee || runningInTTY())
	if err != nil {
		return err
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 3.  Storage and binding cache ───────────────────────────────────
	//
	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	logOut.Infow("control-plane DB online")

	bindings := binding.NewStore(db)
	cache := tenant.NewCache(bindings, tenant.CacheOptions{
		TTL:           cfg.Edge.CacheTTL,
		NegativeTTL:   cfg.Edge.NegativeTTL,
		LookupTimeout: cfg.Edge.LookupTimeout,
		EvictInterval: cfg.Edge.EvictInterval,
		MaxEntries:    cfg.Edge.MaxEntries,
	})
	defer cache.Close()

	if cfg.Edge.Preload {
		recs, err := bindings.AllActive(ctx)
		if err != nil {
			// A cold cache still works; every host is loaded on first hit.
			logOut.Warnw("binding preload failed", "err", err)
		} else {
			logOut.Infow("binding cache warmed", "entries", cache.Warm(recs))
		}
	}

	var loadPage page.Loader = page.DBLoader(db)
	targets := invalidate.Targets{cache}
	if cfg.Render.SnapshotTTL > 0 {
		snapshots := page.NewSnapshotCache(loadPage, cfg.Render.SnapshotEntries, cfg.Render.SnapshotTTL)
		loadPage = snapshots.Load
		targets = append(targets, snapshots)
	}

	//
	// ── 4.  Invalidation bus ────────────────────────────────────────────
	//
	if cfg.Redis.URL != "" {
		rdb, err := invalidate.NewClient(cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		go func() {
			if err := invalidate.Listen(ctx, rdb, cfg.Redis.Channel, targets); err != nil {
				// Entries still expire by TTL; staleness is bounded.
				zap.L().Error("invalidation listener stopped", zap.Error(err))
			}
		}()
	}

	//
	// ── 5.  Handlers ────────────────────────────────────────────────────
	//
	policy, err := tenant.ParseUnboundPolicy(cfg.Edge.UnboundPolicy)
	if err != nil {
		return err
	}
	resolver := tenant.NewResolver(cache, tenant.ResolverOptions{
		RootDomain:    cfg.Edge.RootDomain,
		RenderPrefix:  cfg.Edge.RenderPrefix,
		LookupTimeout: cfg.Edge.LookupTimeout,
	})
	refresher := session.NewRefresher(
		session.NewSQLStore(db),
		[]byte(cfg.Session.HashKey),
		keyOrNil(cfg.Session.BlockKey),
		session.Options{
			CookieName:    cfg.Session.CookieName,
			MaxAge:        cfg.Session.MaxAge,
			RefreshWindow: cfg.Session.RefreshWindow,
		},
	)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.Handler())
	page.Mount(r, cfg.Edge.RenderPrefix, loadPage)

	edge := tenant.Middleware(resolver, refresher, tenant.MiddlewareOptions{
		Normalizer: tenant.NewNormalizer(cfg.Edge.RootDomain, cfg.Edge.DevHost),
		Matcher:    routing.NewMatcher(cfg.Edge.BypassPrefixes),
		Unbound:    policy,
	})

	var h http.Handler = edge(r)
	h = middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS, cfg.Edge.DevHost, h)
	h = middleware.Security(h)

	//
	// ── 6.  Serve ───────────────────────────────────────────────────────
	//
	return server.Run(ctx, server.New(cfg.HTTP.ListenAddr, h))
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func keyOrNil(s string) []byte {
	if s == "" {
		return nil
	}
	return []byte(s)
}
