package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanizio/pageedge/internal/binding"
	"github.com/yanizio/pageedge/internal/database"
	"github.com/yanizio/pageedge/internal/tenant"
)

func newResolveCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "resolve <host> [path]",
		Short: "Show how the edge would route a request, using live storage",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 2 {
				path = args[1]
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			host, err := tenant.NewNormalizer(cfg.Edge.RootDomain, cfg.Edge.DevHost).Normalize(args[0])
			if err != nil {
				return err
			}

			db, err := database.Open(ctx, cfg.DSN())
			if err != nil {
				return err
			}
			defer db.Close()

			if timeout == 0 {
				timeout = cfg.Edge.LookupTimeout
			}
			res := tenant.NewResolver(tenant.Uncached(binding.NewStore(db)), tenant.ResolverOptions{
				RootDomain:    cfg.Edge.RootDomain,
				RenderPrefix:  cfg.Edge.RenderPrefix,
				LookupTimeout: timeout,
			})
			printDecision(cmd.OutOrStdout(), res.Resolve(ctx, host, path, ""))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "lookup timeout (default: edge.lookup_timeout)")
	return cmd
}

func printDecision(w io.Writer, d tenant.Decision) {
	fmt.Fprintf(w, "host:      %s\n", d.Host)
	fmt.Fprintf(w, "path:      %s\n", d.Path)
	fmt.Fprintf(w, "decision:  %s\n", d.Kind)
	if d.Target != "" {
		fmt.Fprintf(w, "target:    %s\n", d.Target)
	}
	if b := d.Binding; b != nil {
		fmt.Fprintf(w, "page:      %d (%s, published=%t)\n", b.PageID, b.Slug, b.Published)
	}
	if d.FailedOpen() {
		fmt.Fprintf(w, "failed open: %v\n", d.Err)
	}
}
