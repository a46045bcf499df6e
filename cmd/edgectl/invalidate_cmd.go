package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanizio/pageedge/internal/invalidate"
)

type invalidateOptions struct {
	Host     string
	PageID   uint64
	All      bool
	RedisURL string
	Channel  string
}

func (o invalidateOptions) event() (invalidate.Event, error) {
	ev := invalidate.Event{Host: o.Host, PageID: o.PageID, All: o.All}
	if err := ev.Validate(); err != nil {
		return ev, errors.New("exactly one of --host, --page, --all is required")
	}
	return ev, nil
}

func newInvalidateCmd() *cobra.Command {
	var opts invalidateOptions

	cmd := &cobra.Command{
		Use:   "invalidate --host <host> | --page <id> | --all",
		Short: "Drop cached bindings on every running edge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := opts.event()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if opts.RedisURL == "" {
				cfg, err := loadConfig(ctx)
				if err != nil {
					return err
				}
				opts.RedisURL = cfg.Redis.URL
				if opts.Channel == "" {
					opts.Channel = cfg.Redis.Channel
				}
			}
			if opts.RedisURL == "" {
				return errors.New("no redis url: pass --redis-url or set redis.url")
			}

			rdb, err := invalidate.NewClient(opts.RedisURL)
			if err != nil {
				return err
			}
			defer rdb.Close()

			n, err := invalidate.NewPublisher(rdb, opts.Channel).Publish(ctx, ev)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published to %d edge(s)\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "drop one hostname")
	cmd.Flags().Uint64Var(&opts.PageID, "page", 0, "drop every host bound to this page id")
	cmd.Flags().BoolVar(&opts.All, "all", false, "purge the whole cache")
	cmd.Flags().StringVar(&opts.RedisURL, "redis-url", "", "redis URL (default: redis.url from config)")
	cmd.Flags().StringVar(&opts.Channel, "channel", "", "pub/sub channel (default: redis.channel)")
	cmd.MarkFlagsMutuallyExclusive("host", "page", "all")
	return cmd
}
