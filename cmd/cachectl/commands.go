package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/storage"
)

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the capacity tier state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(a.out, "capacity: %s\n", a.cache.CapacityState())
			return err
		},
	}
}

func sweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove every expired entry from both tiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n := a.cache.CleanupExpired(cmd.Context())
			_, err := fmt.Fprintf(a.out, "removed %d expired entries\n", n)
			return err
		},
	}
}

func clearCmd(a *app) *cobra.Command {
	var ns int64
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all entries, or only those of one company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ns == 0 {
				if err := a.cache.Clear(cmd.Context()); err != nil {
					return err
				}
				_, err := fmt.Fprintln(a.out, "cleared all namespaces")
				return err
			}
			if err := a.cache.ClearNamespace(cmd.Context(), storage.TenantID(ns)); err != nil {
				return err
			}
			_, err := fmt.Fprintf(a.out, "cleared namespace %d\n", ns)
			return err
		},
	}
	cmd.Flags().Int64Var(&ns, "namespace", 0, "company id; omit to clear everything")
	return cmd
}

func getCmd(a *app) *cobra.Command {
	var ns int64
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the cached JSON payload of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, ok, err := a.cache.GetRaw(cmd.Context(), storage.TenantID(ns), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: not cached", args[0])
			}
			_, err = fmt.Fprintln(a.out, string(raw))
			return err
		},
	}
	cmd.Flags().Int64Var(&ns, "namespace", 0, "company id")
	_ = cmd.MarkFlagRequired("namespace")
	return cmd
}

func setCmd(a *app) *cobra.Command {
	var (
		ns  int64
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "set KEY JSON",
		Short: "Cache a JSON payload under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("payload is not valid JSON")
			}
			err := a.cache.Set(cmd.Context(), storage.TenantID(ns), args[0], json.RawMessage(args[1]), ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "cached %s for namespace %d\n", args[0], ns)
			return err
		},
	}
	cmd.Flags().Int64Var(&ns, "namespace", 0, "company id")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "time to live; 0 uses the configured default")
	_ = cmd.MarkFlagRequired("namespace")
	return cmd
}
