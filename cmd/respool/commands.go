package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/yuku/respool"
)

// withPool opens the configured pool, runs fn and releases the pool.
func (a *app) withPool(cmd *cobra.Command, fn func(ctx context.Context, pool *respool.Pool) error) error {
	conf, err := a.poolConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	pool, closePool, err := a.openPool(ctx, conf)
	if err != nil {
		return err
	}
	defer closePool()
	return fn(ctx, pool)
}

func newSetupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Initialize the respool database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, manager, err := a.openManager(cmd.Context())
			if err != nil {
				return err
			}
			manager.Close()
			db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Setup completed successfully")
			return nil
		},
	}
}

func newListCommand(a *app) *cobra.Command {
	var availableOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the records of a group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPool(cmd, func(ctx context.Context, pool *respool.Pool) error {
				if availableOnly {
					records, err := pool.ListAvailable(ctx)
					if err != nil {
						return err
					}
					for _, r := range records {
						printRecord(cmd.OutOrStdout(), &r)
					}
					return nil
				}
				return listResources(ctx, cmd.OutOrStdout(), pool)
			})
		},
	}
	cmd.Flags().BoolVar(&availableOnly, "available", false, "List only available records")
	return cmd
}

func newAddCommand(a *app) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an available record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPool(cmd, func(ctx context.Context, pool *respool.Pool) error {
				r, err := pool.AddResource(ctx, respool.Record{ID: id})
				if err != nil {
					return err
				}
				printRecord(cmd.OutOrStdout(), r)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Record id (random when empty)")
	return cmd
}

func newGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPool(cmd, func(ctx context.Context, pool *respool.Pool) error {
				r, err := pool.GetResource(ctx, args[0])
				if err != nil {
					return err
				}
				if r == nil {
					return fmt.Errorf("resource %s not found", args[0])
				}
				printRecord(cmd.OutOrStdout(), r)
				return nil
			})
		},
	}
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPool(cmd, func(ctx context.Context, pool *respool.Pool) error {
				return pool.DeleteResource(ctx, args[0])
			})
		},
	}
}

func newAcquireCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "acquire <id>",
		Short: "Acquire a specific record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPool(cmd, func(ctx context.Context, pool *respool.Pool) error {
				r, err := pool.TryAcquire(ctx, args[0])
				if err != nil {
					return err
				}
				if r == nil {
					return fmt.Errorf("resource %s is not available", args[0])
				}
				printRecord(cmd.OutOrStdout(), r)
				return nil
			})
		},
	}
}

func newAllocateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "allocate [count]",
		Short: "Acquire random available records (default is 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := parseCount(args)
			if err != nil {
				return err
			}
			return a.withPool(cmd, func(ctx context.Context, pool *respool.Pool) error {
				return allocateResources(ctx, cmd.OutOrStdout(), pool, count)
			})
		},
	}
}

func newRefillCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refill",
		Short: "Top the pool up to its minimum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPool(cmd, func(ctx context.Context, pool *respool.Pool) error {
				return refillResources(ctx, cmd.OutOrStdout(), pool)
			})
		},
	}
}

func parseCount(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	count, err := strconv.Atoi(args[0])
	if err != nil || count < 1 {
		return 0, fmt.Errorf("count must be a positive integer: given %q", args[0])
	}
	return count, nil
}

func printRecord(w io.Writer, r *respool.Record) {
	fmt.Fprintf(w, "- %s | Status: %s\n", r.ID, r.Status)
}

func listResources(ctx context.Context, w io.Writer, pool *respool.Pool) error {
	records, err := pool.ListAll(ctx)
	if err != nil {
		return err
	}

	var available, inUse []respool.Record
	for _, r := range records {
		switch r.Status {
		case respool.StatusAvailable:
			available = append(available, r)
		case respool.StatusInUse:
			inUse = append(inUse, r)
		}
	}

	fmt.Fprintf(w, "Total Resources: %d\n", len(records))
	fmt.Fprintln(w, "---------------------")
	fmt.Fprintf(w, "Resources in Use (%d):\n", len(inUse))
	for _, r := range inUse {
		printRecord(w, &r)
	}
	fmt.Fprintln(w, "---------------------")
	fmt.Fprintf(w, "Available Resources (%d):\n", len(available))
	for _, r := range available {
		printRecord(w, &r)
	}
	return nil
}

func allocateResources(ctx context.Context, w io.Writer, pool *respool.Pool, count int) error {
	records, err := pool.AllocateRandomN(ctx, count)
	for _, r := range records {
		fmt.Fprintf(w, "Allocated Resource: %s | Status: %s\n", r.ID, r.Status)
	}
	switch {
	case len(records) == 0 && err != nil:
		return err
	case len(records) < count:
		fmt.Fprintf(w, "Only %d resources were allocated out of %d requested.\n", len(records), count)
		if errors.Is(err, respool.ErrContentionTimeout) {
			return err
		}
	}
	return nil
}

func refillResources(ctx context.Context, w io.Writer, pool *respool.Pool) error {
	before, err := pool.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Current resource count: %d\n", before.Total)

	if _, err := pool.RefillPool(ctx); err != nil {
		return fmt.Errorf("failed to refill resource pool: %w", err)
	}

	after, err := pool.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Resource pool refilled. New resource count: %d\n", after.Total)
	return nil
}
