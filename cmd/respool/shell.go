package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuku/respool"
)

func newShellCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPool(cmd, func(ctx context.Context, pool *respool.Pool) error {
				return runShell(ctx, pool, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

// runShell reads commands from in until "exit" or end of input. Command
// failures are reported on out and do not end the session.
func runShell(ctx context.Context, pool *respool.Pool, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Resource pool %q\n\n", pool.GroupKey())
	printHelp(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		var err error
		switch strings.ToLower(parts[0]) {
		case "list":
			err = listResources(ctx, out, pool)
		case "allocate":
			var count int
			if count, err = parseCount(parts[1:]); err == nil {
				err = allocateResources(ctx, out, pool, count)
			}
		case "delete":
			if len(parts) < 2 {
				fmt.Fprintln(out, "Please provide an id to delete.")
				continue
			}
			err = pool.DeleteResource(ctx, parts[1])
		case "refill":
			err = refillResources(ctx, out, pool)
		case "help":
			printHelp(out)
		case "exit", "quit":
			return nil
		default:
			fmt.Fprintln(out, "Unknown command. Please try again.")
		}
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Available commands:")
	fmt.Fprintln(out, "  list - List all resources")
	fmt.Fprintln(out, "  allocate [count] - Allocate resources (default is 1)")
	fmt.Fprintln(out, "  delete <id> - Delete a resource by id")
	fmt.Fprintln(out, "  refill - Refill the resource pool")
	fmt.Fprintln(out, "  help - Show this help")
	fmt.Fprintln(out, "  exit - Exit the application")
}
