package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/heysubinoy/localstore/internal/api"
	"github.com/heysubinoy/localstore/pkg/config"
)

// ClientOptions holds flags shared by the client commands.
type ClientOptions struct {
	*RootOptions
	Addr    string
	Timeout time.Duration
}

func newClientCommands(rootOpts *RootOptions) []*cobra.Command {
	opts := &ClientOptions{RootOptions: rootOpts}

	cmds := []*cobra.Command{
		{
			Use:   "get <key>",
			Short: "Print the JSON value stored under key",
			Args:  cobra.ExactArgs(1),
			RunE: withClient(opts, func(ctx context.Context, c *api.Client, out io.Writer, args []string) error {
				value, found, err := c.Get(ctx, args[0])
				if err != nil {
					return fmt.Errorf("get failed: %w", err)
				}
				if !found {
					return fmt.Errorf("key %q not found", args[0])
				}
				fmt.Fprintln(out, string(value))
				return nil
			}),
		},
		{
			Use:   "set <key> <json>",
			Short: "Store a JSON value under key",
			Example: `  localstore set theme '"dark"'
  localstore set window '{"w":800,"h":600}'`,
			Args: cobra.ExactArgs(2),
			RunE: withClient(opts, func(ctx context.Context, c *api.Client, out io.Writer, args []string) error {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("value %q is not valid JSON", args[1])
				}
				if err := c.Set(ctx, args[0], json.RawMessage(args[1])); err != nil {
					return fmt.Errorf("set failed: %w", err)
				}
				fmt.Fprintf(out, "Set '%s' = %s\n", args[0], args[1])
				return nil
			}),
		},
		{
			Use:   "remove <key>",
			Short: "Remove key",
			Args:  cobra.ExactArgs(1),
			RunE: withClient(opts, func(ctx context.Context, c *api.Client, out io.Writer, args []string) error {
				if err := c.Remove(ctx, args[0]); err != nil {
					return fmt.Errorf("remove failed: %w", err)
				}
				fmt.Fprintf(out, "Removed '%s'\n", args[0])
				return nil
			}),
		},
		{
			Use:   "clear",
			Short: "Remove every key",
			Args:  cobra.NoArgs,
			RunE: withClient(opts, func(ctx context.Context, c *api.Client, out io.Writer, _ []string) error {
				if err := c.Clear(ctx); err != nil {
					return fmt.Errorf("clear failed: %w", err)
				}
				fmt.Fprintln(out, "Cleared")
				return nil
			}),
		},
		{
			Use:   "get-all",
			Short: "Print the whole store, one key per line",
			Args:  cobra.NoArgs,
			RunE: withClient(opts, func(ctx context.Context, c *api.Client, out io.Writer, _ []string) error {
				all, err := c.GetAll(ctx)
				if err != nil {
					return fmt.Errorf("get-all failed: %w", err)
				}
				keys := make([]string, 0, len(all))
				for k := range all {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "%s\t%s\n", k, all[k])
				}
				return nil
			}),
		},
		{
			Use:   "initialize",
			Short: "Ask the server to load its storage file",
			Args:  cobra.NoArgs,
			RunE: withClient(opts, func(ctx context.Context, c *api.Client, out io.Writer, _ []string) error {
				if err := c.Initialize(ctx); err != nil {
					return fmt.Errorf("initialize failed: %w", err)
				}
				fmt.Fprintln(out, "Initialize requested")
				return nil
			}),
		},
	}

	for _, cmd := range cmds {
		cmd.Flags().StringVar(&opts.Addr, "addr", "", "gRPC server address (default: grpc_addr from config)")
		cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "request timeout")
	}
	return cmds
}

type clientFunc func(ctx context.Context, c *api.Client, out io.Writer, args []string) error

func withClient(opts *ClientOptions, fn clientFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		addr, err := opts.serverAddr()
		if err != nil {
			return err
		}

		conn, err := grpc.NewClient("passthrough:///"+dialAddr(addr), grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
		defer cancel()

		return fn(ctx, api.NewClient(conn), cmd.OutOrStdout(), args)
	}
}

// serverAddr prefers --addr, then grpc_addr from the config file and
// LOCALSTORE_GRPC_ADDR.
func (o *ClientOptions) serverAddr() (string, error) {
	if o.Addr != "" {
		return o.Addr, nil
	}
	cfg, err := config.LoadConfig(o.ConfigPath)
	if err != nil {
		return "", err
	}
	return cfg.GRPCAddr, nil
}

// dialAddr fills in localhost when addr has no host, e.g. ":9090".
func dialAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
