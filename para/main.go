package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"para/internal/auth"
	"para/internal/cli/client"
	"para/internal/cli/config"
	"para/internal/cli/output"
)

const defaultTask = "Create a fresh post for today's feed."

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	format string
	quiet  bool
	server string
	token  string

	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}
	root := &cobra.Command{
		Use:           "para",
		Short:         "Drive para agents: run them, read their feed, feed back engagement",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&a.format, "format", "", "Output format: table|json|plain|md (default: table on a terminal)")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Print ids only")
	root.PersistentFlags().StringVar(&a.server, "server", "", "Server URL (overrides the saved connection)")
	root.PersistentFlags().StringVar(&a.token, "token", "", "API token (overrides the saved connection)")

	root.AddCommand(
		a.connectCmd(),
		a.disconnectCmd(),
		a.statusCmd(),
		a.tokenCmd(),
		a.agentsCmd(),
		a.runCmd(),
		a.postsCmd(),
		a.simulateCmd(),
		a.runsCmd(),
		a.statsCmd(),
		a.exportCmd(),
		a.webhooksCmd(),
	)
	return root
}

func (a *app) connectCmd() *cobra.Command {
	var inDir bool
	cmd := &cobra.Command{
		Use:   "connect <url>",
		Short: "Save a para-server connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawURL := strings.TrimSpace(args[0])
			if _, err := url.ParseRequestURI(rawURL); err != nil {
				return fmt.Errorf("invalid url: %w", err)
			}
			cl := client.New(rawURL, a.token)
			var status map[string]any
			if err := cl.Get("/api/v1/status", &status); err != nil {
				return fmt.Errorf("validate server: %w", err)
			}
			if err := cl.Get("/api/v1/agents", nil); err != nil {
				return fmt.Errorf("validate credentials: %w", err)
			}

			var (
				cfg *config.Config
				err error
			)
			if inDir {
				cwd, werr := os.Getwd()
				if werr != nil {
					return werr
				}
				cfg, err = config.LoadFromPath(filepath.Join(cwd, ".para", "config.json"))
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return err
			}
			cfg.SetDefault(rawURL, a.token)
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "connected to %s\n", rawURL)
			return nil
		},
	}
	cmd.Flags().BoolVar(&inDir, "in-dir", false, "Write config to ./.para/config.json in the current directory")
	return cmd
}

func (a *app) disconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the saved connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if _, ok := cfg.Default(); !ok {
				fmt.Fprintln(a.out, "no active connection")
				return nil
			}
			cfg.ClearDefault()
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "disconnected")
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the server and show the active connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, srv, err := a.client()
			if err != nil {
				return err
			}
			var status map[string]any
			if err := cl.Get("/api/v1/status", &status); err != nil {
				return err
			}
			return output.PrintJSON(a.out, map[string]any{
				"server":       srv.URL,
				"connected_at": srv.ConnectedAt,
				"status":       status,
			})
		},
	}
}

func (a *app) tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Generate an API token for PARA_API_TOKEN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.GenerateToken()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "PARA_API_TOKEN=%s\n", token)
			return nil
		},
	}
}

// client resolves the server from flags first, then the saved connection.
func (a *app) client() (*client.Client, config.Server, error) {
	if strings.TrimSpace(a.server) != "" {
		srv := config.Server{URL: strings.TrimSpace(a.server), Token: a.token}
		return client.New(srv.URL, srv.Token), srv, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Server{}, err
	}
	srv, ok := cfg.Default()
	if !ok {
		return nil, config.Server{}, errors.New("not connected. run: para connect <url> [--token <token>]")
	}
	if a.token != "" {
		srv.Token = a.token
	}
	if a.format == "" {
		a.format = cfg.Preference("default_format", "")
	}
	return client.New(srv.URL, srv.Token), srv, nil
}

func (a *app) print(payload map[string]any) error {
	return output.Print(a.out, payload, a.format, a.quiet)
}
