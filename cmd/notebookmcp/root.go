package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/notebookmcp/backend"
	"github.com/jonwraymond/notebookmcp/backend/local"
	"github.com/jonwraymond/notebookmcp/catalog"
	"github.com/jonwraymond/notebookmcp/config"
	"github.com/jonwraymond/notebookmcp/imagestore"
	"github.com/jonwraymond/notebookmcp/jupyter"
	"github.com/jonwraymond/notebookmcp/logging"
	"github.com/jonwraymond/notebookmcp/server"
	"github.com/jonwraymond/notebookmcp/session"
	"github.com/jonwraymond/notebookmcp/tools"
)

// Version can be overridden at build time with
// -ldflags "-X main.Version=v0.1.0"
var Version = "dev"

// app carries the process dependencies the commands read.
type app struct {
	lookupEnv func(string) (string, bool)
	transport func() mcp.Transport
}

func defaultApp() app {
	return app{
		lookupEnv: os.LookupEnv,
		transport: func() mcp.Transport { return &mcp.StdioTransport{} },
	}
}

type globalFlags struct {
	configFile    string
	jupyterURL    string
	logLevel      string
	logFormat     string
	disabledTools []string
}

func newRootCommand(a app) *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "notebookmcp",
		Short: "Expose notebook server kernels and notebooks as MCP tools",
	}
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "JSON configuration file")
	pf.StringVar(&flags.jupyterURL, "jupyter-url", "", "notebook server base URL (overrides "+config.EnvJupyterURL+")")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", "", "text or json")
	pf.StringSliceVar(&flags.disabledTools, "disable-tool", nil, "tool name to leave out (repeatable, overrides "+config.EnvDisabledTools+")")

	rootCmd.AddCommand(
		newServeCmd(a, &flags),
		newToolsCmd(a, &flags),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig layers defaults, the config file, the environment and flags.
func loadConfig(a app, flags *globalFlags) (config.Config, error) {
	cfg := config.Default()
	if flags.configFile != "" {
		loaded, err := config.Load(flags.configFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}
	fromEnv, err := config.FromEnv(a.lookupEnv)
	if err != nil {
		return config.Config{}, err
	}
	cfg.Merge(&fromEnv)
	cfg.Merge(&config.Config{
		Jupyter: config.JupyterConfig{URL: flags.jupyterURL},
		Log:     config.LogConfig{Level: flags.logLevel, Format: flags.logFormat},
		Server:  config.ServerConfig{DisabledTools: flags.disabledTools},
	})
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// stack is the wired component graph shared by the commands.
type stack struct {
	cfg        config.Config
	logger     logging.Logger
	images     *imagestore.Store
	aggregator *backend.Aggregator
}

func buildStack(cmd *cobra.Command, a app, flags *globalFlags) (*stack, error) {
	cfg, err := loadConfig(a, flags)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger(cmd.ErrOrStderr())

	client, err := jupyter.NewClient(cfg.JupyterClientConfig(logging.With(logger, "component", "jupyter")))
	if err != nil {
		return nil, err
	}
	images := imagestore.New(imagestore.WithLogger(logging.With(logger, "component", "imagestore")))
	b, err := tools.New(tools.Deps{
		Client:   client,
		Resolver: session.NewResolver(client, session.WithLogger(logging.With(logger, "component", "session"))),
		Images:   images,
		Logger:   logging.With(logger, "component", "tools"),
	})
	if err != nil {
		return nil, err
	}
	if err := disableTools(cmd.Context(), b, cfg.Server.DisabledTools); err != nil {
		return nil, err
	}

	reg := backend.NewRegistry()
	if err := reg.Register(b); err != nil {
		return nil, err
	}
	return &stack{cfg: cfg, logger: logger, images: images, aggregator: backend.NewAggregator(reg)}, nil
}

// disableTools removes the named tools from b. Every name must be one of
// b's tools so that a typo does not silently expose a tool.
func disableTools(ctx context.Context, b *local.Backend, names []string) error {
	if len(names) == 0 {
		return nil
	}
	all, err := b.ListTools(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(all))
	for _, t := range all {
		known[t.Name] = true
	}
	for _, name := range names {
		if !known[name] {
			return fmt.Errorf("%w: cannot disable unknown tool %q", config.ErrConfiguration, name)
		}
	}
	for _, name := range names {
		b.Unregister(name)
	}
	return nil
}

func newServeCmd(a app, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the notebook tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := buildStack(cmd, a, flags)
			if err != nil {
				return err
			}
			srv, err := server.New(cmd.Context(), server.Options{
				Name:       st.cfg.Server.Name,
				Version:    serverVersion(st.cfg),
				Aggregator: st.aggregator,
				Images:     st.images,
				Logger:     logging.With(st.logger, "component", "server"),
			})
			if err != nil {
				return err
			}
			st.logger.Info("serving", "jupyter_url", st.cfg.Jupyter.URL)
			if err := srv.Run(cmd.Context(), a.transport()); err != nil && cmd.Context().Err() == nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
}

func serverVersion(cfg config.Config) string {
	if cfg.Server.Version != "" && cfg.Server.Version != "dev" {
		return cfg.Server.Version
	}
	return Version
}

func newToolsCmd(a app, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the tool catalog",
	}

	backends := &cobra.Command{
		Use:   "backends",
		Short: "List the tool backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := buildStack(cmd, a, flags)
			if err != nil {
				return err
			}
			reg := st.aggregator.Registry()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tENABLED\tTOOLS")
			for _, name := range reg.Names() {
				b, ok := reg.Get(name)
				if !ok {
					continue
				}
				info, err := backend.Describe(cmd.Context(), b)
				if err != nil {
					return fmt.Errorf("describe backend %s: %w", name, err)
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%d\n", info.Name, info.Kind, info.Enabled, info.ToolCount)
			}
			return w.Flush()
		},
	}

	load := func(cmd *cobra.Command) (*catalog.Catalog, error) {
		st, err := buildStack(cmd, a, flags)
		if err != nil {
			return nil, err
		}
		return catalog.Build(cmd.Context(), st.aggregator)
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every tool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := load(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range c.Tools() {
				fmt.Fprintf(w, "%s\t%s\n", backend.FormatToolID(t.Namespace, t.Name), t.Title)
			}
			return w.Flush()
		},
	}

	var limit int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank tools against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load(cmd)
			if err != nil {
				return err
			}
			results, err := c.Search(strings.Join(args, " "), limit)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matching tools")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s - %s\n", i+1, r.ID, r.ShortDescription)
			}
			return nil
		},
	}
	search.Flags().IntVar(&limit, "limit", catalog.DefaultSearchLimit, "maximum number of results")

	describe := &cobra.Command{
		Use:   "describe <tool>",
		Short: "Show the documentation and input schema of a tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load(cmd)
			if err != nil {
				return err
			}
			doc, err := c.Describe(args[0], tooldoc.DetailFull)
			if err != nil {
				return fmt.Errorf("describe %s: %w", args[0], err)
			}
			return printDoc(cmd, doc)
		},
	}

	cmd.AddCommand(list, search, describe, backends)
	return cmd
}

func printDoc(cmd *cobra.Command, doc tooldoc.ToolDoc) error {
	out := cmd.OutOrStdout()
	if doc.Tool != nil {
		fmt.Fprintf(out, "%s\n", backend.FormatToolID(doc.Tool.Namespace, doc.Tool.Name))
	}
	if doc.Summary != "" {
		fmt.Fprintf(out, "\n%s\n", doc.Summary)
	}
	if doc.Tool != nil && doc.Tool.Description != "" {
		fmt.Fprintf(out, "\n%s\n", doc.Tool.Description)
	}
	if doc.Notes != "" {
		fmt.Fprintf(out, "\nNotes: %s\n", doc.Notes)
	}
	if doc.Tool != nil && doc.Tool.InputSchema != nil {
		schema, err := json.MarshalIndent(doc.Tool.InputSchema, "", "  ")
		if err != nil {
			return fmt.Errorf("encode schema: %w", err)
		}
		fmt.Fprintf(out, "\nInput schema:\n%s\n", schema)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "notebookmcp %s\n", Version)
		},
	}
}
