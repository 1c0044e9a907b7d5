package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abrezinsky/tabulator/internal/app"
	"github.com/abrezinsky/tabulator/internal/config"
	"github.com/abrezinsky/tabulator/internal/logger"
)

// Version information (set via ldflags)
var version = "dev"

// cli carries the state shared by subcommands
type cli struct {
	v          *viper.Viper
	configFile string
	out        io.Writer
	logOut     io.Writer
}

func newRootCmd(out, logOut io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), out: out, logOut: logOut}

	root := &cobra.Command{
		Use:           "tabulator",
		Short:         "Pageant and quiz bee scoring server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default ./config.yaml if present)")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	bind := map[string]string{
		"database.path": "db",
		"log.level":     "log-level",
		"log.format":    "log-format",
	}
	for key, name := range bind {
		_ = c.v.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(c.serveCmd(), c.importCmd(), c.versionCmd())
	return root
}

// load resolves configuration and builds the logger it describes
func (c *cli) load() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(c.v, c.configFile)
	if err != nil {
		return nil, nil, err
	}
	opts := cfg.LoggerOptions()
	opts.Output = c.logOut
	log := logger.NewWithOptions(opts)
	if cfg.Log.HTTP {
		log.EnableHTTPLogging()
	}
	return cfg, log, nil
}

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scoring server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := c.load()
			if err != nil {
				return err
			}
			a, err := app.New(log, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer a.Close()

			log.Info("Tabulator starting", "version", version, "db", cfg.Database.Path)
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().Int("port", 0, "HTTP server port")
	cmd.Flags().String("base-url", "", "URL printed in judge QR codes (detected when empty)")
	cmd.Flags().Bool("http-log", false, "log every HTTP request")
	_ = c.v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = c.v.BindPFlag("server.base_url", cmd.Flags().Lookup("base-url"))
	_ = c.v.BindPFlag("log.http", cmd.Flags().Lookup("http-log"))
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <event.yaml>",
		Short: "Create an event with its rounds, contestants and judges from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := c.load()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := app.New(log, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer a.Close()

			sum, err := a.Importer().Import(cmd.Context(), f)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.out, "Imported event %d %q: %d segments, %d criteria, %d contestants\n",
				sum.Event.ID, sum.Event.Name, len(sum.Segments), sum.Criteria, len(sum.Contestants))
			if len(sum.Judges) == 0 {
				return nil
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "JUDGE\tROLE\tACCESS CODE")
			for _, j := range sum.Judges {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", j.Name, j.Role, j.AccessCode)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(c.out, "tabulator %s\n", version)
		},
	}
}
