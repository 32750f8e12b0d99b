package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ryabkov82/biometric-sender/internal/client"
	"github.com/ryabkov82/biometric-sender/internal/config"
	"github.com/ryabkov82/biometric-sender/internal/logging"
	"github.com/ryabkov82/biometric-sender/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// options holds the values of the persistent and upload flags
type options struct {
	configPath    string
	verbose       bool
	logFormat     string
	output        string
	htmlOutput    string
	headers       []string
	authToken     string
	timeout       string
	encoding      string
	delimiter     string
	warningsJSONL string
	filesBaseDir  string
	gzip          bool
	noProbe       bool
}

// app carries what the subcommands share once the persistent flags are parsed
type app struct {
	opts   options
	cfg    *config.Config
	logger *zap.Logger
	getenv func(string) string
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithEnv(os.Getenv)
}

func newRootCmdWithEnv(getenv func(string) string) *cobra.Command {
	a := &app{getenv: getenv}

	root := &cobra.Command{
		Use:   "biometric-sender <csv_path> [api_url]",
		Short: "Upload driver biometric data from a CSV file to the biometric API",
		Long: `biometric-sender reads a CSV file describing driver biometric records,
groups the rows by driver and sends one request per driver to
POST <api_url>/biometric-data/<numero_carta>.

Two CSV layouts are recognized from the header: one row per file with
Caminho_Completo/Tipo_Biometria columns, or one row per driver with inline
base64 columns (fileFace, fileSign, filesFinger1, filesFinger2).

The api_url argument may be omitted when it is set in the config file or in
BIOMETRIC_API_URL. A JSON report is always written; --html adds an HTML one.`,
		Args:          cobra.RangeArgs(1, 2),
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				a.cfg.APIURL = args[1]
			}
			return a.runUpload(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
	root.SetVersionTemplate(version.String() + "\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/biometric-sender/config.yaml)")
	pf.BoolVarP(&a.opts.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&a.opts.logFormat, "log-format", "", "log format: console or json")
	pf.StringArrayVarP(&a.opts.headers, "header", "H", nil, "extra request header, KEY=VALUE or \"Key: Value\" (repeatable)")
	pf.StringVar(&a.opts.authToken, "auth-token", "", "API token sent as Authorization: Bearer <token>")
	pf.StringVar(&a.opts.timeout, "timeout", "", "per-request timeout (default 30s)")
	pf.StringVar(&a.opts.encoding, "encoding", "", "CSV encoding: utf-8, windows-1252 or iso-8859-1")
	pf.StringVar(&a.opts.delimiter, "delimiter", "", "CSV delimiter: ',' or ';'")
	pf.StringVar(&a.opts.filesBaseDir, "files-base-dir", "", "directory relative biometric paths are resolved against")
	pf.BoolVar(&a.opts.gzip, "gzip", false, "gzip request bodies")
	pf.BoolVar(&a.opts.noProbe, "no-probe", false, "skip the API reachability check before the run")

	pf.StringVarP(&a.opts.output, "output", "o", "", "JSON report path (default upload_report.json)")
	pf.StringVar(&a.opts.htmlOutput, "html", "", "also write an HTML report to this path")

	root.Flags().StringVar(&a.opts.warningsJSONL, "warnings-jsonl", "", "append dropped-row warnings to this JSONL file")

	root.AddCommand(
		newReportCmd(),
		newTUICmd(a),
		newServeCmd(a),
		newVersionCmd(),
		newConfigCmd(a),
	)
	return root
}

// setup resolves configuration and builds the logger.
// Precedence is flags, then environment, then config file, then defaults.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(a.getenv)
	if err := a.applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	format := logging.FormatConsole
	if a.opts.logFormat != "" {
		format = logging.Format(a.opts.logFormat)
	} else if cmd.Name() == "serve" {
		format = logging.FormatJSON
	}
	a.logger, err = logging.New(format, a.opts.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if len(a.opts.headers) > 0 {
		parsed, err := client.ParseHeaders(a.opts.headers)
		if err != nil {
			return err
		}
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(parsed))
		}
		for k, v := range parsed {
			cfg.Headers[k] = v
		}
	}
	if changed("auth-token") {
		cfg.AuthToken = a.opts.authToken
	}
	if changed("timeout") {
		cfg.Timeout = a.opts.timeout
	}
	if changed("encoding") {
		cfg.CSV.Encoding = a.opts.encoding
	}
	if changed("delimiter") {
		cfg.CSV.Delimiter = a.opts.delimiter
	}
	if changed("files-base-dir") {
		cfg.Files.BaseDir = a.opts.filesBaseDir
	}
	if changed("gzip") {
		cfg.Gzip = a.opts.gzip
	}
	if changed("no-probe") {
		cfg.Probe = !a.opts.noProbe
	}
	if changed("output") {
		cfg.Output = a.opts.output
	}
	if changed("html") {
		cfg.HTMLOutput = a.opts.htmlOutput
	}
	if changed("warnings-jsonl") {
		cfg.WarningsJSONL = a.opts.warningsJSONL
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// version needs no config or logger
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintln(w, version.String())
}
