// Command dmart loads the product, sales and customer extracts, joins them and
// prints the ten sales reports. The CLI stays thin: configuration, logging and
// signal handling live here; every stage lives in internal/pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"dmart/internal/config"
	"dmart/internal/engine"
	"dmart/internal/etlerr"
	"dmart/internal/pipeline"

	// register the SQL engines and every storage backend they can use.
	_ "dmart/internal/engine/sqlengine"
	_ "dmart/internal/storage/all"

	"github.com/op/go-logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logging.MustGetLogger("dmart")

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// errInvalidConfig is returned when validation reports at least one error.
var errInvalidConfig = errors.New("configuration is invalid")

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI and returns the process exit status.
func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if st := etlerr.StageOf(err); st != "" {
			fmt.Fprintf(stderr, "dmart: stage=%s: %v\n", st, err)
		} else {
			fmt.Fprintf(stderr, "dmart: %v\n", err)
		}
		return 1
	}
	return 0
}

// cliFlags holds the values shared by the subcommands.
type cliFlags struct {
	configPath     string
	verbose        bool
	dataPath       string
	engineKind     string
	format         string
	metricsBackend string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var fl cliFlags

	root := &cobra.Command{
		Use:           "dmart",
		Short:         "Load, clean and join the sales extracts and print the sales reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&fl.configPath, "config", "", "config file (JSON, YAML or TOML)")
	root.PersistentFlags().BoolVarP(&fl.verbose, "verbose", "v", false, "enable debug logs")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline and print the ten reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, fl, stderr)
			if err != nil {
				return err
			}
			return runPipeline(cmd.Context(), *cfg, stdout)
		},
	}
	run.Flags().StringVar(&fl.dataPath, "data-path", "", "directory holding Product.csv, Sales.csv and Customer.csv")
	run.Flags().StringVar(&fl.engineKind, "engine", "", "compute engine: memory, sqlite, postgres or mssql")
	run.Flags().StringVar(&fl.format, "format", "", "report format: text or json")
	run.Flags().StringVar(&fl.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway or datadog")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadConfig(cmd, fl, stderr); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "configuration is valid")
			return nil
		},
	}

	ver := &cobra.Command{
		Use:   "version",
		Short: "Print the version and the registered engines",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(stdout, "dmart %s (engines: %v)\n", version, engine.ListKinds())
		},
	}

	root.AddCommand(run, validate, ver)
	return root
}

// loadConfig resolves the config from defaults, file, environment and flags,
// initializes logging and prints every validation issue to stderr.
func loadConfig(cmd *cobra.Command, fl cliFlags, stderr io.Writer) (*config.Config, error) {
	v := config.New()
	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}
	if fl.verbose {
		v.Set("log.level", "DEBUG")
	}

	cfg, err := config.Load(v, fl.configPath)
	if err != nil {
		return nil, err
	}
	if err := InitLogger(stderr, cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	issues := config.ValidateConfig(*cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return nil, errInvalidConfig
	}
	log.Debugf("config: %+v", *cfg)
	return cfg, nil
}

// bindFlags maps the flags present on cmd onto config keys. Only flags the
// user set take precedence over the environment and the file.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	keys := map[string]string{
		"data-path":       "data_path",
		"engine":          "engine.kind",
		"format":          "output.format",
		"metrics-backend": "metrics.backend",
	}
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", flag, err)
		}
	}
	return nil
}

func runPipeline(parent context.Context, cfg config.Config, stdout io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := pipeline.NewRunID()
	flush := pipeline.InitMetrics(cfg.Metrics, runID)
	defer flush()

	out, err := pipeline.Run(ctx, cfg, runID, stdout)
	if err != nil {
		return err
	}
	log.Infof("dmart: run_id=%s completed in %s", out.RunID, out.Duration)
	return nil
}
