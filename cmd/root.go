package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oshokin/crateflow/internal/app"
	"github.com/oshokin/crateflow/internal/config"
	"github.com/oshokin/crateflow/internal/logger"
	"github.com/oshokin/crateflow/internal/version"
)

var (
	// configFilenameFromFlag stores the config filename provided via command-line flag.
	//
	//nolint:gochecknoglobals // It is required for configuration initialization before the application starts.
	configFilenameFromFlag string

	// appConfig stores the application configuration loaded from file and flags.
	//
	//nolint:gochecknoglobals,lll // It is initialized once during the application's startup and shared across the command execution logic.
	appConfig *config.Config

	// rootCmd is the main Cobra command for the application.
	//
	//nolint:gochecknoglobals,lll // Cobra command requires a global definition for proper command-line parsing and execution.
	rootCmd = &cobra.Command{
		Use:   "crateflow [flags] {urls}",
		Short: "Resolve and download tracks, albums, playlists, or an artist's catalog across streaming sources.",
		Long: `crateflow accepts Qobuz, Tidal, Deezer, SoundCloud, and Last.fm references and
produces tagged audio files on disk.

It supports downloading:
- Individual tracks
- Full albums
- Playlists (including Last.fm playlists resolved against a streaming source)
- Complete catalogs of an artist or label

The application provides flexible naming templates and per-source quality
selection. A speed limit is parsed and validated but does not throttle
transfers.`,
		Args:             cobra.MinimumNArgs(1),
		PersistentPreRun: initConfig,
		Run: func(cmd *cobra.Command, urls []string) {
			app.ExecuteRootCommand(cmd.Context(), appConfig, urls)
		},
	}

	searchCmd = &cobra.Command{
		Use:              "search [flags] {source} {media-type} {query}",
		Short:            "Search a source and enqueue the results.",
		Args:             cobra.ExactArgs(3),
		PersistentPreRun: initConfig,
		Run: func(cmd *cobra.Command, args []string) {
			app.ExecuteSearchCommand(cmd.Context(), appConfig, args[0], args[1], args[2], searchOutputFile, searchFirstHit)
		},
	}

	//nolint:gochecknoglobals // CLI flag destinations, set once at init.
	searchOutputFile string
	//nolint:gochecknoglobals // CLI flag destination, set once at init.
	searchFirstHit bool
)

// Execute executes the root command.
func Execute() {
	signals := []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)

	defer func() {
		_ = logger.Logger().Sync() //nolint:errcheck // No need to check the error here, application will exit anyway.
	}()

	defer stop()

	go func() {
		defer stop()

		err := rootCmd.ExecuteContext(ctx)
		cobra.CheckErr(err)
	}()

	<-ctx.Done()
}

//nolint:gochecknoinits // Cobra requires the init function to set up flags before the command is executed.
func init() {
	version.AttachCobraVersionCommand(rootCmd)

	rootCmd.PersistentFlags().StringVarP(
		&configFilenameFromFlag,
		"config",
		"c",
		"",
		fmt.Sprintf("path to the configuration file (default is '%s')",
			config.DefaultConfigFilename))

	rootCmdFlags := rootCmd.Flags()

	rootCmdFlags.StringP(
		"output",
		"o",
		"",
		"directory to save downloaded files (the path will be created if it doesn't exist).")

	rootCmdFlags.StringP(
		"speed-limit",
		"s",
		"",
		"download speed limit, for example: 500KB, 1MB, 1.5MB (validated only; transfers are not throttled).")

	rootCmdFlags.BoolP(
		"dry-run",
		"n",
		false,
		"sets the dry-run option; downloads and file writes still run.")

	searchCmd.Flags().StringVarP(&searchOutputFile, "output-file", "O", "",
		"write results as a JSON array to this path instead of enqueueing them.")
	searchCmd.Flags().BoolVarP(&searchFirstHit, "first", "1", false,
		"enqueue only the first result.")

	rootCmd.AddCommand(searchCmd)
}

func initConfig(cmd *cobra.Command, _ []string) {
	var err error

	appConfig, err = config.LoadConfig(configFilenameFromFlag)
	if err != nil {
		logger.Fatalf(cmd.Context(), "Failed to load configuration: %v", err)
	}

	if err = bindFlagsToConfig(cmd.Flags(), appConfig); err != nil {
		logger.Fatalf(cmd.Context(), "Failed to parse flags: %v", err)
	}

	logger.SetLevel(appConfig.ParsedLogLevel)
}

func bindFlagsToConfig(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error

	if flag := flags.Lookup("output"); flag != nil && flag.Changed {
		cfg.Downloads.Folder, err = flags.GetString("output")
		if err != nil {
			return fmt.Errorf("failed to get output value: %w", err)
		}
	}

	if flag := flags.Lookup("speed-limit"); flag != nil && flag.Changed {
		cfg.Downloads.SpeedLimit, err = flags.GetString("speed-limit")
		if err != nil {
			return fmt.Errorf("failed to get speed limit value: %w", err)
		}
	}

	if flag := flags.Lookup("dry-run"); flag != nil && flag.Changed {
		cfg.DryRun, err = flags.GetBool("dry-run")
		if err != nil {
			return fmt.Errorf("failed to get dry-run value: %w", err)
		}
	}

	return config.ValidateConfig(cfg)
}
