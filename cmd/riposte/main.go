package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ripostebot/riposte/internal/cli"
	"github.com/ripostebot/riposte/internal/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "riposte",
		Short: "💬 Decision engine for automatic chat replies",
		Long: `riposte decides when a chat assistant should answer on its own.

Incoming messages are classified against a library of response patterns;
confident matches get an instant canned reply, everything else defers to
the full reply generator. Response budgets, loop protection, and outcome
reviews keep the automatic side polite.`,
		PersistentPreRunE: initConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/riposte/config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", flags.Lookup("log-format"))

	root.AddCommand(
		patternsCmd(),
		classifyCmd(),
		replyCmd(),
		reviewCmd(),
		statsCmd(),
		migrateCmd(),
		versionCmd(),
	)

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		reportFatal(err)
	}
}

// reportFatal prints the friendly half of a UserError when one is present,
// with the cause indented beneath it, then exits non-zero.
func reportFatal(err error) {
	var friendly *common.UserError
	if errors.As(err, &friendly) && friendly.Cause != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(friendly.Message))
		fmt.Fprintln(os.Stderr, cli.SubtleStyle.Render("  "+friendly.Cause.Error()))
	} else {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
	}
	os.Exit(1)
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		viper.AddConfigPath(filepath.Join(home, ".config", "riposte"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("RIPOSTE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Running without a config file is fine; flags and env cover it
	}

	level, err := common.ParseLogLevel(viper.GetString("logging.level"))
	if err != nil {
		return err
	}
	if err := common.SetupLogger(level, viper.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "riposte %s\n", version)
		},
	}
}
