package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/numtide/rabbit/build"
	"github.com/numtide/rabbit/cmd/comment"
	"github.com/numtide/rabbit/cmd/format"
	_init "github.com/numtide/rabbit/cmd/init"
	"github.com/numtide/rabbit/config"
	"github.com/numtide/rabbit/stats"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ConfigFileNames are searched for in the working directory and each of its parents.
var ConfigFileNames = []string{"rabbit.toml", ".rabbit.toml"}

func NewRoot() (*cobra.Command, *stats.Stats) {
	var (
		rabbitInit bool
		configFile string
	)

	// create a viper instance for reading in config
	v, err := config.NewViper()
	if err != nil {
		cobra.CheckErr(fmt.Errorf("failed to create viper instance: %w", err))
	}

	// create a new stats instance
	statz := stats.New()

	// create our root command
	cmd := &cobra.Command{
		Use:     build.Name + " <paths...>",
		Short:   "Format C# and XAML with csharpier and XamlStyler",
		Version: build.Version,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runE(v, statz, cmd, args)
		},
	}

	// update version template
	cmd.SetVersionTemplate("rabbit {{.Version}}\n")

	cmd.AddCommand(
		comment.NewCommand(),
		newCompletionCommand(),
	)

	fs := cmd.Flags()

	// add our config flags to the command's flag set
	config.SetFlags(fs)

	// add a couple of special flags which don't have a corresponding entry in rabbit.toml
	fs.StringVar(
		&configFile, "config-file", "",
		"Load the config file from the given path (defaults to searching upwards for rabbit.toml or "+
			".rabbit.toml). (env $RABBIT_CONFIG)",
	)
	fs.BoolVarP(
		&rabbitInit, "init", "i", false,
		"Create a rabbit.toml file in the current directory.",
	)

	// bind our command's flags to viper
	if err := v.BindPFlags(fs); err != nil {
		cobra.CheckErr(fmt.Errorf("failed to bind global config to viper: %w", err))
	}

	return cmd, statz
}

func runE(v *viper.Viper, statz *stats.Stats, cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	// change working directory if required
	workingDir, err := filepath.Abs(v.GetString("working-dir"))
	if err != nil {
		return fmt.Errorf("failed to get absolute path for working directory: %w", err)
	} else if err = os.Chdir(workingDir); err != nil {
		return fmt.Errorf("failed to change working directory: %w", err)
	}

	// check if we are running the init command
	if init, err := flags.GetBool("init"); err != nil {
		return fmt.Errorf("failed to read init flag: %w", err)
	} else if init {
		if err := _init.Run(); err != nil {
			return fmt.Errorf("failed to run init command: %w", err)
		}

		return nil
	}

	// otherwise attempt to load the config file

	// use the path specified by the flag
	configFile, err := flags.GetString("config-file")
	if err != nil {
		return fmt.Errorf("failed to read config-file flag: %w", err)
	}

	// fallback to env
	if configFile == "" {
		configFile = os.Getenv("RABBIT_CONFIG")
	}

	// search up from the working directory, a missing config file means we use the built-in formatters
	if configFile == "" {
		configFile, _, _ = config.FindUp(workingDir, ConfigFileNames...)
	}

	if configFile != "" {
		log.Debugf("using config file: %s", configFile)

		// read in the config
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			cmd.SilenceUsage = true

			return fmt.Errorf("failed to read config file '%s': %w", configFile, err)
		}
	}

	configureLogging(v)

	// format
	return format.Run(v, statz, cmd, args) //nolint:wrapcheck
}

func configureLogging(v *viper.Viper) {
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(false)

	if v.GetBool("quiet") {
		// if quiet, we only log errors
		log.SetLevel(log.ErrorLevel)

		return
	}

	// otherwise, the verbose flag controls the log level, ci mode needs at least info
	verbose := v.GetInt("verbose")
	if v.GetBool("ci") {
		verbose = max(verbose, 1)
	}

	switch verbose {
	case 0:
		log.SetLevel(log.WarnLevel)
	case 1:
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.DebugLevel)
	}
}
