package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AkaraChen/fama/build"
	"github.com/AkaraChen/fama/cmd/export"
	"github.com/AkaraChen/fama/cmd/format"
	initcmd "github.com/AkaraChen/fama/cmd/init"
	"github.com/AkaraChen/fama/config"
	"github.com/AkaraChen/fama/stats"
)

func NewRoot() (*cobra.Command, *stats.Stats) {
	var (
		famaInit   bool
		famaExport bool
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
		Use:     build.Name + " [pattern]",
		Short:   "One formatter for every language in the tree",
		Version: build.Version,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runE(v, &statz, cmd, args)
		},
	}

	// update version template
	cmd.SetVersionTemplate("fama {{.Version}}")

	fs := cmd.Flags()

	// add our config flags to the command's flag set
	config.SetFlags(fs)

	// add a couple of special flags which don't have a corresponding entry in fama.toml
	fs.StringVar(
		&configFile, "config-file", "",
		"Load the config file from the given path (defaults to searching upwards for fama.toml or "+
			".fama.toml).",
	)
	fs.BoolVarP(
		&famaInit, "init", "i", false,
		"Create a fama.toml file in the current directory.",
	)
	fs.BoolVar(
		&famaExport, "export", false,
		"Print an EditorConfig rendering of the unified config and exit.",
	)

	// bind our command's flags to viper
	if err := v.BindPFlags(fs); err != nil {
		cobra.CheckErr(fmt.Errorf("failed to bind global config to viper: %w", err))
	}

	return cmd, &statz
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
		if err := initcmd.Run(); err != nil {
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
		configFile = os.Getenv("FAMA_CONFIG")
	}

	// search up from the working directory
	if configFile == "" {
		configFile, _, err = config.FindUp(workingDir, "fama.toml", ".fama.toml")
		if err != nil {
			// the built-in defaults are complete, so a missing config file is fine
			log.Debugf("no config file found: %v", err)

			configFile = ""
		}
	}

	if configFile != "" {
		log.Debugf("using config file: %s", configFile)

		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			cobra.CheckErr(fmt.Errorf("failed to read config file '%s': %w", configFile, err))
		}
	}

	// configure logging
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(false)

	if v.GetBool("quiet") {
		// if quiet, we only log errors
		log.SetLevel(log.ErrorLevel)
	} else {
		// otherwise, the verbose flag controls the log level
		switch v.GetInt("verbose") {
		case 0:
			log.SetLevel(log.WarnLevel)
		case 1:
			log.SetLevel(log.InfoLevel)
		default:
			log.SetLevel(log.DebugLevel)
		}
	}

	// check if we are only exporting the config
	if doExport, err := flags.GetBool("export"); err != nil {
		return fmt.Errorf("failed to read export flag: %w", err)
	} else if doExport {
		return export.Run(v, cmd.OutOrStdout())
	}

	// format
	return format.Run(v, statz, cmd, args) //nolint:wrapcheck
}
