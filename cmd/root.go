// Package cmd contains all the commands included in the dframe binary.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFlag      = "config"
	logLevelFlag    = "log-level"
	logFormatFlag   = "log-format"
	concurrencyFlag = "concurrency"
	timeoutFlag     = "timeout"
	drawFlag        = "draw"
	metricsFlag     = "metrics-file"
)

// NewRootCommand returns the dframe command. Children commands read their flags from the command line, then from
// environment variables prefixed with DFRAME, for instance DFRAME_LOG_LEVEL.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DFRAME")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "dframe",
		Short: "Run text datasets through a pipeline of processing stages",
		Long: `Run text datasets through a pipeline of processing stages.

Every line read on the standard input becomes a package going through the stages defined in a YAML file.
The output layer of every package is printed, in input order, once the pipeline is stopped.`,
		SilenceUsage: true,
	}

	root.AddCommand(NewRunCommand(v))
	root.AddCommand(NewProcessorsCommand())

	return root
}

// mustBindPFlag binds key to a pflag and panics if the binding fails.
func mustBindPFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}
