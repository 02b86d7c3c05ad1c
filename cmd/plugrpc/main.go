package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plugrpc/plugrpc/pkg/plugin"
)

var rootCmd = &cobra.Command{
	Use:           "plugrpc",
	Short:         "Probe and smoke-test gRPC plugin endpoints",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit JSON log lines instead of console output")
	viper.BindPFlag("json_logs", rootCmd.PersistentFlags().Lookup("json-logs"))

	viper.SetEnvPrefix("PLUGRPC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	cobra.OnInitialize(setupLogging)
}

func setupLogging() {
	if viper.GetBool("json_logs") {
		plugin.SetLogger(zerolog.New(os.Stderr).With().Timestamp().Logger())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
