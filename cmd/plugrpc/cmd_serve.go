package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plugrpc/plugrpc/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a bare health-only plugin server for smoke testing",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Uint16("min-port", server.DefaultMinPort, "Lowest TCP port to try")
	serveCmd.Flags().Uint16("max-port", server.DefaultMaxPort, "Highest TCP port to try")
	serveCmd.Flags().String("endpoint", "", "Explicit endpoint to serve on (overrides the port range)")
	viper.BindPFlag("serve.min_port", serveCmd.Flags().Lookup("min-port"))
	viper.BindPFlag("serve.max_port", serveCmd.Flags().Lookup("max-port"))
	viper.BindPFlag("serve.endpoint", serveCmd.Flags().Lookup("endpoint"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	srv := server.New(server.Config{
		Endpoint: viper.GetString("serve.endpoint"),
		MinPort:  uint16(viper.GetUint("serve.min_port")),
		MaxPort:  uint16(viper.GetUint("serve.max_port")),
		Logger:   &log,
	})

	ep, err := srv.Listen()
	if err != nil {
		return err
	}
	fmt.Printf("serving on %s\n", ep)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx)
}
