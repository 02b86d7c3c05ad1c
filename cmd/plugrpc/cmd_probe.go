package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plugrpc/plugrpc/pkg/client"
)

var probeCmd = &cobra.Command{
	Use:   "probe <endpoint>",
	Short: "Dial a plugin endpoint and report its health status",
	Args:  cobra.ExactArgs(1),
	RunE:  runProbe,
}

func init() {
	probeCmd.Flags().Duration("timeout", 5*time.Second, "Health check timeout")
	viper.BindPFlag("probe.timeout", probeCmd.Flags().Lookup("timeout"))

	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	conn, err := client.Dial(args[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("probe.timeout"))
	defer cancel()

	st, err := client.Probe(ctx, conn)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", args[0], st)
	return nil
}
