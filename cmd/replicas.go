// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

var replicasCmd = &cobra.Command{
	Use:   "replicas VOLUME",
	Short: "Order a file's replicas for reading",
	Long: `Sort the replicas given with --replica using the replica selection chain of
VOLUME, as seen from the client given with --client and --coords.`,
	Args: cobra.ExactArgs(1),
	Run:  runReplicas,
}

func init() {
	rootCmd.AddCommand(replicasCmd)

	f := replicasCmd.Flags()
	addSelectionFlags(f)
	f.StringArray("replica", nil, "Replica as a comma separated OSD list, head OSD first (repeatable)")
	replicasCmd.MarkFlagRequired("replica")

	viper.BindPFlags(f)
}

func runReplicas(cmd *cobra.Command, args []string) {
	fl := NewFlagLoader(cmd)
	ctx, cancel := commandContext()
	defer cancel()

	values, _ := cmd.Flags().GetStringArray("replica")
	xlocs := parseReplicas(values)
	if xlocs == nil || len(xlocs.Replicas) == 0 {
		logger.Fatal().Msg("at least one --replica is required")
	}
	coords, err := clientCoords(fl)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid --coords")
	}

	env, err := openSelectionEnv(ctx, cmd)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize selection")
	}
	defer env.Close()

	sorted, err := env.manager.SortReplicas(ctx, args[0], fl.String("client"), coords, xlocs)
	if err != nil {
		logger.Fatal().Err(err).Str("volume", args[0]).Msg("replica sort failed")
	}
	printReplicas(os.Stdout, sorted)
}

func printReplicas(out io.Writer, replicas []types.Replica) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tHEAD OSD\tOSDS")
	fmt.Fprintln(w, "-\t--------\t----")
	for i, r := range replicas {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, r.Head(), strings.Join(r.OSDs, ","))
	}
	w.Flush()
}
