// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/osdselection"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

var selectCmd = &cobra.Command{
	Use:   "select VOLUME",
	Short: "Run a volume's OSD selection chain",
	Long: `Run the OSD selection chain of VOLUME against the registered OSDs and print
the candidates in the order a new replica would be placed.

Existing replicas given with --replica are excluded from the result.`,
	Args: cobra.ExactArgs(1),
	Run:  runSelect,
}

func init() {
	rootCmd.AddCommand(selectCmd)

	f := selectCmd.Flags()
	addSelectionFlags(f)
	f.Int("num_osds", 1, "Number of OSDs the new replica needs")
	f.StringArray("replica", nil, "Existing replica as a comma separated OSD list (repeatable)")
	f.String("path", "", "File path the replica is created for")
	f.Bool("simple", false, "Apply only the context free part of each policy")

	viper.BindPFlags(f)
}

func runSelect(cmd *cobra.Command, args []string) {
	fl := NewFlagLoader(cmd)
	ctx, cancel := commandContext()
	defer cancel()

	env, err := openSelectionEnv(ctx, cmd)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize selection")
	}
	defer env.Close()

	coords, err := clientCoords(fl)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid --coords")
	}
	replicas, _ := cmd.Flags().GetStringArray("replica")

	var osds types.ServiceSet
	if fl.Bool("simple") {
		osds, err = env.manager.UsableOSDs(ctx, args[0])
	} else {
		osds, err = env.manager.SelectOSDs(ctx, args[0], &osdselection.SelectionContext{
			ClientAddr:   fl.String("client"),
			ClientCoords: coords,
			XLocs:        parseReplicas(replicas),
			NumOSDs:      fl.Int("num_osds"),
			Path:         fl.String("path"),
		})
	}
	if err != nil {
		logger.Fatal().Err(err).Str("volume", args[0]).Msg("OSD selection failed")
	}
	printOSDs(os.Stdout, osds, time.Now())
}

func printOSDs(out io.Writer, osds types.ServiceSet, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tOSD\tFREE\tLAST UPDATE\tSTATUS")
	fmt.Fprintln(w, "-\t---\t----\t-----------\t------")
	for i, e := range osds {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, e.UUID, freeSpace(e), lastUpdate(e, now), osdStatus(e))
	}
	w.Flush()
	if len(osds) == 0 {
		fmt.Fprintln(out, "no usable OSDs")
	}
}

func freeSpace(e *types.ServiceEntry) string {
	free, ok := e.Int64Attr(types.AttrFree)
	if !ok || free < 0 {
		return "-"
	}
	return humanize.Bytes(uint64(free))
}

func lastUpdate(e *types.ServiceEntry, now time.Time) string {
	if e.LastUpdatedS == 0 {
		return "never"
	}
	return humanize.RelTime(time.Unix(e.LastUpdatedS, 0), now, "ago", "from now")
}

func osdStatus(e *types.ServiceEntry) string {
	raw, ok := e.Attr(types.AttrStatus)
	if !ok {
		return types.ServiceStatusAvailable.String()
	}
	s, err := types.ParseServiceStatus(raw)
	if err != nil {
		return raw
	}
	return s.String()
}
