// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Query the directory service",
	Long: `List the services registered with the directory. Requests fail over between
the servers given with --dir_addrs and follow redirects to the master.`,
	Args: cobra.NoArgs,
	Run:  runServices,
}

var servicesMappingsCmd = &cobra.Command{
	Use:   "mappings [UUID]",
	Short: "Print address mappings, of one UUID or all",
	Args:  cobra.MaximumNArgs(1),
	Run:   runServicesMappings,
}

var servicesOfflineCmd = &cobra.Command{
	Use:   "offline UUID",
	Short: "Mark a service as offline",
	Args:  cobra.ExactArgs(1),
	Run:   runServicesOffline,
}

func init() {
	rootCmd.AddCommand(servicesCmd)
	servicesCmd.AddCommand(servicesMappingsCmd, servicesOfflineCmd)

	addDIRFlags(servicesCmd.PersistentFlags())
	f := servicesCmd.Flags()
	f.String("type", "osd", "Service type (osd, mrc, volume, dir, mixed)")
	f.String("uuid", "", "Only the service with this UUID")
	f.String("name", "", "Only the service with this name")

	viper.BindPFlags(servicesCmd.PersistentFlags())
}

func runServices(cmd *cobra.Command, args []string) {
	fl := NewFlagLoader(cmd)
	ctx, cancel := commandContext()
	defer cancel()

	dir, err := dialDIR(fl)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to directory")
	}
	defer dir.Close()

	var services types.ServiceSet
	switch uuid, name := fl.String("uuid"), fl.String("name"); {
	case uuid != "":
		services, err = dir.ServiceGetByUUID(ctx, uuid)
	case name != "":
		services, err = dir.ServiceGetByName(ctx, name)
	default:
		t, perr := types.ParseServiceType(fl.String("type"))
		if perr != nil {
			logger.Fatal().Err(perr).Msg("invalid --type")
		}
		services, err = dir.ServiceGetByType(ctx, t)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("directory query failed")
	}

	now, err := dir.GlobalTimeGet(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("cannot read directory time, using local clock")
		now = time.Now()
	}
	printServices(os.Stdout, services, now)
}

func printServices(out io.Writer, services types.ServiceSet, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UUID\tTYPE\tNAME\tVERSION\tFREE\tLAST UPDATE")
	fmt.Fprintln(w, "----\t----\t----\t-------\t----\t-----------")
	for _, e := range services {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", e.UUID, e.Type, e.Name, e.Version, freeSpace(e), lastUpdate(e, now))
	}
	w.Flush()
}

func runServicesMappings(cmd *cobra.Command, args []string) {
	fl := NewFlagLoader(cmd)
	ctx, cancel := commandContext()
	defer cancel()

	dir, err := dialDIR(fl)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to directory")
	}
	defer dir.Close()

	uuid := ""
	if len(args) == 1 {
		uuid = args[0]
	}
	mappings, err := dir.AddressMappingsGet(ctx, uuid)
	if err != nil {
		logger.Fatal().Err(err).Msg("directory query failed")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UUID\tPROTOCOL\tADDRESS\tPORT\tNETWORK\tTTL")
	fmt.Fprintln(w, "----\t--------\t-------\t----\t-------\t---")
	for _, m := range mappings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%ds\n", m.UUID, m.Protocol, m.Address, m.Port, m.MatchNetwork, m.TTLs)
	}
	w.Flush()
}

func runServicesOffline(cmd *cobra.Command, args []string) {
	fl := NewFlagLoader(cmd)
	ctx, cancel := commandContext()
	defer cancel()

	dir, err := dialDIR(fl)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to directory")
	}
	defer dir.Close()

	if err := dir.ServiceOffline(ctx, args[0]); err != nil {
		logger.Fatal().Err(err).Str("uuid", args[0]).Msg("failed to mark service offline")
	}
	logger.Info().Str("uuid", args[0]).Msg("service marked offline")
}
