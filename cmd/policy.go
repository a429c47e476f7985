// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/osdselection"
	"github.com/LeeDigitalWorks/placefs/pkg/placement"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage volume selection chains and policy attributes",
	Long: `Read and write the selection attributes of a volume:

  xtreemfs.osel_policy           OSD selection chain, e.g. "1000,3002"
  xtreemfs.rsel_policy           replica selection chain, e.g. "3003"
  xtreemfs.policies.<id>.<key>   attribute of one policy, e.g.
                                 xtreemfs.policies.1002.uuids=osd1,osd3`,
}

var policySetCmd = &cobra.Command{
	Use:   "set VOLUME KEY [VALUE]",
	Short: "Set a volume attribute (no VALUE removes it)",
	Args:  cobra.RangeArgs(2, 3),
	Run:   runPolicySet,
}

var policyGetCmd = &cobra.Command{
	Use:   "get VOLUME KEY",
	Short: "Print a volume attribute",
	Args:  cobra.ExactArgs(2),
	Run:   runPolicyGet,
}

var policyListCmd = &cobra.Command{
	Use:   "list VOLUME",
	Short: "Print a volume's chains and policy attributes",
	Args:  cobra.ExactArgs(1),
	Run:   runPolicyList,
}

var policyIDsCmd = &cobra.Command{
	Use:   "ids",
	Short: "List the known selection policies",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printPolicyIDs(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policySetCmd, policyGetCmd, policyListCmd, policyIDsCmd)

	f := policyCmd.PersistentFlags()
	addStoreFlags(f)
	f.String("dcmap_file", "", "YAML datacenter map used by the DCMap policies")

	viper.BindPFlags(f)
}

func runPolicySet(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()
	manager, store, err := openPolicyStore(cmd)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open attribute store")
	}
	defer store.Close()

	value := ""
	if len(args) == 3 {
		value = args[2]
	}
	if err := manager.SetXAttr(ctx, args[0], args[1], value); err != nil {
		if placement.IsUserError(err) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		logger.Fatal().Err(err).Str("volume", args[0]).Str("key", args[1]).Msg("failed to set attribute")
	}
}

func runPolicyGet(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()
	manager, store, err := openPolicyStore(cmd)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open attribute store")
	}
	defer store.Close()

	value, ok, err := manager.GetXAttr(ctx, args[0], args[1])
	if err != nil {
		logger.Fatal().Err(err).Str("volume", args[0]).Str("key", args[1]).Msg("failed to read attribute")
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: attribute not set\n", args[1])
		os.Exit(1)
	}
	fmt.Println(value)
}

func runPolicyList(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()
	manager, store, err := openPolicyStore(cmd)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open attribute store")
	}
	defer store.Close()

	info, err := manager.VolumeInfo(ctx, args[0])
	if err != nil {
		logger.Fatal().Err(err).Str("volume", args[0]).Msg("failed to load volume")
	}
	attrs, err := manager.ListPolicyAttrs(ctx, args[0])
	if err != nil {
		logger.Fatal().Err(err).Str("volume", args[0]).Msg("failed to list attributes")
	}
	printVolumePolicy(os.Stdout, info, attrs)
}

func printVolumePolicy(out io.Writer, info placement.VolumeInfo, attrs map[string]string) {
	fmt.Fprintf(out, "Volume %s\n", info.ID)
	fmt.Fprintf(out, "  %s = %s  %v\n", placement.OSDPolicyAttr, osdselection.FormatPolicyList(info.OSDPolicy), info.OSDPolicy)
	fmt.Fprintf(out, "  %s = %s  %v\n", placement.ReplicaPolicyAttr, osdselection.FormatPolicyList(info.ReplicaPolicy), info.ReplicaPolicy)
	if len(attrs) == 0 {
		return
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fmt.Fprintln(out)
	for _, k := range keys {
		fmt.Fprintf(out, "  %s = %s\n", k, attrs[k])
	}
}

func printPolicyIDs(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPOLICY")
	fmt.Fprintln(w, "--\t------")
	for _, id := range osdselection.KnownPolicies() {
		fmt.Fprintf(w, "%d\t%s\n", id, id)
	}
	w.Flush()
}
