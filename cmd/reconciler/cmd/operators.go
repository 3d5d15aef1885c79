package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"golang-ledger-reconciler/cmd/reconciler/config"
	"golang-ledger-reconciler/internal/extractor"
)

var operatorsCmd = &cobra.Command{
	Use:   "operators",
	Short: "List the operators files can be extracted with",
	Long: `Operators lists every extraction rule: the built-in acquirers plus the ones
defined under "operators" in the config file. The id is what --operator
overrides take; the hints are matched against file names for detection.`,
	RunE: runOperators,
}

func init() {
	rootCmd.AddCommand(operatorsCmd)
}

func runOperators(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(nil)
	if err != nil {
		return err
	}
	registry, err := settings.CreateRegistry()
	if err != nil {
		return err
	}
	return writeOperators(cmd.OutOrStdout(), registry)
}

func writeOperators(w io.Writer, registry *extractor.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFILE HINTS\tCOLUMNS\tFEES")
	for _, rule := range registry.List() {
		hints := strings.Join(rule.FileHints, ", ")
		if hints == "" {
			hints = "-"
		}
		fees := string(rule.FeeStrategy)
		if rule.FeesOnly {
			fees += " (fees only)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", rule.ID, rule.Name, hints, columnNames(rule), fees)
	}
	return tw.Flush()
}

func columnNames(rule *extractor.Rule) string {
	names := make([]string, 0, len(rule.Columns))
	for l := range rule.Columns {
		names = append(names, string(l))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
