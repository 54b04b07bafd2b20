package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aweris/assetsync"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached files",
	Long:  "List every synchronized file with the hash it was verified against.",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cache, err := assetsync.OpenCache(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cache.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	records, err := cache.Records(context.Background())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(no entries)")
		return nil
	}

	paths := make([]string, 0, len(records))
	for p := range records {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p, records[p])
	}
	return nil
}
