package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aweris/assetsync"
)

var removeCmd = &cobra.Command{
	Use:     "remove <path>...",
	Aliases: []string{"rm"},
	Short:   "Remove files from the cache",
	Long:    "Remove cached content and hash records. Removed files are fetched again on the next sync.",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) (err error) {
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

	ctx := context.Background()
	for _, path := range args {
		if err := cache.Remove(ctx, path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Removed %s\n", path)
	}
	return nil
}
