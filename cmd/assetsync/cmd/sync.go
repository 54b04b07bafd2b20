package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aweris/assetsync"
	"github.com/aweris/assetsync/internal/surface/htmldoc"
)

var syncCmd = &cobra.Command{
	Use:   "sync [manifest-url]",
	Short: "Synchronize and render a manifest",
	Long: "Fetch the manifest, download and verify changed files into the cache, " +
		"then write an HTML document with every node applied in manifest order.",
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	flags := syncCmd.Flags()
	flags.StringP("output", "o", "-", "where to write the rendered document")
	flags.String("metrics-textfile", "", "write prometheus metrics to this file")
	flags.String("base-url", "", "resolve file paths against this url (http, file or oci://registry/repo)")
	flags.Int("concurrency", 0, "parallel downloads")
	flags.Bool("no-cache", false, "skip the local cache and apply every node by reference")

	_ = v.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = v.BindPFlag("concurrency", flags.Lookup("concurrency"))

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) (err error) {
	if len(args) > 0 {
		v.Set("manifest_url", args[0])
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		v.Set("use_local_cache", false)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.ManifestURL == "" {
		return fmt.Errorf("%w: pass it as an argument or set manifest_url", assetsync.ErrNoManifestURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := newLogger()
	reg := prometheus.NewRegistry()
	tr := assetsync.NewTransport(cfg, nil)
	doc := htmldoc.New(func(ref string) error {
		_, err := tr.Fetch(ctx, ref, nil)
		return err
	})

	l, err := assetsync.Open(cfg,
		assetsync.WithTransport(tr),
		assetsync.WithSurface(doc),
		assetsync.WithLogger(logger),
		assetsync.WithMetrics(assetsync.NewMetrics(reg)),
		assetsync.WithObserver(printProgress(cmd.ErrOrStderr())),
	)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := l.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	runErr := l.Run(ctx)

	if path, _ := cmd.Flags().GetString("metrics-textfile"); path != "" {
		if err := prometheus.WriteToTextfile(path, reg); err != nil {
			logger.Warn("write metrics", "path", path, "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	report := l.Report()
	fmt.Fprintf(cmd.ErrOrStderr(), "Fetched %d files (%d bytes), skipped %d.\n",
		len(report.Fetched), report.Bytes, len(report.Skipped))

	output, _ := cmd.Flags().GetString("output")
	return writeDocument(doc, output, cmd.OutOrStdout())
}

func printProgress(w io.Writer) func(assetsync.Event) {
	return func(ev assetsync.Event) {
		if p, ok := ev.(assetsync.Progress); ok && p.Total > 0 {
			fmt.Fprintf(w, "\r%3d%% %d/%d bytes", p.Loaded*100/p.Total, p.Loaded, p.Total)
			if p.Loaded == p.Total {
				fmt.Fprintln(w)
			}
		}
	}
}

func writeDocument(doc *htmldoc.Document, path string, stdout io.Writer) error {
	if path == "-" || path == "" {
		return doc.Render(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := doc.Render(w); err != nil {
		_ = f.Close()
		return fmt.Errorf("render document: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}
