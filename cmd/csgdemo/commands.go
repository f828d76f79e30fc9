package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	csg "github.com/holistic-stack/ob-sub002"
	"github.com/holistic-stack/ob-sub002/engine"
	_ "github.com/holistic-stack/ob-sub002/engine/bsp"
	"github.com/holistic-stack/ob-sub002/ops"
	"github.com/holistic-stack/ob-sub002/pipeline"
	"github.com/holistic-stack/ob-sub002/scenetree"
)

var (
	configPath string
	noCache    bool
	repeat     int
	jobs       int
	verbose    bool

	rootCmd = &cobra.Command{
		Use:           "csgdemo",
		Short:         "Convert CSG scene trees into meshes",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				csg.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(),
					&slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
	}

	convertCmd = &cobra.Command{
		Use:   "convert <scene.yaml>...",
		Short: "Convert scene documents and print mesh statistics",
		Long: `Convert every scene document given. Each document gets its own
conversion session; up to --jobs documents are converted at once.`,
		Args:  cobra.MinimumNArgs(1),
		RunE:  runConvert,
	}

	enginesCmd = &cobra.Command{
		Use:   "engines",
		Short: "List the registered native engines",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range engine.Available() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	convertCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the subtree cache")
	convertCmd.Flags().IntVar(&repeat, "repeat", 1, "convert each scene n times to show cache hits")
	convertCmd.Flags().IntVarP(&jobs, "jobs", "j", 1, "number of documents converted concurrently")

	rootCmd.AddCommand(convertCmd, enginesCmd)
}

func loadConfig() (csg.Config, error) {
	if configPath == "" {
		return csg.DefaultConfig(), nil
	}
	return csg.LoadConfig(configPath)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1, got %d", repeat)
	}
	if jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1, got %d", jobs)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Conversion.EnableCaching = false
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	// Reports are buffered per document and printed in argument order.
	outs := make([]bytes.Buffer, len(args))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range args {
		g.Go(func() error {
			return convertFile(ctx, cfg, path, &outs[i])
		})
	}
	err = g.Wait()
	for i := range outs {
		if _, werr := outs[i].WriteTo(cmd.OutOrStdout()); werr != nil {
			return werr
		}
	}
	return err
}

func convertFile(ctx context.Context, cfg csg.Config, path string, out io.Writer) error {
	scene, err := scenetree.DecodeFile(path)
	if err != nil {
		return err
	}
	s, err := pipeline.New(ctx, pipeline.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer s.Close()

	p := message.NewPrinter(language.English)
	p.Fprintf(out, "scene %s: %d nodes, depth %d, engine %s\n",
		path, scenetree.Count(scene), scenetree.Depth(scene), s.Engine().Name())
	for i := range repeat {
		res, err := s.Convert(ctx, scene)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		report(p, out, i+1, res)
	}

	if err := s.Close(); err != nil {
		return err
	}
	st := s.Stats()
	cs := s.CacheStats()
	p.Fprintf(out, "native objects: %d allocated, %d freed, peak %d, active %d\n",
		st.TotalAllocated, st.TotalFreed, st.PeakUsage, st.ActiveResources)
	p.Fprintf(out, "cache: %d hits, %d misses\n", cs.Hits, cs.Misses)
	om := s.OperationMetrics()
	p.Fprintf(out, "operations: %d run, average %v, cache hit rate %.1f%%\n",
		om.TotalOperations, om.AverageTime.Round(time.Microsecond), om.CacheHitRate*100)
	return nil
}

func report(p *message.Printer, w io.Writer, run int, res *ops.Result) {
	p.Fprintf(w, "run %d: %d vertices, %d triangles, %d material groups in %v\n",
		run, res.VertexCount, res.TriangleCount, res.MaterialGroupCount,
		res.OperationTime.Round(time.Microsecond))
}
