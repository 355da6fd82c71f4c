package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/astro-tools-mcp/internal/config"
	"github.com/ironsheep/astro-tools-mcp/internal/detection"
	"github.com/ironsheep/astro-tools-mcp/internal/pipeline"
	"github.com/ironsheep/astro-tools-mcp/internal/report"
	"github.com/ironsheep/astro-tools-mcp/internal/server"
	"github.com/ironsheep/astro-tools-mcp/internal/source"
	"github.com/ironsheep/astro-tools-mcp/internal/watch"
)

// NewRootCmd builds the command tree.
func NewRootCmd(root *Root) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "astro-tools",
		Short: "Astronomical image fetching and change detection",
		Long: `astro-tools fetches sky survey cut-outs and NASA APOD images, finds
objects in a single frame and detects changes between two frames.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.setup()
		},
	}
	rootCmd.PersistentFlags().StringVar(&root.cfgPath, "config", "", "config file (default $ASTRO_CONFIG or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVar(&root.jsonOut, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		newSingleCmd(root),
		newMotionCmd(root),
		newAPODCmd(root),
		newWatchCmd(root),
		newServeCmd(root),
		newRunsCmd(root),
		newObjectsCmd(root),
		newConfigCmd(root),
		newVersionCmd(root),
	)
	return rootCmd
}

func newSingleCmd(root *Root) *cobra.Command {
	var (
		ra, dec, scale float64
		width, height  int
		file           string
	)

	cmd := &cobra.Command{
		Use:   "single",
		Short: "Find objects in a single frame",
		Long: `Fetch one SDSS cut-out (or read --file), run edge analysis and write the
annotated frame and a stage montage to the processed directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := source.FileKey(file)
			if file == "" {
				if !cmd.Flags().Changed("ra") || !cmd.Flags().Changed("dec") {
					return errors.New("single requires --ra and --dec, or --file")
				}
				key = root.cfg.SkyKey(ra, dec)
				key.Scale = scale
				if width > 0 {
					key.Width = width
				}
				if height > 0 {
					key.Height = height
				}
				if err := key.ValidateSky(); err != nil {
					return err
				}
			}

			store, err := root.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := root.newService(root.cfg.Detection, store)
			if err != nil {
				return err
			}
			res, err := svc.ProcessSingle(cmd.Context(), key)
			if err != nil {
				return err
			}
			if root.jsonOut {
				return printJSON(cmd.OutOrStdout(), res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %dx%d, %d objects\n", res.Key, res.Width, res.Height, len(res.Boxes))
			printBoxes(out, res.Boxes)
			fmt.Fprintf(out, "annotated: %s\nmontage:   %s\n", res.AnnotatedPath, res.MontagePath)
			return nil
		},
	}

	cmd.Flags().Float64Var(&ra, "ra", 0, "right ascension in degrees")
	cmd.Flags().Float64Var(&dec, "dec", 0, "declination in degrees")
	cmd.Flags().Float64Var(&scale, "scale", 1.0, "arcseconds per pixel")
	cmd.Flags().IntVar(&width, "width", 0, "cut-out width in pixels (config default if 0)")
	cmd.Flags().IntVar(&height, "height", 0, "cut-out height in pixels (config default if 0)")
	cmd.Flags().StringVar(&file, "file", "", "analyze a local image instead of fetching")
	return cmd
}

func newMotionCmd(root *Root) *cobra.Command {
	var (
		ra1, dec1, ra2, dec2 float64
		file1, file2         string
		threshold            int
		align                bool
		backend              string
		filter               string
		outDir               string
	)

	cmd := &cobra.Command{
		Use:   "motion",
		Short: "Detect changes between two frames",
		Long: `Compare two SDSS cut-outs (--ra1/--dec1 and --ra2/--dec2) or two local
images (--file1/--file2). The difference mask, objects.csv, the annotated
reference frame and a montage are written to the processed directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()

			var ref, cmp source.Key
			switch {
			case file1 != "" || file2 != "":
				if file1 == "" || file2 == "" {
					return errors.New("motion requires both --file1 and --file2")
				}
				ref, cmp = source.FileKey(file1), source.FileKey(file2)
			default:
				if !flags.Changed("ra1") || !flags.Changed("dec1") {
					return errors.New("motion requires --ra1 and --dec1, or --file1 and --file2")
				}
				if !flags.Changed("ra2") || !flags.Changed("dec2") {
					return errors.New("motion requires --ra2 and --dec2 for the second frame")
				}
				ref, cmp = root.cfg.SkyKey(ra1, dec1), root.cfg.SkyKey(ra2, dec2)
				for _, k := range []source.Key{ref, cmp} {
					if err := k.ValidateSky(); err != nil {
						return err
					}
				}
			}

			opts := root.cfg.Detection
			if flags.Changed("threshold") {
				opts.Threshold = threshold
			}
			if flags.Changed("align") {
				opts.Align = align
			}
			if flags.Changed("backend") {
				opts.Backend = backend
			}
			if flags.Changed("filter") {
				opts.ResampleFilter = filter
			}

			store, err := root.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := root.newService(opts, store)
			if err != nil {
				return err
			}
			if outDir != "" {
				svc = svc.WithOutputDir(outDir)
			}
			run, err := svc.ProcessMotion(cmd.Context(), ref, cmp)
			if err != nil {
				return err
			}
			if root.jsonOut {
				return printJSON(cmd.OutOrStdout(), run)
			}
			printMotion(cmd.OutOrStdout(), run)
			return nil
		},
	}

	cmd.Flags().Float64Var(&ra1, "ra1", 0, "right ascension of the reference frame")
	cmd.Flags().Float64Var(&dec1, "dec1", 0, "declination of the reference frame")
	cmd.Flags().Float64Var(&ra2, "ra2", 0, "right ascension of the comparison frame")
	cmd.Flags().Float64Var(&dec2, "dec2", 0, "declination of the comparison frame")
	cmd.Flags().StringVar(&file1, "file1", "", "reference image on disk")
	cmd.Flags().StringVar(&file2, "file2", "", "comparison image on disk")
	cmd.Flags().IntVar(&threshold, "threshold", detection.DefaultThreshold, "difference threshold (0-255)")
	cmd.Flags().BoolVar(&align, "align", false, "align the comparison frame before differencing")
	cmd.Flags().StringVar(&backend, "backend", detection.BackendNative, "detection backend ("+strings.Join(detection.Backends(), "|")+")")
	cmd.Flags().StringVar(&filter, "filter", "", "resampling filter for mismatched sizes")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "output directory (default <data_dir>/processed)")
	return cmd
}

func newAPODCmd(root *Root) *cobra.Command {
	var (
		date    string
		analyze bool
	)

	cmd := &cobra.Command{
		Use:   "apod",
		Short: "Download the NASA Astronomy Picture of the Day",
		Long: `Download the APOD image for --date (YYYY-MM-DD, default today) into the
nasa directory. With --analyze the image is also run through single-frame
analysis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := source.ValidateDate(date); err != nil {
				return err
			}
			p := root.apodProvider()
			img, entry, err := p.FetchEntry(cmd.Context(), date)
			if err != nil {
				if errors.Is(err, source.ErrNotImage) && entry != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s, not an image)\n%s\n", entry.Date, entry.Title, entry.MediaType, entry.URL)
					return nil
				}
				return err
			}
			out := cmd.OutOrStdout()
			path := filepath.Join(root.cfg.NASADir(), source.APODName(date))
			if !analyze {
				if root.jsonOut {
					return printJSON(out, entry)
				}
				b := img.Bounds()
				fmt.Fprintf(out, "%s: %s\n%dx%d saved to %s\n", entry.Date, entry.Title, b.Dx(), b.Dy(), path)
				return nil
			}

			store, err := root.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := root.newService(root.cfg.Detection, store)
			if err != nil {
				return err
			}
			res, err := svc.ProcessSingle(cmd.Context(), source.FileKey(path))
			if err != nil {
				return err
			}
			if root.jsonOut {
				return printJSON(out, res)
			}
			fmt.Fprintf(out, "%s: %s\n%d objects\n", entry.Date, entry.Title, len(res.Boxes))
			printBoxes(out, res.Boxes)
			fmt.Fprintf(out, "annotated: %s\n", res.AnnotatedPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "picture date (YYYY-MM-DD), default today")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "run single-frame analysis on the picture")
	return cmd
}

func newWatchCmd(root *Root) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "watch <directory>",
		Short: "Compare frames as they arrive in a directory",
		Long: `Watch a directory and compare every new image with the frame before it.
Output for each comparison goes to <processed>/watch/<frame name>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := root.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := root.newService(root.cfg.Detection, store)
			if err != nil {
				return err
			}
			base := filepath.Join(root.cfg.ProcessedDir(), "watch")
			process := func(ctx context.Context, ref, cmp source.Key) (*pipeline.MotionRun, error) {
				name := strings.TrimSuffix(filepath.Base(cmp.Path), filepath.Ext(cmp.Path))
				return svc.WithOutputDir(filepath.Join(base, name)).ProcessMotion(ctx, ref, cmp)
			}

			w, err := watch.New(args[0], process, watch.Options{
				Extensions: root.cfg.Watch.Extensions,
				Settle:     root.cfg.Watch.Settle,
				SeedLatest: seed,
				Release:    root.cache.Evict,
				Logger:     root.log,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- w.Run(cmd.Context()) }()

			out := cmd.OutOrStdout()
			for res := range w.Results {
				switch {
				case res.Err != nil:
					fmt.Fprintf(out, "%s vs %s: %v\n", filepath.Base(res.Reference), filepath.Base(res.Comparison), res.Err)
				case root.jsonOut:
					if err := printJSON(out, res.Run); err != nil {
						return err
					}
				default:
					printMotion(out, res.Run)
				}
			}
			return <-errCh
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "use the newest existing image as the first reference")
	return cmd
}

func newServeCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := root.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := root.newService(root.cfg.Detection, store)
			if err != nil {
				return err
			}
			srv := server.New(server.Options{
				Cache:       root.cache,
				SDSS:        root.sdssProvider(),
				APOD:        root.apodProvider(),
				Pipeline:    svc,
				Catalog:     store,
				SkyDefaults: root.cfg.SkyKey(0, 0),
				Version:     root.version,
				Logger:      root.log,
			})
			return srv.Run(cmd.Context())
		},
	}
}

func newRunsCmd(root *Root) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded runs, or the detections of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !root.cfg.Catalog.Enabled {
				return errors.New("catalog is disabled in the configuration")
			}
			store, err := root.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid run id %q", args[0])
				}
				run, err := store.GetRun(cmd.Context(), id)
				if err != nil {
					return err
				}
				dets, err := store.Detections(cmd.Context(), id)
				if err != nil {
					return err
				}
				if root.jsonOut {
					return printJSON(out, map[string]any{"run": run, "detections": dets})
				}
				fmt.Fprintf(out, "run %d (%s) %s %s: %d regions\n", run.ID, run.Mode, run.Reference, run.Comparison, run.Regions)
				for _, d := range dets {
					fmt.Fprintf(out, "  %d %s area=%d\n", d.Index, d.Box, d.Area)
				}
				return nil
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if root.jsonOut {
				return printJSON(out, runs)
			}
			for _, run := range runs {
				fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%d\t%s\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"), run.Mode, run.Reference, run.Regions, run.OutputDir)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list (0 for all)")
	return cmd
}

func newObjectsCmd(root *Root) *cobra.Command {
	var minSize int

	cmd := &cobra.Command{
		Use:   "objects <csv>",
		Short: "Print the boxes in an objects.csv file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boxes, err := report.LoadObjects(args[0])
			if err != nil {
				return err
			}
			boxes = detection.FilterMinSize(boxes, minSize)
			if root.jsonOut {
				return printJSON(cmd.OutOrStdout(), boxes)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d objects\n", len(boxes))
			printBoxes(cmd.OutOrStdout(), boxes)
			return nil
		},
	}

	cmd.Flags().IntVar(&minSize, "min", 0, "only boxes wider and taller than this")
	return cmd
}

func newConfigCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ResolvePath(root.cfgPath)
			if len(args) == 1 {
				path = args[0]
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *root.cfg
			if c.NASA.APIKey != "" {
				c.NASA.APIKey = "REDACTED"
			}
			data, err := yaml.Marshal(&c)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func newVersionCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("astro-tools %s\n", root.version)
			if root.built != "" {
				cmd.Printf("  Build time: %s\n  Git commit: %s\n", root.built, root.commit)
			}
		},
	}
}

func printBoxes(w io.Writer, boxes []detection.BoundingBox) {
	for i, b := range boxes {
		fmt.Fprintf(w, "  %3d %s\n", i+1, b)
	}
}

func printMotion(w io.Writer, run *pipeline.MotionRun) {
	res := run.Result
	fmt.Fprintf(w, "%s -> %s: %dx%d, %d regions (%d shown), backend %s\n",
		run.Reference, run.Comparison, res.Width, res.Height, len(run.Recorded), len(run.Displayed), res.Backend)
	if res.Shift != nil {
		fmt.Fprintf(w, "  aligned by (%d,%d)\n", res.Shift.DX, res.Shift.DY)
	}
	printBoxes(w, run.Displayed)
	fmt.Fprintf(w, "diff:      %s\nobjects:   %s\nannotated: %s\nmontage:   %s\n",
		run.DiffPath, run.ObjectsPath, run.AnnotatedPath, run.MontagePath)
}
