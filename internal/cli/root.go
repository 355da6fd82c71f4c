// Package cli implements the astro-tools command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/ironsheep/astro-tools-mcp/internal/catalog"
	"github.com/ironsheep/astro-tools-mcp/internal/config"
	"github.com/ironsheep/astro-tools-mcp/internal/detection"
	"github.com/ironsheep/astro-tools-mcp/internal/imaging"
	"github.com/ironsheep/astro-tools-mcp/internal/logging"
	"github.com/ironsheep/astro-tools-mcp/internal/pipeline"
	"github.com/ironsheep/astro-tools-mcp/internal/source"
)

// Root carries the state shared by all commands.
type Root struct {
	cfg     *config.Config
	log     *slog.Logger
	version string
	built   string
	commit  string
	out     io.Writer

	cfgPath  string
	jsonOut  bool
	cache    *imaging.ImageCache
	provider source.Provider
}

// NewRoot creates the command state. cfg and log may be nil, in which case
// they are loaded from --config / the environment when a command runs.
func NewRoot(cfg *config.Config, log *slog.Logger, version string) *Root {
	if version == "" {
		version = "dev"
	}
	return &Root{
		cfg:     cfg,
		log:     log,
		version: version,
		out:     os.Stdout,
		cache:   imaging.NewImageCache(),
	}
}

// WithBuild records build metadata for the version command.
func (r *Root) WithBuild(built, commit string) *Root {
	r.built, r.commit = built, commit
	return r
}

// Run executes the command line args.
func (r *Root) Run(ctx context.Context, args []string) error {
	cmd := NewRootCmd(r)
	cmd.SetArgs(args)
	cmd.SetOut(r.out)
	return cmd.ExecuteContext(ctx)
}

// setup loads the configuration and logger unless they were injected.
func (r *Root) setup() error {
	if r.cfg == nil {
		cfg, err := config.Load(config.ResolvePath(r.cfgPath))
		if err != nil {
			return err
		}
		r.cfg = cfg
	}
	if r.log == nil {
		r.log = logging.Setup(r.cfg.Logging.Level, r.cfg.Logging.Format)
	}
	return nil
}

func (r *Root) httpClient() *http.Client {
	return &http.Client{Timeout: r.cfg.HTTP.Timeout}
}

func (r *Root) sdssProvider() *source.SDSSProvider {
	return &source.SDSSProvider{
		BaseURL: r.cfg.SDSS.BaseURL,
		Client:  r.httpClient(),
		RawDir:  r.cfg.RawDir(),
		Logger:  r.log,
	}
}

func (r *Root) apodProvider() *source.APODProvider {
	return &source.APODProvider{
		APIKey:  r.cfg.NASA.APIKey,
		BaseURL: r.cfg.NASA.BaseURL,
		Client:  r.httpClient(),
		RawDir:  r.cfg.NASADir(),
		Logger:  r.log,
	}
}

// frameProvider routes file keys to disk, dated keys to APOD and sky keys
// to SDSS.
func (r *Root) frameProvider() source.Provider {
	if r.provider != nil {
		return r.provider
	}
	return &source.Router{
		Sky:   r.sdssProvider(),
		APOD:  r.apodProvider(),
		Files: source.NewFileProvider(r.cache),
	}
}

// openCatalog returns nil when the catalog is disabled.
func (r *Root) openCatalog() (*catalog.Store, error) {
	if !r.cfg.Catalog.Enabled {
		return nil, nil
	}
	return catalog.Open(r.cfg.CatalogPath())
}

// newService builds a pipeline service with the given detection options.
func (r *Root) newService(opts detection.Options, store *catalog.Store) (*pipeline.Service, error) {
	return pipeline.New(pipeline.Options{
		Provider:    r.frameProvider(),
		Detection:   opts,
		Frame:       r.cfg.Frame,
		Policy:      r.cfg.Report.Policy,
		Style:       r.cfg.Report.Style,
		PanelHeight: r.cfg.Report.PanelHeight,
		OutputDir:   r.cfg.ProcessedDir(),
		Catalog:     store,
		Logger:      r.log,
	})
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
