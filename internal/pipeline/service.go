package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/ironsheep/astro-tools-mcp/internal/catalog"
	"github.com/ironsheep/astro-tools-mcp/internal/detection"
	"github.com/ironsheep/astro-tools-mcp/internal/imaging"
	"github.com/ironsheep/astro-tools-mcp/internal/logging"
	"github.com/ironsheep/astro-tools-mcp/internal/report"
	"github.com/ironsheep/astro-tools-mcp/internal/source"
)

// Output file names.
const (
	DiffFile           = "detected_diff.png"
	ObjectsFile        = "objects.csv"
	AnnotatedFile      = "detected_objects.png"
	MotionMontageFile  = "motion_montage.png"
	FrameAnnotatedFile = "frame_annotated.png"
	FrameMontageFile   = "frame_montage.png"
)

// DefaultOutputDir is used when Options.OutputDir is empty.
const DefaultOutputDir = "data/processed"

// Options configures a Service.
type Options struct {
	Provider    source.Provider
	Detection   detection.Options
	Frame       detection.FrameOptions
	Policy      report.Policy
	Style       report.Style
	PanelHeight int
	OutputDir   string
	// Catalog is optional; runs are not recorded without it.
	Catalog *catalog.Store
	Logger  *slog.Logger
}

// Service executes pipeline runs. It is safe for concurrent use as long as
// concurrent runs write to different output directories.
type Service struct {
	provider    source.Provider
	detector    *detection.MotionDetector
	frame       detection.FrameOptions
	policy      report.Policy
	style       report.Style
	panelHeight int
	outDir      string
	catalog     *catalog.Store
	logger      *slog.Logger
}

// New validates opts and builds a Service.
func New(opts Options) (*Service, error) {
	if opts.Provider == nil {
		return nil, errors.New("pipeline: no image provider")
	}
	detector, err := detection.NewMotionDetector(opts.Detection)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if _, err := report.ParseColor(styleOrDefault(opts.Style).Color); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		provider:    opts.Provider,
		detector:    detector,
		frame:       opts.Frame,
		policy:      opts.Policy,
		style:       styleOrDefault(opts.Style),
		panelHeight: opts.PanelHeight,
		outDir:      opts.OutputDir,
		catalog:     opts.Catalog,
		logger:      opts.Logger,
	}, nil
}

func styleOrDefault(s report.Style) report.Style {
	if s.Color == "" {
		s.Color = report.DefaultBoxColor
	}
	if s.Thickness <= 0 {
		s.Thickness = report.DefaultThickness
	}
	return s
}

// OutputDir returns the directory results are written to.
func (s *Service) OutputDir() string {
	return s.outDir
}

// WithOutputDir returns a copy of the service writing to dir.
func (s *Service) WithOutputDir(dir string) *Service {
	c := *s
	c.outDir = dir
	return &c
}

// Detector returns the configured motion detector.
func (s *Service) Detector() *detection.MotionDetector {
	return s.detector
}

// SingleResult describes a single-frame run.
type SingleResult struct {
	RunID         int64                   `json:"run_id,omitempty"`
	Key           string                  `json:"key"`
	Width         int                     `json:"width"`
	Height        int                     `json:"height"`
	Boxes         []detection.BoundingBox `json:"boxes"`
	AnnotatedPath string                  `json:"annotated_path"`
	MontagePath   string                  `json:"montage_path"`

	Analysis *detection.FrameAnalysis `json:"-"`
}

// MotionRun describes a motion detection run.
type MotionRun struct {
	RunID      int64  `json:"run_id,omitempty"`
	Reference  string `json:"reference"`
	Comparison string `json:"comparison"`

	Result *detection.MotionResult `json:"result"`

	// Recorded are the boxes written to the CSV, Displayed those drawn.
	Recorded  []detection.BoundingBox `json:"recorded"`
	Displayed []detection.BoundingBox `json:"displayed"`

	DiffPath      string `json:"diff_path"`
	ObjectsPath   string `json:"objects_path"`
	AnnotatedPath string `json:"annotated_path"`
	MontagePath   string `json:"montage_path"`
}

// ProcessSingle fetches one frame, analyzes it and writes the annotated
// frame and the stage montage. Every region found is drawn.
func (s *Service) ProcessSingle(ctx context.Context, key source.Key) (*SingleResult, error) {
	start := time.Now()
	logging.LogRunStart(s.logger, "single", key.String())

	res, err := s.processSingle(ctx, key)
	if err != nil {
		logging.LogRunError(s.logger, "single", time.Since(start), err)
		return nil, err
	}
	logging.LogRunComplete(s.logger, "single", res.RunID, time.Since(start), len(res.Boxes))
	return res, nil
}

func (s *Service) processSingle(ctx context.Context, key source.Key) (*SingleResult, error) {
	img, err := s.provider.Fetch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch frame: %w", err)
	}
	gray, err := imaging.ToGray(img)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analysis, err := detection.AnalyzeFrame(gray, s.frame)
	if err != nil {
		return nil, fmt.Errorf("frame analysis failed: %w", err)
	}
	boxes := analysis.Boxes()

	annotated, err := report.Render(gray, boxes, s.style)
	if err != nil {
		return nil, err
	}
	panels := []report.Panel{{Title: "Original", Image: analysis.Original}}
	if analysis.Filtered != nil {
		panels = append(panels, report.Panel{Title: "Bilateral", Image: analysis.Filtered})
	}
	panels = append(panels,
		report.Panel{Title: "Normalized", Image: analysis.Normalized},
		report.Panel{Title: "Blurred", Image: analysis.Blurred},
		report.Panel{Title: "Edges", Image: analysis.Edges},
		report.Panel{Title: "Annotated", Image: annotated},
	)
	montage, err := report.Montage(panels, s.panelHeight)
	if err != nil {
		return nil, err
	}

	res := &SingleResult{
		Key:           key.String(),
		Width:         gray.Rect.Dx(),
		Height:        gray.Rect.Dy(),
		Boxes:         boxes,
		AnnotatedPath: filepath.Join(s.outDir, FrameAnnotatedFile),
		MontagePath:   filepath.Join(s.outDir, FrameMontageFile),
		Analysis:      analysis,
	}
	if err := imaging.SaveImage(annotated, res.AnnotatedPath); err != nil {
		return nil, err
	}
	if err := imaging.SaveImage(montage, res.MontagePath); err != nil {
		return nil, err
	}

	res.RunID, err = s.record(ctx, catalog.Run{
		Mode:      "single",
		Reference: res.Key,
		Width:     res.Width,
		Height:    res.Height,
		Displayed: len(boxes),
		OutputDir: s.outDir,
	}, analysis.Regions)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ProcessMotion fetches both frames concurrently, detects the changed
// regions and writes the cleaned mask, the object CSV (record policy), the
// annotated reference frame (display policy) and a montage.
func (s *Service) ProcessMotion(ctx context.Context, ref, cmp source.Key) (*MotionRun, error) {
	start := time.Now()
	logging.LogRunStart(s.logger, "motion", ref.String(), cmp.String())

	run, err := s.processMotion(ctx, ref, cmp)
	if err != nil {
		logging.LogRunError(s.logger, "motion", time.Since(start), err)
		return nil, err
	}
	logging.LogRunComplete(s.logger, "motion", run.RunID, time.Since(start), len(run.Result.Regions))
	return run, nil
}

func (s *Service) processMotion(ctx context.Context, refKey, cmpKey source.Key) (*MotionRun, error) {
	refImg, cmpImg, err := source.FetchPair(ctx, s.provider, refKey, cmpKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch frames: %w", err)
	}
	ref, err := imaging.ToGray(refImg)
	if err != nil {
		return nil, fmt.Errorf("reference frame: %w", err)
	}
	cmp, err := imaging.ToGray(cmpImg)
	if err != nil {
		return nil, fmt.Errorf("comparison frame: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.detectAndWrite(ctx, refKey.String(), cmpKey.String(), ref, cmp)
}

// DetectFrames runs motion detection on frames already in memory.
func (s *Service) DetectFrames(ctx context.Context, refName, cmpName string, ref, cmp *image.Gray) (*MotionRun, error) {
	start := time.Now()
	logging.LogRunStart(s.logger, "motion", refName, cmpName)

	run, err := s.detectAndWrite(ctx, refName, cmpName, ref, cmp)
	if err != nil {
		logging.LogRunError(s.logger, "motion", time.Since(start), err)
		return nil, err
	}
	logging.LogRunComplete(s.logger, "motion", run.RunID, time.Since(start), len(run.Result.Regions))
	return run, nil
}

func (s *Service) detectAndWrite(ctx context.Context, refName, cmpName string, ref, cmp *image.Gray) (*MotionRun, error) {
	result, err := s.detector.Detect(ref, cmp)
	if err != nil {
		return nil, fmt.Errorf("motion detection failed: %w", err)
	}
	boxes := result.Boxes()

	run := &MotionRun{
		Reference:     refName,
		Comparison:    cmpName,
		Result:        result,
		Recorded:      s.policy.Record(boxes),
		Displayed:     s.policy.Display(boxes),
		DiffPath:      filepath.Join(s.outDir, DiffFile),
		ObjectsPath:   filepath.Join(s.outDir, ObjectsFile),
		AnnotatedPath: filepath.Join(s.outDir, AnnotatedFile),
		MontagePath:   filepath.Join(s.outDir, MotionMontageFile),
	}

	if err := imaging.SaveImage(result.Mask, run.DiffPath); err != nil {
		return nil, err
	}
	if err := report.SaveObjects(run.ObjectsPath, run.Recorded); err != nil {
		return nil, err
	}
	annotated, err := report.Render(ref, run.Displayed, s.style)
	if err != nil {
		return nil, err
	}
	if err := imaging.SaveImage(annotated, run.AnnotatedPath); err != nil {
		return nil, err
	}
	montage, err := report.Montage([]report.Panel{
		{Title: "Reference", Image: ref},
		{Title: "Comparison", Image: cmp},
		{Title: "Difference", Image: result.Difference},
		{Title: "Mask", Image: result.Mask},
		{Title: "Detected", Image: annotated},
	}, s.panelHeight)
	if err != nil {
		return nil, err
	}
	if err := imaging.SaveImage(montage, run.MontagePath); err != nil {
		return nil, err
	}

	run.RunID, err = s.record(ctx, catalog.Run{
		Mode:       "motion",
		Reference:  refName,
		Comparison: cmpName,
		Backend:    result.Backend,
		Threshold:  s.detector.Options().Threshold,
		Width:      result.Width,
		Height:     result.Height,
		Displayed:  len(run.Displayed),
		MeanDiff:   result.Stats.Mean,
		OutputDir:  s.outDir,
	}, recordedRegions(result.Regions, s.policy.RecordMinBox))
	if err != nil {
		return nil, err
	}
	return run, nil
}

// recordedRegions keeps the regions whose box passes the record minimum.
func recordedRegions(regions []detection.Region, min int) []detection.Region {
	out := make([]detection.Region, 0, len(regions))
	for _, r := range regions {
		if r.Box.Exceeds(min) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Service) record(ctx context.Context, run catalog.Run, regions []detection.Region) (int64, error) {
	if s.catalog == nil {
		return 0, nil
	}
	id, err := s.catalog.RecordRun(ctx, run, regions)
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}
