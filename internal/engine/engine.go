package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/anim2lvgl/internal/codec"
	"github.com/ivlev/anim2lvgl/internal/config"
	"github.com/ivlev/anim2lvgl/internal/document"
	"github.com/ivlev/anim2lvgl/internal/export"
	"github.com/ivlev/anim2lvgl/internal/logging"
	"github.com/ivlev/anim2lvgl/internal/preview"
	"github.com/ivlev/anim2lvgl/internal/project"
	"github.com/ivlev/anim2lvgl/internal/system"
	"github.com/ivlev/anim2lvgl/internal/timeline"
)

var (
	// ErrIO marks failures to stage or commit artifacts on disk.
	ErrIO = errors.New("artifact io")
	// ErrNameClash reports two batch inputs that would write the same
	// artifacts.
	ErrNameClash = errors.New("artifact name clash")
)

// Project runs the export pipeline for one configuration.
type Project struct {
	Config *config.Config
}

func NewProject(cfg *config.Config) *Project {
	return &Project{Config: cfg}
}

// Result describes one exported animation.
type Result struct {
	Name      string   `yaml:"name"`
	Source    string   `yaml:"source,omitempty"`
	State     string   `yaml:"state"`
	Width     int      `yaml:"width"`
	Height    int      `yaml:"height"`
	FPS       int      `yaml:"fps"`
	Baked     bool     `yaml:"baked"`
	Keyframes int      `yaml:"keyframes"`
	Frames    int      `yaml:"frames"`
	Duration  int      `yaml:"duration_ms"`
	Formats   []string `yaml:"formats"`
	Files     []string `yaml:"files"`
	Previews  []string `yaml:"previews,omitempty"`
	Warnings  []string `yaml:"warnings,omitempty"`
	Period    int      `yaml:"period_ms,omitempty"`
	Installed bool     `yaml:"installed"`
	Elapsed   float64  `yaml:"-"`
}

// Run exports Config.InputPath.
func (p *Project) Run() (*Result, error) {
	startTime := time.Now()

	doc, err := document.ParseFile(p.Config.InputPath, p.Config.Defaults)
	if err != nil {
		return nil, err
	}
	return p.run(doc, startTime)
}

func (p *Project) run(doc *document.Document, startTime time.Time) (*Result, error) {
	fmt.Printf("[*] Источник: %s | Холст: %dx%d @ %d FPS | Состояний: %d\n",
		p.Config.InputPath, doc.Width, doc.Height, doc.FPS, len(doc.States))
	for _, w := range doc.Warnings {
		log.Printf("[!] %v", w)
	}

	res, err := p.Export(doc)
	if err != nil {
		return nil, err
	}
	res.Source = p.Config.InputPath
	res.Elapsed = time.Since(startTime).Seconds()

	if p.Config.ShowStats {
		p.report(res)
	}
	return res, nil
}

// Export runs every stage after parsing: state selection, optional bake,
// encoding into a staging directory, commit, project registration and
// previews. Nothing is written to the output directory unless every
// artifact encoded.
func (p *Project) Export(doc *document.Document) (*Result, error) {
	cfg := p.Config

	st, err := p.selectState(doc)
	if err != nil {
		return nil, err
	}

	name := cfg.Name
	if name == "" {
		name = doc.Name
	}
	name = document.SanitizeName(name)

	fps := doc.FPS
	if cfg.FPS > 0 {
		fps = cfg.Defaults.ClampFPS(cfg.FPS)
	}

	res := &Result{
		Name:      name,
		State:     st.ID,
		Width:     doc.Width,
		Height:    doc.Height,
		FPS:       fps,
		Keyframes: len(st.Frames),
		Formats:   cfg.Formats,
	}
	for _, w := range doc.Warnings {
		res.Warnings = append(res.Warnings, w.Error())
	}

	frames := st.Frames
	if cfg.Bake {
		frames = timeline.NewBaker(cfg.Defaults).Bake(frames, doc.Width, doc.Height, fps)
		res.Baked = true
		fmt.Printf("[*] %s: %d ключевых кадров -> %d кадров @ %d FPS\n", name, len(st.Frames), len(frames), fps)
	}
	res.Frames = len(frames)
	res.Duration = document.TotalDuration(frames)

	order, err := codec.ParseByteOrder(cfg.ByteOrder)
	if err != nil {
		return nil, err
	}
	job := &export.Job{
		Name:     name,
		Width:    doc.Width,
		Height:   doc.Height,
		Frames:   frames,
		Defaults: cfg.Defaults,
		Pixel:    codec.PixelFormat{Order: order, Alpha: cfg.LegacyAlpha, AlphaValue: cfg.Defaults.Alpha},
	}

	var proj *project.Project
	outDir := cfg.OutputDir
	if cfg.ProjectDir != "" {
		proj = project.New(cfg.ProjectDir)
		if err := proj.Check(); err != nil {
			return nil, err
		}
		outDir = proj.AnimationsDir()
	}

	stage, err := newStage(outDir)
	if err != nil {
		return nil, err
	}
	defer stage.cleanup()

	kind := export.KindNone
	for _, format := range cfg.Formats {
		exp, err := export.New(format)
		if err != nil {
			return nil, err
		}
		files, err := exp.Export(job, stage)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		res.Files = append(res.Files, files...)
		if exp.Kind() != export.KindNone {
			kind = exp.Kind()
		}
	}

	if cfg.Manifest {
		manifest := name + ".manifest.yaml"
		if err := writeManifest(stage, manifest, res); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, manifest)
	}

	if err := stage.commit(); err != nil {
		return nil, err
	}
	fmt.Printf("[*] %s: записано %d файлов в %s\n", name, len(res.Files), outDir)

	if proj != nil && cfg.Register {
		// baked bitmaps play back at the bake rate
		if cfg.Bake && kind == export.KindBitmap {
			res.Period = int(math.Round(1000 / float64(fps)))
		}
		if err := proj.Install(name, kind, res.Period); err != nil {
			return res, fmt.Errorf("регистрация %s: %w", name, err)
		}
		res.Installed = kind != export.KindNone
		if res.Installed {
			fmt.Printf("[*] %s зарегистрирована в %s\n", name, cfg.ProjectDir)
		}
	}

	if cfg.Preview != "" || cfg.ContactSheet {
		previewDir := filepath.Join(cfg.OutputDir, "preview")
		if err := os.MkdirAll(previewDir, 0755); err != nil {
			return res, fmt.Errorf("%w: %v", ErrIO, err)
		}
		opts := preview.Options{Format: cfg.Preview, Scale: cfg.PreviewScale, Sheet: cfg.ContactSheet}
		res.Previews, err = preview.Render(job, opts, dirSink(previewDir))
		if err != nil {
			// previews are advisory, the artifacts are already committed
			log.Printf("[!] Превью %s не записаны: %v", name, err)
		}
	}

	return res, nil
}

func (p *Project) selectState(doc *document.Document) (*document.State, error) {
	if p.Config.StateID == "" {
		return doc.ActiveState()
	}
	st, err := doc.State(p.Config.StateID)
	if err != nil {
		return nil, err
	}
	if len(st.Frames) == 0 {
		return nil, &document.LocationError{Doc: doc.Name, State: st.ID, Frame: -1, Shape: -1, Err: document.ErrMalformedInput, Detail: "state has no frames"}
	}
	return st, nil
}

func writeManifest(sink export.Sink, name string, res *Result) error {
	w, err := sink.Create(name)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		w.Close()
		return fmt.Errorf("manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		w.Close()
		return fmt.Errorf("manifest: %w", err)
	}
	return w.Close()
}

func (p *Project) report(res *Result) {
	stats, err := system.ReadMemoryStats()
	if err != nil {
		logging.Logger().Debug("memory stats unavailable", "error", err)
	}
	fps := 0.0
	if res.Elapsed > 0 {
		fps = float64(res.Frames) / res.Elapsed
	}

	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Animation: %s (%dx%d)\n"+
			"Frames: %d (keyframes: %d)\n"+
			"Total Time: %.3fs\n"+
			"Effective FPS: %.2f\n"+
			"RSS: %s | CPU: %.1f%%\n"+
			"Host Memory: %s (%.1f%% used)\n"+
			"----------------------------\n",
		p.Config.BuildVersion, res.Name, res.Width, res.Height, res.Frames, res.Keyframes,
		res.Elapsed, fps, system.FormatBytes(stats.RSS), stats.CPUPercent,
		system.FormatBytes(stats.HostTotal), stats.HostUsedPerc,
	)
	fmt.Print(report)

	logEntry := fmt.Sprintf("[%s] Build: %s | Input: %s | Frames: %d | Total: %.3fs | FPS: %.2f | RSS: %s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(res.Source),
		res.Frames,
		res.Elapsed,
		fps,
		system.FormatBytes(stats.RSS),
	)

	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}

// RunBatch exports every input with at most Config.Workers documents in
// flight. All inputs are parsed and named before any worker starts, so a
// malformed document or a name clash writes nothing. The first failure
// cancels documents that have not started yet.
func RunBatch(ctx context.Context, cfg *config.Config, inputs []string) ([]*Result, error) {
	docs := make([]*document.Document, len(inputs))
	for i, in := range inputs {
		doc, err := document.ParseFile(in, cfg.Defaults)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(in), err)
		}
		docs[i] = doc
	}
	names, err := batchNames(inputs, docs)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := *cfg
			c.InputPath = in
			c.Name = names[i]
			res, err := NewProject(&c).run(docs[i], time.Now())
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(in), err)
			}
			results[i] = res
			fmt.Printf("[>] Ready: %d/%d %s\n", i+1, len(inputs), res.Name)
			return nil
		})
	}
	err = g.Wait()
	return results, err
}

// batchNames picks the artifact name for every input: the document name,
// or the file name for documents that share one.
func batchNames(inputs []string, docs []*document.Document) ([]string, error) {
	names := make([]string, len(inputs))
	count := make(map[string]int, len(inputs))
	for i, doc := range docs {
		names[i] = document.SanitizeName(doc.Name)
		count[names[i]]++
	}

	for i, in := range inputs {
		if count[names[i]] < 2 {
			continue
		}
		base := document.SanitizeName(strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)))
		log.Printf("[!] %s: имя %q встречается несколько раз, используется %q", filepath.Base(in), names[i], base)
		names[i] = base
	}

	owner := make(map[string]string, len(inputs))
	for i, n := range names {
		if prev, ok := owner[n]; ok {
			return nil, fmt.Errorf("%w: %s и %s записывают %s", ErrNameClash, prev, filepath.Base(inputs[i]), n)
		}
		owner[n] = filepath.Base(inputs[i])
	}
	return names, nil
}
