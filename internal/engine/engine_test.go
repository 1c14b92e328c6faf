package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/anim2lvgl/internal/codec"
	"github.com/ivlev/anim2lvgl/internal/config"
	"github.com/ivlev/anim2lvgl/internal/document"
)

const slideDoc = `{
  "name": "Slide",
  "width": 20,
  "height": 10,
  "fps": 10,
  "states": [{"id": "idle", "frames": [
    {"duration": 500, "shapes": [{"id": "a", "type": "rect", "x": 0, "y": 0, "width": 4, "height": 4, "color": "#ff0000"}]},
    {"duration": 500, "shapes": [{"id": "a", "type": "rect", "x": 10, "y": 0, "width": 4, "height": 4, "color": "#ff0000"}]}
  ]}]
}`

const cmakeFixture = `idf_component_register(SRCS "ui.c" "anim_registry.c"
                    INCLUDE_DIRS "."
                    REQUIRES lvgl)
`

const registryFixture = `#include "anim_manager.h"
// Include your animation headers here

void register_all_animations(void) {
}
`

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Workers = 2
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return &cfg
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRunInstallsIntoProject(t *testing.T) {
	cfg := testConfig(t)
	projDir := t.TempDir()
	writeInput(t, projDir, "CMakeLists.txt", cmakeFixture)
	writeInput(t, projDir, "anim_registry.c", registryFixture)

	cfg.InputPath = writeInput(t, t.TempDir(), "slide.json", slideDoc)
	cfg.Formats = []string{config.FormatVector, config.FormatRBAT}
	cfg.Bake = true
	cfg.Manifest = true
	cfg.ProjectDir = projDir
	cfg.Register = true

	res, err := NewProject(cfg).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Name != "slide" || res.Frames != 10 || res.Keyframes != 2 || !res.Installed {
		t.Errorf("unexpected result: %+v", res)
	}

	animDir := filepath.Join(projDir, "animations")
	for _, f := range []string{"slide.c", "slide.h", "slide.rbat", "slide.manifest.yaml"} {
		if _, err := os.Stat(filepath.Join(animDir, f)); err != nil {
			t.Errorf("missing artifact %s: %v", f, err)
		}
	}

	entries, _ := os.ReadDir(animDir)
	for _, e := range entries {
		if e.IsDir() {
			t.Errorf("staging directory left behind: %s", e.Name())
		}
	}

	if !strings.Contains(readFile(t, filepath.Join(projDir, "CMakeLists.txt")), `"animations/slide.c"`) {
		t.Error("source not added to CMakeLists.txt")
	}
	if !strings.Contains(readFile(t, filepath.Join(projDir, "anim_registry.c")), "anim_manager_register_vector(&slide_data);") {
		t.Error("vector registration missing")
	}

	data, err := os.ReadFile(filepath.Join(animDir, "slide.rbat"))
	if err != nil {
		t.Fatal(err)
	}
	c, err := codec.DecodeRBAT(data)
	if err != nil {
		t.Fatalf("DecodeRBAT failed: %v", err)
	}
	if len(c.Frames) != 10 || c.Width != 20 || c.Height != 10 {
		t.Errorf("unexpected container %dx%d with %d frames", c.Width, c.Height, len(c.Frames))
	}
	if x := c.Frames[2].Shapes[0].X; x < 3.99 || x > 4.01 {
		t.Errorf("frame 2 x = %v, want 4", x)
	}

	var manifest Result
	if err := yaml.Unmarshal([]byte(readFile(t, filepath.Join(animDir, "slide.manifest.yaml"))), &manifest); err != nil {
		t.Fatal(err)
	}
	if manifest.Frames != 10 || manifest.Duration != 1000 || !manifest.Baked {
		t.Errorf("unexpected manifest: %+v", manifest)
	}
}

func TestExportFailureWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Formats = []string{config.FormatBitmap}

	var frames []string
	for i := 0; i <= codec.MaxBitmapFrames; i++ {
		frames = append(frames, `{"duration": 10, "shapes": []}`)
	}
	doc := fmt.Sprintf(`{"width": 2, "height": 2, "frames": [%s]}`, strings.Join(frames, ","))
	cfg.InputPath = writeInput(t, t.TempDir(), "long.json", doc)

	_, err := NewProject(cfg).Run()
	if !errors.Is(err, codec.ErrRange) {
		t.Fatalf("expected ErrRange, got %v", err)
	}

	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("output directory should be empty, has %d entries", len(entries))
	}
}

func TestRunBitmapWithPreviews(t *testing.T) {
	cfg := testConfig(t)
	cfg.InputPath = writeInput(t, t.TempDir(), "slide.json", slideDoc)
	cfg.Formats = []string{config.FormatBitmap}
	cfg.Name = "My Slide"
	cfg.Preview = "png"
	cfg.ContactSheet = true

	res, err := NewProject(cfg).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Name != "my_slide" {
		t.Errorf("name = %q", res.Name)
	}

	src := readFile(t, filepath.Join(cfg.OutputDir, "my_slide.c"))
	if !strings.Contains(src, "const uint8_t my_slide_frame_count = 2;") {
		t.Error("frame count missing from bitmap source")
	}
	for _, f := range []string{"my_slide_f000.png", "my_slide_f001.png", "my_slide_sheet.png"} {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, "preview", f)); err != nil {
			t.Errorf("missing preview %s", f)
		}
	}
}

func TestRunUnknownState(t *testing.T) {
	cfg := testConfig(t)
	cfg.InputPath = writeInput(t, t.TempDir(), "slide.json", slideDoc)
	cfg.StateID = "run"

	_, err := NewProject(cfg).Run()
	if !errors.Is(err, document.ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput, got %v", err)
	}
}

func TestRunBatch(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	inputs := []string{
		writeInput(t, dir, "one.json", slideDoc),
		writeInput(t, dir, "two.json", strings.Replace(slideDoc, `"Slide"`, `"Second"`, 1)),
	}

	results, err := RunBatch(context.Background(), cfg, inputs)
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if len(results) != 2 || results[0].Name != "slide" || results[1].Name != "second" {
		t.Fatalf("unexpected results: %+v", results)
	}
	for _, name := range []string{"slide.c", "second.c"} {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, name)); err != nil {
			t.Errorf("missing %s", name)
		}
	}
}

func newProjectDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeInput(t, dir, "CMakeLists.txt", cmakeFixture)
	writeInput(t, dir, "anim_registry.c", registryFixture)
	return dir
}

func TestRunBatchIntoProject(t *testing.T) {
	cfg := testConfig(t)
	cfg.ProjectDir = newProjectDir(t)
	cfg.Register = true
	cfg.Workers = 8

	dir := t.TempDir()
	var inputs []string
	for i := 0; i < 8; i++ {
		doc := strings.Replace(slideDoc, `"Slide"`, fmt.Sprintf(`"slide%d"`, i), 1)
		inputs = append(inputs, writeInput(t, dir, fmt.Sprintf("a%d.json", i), doc))
	}

	if _, err := RunBatch(context.Background(), cfg, inputs); err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}

	cmake := readFile(t, filepath.Join(cfg.ProjectDir, "CMakeLists.txt"))
	registry := readFile(t, filepath.Join(cfg.ProjectDir, "anim_registry.c"))
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("slide%d", i)
		if !strings.Contains(cmake, `"animations/`+name+`.c"`) {
			t.Errorf("%s missing from CMakeLists.txt", name)
		}
		if !strings.Contains(registry, "anim_manager_register_vector(&"+name+"_data);") {
			t.Errorf("%s missing from registry", name)
		}
	}
}

func TestRunBatchSharedDocumentName(t *testing.T) {
	cfg := testConfig(t)
	cfg.ProjectDir = newProjectDir(t)
	cfg.Register = true

	dir := t.TempDir()
	inputs := []string{
		writeInput(t, dir, "left.json", slideDoc),
		writeInput(t, dir, "right.json", slideDoc),
	}
	results, err := RunBatch(context.Background(), cfg, inputs)
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if results[0].Name != "left" || results[1].Name != "right" {
		t.Errorf("names = %q, %q, want left, right", results[0].Name, results[1].Name)
	}

	cmake := readFile(t, filepath.Join(cfg.ProjectDir, "CMakeLists.txt"))
	for _, name := range []string{"left", "right"} {
		if !strings.Contains(cmake, `"animations/`+name+`.c"`) {
			t.Errorf("%s missing from CMakeLists.txt", name)
		}
	}
}

func TestRunBatchNameClash(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	inputs := []string{
		writeInput(t, dir, "a.json", slideDoc),
		writeInput(t, dir, "b.json", slideDoc),
		writeInput(t, dir, "c.json", strings.Replace(slideDoc, `"Slide"`, `"a"`, 1)),
	}

	_, err := RunBatch(context.Background(), cfg, inputs)
	if !errors.Is(err, ErrNameClash) {
		t.Fatalf("expected ErrNameClash, got %v", err)
	}
	if entries, _ := os.ReadDir(cfg.OutputDir); len(entries) != 0 {
		t.Errorf("nothing should be written on a clash, found %d entries", len(entries))
	}
}

func TestRunBakedBitmapPeriod(t *testing.T) {
	cfg := testConfig(t)
	cfg.ProjectDir = newProjectDir(t)
	cfg.Register = true
	cfg.Formats = []string{config.FormatBitmap}
	cfg.Bake = true
	cfg.InputPath = writeInput(t, t.TempDir(), "slide.json", slideDoc)

	res, err := NewProject(cfg).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Period != 100 {
		t.Errorf("period = %d, want 100", res.Period)
	}
	registry := readFile(t, filepath.Join(cfg.ProjectDir, "anim_registry.c"))
	if !strings.Contains(registry, `anim_manager_register("slide", slide_frames, slide_frame_count, 100);`) {
		t.Errorf("registration should use the bake period:\n%s", registry)
	}
}
