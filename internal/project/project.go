// Package project patches the firmware project so exported animations are
// compiled and registered: the component CMakeLists.txt source list and
// the anim_registry.c include/registration block. Every patch is
// idempotent and Remove reverses both.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/ivlev/anim2lvgl/internal/export"
	"github.com/ivlev/anim2lvgl/internal/logging"
)

// ErrNoAnchor means the file lacks the marker a patch is inserted at.
var ErrNoAnchor = errors.New("insertion point not found")

const (
	cmakeFile    = "CMakeLists.txt"
	registryFile = "anim_registry.c"
	animDir      = "animations"

	includeAnchor  = `#include "animations/blink_anim.h"`
	includeMarker  = "// Include your animation headers here"
	registerAnchor = "void register_all_animations(void) {"

	// bitmap animations play at this frame period unless the firmware
	// overrides it
	defaultBitmapPeriod = 500
)

// Project is a firmware component directory holding CMakeLists.txt,
// anim_registry.c and the animations/ folder.
type Project struct {
	Dir string
}

func New(dir string) *Project {
	return &Project{Dir: dir}
}

// dirLocks holds one mutex per component directory. Batch workers each
// build their own Project, so the lock cannot live in the struct.
var dirLocks sync.Map

func (p *Project) lock() func() {
	key := filepath.Clean(p.Dir)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	mu, _ := dirLocks.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (p *Project) AnimationsDir() string { return filepath.Join(p.Dir, animDir) }
func (p *Project) CMakePath() string     { return filepath.Join(p.Dir, cmakeFile) }
func (p *Project) RegistryPath() string  { return filepath.Join(p.Dir, registryFile) }

// Check verifies the component directory exists.
func (p *Project) Check() error {
	info, err := os.Stat(p.Dir)
	if err != nil {
		return fmt.Errorf("project: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project: %s is not a directory", p.Dir)
	}
	return nil
}

// Install registers an exported animation with the build and the
// registry. Artifacts of KindNone are left alone. period is the bitmap
// frame period in ms; zero or less selects the firmware default.
func (p *Project) Install(name string, kind export.Kind, period int) error {
	if kind == export.KindNone {
		return nil
	}
	defer p.lock()()

	if _, err := AddToBuild(p.CMakePath(), name); err != nil {
		return err
	}
	_, err := Register(p.RegistryPath(), name, kind, period)
	return err
}

// ShortName is the name animations are played by: the identifier without
// its _anim suffix.
func ShortName(name string) string {
	return strings.ReplaceAll(name, "_anim", "")
}

func sourceEntry(name string) string {
	return fmt.Sprintf(`"%s/%s.c"`, animDir, name)
}

func includeLine(name string) string {
	return fmt.Sprintf(`#include "%s/%s.h"`, animDir, name)
}

func registerLine(name string, kind export.Kind, period int) string {
	if kind == export.KindVector {
		return fmt.Sprintf("    anim_manager_register_vector(&%s_data);", name)
	}
	if period <= 0 {
		period = defaultBitmapPeriod
	}
	return fmt.Sprintf(`    anim_manager_register("%s", %s_frames, %s_frame_count, %d);`,
		ShortName(name), name, name, period)
}

var srcsPattern = regexp.MustCompile(`(SRCS\s+[^)]+?)(\s+PRIV_REQUIRES|\s+REQUIRES|\s+INCLUDE_DIRS|\n)`)

// AddToBuild appends animations/NAME.c to the SRCS list of an ESP-IDF
// component CMakeLists.txt. It reports whether the file changed.
func AddToBuild(cmakePath, name string) (bool, error) {
	return patch(cmakePath, func(content string) (string, error) {
		entry := sourceEntry(name)
		if strings.Contains(content, entry) {
			return content, nil
		}
		m := srcsPattern.FindStringSubmatchIndex(content)
		if m == nil {
			return "", fmt.Errorf("project: %s: SRCS: %w", cmakePath, ErrNoAnchor)
		}
		return content[:m[3]] + " " + entry + content[m[3]:], nil
	})
}

// Register adds the header include and the registration call for name.
// A bitmap already registered with another period is re-registered.
func Register(registryPath, name string, kind export.Kind, period int) (bool, error) {
	return patch(registryPath, func(content string) (string, error) {
		inc := includeLine(name)
		if !strings.Contains(content, inc) {
			switch {
			case strings.Contains(content, includeAnchor):
				content = strings.Replace(content, includeAnchor, includeAnchor+"\n"+inc, 1)
			case strings.Contains(content, includeMarker):
				content = strings.Replace(content, includeMarker, includeMarker+"\n"+inc, 1)
			default:
				return "", fmt.Errorf("project: %s: include block: %w", registryPath, ErrNoAnchor)
			}
		}

		reg := registerLine(name, kind, period)
		if !strings.Contains(content, reg) {
			content = dropRegistration(content, name)
			if !strings.Contains(content, registerAnchor) {
				return "", fmt.Errorf("project: %s: %s: %w", registryPath, registerAnchor, ErrNoAnchor)
			}
			content = strings.Replace(content, registerAnchor, registerAnchor+"\n"+reg, 1)
		}
		return content, nil
	})
}

// RemoveReport lists what Remove changed.
type RemoveReport struct {
	Deleted         []string
	CMakeCleaned    bool
	RegistryCleaned bool
}

// Remove deletes the artifacts of name and reverses AddToBuild and
// Register. Missing files are not an error.
func (p *Project) Remove(name string) (*RemoveReport, error) {
	defer p.lock()()

	rep := &RemoveReport{}
	for _, ext := range []string{".c", ".h", ".rbat"} {
		path := filepath.Join(p.AnimationsDir(), name+ext)
		err := os.Remove(path)
		switch {
		case err == nil:
			rep.Deleted = append(rep.Deleted, path)
		case !errors.Is(err, os.ErrNotExist):
			return rep, fmt.Errorf("project: %w", err)
		}
	}

	var err error
	rep.CMakeCleaned, err = unbuild(p.CMakePath(), name)
	if err != nil {
		return rep, err
	}
	rep.RegistryCleaned, err = unregister(p.RegistryPath(), name)
	return rep, err
}

func unbuild(cmakePath, name string) (bool, error) {
	re := regexp.MustCompile(`\s*` + regexp.QuoteMeta(sourceEntry(name)))
	return patchIfExists(cmakePath, func(content string) (string, error) {
		return re.ReplaceAllString(content, ""), nil
	})
}

func unregister(registryPath, name string) (bool, error) {
	return patchIfExists(registryPath, func(content string) (string, error) {
		return dropLines(content, append(registrationNeedles(name), includeLine(name))), nil
	})
}

func registrationNeedles(name string) []string {
	short := ShortName(name)
	return []string{
		fmt.Sprintf(`anim_manager_register("%s",`, short),
		fmt.Sprintf(`anim_manager_register("%s",`, name),
		fmt.Sprintf(`anim_manager_register_vector(&%s_data)`, name),
		fmt.Sprintf(`anim_manager_register_vector(&%s_data)`, short),
	}
}

// dropRegistration removes every registration call for name, keeping the
// include.
func dropRegistration(content, name string) string {
	return dropLines(content, registrationNeedles(name))
}

func dropLines(content string, needles []string) string {
	lines := strings.SplitAfter(content, "\n")
	kept := lines[:0]
next:
	for _, line := range lines {
		for _, n := range needles {
			if strings.Contains(line, n) {
				continue next
			}
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "")
}

// patch rewrites path through fn, keeping its permissions. The file is
// only written when fn changed it.
func patch(path string, fn func(string) (string, error)) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("project: %w", err)
	}
	out, err := fn(string(data))
	if err != nil {
		return false, err
	}
	if out == string(data) {
		logging.Logger().Debug("project file already up to date", "path", path)
		return false, nil
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(out), mode); err != nil {
		return false, fmt.Errorf("project: %w", err)
	}
	logging.Logger().Info("project file patched", "path", path, "delta", len(out)-len(data))
	return true, nil
}

func patchIfExists(path string, fn func(string) (string, error)) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return patch(path, fn)
}

// Animations lists the animation names present in the animations folder,
// one per .c file.
func (p *Project) Animations() ([]string, error) {
	entries, err := os.ReadDir(p.AnimationsDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("project: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".c" {
			names = append(names, strings.TrimSuffix(e.Name(), ".c"))
		}
	}
	return names, nil
}
