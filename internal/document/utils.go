package document

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// SanitizeName turns a free-form animation name into a C identifier:
// lower case, every other character replaced by '_', never starting with
// a digit.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	s := b.String()
	if s == "" {
		return "anim"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "anim_" + s
	}
	return s
}

// DumpPath creates a timestamped path for a YAML dump inside dir.
func DumpPath(dir, name string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("%s_%s.yaml", name, timestamp))
}
