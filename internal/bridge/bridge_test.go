package bridge

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/anim2lvgl/internal/config"
)

const cmakeFixture = `idf_component_register(SRCS "ui.c" "anim_registry.c"
                    INCLUDE_DIRS "."
                    REQUIRES lvgl)
`

const registryFixture = `// Include your animation headers here

void register_all_animations(void) {
}
`

const blinkDoc = `{"name": "blink_anim", "width": 8, "height": 8, "frames": [
  {"duration": 100, "shapes": [{"id": "e", "type": "ellipse", "x": 1, "y": 1, "width": 6, "height": 6}]}
]}`

func newServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "CMakeLists.txt"), []byte(cmakeFixture), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "anim_registry.c"), []byte(registryFixture), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.ProjectDir = dir
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return New(&cfg), dir
}

func post(s *Server, path, body string) (*httptest.ResponseRecorder, response) {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	var resp response
	json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestSaveAndDelete(t *testing.T) {
	s, dir := newServer(t)

	rec, resp := post(s, "/save-anim", blinkDoc)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status %d: %s", rec.Code, rec.Body.String())
	}
	if resp.Status != "success" || resp.Message != "Saved blink_anim to project!" {
		t.Errorf("unexpected response %+v", resp)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
	if _, err := os.Stat(filepath.Join(dir, "animations", "blink_anim.c")); err != nil {
		t.Errorf("artifact not written: %v", err)
	}
	registry, _ := os.ReadFile(filepath.Join(dir, "anim_registry.c"))
	if !strings.Contains(string(registry), "anim_manager_register_vector(&blink_anim_data);") {
		t.Error("animation not registered")
	}

	rec, resp = post(s, "/delete-anim", `{"name": "blink_anim"}`)
	if rec.Code != http.StatusOK || resp.Message != "Deleted blink_anim from project!" {
		t.Fatalf("delete: %d %+v", rec.Code, resp)
	}
	if _, err := os.Stat(filepath.Join(dir, "animations", "blink_anim.c")); !os.IsNotExist(err) {
		t.Error("artifact still present after delete")
	}
	registry, _ = os.ReadFile(filepath.Join(dir, "anim_registry.c"))
	if strings.Contains(string(registry), "blink_anim") {
		t.Errorf("registry still mentions animation:\n%s", registry)
	}
}

func TestSaveDefaultName(t *testing.T) {
	s, _ := newServer(t)
	_, resp := post(s, "/save-anim", `{"width": 4, "height": 4, "frames": [{"duration": 50, "shapes": []}]}`)
	if resp.Name != "my_anim" {
		t.Errorf("name = %q, want my_anim", resp.Name)
	}
}

func TestErrors(t *testing.T) {
	s, _ := newServer(t)

	tests := []struct {
		path string
		body string
		code int
	}{
		{"/save-anim", "{not json", http.StatusInternalServerError},
		{"/delete-anim", `{}`, http.StatusBadRequest},
		{"/delete-anim", `nope`, http.StatusInternalServerError},
		{"/other", `{}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		rec, _ := post(s, tt.path, tt.body)
		if rec.Code != tt.code {
			t.Errorf("%s %q: status %d, want %d", tt.path, tt.body, rec.Code, tt.code)
		}
	}
}

func TestOptions(t *testing.T) {
	s, _ := newServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/save-anim", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status %d", rec.Code)
	}
	h := rec.Header()
	if h.Get("Access-Control-Allow-Methods") != "POST, OPTIONS" || h.Get("Access-Control-Allow-Headers") != "Content-Type" {
		t.Errorf("unexpected CORS headers %v", h)
	}
}

func TestPairingQR(t *testing.T) {
	data, err := PairingQR("http://192.168.1.10:8000", 128)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 128 {
		t.Errorf("width %d", img.Bounds().Dx())
	}

	path := filepath.Join(t.TempDir(), "pair.png")
	if err := WritePairingQR(path, "http://localhost:8000", 64); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error(err)
	}
}

func TestLANURL(t *testing.T) {
	u := LANURL(DefaultPort)
	if !strings.HasPrefix(u, "http://") || !strings.HasSuffix(u, ":8000") {
		t.Errorf("unexpected url %q", u)
	}
}
