// Package bridge accepts documents from the browser studio over HTTP and
// exports them straight into the firmware project.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/ivlev/anim2lvgl/internal/config"
	"github.com/ivlev/anim2lvgl/internal/document"
	"github.com/ivlev/anim2lvgl/internal/engine"
	"github.com/ivlev/anim2lvgl/internal/logging"
	"github.com/ivlev/anim2lvgl/internal/project"
)

const (
	DefaultPort  = 8000
	fallbackName = "my_anim"
	maxBodySize  = 32 << 20
)

// Server handles /save-anim and /delete-anim. Requests are served one at
// a time since every save patches the same project files.
type Server struct {
	Config *config.Config

	mu  sync.Mutex
	mux *http.ServeMux
}

func New(cfg *config.Config) *Server {
	s := &Server{Config: cfg, mux: http.NewServeMux()}
	s.mux.HandleFunc("/save-anim", s.handleSave)
	s.mux.HandleFunc("/delete-anim", s.handleDelete)
	return s
}

type response struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Name    string   `json:"name,omitempty"`
	Files   []string `json:"files,omitempty"`
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := *s.Config
	doc, err := document.Parse(data, fallbackName, cfg.Defaults)
	if err != nil {
		log.Printf("[!] Ошибка разбора: %v", err)
		writeJSON(w, http.StatusInternalServerError, response{Status: "error", Message: err.Error()})
		return
	}
	fmt.Printf("[*] Получена анимация: %s\n", doc.Name)

	cfg.Name = ""
	cfg.Register = cfg.ProjectDir != ""
	res, err := engine.NewProject(&cfg).Export(doc)
	if err != nil {
		log.Printf("[!] Ошибка экспорта %s: %v", doc.Name, err)
		writeJSON(w, http.StatusInternalServerError, response{Status: "error", Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: fmt.Sprintf("Saved %s to project!", res.Name),
		Name:    res.Name,
		Files:   res.Files,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusInternalServerError, response{Status: "error", Message: err.Error()})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: "No animation name provided"})
		return
	}
	if s.Config.ProjectDir == "" {
		writeJSON(w, http.StatusInternalServerError, response{Status: "error", Message: "project directory not configured"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Printf("[*] Удаление: %s\n", req.Name)
	rep, err := project.New(s.Config.ProjectDir).Remove(req.Name)
	if err != nil {
		log.Printf("[!] Ошибка удаления %s: %v", req.Name, err)
		writeJSON(w, http.StatusInternalServerError, response{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: fmt.Sprintf("Deleted %s from project!", req.Name),
		Name:    req.Name,
		Files:   rep.Deleted,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger().Debug("response not written", "error", err)
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// LANURL returns the address a device on the local network can reach the
// bridge at, falling back to localhost.
func LANURL(port int) string {
	host := "localhost"
	if addrs, err := net.InterfaceAddrs(); err == nil {
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				host = ipnet.IP.String()
				break
			}
		}
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

// PairingQR renders url as a PNG QR code of size x size pixels.
func PairingQR(url string, size int) ([]byte, error) {
	return qrcode.Encode(url, qrcode.Medium, size)
}

// WritePairingQR saves the QR code for url to path.
func WritePairingQR(path, url string, size int) error {
	return qrcode.WriteFile(url, qrcode.Medium, size, path)
}
