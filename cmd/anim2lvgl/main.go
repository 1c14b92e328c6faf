package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ivlev/anim2lvgl/internal/bridge"
	"github.com/ivlev/anim2lvgl/internal/config"
	"github.com/ivlev/anim2lvgl/internal/document"
	"github.com/ivlev/anim2lvgl/internal/engine"
	"github.com/ivlev/anim2lvgl/internal/logging"
	"github.com/ivlev/anim2lvgl/internal/project"
	"github.com/ivlev/anim2lvgl/internal/system"
	"github.com/ivlev/anim2lvgl/internal/timeline"
)

// set with -ldflags "-X main.buildVersion=..."
var buildVersion = "dev"

func main() {
	system.InitResourceLimits()

	for _, d := range []string{"input", "output"} {
		os.MkdirAll(d, 0755)
	}

	def := config.Default()

	configPtr := flag.String("config", "", "YAML-файл конфигурации (флаги имеют приоритет)")
	inputPtr := flag.String("input", "", "JSON-документ или папка с документами (по умолчанию: самый свежий *.json в input/)")
	outputPtr := flag.String("output", def.OutputDir, "Папка для артефактов")
	formatsPtr := flag.String("formats", strings.Join(def.Formats, ","), "Форматы через запятую: vector, bitmap, rbat")
	namePtr := flag.String("name", "", "Имя анимации (по умолчанию: из документа)")
	statePtr := flag.String("state", "", "Состояние для экспорта (по умолчанию: activeStateId)")
	fpsPtr := flag.Int("fps", 0, "FPS запекания (0 - из документа)")
	bakePtr := flag.Bool("bake", false, "Запечь ключевые кадры в равномерную последовательность")
	byteOrderPtr := flag.String("byte-order", def.ByteOrder, "Порядок байт RGB565: high-first (LV_COLOR_16_SWAP), low-first")
	alphaPtr := flag.Bool("legacy-alpha", false, "Формат LV_IMG_CF_TRUE_COLOR_ALPHA (3 байта на пиксель)")
	projectPtr := flag.String("project", "", "Папка компонента прошивки (CMakeLists.txt, anim_registry.c)")
	registerPtr := flag.Bool("register", def.Register, "Регистрировать анимацию в CMakeLists.txt и anim_registry.c")
	previewPtr := flag.String("preview", "", "Превью кадров: png, webp, tga")
	previewScalePtr := flag.Int("preview-scale", def.PreviewScale, "Масштаб превью")
	sheetPtr := flag.Bool("contact-sheet", false, "Записать лист всех кадров с подписями")
	manifestPtr := flag.Bool("manifest", false, "Записать NAME.manifest.yaml")
	workersPtr := flag.Int("workers", runtime.NumCPU(), "Потоки для пакетного экспорта")
	statsPtr := flag.Bool("stats", false, "Показать отчет о производительности и записать benchmark.log")
	dumpPtr := flag.Bool("dump", false, "Сохранить разобранный документ в YAML и выйти")
	deletePtr := flag.String("delete", "", "Удалить анимацию из проекта")
	servePtr := flag.Bool("serve", false, "Запустить мост для студии")
	portPtr := flag.Int("port", bridge.DefaultPort, "Порт моста")
	qrPtr := flag.Bool("qr", false, "Записать QR-код адреса моста в output/bridge_qr.png")
	verbosePtr := flag.Bool("v", false, "Подробный лог")

	flag.Parse()

	if *verbosePtr {
		logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg := def
	if *configPtr != "" {
		if err := config.Load(*configPtr, &cfg); err != nil {
			log.Fatalf("[-] Ошибка конфигурации: %v", err)
		}
		fmt.Printf("[*] Используется конфигурация: %s\n", *configPtr)
	}

	// explicitly set flags win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputPath = *inputPtr
		case "output":
			cfg.OutputDir = *outputPtr
		case "formats":
			cfg.Formats = strings.Split(*formatsPtr, ",")
		case "name":
			cfg.Name = *namePtr
		case "state":
			cfg.StateID = *statePtr
		case "fps":
			cfg.FPS = *fpsPtr
		case "bake":
			cfg.Bake = *bakePtr
		case "byte-order":
			cfg.ByteOrder = *byteOrderPtr
		case "legacy-alpha":
			cfg.LegacyAlpha = *alphaPtr
		case "project":
			cfg.ProjectDir = *projectPtr
		case "register":
			cfg.Register = *registerPtr
		case "preview":
			cfg.Preview = *previewPtr
		case "preview-scale":
			cfg.PreviewScale = *previewScalePtr
		case "contact-sheet":
			cfg.ContactSheet = *sheetPtr
		case "manifest":
			cfg.Manifest = *manifestPtr
		case "workers":
			cfg.Workers = *workersPtr
		case "stats":
			cfg.ShowStats = *statsPtr
		}
	})
	cfg.BuildVersion = buildVersion

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] %v", err)
	}

	switch {
	case *deletePtr != "":
		runDelete(&cfg, *deletePtr)
		return
	case *servePtr:
		runBridge(&cfg, *portPtr, *qrPtr)
		return
	}

	inputs := resolveInputs(cfg.InputPath)

	if *dumpPtr {
		for _, in := range inputs {
			dump(&cfg, in)
		}
		return
	}

	fmt.Println("--- [ANIM2LVGL] ---")
	fmt.Printf("[*] Форматы: %s | Запекание: %v | Порядок байт: %s\n", strings.Join(cfg.Formats, ", "), cfg.Bake, cfg.ByteOrder)
	fmt.Println("-------------------")

	if len(inputs) == 1 {
		cfg.InputPath = inputs[0]
		res, err := engine.NewProject(&cfg).Run()
		if err != nil {
			fatal(err)
		}
		fmt.Printf("[+++] Успех! %s: %d кадров, %d файлов\n", res.Name, res.Frames, len(res.Files))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := engine.RunBatch(ctx, &cfg, inputs)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("[+++] Успех! Экспортировано анимаций: %d\n", len(results))
}

// resolveInputs expands the -input argument into a list of documents.
func resolveInputs(path string) []string {
	if path == "" {
		latest, err := system.FindLatestFile("input", ".json")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите JSON из студии в input/", err)
		}
		fmt.Printf("[*] Выбран файл: %s\n", latest)
		return []string{latest}
	}

	fi, err := os.Stat(path)
	if err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}
	if !fi.IsDir() {
		return []string{path}
	}

	files, err := system.FindFiles(path, ".json")
	if err != nil {
		log.Fatalf("[-] Ошибка чтения папки: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("[-] В папке %s нет файлов .json", path)
	}
	fmt.Printf("[*] Пакетный экспорт: %d документов\n", len(files))
	return files
}

func dump(cfg *config.Config, path string) {
	doc, err := document.ParseFile(path, cfg.Defaults)
	if err != nil {
		fatal(err)
	}
	if cfg.Bake {
		baker := timeline.NewBaker(cfg.Defaults)
		fps := doc.FPS
		if cfg.FPS > 0 {
			fps = cfg.FPS
		}
		for i := range doc.States {
			doc.States[i].Frames = baker.Bake(doc.States[i].Frames, doc.Width, doc.Height, fps)
		}
	}

	out := document.DumpPath(cfg.OutputDir, document.SanitizeName(doc.Name))
	if err := document.WriteYAML(doc, out); err != nil {
		log.Fatalf("[-] Ошибка записи дампа: %v", err)
	}
	fmt.Printf("[+++] Дамп сохранен: %s\n", out)
}

func runDelete(cfg *config.Config, name string) {
	if cfg.ProjectDir == "" {
		log.Fatalf("[-] Для -delete нужен -project")
	}
	rep, err := project.New(cfg.ProjectDir).Remove(name)
	if err != nil {
		log.Fatalf("[-] Ошибка удаления: %v", err)
	}
	for _, f := range rep.Deleted {
		fmt.Printf("[*] Удален файл: %s\n", f)
	}
	if rep.CMakeCleaned {
		fmt.Println("[*] CMakeLists.txt очищен")
	}
	if rep.RegistryCleaned {
		fmt.Println("[*] anim_registry.c очищен")
	}
	if len(rep.Deleted) == 0 && !rep.CMakeCleaned && !rep.RegistryCleaned {
		fmt.Printf("[!] Анимация %s не найдена\n", name)
		return
	}
	fmt.Printf("[+++] Анимация %s удалена\n", name)
}

func runBridge(cfg *config.Config, port int, qr bool) {
	url := bridge.LANURL(port)
	if qr {
		path := filepath.Join(cfg.OutputDir, "bridge_qr.png")
		if err := bridge.WritePairingQR(path, url, 256); err != nil {
			log.Printf("[!] Не удалось записать QR-код: %v", err)
		} else {
			fmt.Printf("[*] QR-код для подключения: %s\n", path)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("[*] Мост запущен: %s\n", url)
	fmt.Println("[*] Ожидание отправки из студии...")
	if err := bridge.New(cfg).ListenAndServe(ctx, fmt.Sprintf(":%d", port)); err != nil {
		log.Fatalf("[-] Ошибка моста: %v", err)
	}
	fmt.Println("[*] Мост остановлен")
}

func fatal(err error) {
	var locErr *document.LocationError
	switch {
	case errors.As(err, &locErr):
		log.Fatalf("[-] Ошибка во входных данных: %v", err)
	case errors.Is(err, engine.ErrIO):
		log.Fatalf("[-] Ошибка записи: %v", err)
	default:
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}
}
