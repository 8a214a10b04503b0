// Command objdet-eval scores 3D object detections against ground-truth
// labels and reports precision, recall, IoU and centre deviation
// statistics for a dataset.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/banshee-data/detection.report/internal/config"
	"github.com/banshee-data/detection.report/internal/db"
	"github.com/banshee-data/detection.report/internal/eval/dataset"
	"github.com/banshee-data/detection.report/internal/eval/geometry"
	"github.com/banshee-data/detection.report/internal/eval/matching"
	"github.com/banshee-data/detection.report/internal/eval/pipeline"
	"github.com/banshee-data/detection.report/internal/eval/report"
	evalstore "github.com/banshee-data/detection.report/internal/eval/storage/sqlite"
	"github.com/banshee-data/detection.report/internal/eval/stats"
	"github.com/banshee-data/detection.report/internal/monitoring"
	"github.com/banshee-data/detection.report/internal/version"
)

var (
	framesPath  = flag.String("frames", "", "JSON Lines file of frames to evaluate (required)")
	configPath  = flag.String("config", "", "Evaluation config JSON (defaults apply when empty)")
	dbPath      = flag.String("db", "", "SQLite database to persist results into")
	pngPath     = flag.String("png", "", "Write the histogram grid to this PNG file")
	htmlPath    = flag.String("html", "", "Write the chart page to this HTML file")
	datasetName = flag.String("dataset", "", "Dataset name stored with results (defaults to the frames file name)")
	debug       = flag.Bool("debug", false, "Log every candidate pair")
	listen      = flag.String("listen", "", "Serve the report and admin routes on this address after evaluating")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("objdet-eval"))
		return
	}
	if *framesPath == "" {
		fmt.Fprintln(os.Stderr, "objdet-eval: -frames is required")
		flag.Usage()
		os.Exit(2)
	}
	if *listen != "" && *dbPath == "" {
		log.Fatalf("-listen requires -db")
	}
	monitoring.SetDebug(*debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("objdet-eval: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	runner, err := newRunner(cfg)
	if err != nil {
		return err
	}

	frames, err := dataset.LoadFrames(*framesPath)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d frames from %s", len(frames), *framesPath)

	res, err := runner.Run(ctx, frames)
	if err != nil {
		return err
	}
	log.Printf("Evaluated %d frames in %s", len(res.Frames), res.Elapsed.Round(time.Millisecond))
	fmt.Print(report.Summary(res.Stats))

	bins := cfg.GetHistogramBins()
	if *pngPath != "" {
		if err := writeFile(*pngPath, func(f *os.File) error { return report.WritePNG(f, res.Stats, bins) }); err != nil {
			return err
		}
		log.Printf("Wrote %s", *pngPath)
	}
	if *htmlPath != "" {
		if err := writeFile(*htmlPath, func(f *os.File) error { return report.WriteHTML(f, res.Stats, bins) }); err != nil {
			return err
		}
		log.Printf("Wrote %s", *htmlPath)
	}

	if *dbPath == "" {
		return nil
	}
	database, err := db.Open(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	name := *datasetName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(*framesPath), filepath.Ext(*framesPath))
	}
	id, err := persist(evalstore.NewEvaluationStore(database.DB), name, cfg, res)
	if err != nil {
		return err
	}
	log.Printf("Stored evaluation %s (dataset %s)", id, name)

	if *listen == "" {
		return nil
	}
	return serve(ctx, *listen, database, res.Stats, bins)
}

func loadConfig(path string) (*config.EvaluationConfig, error) {
	if path == "" {
		return config.DefaultEvaluationConfig(), nil
	}
	return config.LoadEvaluationConfig(path)
}

// newRunner translates the config strings into matcher and aggregator
// options.
func newRunner(cfg *config.EvaluationConfig) (*pipeline.Runner, error) {
	opts := matching.DefaultOptions()
	opts.MinIoU = cfg.GetMinIoU()

	var err error
	if opts.Selection, err = matching.ParseSelectionKey(cfg.GetSelection()); err != nil {
		return nil, err
	}
	if opts.Assignment, err = matching.ParseAssignmentPolicy(cfg.GetAssignment()); err != nil {
		return nil, err
	}
	if opts.Rect, err = geometry.ParseRectPolicy(cfg.GetRect()); err != nil {
		return nil, err
	}
	policy, err := stats.ParseZeroDenominatorPolicy(cfg.GetZeroDenominator())
	if err != nil {
		return nil, err
	}

	m, err := matching.NewFrameMatcher(opts)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(m, cfg.GetWorkers(), policy), nil
}

func persist(store *evalstore.EvaluationStore, name string, cfg *config.EvaluationConfig, res *pipeline.Result) (string, error) {
	cfgJSON, err := cfg.JSON()
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	e := evalstore.NewEvaluation(name, cfgJSON, res.Stats)
	if err := store.Insert(e); err != nil {
		return "", err
	}
	if err := store.InsertFrames(e.EvaluationID, res.Frames); err != nil {
		return "", err
	}
	return e.EvaluationID, nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// serve exposes the chart page at / and the admin routes under /debug/
// until ctx is cancelled.
func serve(ctx context.Context, addr string, database *db.DB, s *stats.DatasetStatistics, bins int) error {
	mux := http.NewServeMux()
	if err := database.AttachAdminRoutes(mux); err != nil {
		return err
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := report.WriteHTML(w, s, bins); err != nil {
			monitoring.Logf("render report: %v", err)
		}
	})
	mux.HandleFunc("/report.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		if err := report.WritePNG(w, s, bins); err != nil {
			monitoring.Logf("render png: %v", err)
		}
	})

	server := &http.Server{Addr: addr, Handler: mux}
	errc := make(chan error, 1)
	go func() {
		log.Printf("Serving report on %s", addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	return nil
}
