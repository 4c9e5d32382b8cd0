/*
Example code showing how to run Automatic Number Plate Recognition over a
video file using YOLOv8 ONNX models for vehicle and plate detection and
Tesseract for reading plates
*/
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
	"strconv"
	"strings"
	"time"

	"github.com/swdee/go-anpr"
	"github.com/swdee/go-anpr/detect"
	"github.com/swdee/go-anpr/internal/monitoring"
	"github.com/swdee/go-anpr/ocr"
	"github.com/swdee/go-anpr/render"
	"github.com/swdee/go-anpr/results"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	vehicleModel := flag.String("m", "../data/yolov8n.onnx", "YOLOv8 COCO ONNX model used for vehicle detection")
	plateModel := flag.String("p", "../data/license_plate_detector.onnx", "YOLOv8 ONNX model used for license plate detection")
	vidFile := flag.String("v", "../data/sample.mp4", "Video file to run number plate recognition on")
	csvFile := flag.String("o", "test.csv", "CSV file to write the results table to")
	outVid := flag.String("w", "out.avi", "Annotated video file to write, empty to skip")
	dbFile := flag.String("d", "", "SQLite database to append the run to, empty to skip")
	cfgFile := flag.String("c", "", "JSON configuration file")
	fontFile := flag.String("f", "", "TTF font used for plate text instead of the Hershey font")
	poolSize := flag.Int("s", 0, "Number of detector sets to run in parallel, overrides config")
	classes := flag.String("x", "", "Comma delimited list of COCO class ids to track, overrides config")
	simple := flag.Bool("simple", false, "Annotate with plain boxes and per frame text")
	annotateOnly := flag.Bool("annotate", false, "Skip detection and annotate the video from an existing CSV file given by -o")
	metricsAddr := flag.String("a", "", "HTTP address to serve Prometheus metrics on, format address:port")
	quiet := flag.Bool("q", false, "Disable progress logging")

	flag.Parse()

	if *quiet {
		monitoring.SetLogger(nil)
	}

	cfg := anpr.DefaultConfig()

	if *cfgFile != "" {
		var err error
		cfg, err = anpr.LoadConfig(*cfgFile)

		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}

	if *poolSize > 0 {
		cfg.Workers = *poolSize
	}

	if *classes != "" {
		ids, err := parseClasses(*classes)

		if err != nil {
			log.Fatalf("Error parsing classes: %v", err)
		}

		cfg.VehicleClasses = ids
	}

	if *simple {
		cfg.Render.Style = render.StyleSimple
	}

	if *fontFile != "" {
		face, err := render.LoadTTF(*fontFile, 120)

		if err != nil {
			log.Fatalf("Error loading font: %v", err)
		}

		cfg.Render.Font.TTF = face
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	annotator, err := render.NewAnnotator(cfg.Render)

	if err != nil {
		log.Fatalf("Error creating annotator: %v", err)
	}

	if *annotateOnly {
		if err := annotateFromCSV(ctx, annotator, *vidFile, *csvFile, *outVid); err != nil {
			log.Fatalf("Error annotating video: %v", err)
		}
		return
	}

	idGen := detect.NewIDGenerator()

	pool, err := anpr.NewDetectorPool(cfg.Workers, func(int) (anpr.DetectorSet, error) {
		return newDetectorSet(*vehicleModel, *plateModel, idGen)
	})

	if err != nil {
		log.Fatalf("Error creating detectors: %v", err)
	}

	defer pool.Close()

	reader, err := ocr.NewTesseract(ocr.DefaultTesseractParams())

	if err != nil {
		log.Fatalf("Error creating plate reader: %v", err)
	}

	defer reader.Close()

	metrics := anpr.NewMetrics()

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())

		go func() {
			log.Printf("Serving metrics at http://%s/metrics", *metricsAddr)
			log.Println(http.ListenAndServe(*metricsAddr, mux))
		}()
	}

	pipeline, err := anpr.NewPipeline(cfg, pool, reader, metrics)

	if err != nil {
		log.Fatalf("Error creating pipeline: %v", err)
	}

	start := time.Now()

	res, err := pipeline.Process(ctx, *vidFile, anpr.Outputs{
		CSV:    *csvFile,
		SQLite: *dbFile,
		Video:  *outVid,
	}, annotator)

	if err != nil {
		var e *anpr.Error

		if errors.As(err, &e) && res != nil {
			log.Printf("Run failed after %d frames, partial results written to %s",
				res.Frames, *csvFile)
		}

		log.Fatalf("Error processing video: %v", err)
	}

	log.Printf("Run %s processed %d frames in %s", res.RunID, res.Frames,
		time.Since(start).Round(time.Millisecond))

	for _, id := range res.Store.TrackIDs() {
		best, ok := res.Summary[id]

		if !ok {
			continue
		}

		log.Printf("Vehicle %d: %s (%.2f) at frame %d", id, best.PlateText,
			best.PlateTextScore, best.FrameIndex)
	}
}

// newDetectorSet loads one vehicle and plate detector pair
func newDetectorSet(vehicleModel, plateModel string,
	idGen *detect.IDGenerator) (anpr.DetectorSet, error) {

	vehicles, err := detect.NewYOLOv8(vehicleModel, detect.YOLOv8COCOParams(), idGen)

	if err != nil {
		return anpr.DetectorSet{}, fmt.Errorf("error loading vehicle model: %w", err)
	}

	plates, err := detect.NewYOLOv8(plateModel, detect.YOLOv8PlateParams(), idGen)

	if err != nil {
		vehicles.Close()
		return anpr.DetectorSet{}, fmt.Errorf("error loading plate model: %w", err)
	}

	return anpr.DetectorSet{Vehicles: vehicles, Plates: plates}, nil
}

// annotateFromCSV renders the video from a results table written earlier
func annotateFromCSV(ctx context.Context, annotator *render.Annotator,
	vidFile, csvFile, outVid string) error {

	store, err := anpr.ReadCSVFile(csvFile)

	if err != nil {
		return err
	}

	stats, err := annotator.Annotate(ctx, vidFile, outVid, store, results.Summarize(store))

	if err != nil {
		return err
	}

	log.Printf("Annotated %d frames, %d overlays drawn, %d skipped", stats.Frames,
		stats.Drawn, stats.Skipped)

	return nil
}

// parseClasses parses a comma delimited list of class ids
func parseClasses(s string) ([]int, error) {

	var ids []int

	for _, f := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(f))

		if err != nil {
			return nil, fmt.Errorf("invalid class id %q", f)
		}

		ids = append(ids, id)
	}

	return ids, nil
}
