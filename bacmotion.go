package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"bacmotion/colormap"
	"bacmotion/compose"
	"bacmotion/config"
	"bacmotion/export"
	"bacmotion/logging"
	"bacmotion/preview"
	"bacmotion/sequence"
	"bacmotion/trajectory"
)

var (
	// Command-line flags
	framesDir = flag.String("frames", "", "Directory of source frame images (required)\n\t\tFrames are ordered naturally: frame_2.png before frame_10.png")
	masksDir  = flag.String("masks", "", "Directory of segmentation label images (optional)\n\t\tGrayscale 8/16-bit, label 0 is background")
	tracksCSV = flag.String("tracks", "", "Trajectory CSV file (optional)\n\t\tColumns: id,frame,x,y with optional major,minor,angle")

	configPath = flag.String("config", "", "Render configuration JSON (defaults used when omitted)")
	saveConfig = flag.String("save-config", "", "Write the effective configuration to this path and exit")

	mode    = flag.String("mode", "export", "Run mode: export or preview")
	outPath = flag.String("out", "output.mp4", "Export target: .mp4/.avi/.gif file, or a directory for a PNG sequence")
	addr    = flag.String("addr", ":8765", "Preview server listen address")

	cachePath     = flag.String("cache", "", "SQLite render cache path (optional)\n\t\tRe-exports with an unchanged config reuse cached frames")
	validateMasks = flag.Bool("validate-tracks", false, "Verify every trajectory point lands on a mask label before rendering")

	logPath   = flag.String("log", "", "Log file path (stderr only when omitted)")
	debugMode = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if err := logging.SetupLogger(*logPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.CloseLogger()
	logging.SetDebug(*debugMode)

	if err := run(); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	if *configPath != "" {
		loaded, issues, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		for _, issue := range issues {
			logging.Warning("Config: %v", issue)
		}
		cfg = loaded
	}

	if *saveConfig != "" {
		if err := cfg.Save(*saveConfig); err != nil {
			return err
		}
		logging.Info("Wrote configuration to %s", *saveConfig)
		return nil
	}

	if *framesDir == "" {
		flag.Usage()
		return fmt.Errorf("-frames is required")
	}

	frames, err := sequence.OpenFrames(*framesDir)
	if err != nil {
		return err
	}
	w, h := frames.Bounds()

	var masks *sequence.DirMasks
	if *masksDir != "" {
		masks, err = sequence.OpenMasks(*masksDir, w, h)
		if err != nil {
			return err
		}
	}

	ds := trajectory.NewDataset()
	if *tracksCSV != "" {
		ds, err = trajectory.LoadCSV(*tracksCSV, cfg.Global.OriginalFPS, cfg.Global.UmPerPixel)
		if err != nil {
			return err
		}
		if *validateMasks {
			if masks == nil {
				return fmt.Errorf("-validate-tracks requires -masks")
			}
			if err := trajectory.ValidateAgainstMasks(ds, masks, cfg.Global.OriginalFPS, cfg.Global.UmPerPixel); err != nil {
				return err
			}
		}
	}
	engine := trajectory.NewEngine(ds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logging.Info("Shutting down")
		cancel()
	}()

	switch *mode {
	case "preview":
		session, err := preview.NewSession(frames, maskSource(masks), engine, cfg)
		if err != nil {
			return err
		}
		return preview.Run(ctx, *addr, session)
	case "export":
		return runExport(ctx, frames, masks, engine, cfg)
	}
	return fmt.Errorf("unknown mode %q", *mode)
}

// maskSource lifts the concrete nil into a nil interface.
func maskSource(m *sequence.DirMasks) sequence.MaskSource {
	if m == nil {
		return nil
	}
	return m
}

func runExport(ctx context.Context, frames sequence.FrameSource, masks *sequence.DirMasks,
	engine *trajectory.Engine, cfg config.RenderConfig) error {

	comp, err := compose.NewCompositor(frames, maskSource(masks), engine,
		trajectory.NewVisibility(), colormap.NewPalette(), cfg)
	if err != nil {
		return err
	}
	plan := comp.Plan()

	sink, err := openSink(cfg, plan.OutW, plan.OutH)
	if err != nil {
		return err
	}
	defer sink.Close()

	pipeline := export.NewPipeline(comp, sink)
	if *cachePath != "" {
		cache, err := export.OpenCache(*cachePath)
		if err != nil {
			return err
		}
		defer cache.Close()
		fp := cfg.Fingerprint()
		cache.Prune(fp)
		pipeline.WithCache(cache, fp)
	}

	total := comp.FrameCount()
	lastPct := -1
	pipeline.OnProgress(func(p export.Progress) {
		pct := (p.Frame + 1) * 100 / p.Total
		if pct/10 > lastPct/10 {
			logging.Info("Export progress: %d%% (%d/%d frames)", pct, p.Frame+1, total)
		}
		lastPct = pct
	})

	res := pipeline.Run(ctx)
	switch res.State {
	case export.StateCompleted:
		logging.Info("Export finished: %d frames in %v", res.FramesWritten, res.Elapsed)
		return nil
	case export.StateCancelled:
		logging.Warning("Export cancelled after %d frames", res.FramesWritten)
		return nil
	default:
		return res.Err
	}
}

// openSink picks the sink from the output path: video container by
// extension, otherwise a numbered PNG sequence in a subfolder.
func openSink(cfg config.RenderConfig, w, h int) (export.FrameSink, error) {
	switch strings.ToLower(filepath.Ext(*outPath)) {
	case ".mp4":
		return export.NewVideoSink(*outPath, "mp4", cfg.Global.OutputFPS, w, h)
	case ".avi":
		return export.NewVideoSink(*outPath, "avi", cfg.Global.OutputFPS, w, h)
	case ".gif":
		return export.NewGIFSink(*outPath, cfg.Global.OutputFPS), nil
	case "":
		// Bare name: the configured video format decides, with "png"
		// selecting a numbered image sequence in a subfolder.
		switch cfg.Output.VideoFormat {
		case "mp4", "avi":
			path := *outPath + "." + cfg.Output.VideoFormat
			return export.NewVideoSink(path, cfg.Output.VideoFormat, cfg.Global.OutputFPS, w, h)
		case "gif":
			return export.NewGIFSink(*outPath+".gif", cfg.Global.OutputFPS), nil
		}
		dir := filepath.Join(*outPath, cfg.Output.SubfolderName)
		return export.NewImageSequenceSink(dir, cfg.Output.ImagePrefix, cfg.Output.StartNumber)
	default:
		return nil, fmt.Errorf("unsupported output %q", *outPath)
	}
}
