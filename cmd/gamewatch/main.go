// Gamewatch - automated gameplay recording
//
// Watches a live capture feed, recognizes on-screen game states through the
// configured detectors, and drives the recorder lifecycle. Domain events are
// published to websocket subscribers for metadata and post-processing tools.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	iconfig "github.com/mizutama/gamewatch/internal/config"
	"github.com/mizutama/gamewatch/internal/log"
	"github.com/mizutama/gamewatch/pkg/capture"
	"github.com/mizutama/gamewatch/pkg/config"
	"github.com/mizutama/gamewatch/pkg/detector"
	"github.com/mizutama/gamewatch/pkg/hub"
	"github.com/mizutama/gamewatch/pkg/pipeline"
	"github.com/mizutama/gamewatch/pkg/recorder"
	"github.com/mizutama/gamewatch/pkg/recording"
)

func main() {
	configPath := flag.String("config", "detectors.yaml", "detector configuration file")
	device := flag.Int("device", 0, "capture device index")
	preset := flag.String("preset", capture.PresetDefault,
		fmt.Sprintf("capture preset for -device (%s)", strings.Join(capture.PresetNames(), ", ")))
	video := flag.String("video", "", "video file or stream URL (overrides -device)")
	eventAddr := flag.String("events", iconfig.Env("GAMEWATCH_EVENT_ADDR", iconfig.DefaultEventAddr),
		"listen address for the websocket event bus")
	hook := flag.String("recorder-hook", "", "program invoked as `hook <command> <session-id>` to control the recorder")
	dryRun := flag.Bool("dry-run", false, "log recorder commands instead of executing them")
	flag.Parse()

	log.Init(iconfig.LogLevel())

	cfg, err := config.LoadFile(*configPath, capture.LoadTemplate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Info("configuration loaded",
		"path", *configPath, "detectors", len(cfg.Registry.Detectors()))

	var source *capture.Source
	if *video != "" {
		source, err = capture.OpenFile(*video)
	} else {
		capCfg := capture.GetPreset(*preset)
		if capCfg == nil {
			fmt.Fprintf(os.Stderr, "Error: unknown preset %q\n", *preset)
			os.Exit(1)
		}
		source, err = capture.OpenDevice(*device, *capCfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer source.Close()

	// The mock recorder doubles as the dry-run implementation: commands are
	// recorded, nothing is captured.
	var rec recorder.Recorder = recorder.NewMock()
	switch {
	case *dryRun:
	case *hook != "":
		rec = recorder.NewExec(*hook)
	default:
		fmt.Fprintln(os.Stderr, "Error: -recorder-hook is required (or pass -dry-run)")
		os.Exit(1)
	}

	events := hub.New("domain-events")
	go events.Run()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/events", events)
		log.Info("event bus listening", "addr", *eventAddr)
		if err := http.ListenAndServe(*eventAddr, mux); err != nil {
			log.Error("event bus server stopped", "error", err)
		}
	}()

	machine := recording.NewMachine()
	analyzer := detector.NewAnalyzer(cfg.Registry)
	pipe := pipeline.New(source, analyzer, machine, rec, events, cfg.Events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down: cancelling active session")
		pipe.Cancel()
		cancel()
	}()

	log.Info("pipeline starting")
	if err := pipe.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	stats := pipe.Stats()
	log.Info("pipeline stopped",
		"frames_analyzed", stats.FramesAnalyzed,
		"frames_dropped", stats.FramesDropped,
		"events_applied", stats.EventsApplied)
}
