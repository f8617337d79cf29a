// ABOUTME: Entry point for the Resonate mixer
// ABOUTME: Parses CLI flags, plays files or a scene and serves the TUI and remote control
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Resonate-Protocol/resonate-mixer/internal/app"
	"github.com/Resonate-Protocol/resonate-mixer/internal/discovery"
	"github.com/Resonate-Protocol/resonate-mixer/internal/remote"
	"github.com/Resonate-Protocol/resonate-mixer/internal/scene"
	"github.com/Resonate-Protocol/resonate-mixer/internal/ui"
	"github.com/Resonate-Protocol/resonate-mixer/internal/version"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine"
	"github.com/Resonate-Protocol/resonate-mixer/pkg/engine/track"
)

var (
	backendName = flag.String("backend", "malgo", "Output backend: malgo, oto, portaudio or null (env "+output.BackendEnv+")")
	device      = flag.String("device", "", "Output device name or ID (default: system default)")
	sampleRate  = flag.Int("sample-rate", 0, "Output sample rate (default: device rate)")
	bufferSize  = flag.Int("buffer-size", 0, "Device buffer size in frames (default: device size)")
	formatName  = flag.String("format", "f32", "Device sample format: f32, s16, s24 or s32")
	blockSize   = flag.Int("block-size", track.DefaultBlockSize, "Frames mixed per block")
	volume      = flag.Float64("volume", 0, "Main track volume in dB")

	scenePath = flag.String("scene", "", "YAML scene file to play")
	stream    = flag.Bool("stream", false, "Stream files from disk instead of decoding them up front")
	loop      = flag.Bool("loop", false, "Loop files given on the command line")

	renderPath    = flag.String("render", "", "Render to this WAV file instead of a device")
	renderSeconds = flag.Float64("render-seconds", 10, "Length of the rendered file")
	renderBits    = flag.Int("render-bits", 16, "Bit depth of the rendered file: 16 or 24")

	remoteAddr = flag.String("remote", "", "Serve remote control on this address, e.g. :8928")
	name       = flag.String("name", "", "Mixer friendly name (default: hostname-resonate-mixer)")
	enableMDNS = flag.Bool("mdns", true, "Advertise remote control via mDNS")

	logFile     = flag.String("log-file", "resonate-mixer.log", "Log file path")
	logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn or error")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs  = flag.Bool("stream-logs", false, "Alias for -no-tui")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Rendering has no one to look at a TUI
	useTUI := !(*noTUI || *streamLogs || *renderPath != "")

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatal("error opening log file", "err", err)
	}
	defer func() { _ = f.Close() }()

	var w io.Writer = f
	if !useTUI {
		w = io.MultiWriter(os.Stderr, f)
	}
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal("invalid log level", "level", *logLevel)
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           level,
	})
	log.SetDefault(logger)

	if err := run(logger, useTUI); err != nil {
		logger.Error("Mixer failed", "err", err)
		if useTUI {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(logger *log.Logger, useTUI bool) error {
	sc, err := loadScene()
	if err != nil {
		return err
	}
	if len(sc.Sounds) == 0 && len(sc.Tracks) == 0 && *remoteAddr == "" {
		return fmt.Errorf("nothing to play: pass files, -scene or -remote")
	}

	format, err := output.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	config := app.Config{
		Engine: engine.Config{
			Backend:    *backendName,
			Device:     *device,
			SampleRate: *sampleRate,
			Channels:   2,
			BufferSize: *bufferSize,
			Format:     format,
			BlockSize:  *blockSize,
			MainTrack:  track.Builder{Volume: audio.Decibels(*volume)},
		},
		VolumeFade: 100 * time.Millisecond,
		Logger:     logger,
	}

	var render *output.WAVFile
	if *renderPath != "" {
		render = output.NewWAVFile(*renderPath, output.WAVFileOptions{
			SampleRate: *sampleRate,
			BitDepth:   *renderBits,
			BufferSize: *bufferSize,
			Duration:   time.Duration(*renderSeconds * float64(time.Second)),
		}, logger)
		config.Engine.Output = render
	}

	mixer, err := app.New(config)
	if err != nil {
		return fmt.Errorf("failed to start mixer: %w", err)
	}
	defer func() {
		if err := mixer.Close(); err != nil {
			logger.Warn("Error closing mixer", "err", err)
		}
	}()

	logger.Info("Starting Resonate Mixer", "version", version.Version, "backend", mixer.Engine().Backend(),
		"device", mixer.Engine().Device(), "sample_rate", mixer.Engine().SampleRate())

	if err := mixer.LoadScene(sc); err != nil {
		return err
	}

	mixerName := *name
	if mixerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		mixerName = fmt.Sprintf("%s-resonate-mixer", hostname)
	}

	var server *remote.Server
	if *remoteAddr != "" {
		server = remote.NewServer(remote.Config{Addr: *remoteAddr, Name: mixerName, Logger: logger}, mixer)
		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Stop(ctx); err != nil {
				logger.Warn("Remote control shutdown error", "err", err)
			}
		}()

		if *enableMDNS {
			disc := discovery.NewManager(discovery.Config{
				ServiceName: mixerName,
				Port:        server.Port(),
				Path:        remote.DefaultPath,
				Version:     version.Version,
				Logger:      logger,
			})
			if err := disc.Advertise(); err != nil {
				logger.Warn("Failed to start mDNS advertisement", "err", err)
			} else {
				defer disc.Stop()
			}
		}
	}

	done := make(chan struct{})
	defer close(done)

	var quit <-chan struct{}
	tuiDone := make(chan struct{})
	if useTUI {
		controls := ui.NewControls()
		quit = controls.Quit
		go mixer.HandleControls(controls, done)
		go func() {
			defer close(tuiDone)
			status := func() ui.StatusMsg {
				msg := mixer.UIStatus()
				if server != nil {
					msg.RemoteAddr = server.Addr().String()
				}
				return msg
			}
			if err := ui.Run(status, controls); err != nil {
				logger.Error("TUI failed", "err", err)
			}
		}()
	}

	var rendered <-chan struct{}
	if render != nil {
		rendered = render.Done()
	}

	// Without a TUI or remote control the mixer exits once everything has played
	var finished <-chan struct{}
	if !useTUI && server == nil && render == nil {
		finished = waitIdle(mixer, done)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
	case <-quit:
		logger.Info("Received quit signal from TUI")
		<-tuiDone
	case <-rendered:
		logger.Info("Render complete", "file", *renderPath)
	case <-finished:
		logger.Info("All sounds finished")
	}

	return nil
}

// loadScene reads -scene or builds a scene from positional file arguments
func loadScene() (*scene.Scene, error) {
	var sc *scene.Scene
	if *scenePath != "" {
		s, err := scene.Load(*scenePath)
		if err != nil {
			return nil, err
		}
		sc = s
	} else {
		sc = &scene.Scene{}
	}

	files := scene.FromFiles(flag.Args(), *stream)
	for i := range files.Sounds {
		if *loop {
			files.Sounds[i].Loop = &scene.Loop{}
		}
	}
	sc.Sounds = append(sc.Sounds, files.Sounds...)
	return sc, nil
}

// waitIdle closes the returned channel once no sound is playing
func waitIdle(mixer *app.Mixer, done <-chan struct{}) <-chan struct{} {
	idle := make(chan struct{})
	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if mixer.Active() == 0 {
					close(idle)
					return
				}
			case <-done:
				return
			}
		}
	}()
	return idle
}
