// ABOUTME: Lists output devices for a backend
// ABOUTME: Prints each device and the stream configuration it would open with
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio/output"
)

var (
	backendName = flag.String("backend", "malgo", "Output backend: malgo, oto, portaudio or null")
	debug       = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel})
	if *debug {
		logger.SetLevel(log.DebugLevel)
	}

	backend, err := output.New(*backendName, logger)
	if err != nil {
		logger.Fatal("Failed to open backend", "backend", *backendName, "err", err)
	}
	defer backend.Close()

	devices, err := backend.Devices()
	if err != nil {
		logger.Fatal("Failed to list devices", "err", err)
	}

	fmt.Printf("Backend: %s\n", backend.Name())
	if len(devices) == 0 {
		fmt.Println("No output devices found")
		return
	}

	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, d.Name)
		fmt.Printf("    id: %s\n", d.ID)

		cfg, err := backend.DefaultConfig(d)
		if err != nil {
			fmt.Printf("    config: unavailable (%v)\n", err)
			continue
		}
		fmt.Printf("    config: %d Hz, %d channels, %d frames, %s\n",
			cfg.SampleRate, cfg.Channels, cfg.BufferSize, cfg.Format)
	}
}
