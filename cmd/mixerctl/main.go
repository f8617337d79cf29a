// ABOUTME: Remote control client for the Resonate mixer
// ABOUTME: Finds a mixer via mDNS or -addr and sends play, stop, volume and listener commands
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Resonate-Protocol/resonate-mixer/internal/discovery"
	"github.com/Resonate-Protocol/resonate-mixer/internal/remote"
)

var (
	addr     = flag.String("addr", "", "Mixer address host:port (default: discover via mDNS)")
	name     = flag.String("name", "mixerctl", "Client name shown by the mixer")
	timeout  = flag.Duration("timeout", 5*time.Second, "Discovery and request timeout")
	fadeMs   = flag.Int("fade-ms", 0, "Fade for stop, volume and listener commands")
	soundID  = flag.String("id", "", "Sound ID for stop and volume (default: all sounds / main track)")
	streamIt = flag.Bool("stream", false, "play: stream from disk")
	loopIt   = flag.Bool("loop", false, "play: loop the whole file")
	volumeDB = flag.Float64("volume", 0, "play: initial volume in dB")
	yaw      = flag.Float64("yaw", 0, "listener: yaw in degrees")
	debug    = flag.Bool("debug", false, "Enable debug logging")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: mixerctl [flags] <command> [args]

Commands:
  discover            list mixers on the network
  status              show output and sounds
  play <file>         play a file on the main track
  stop                stop -id, or everything
  volume <dB>         set the volume of -id, or the main track
  listener <x> <y> <z>  move the listener

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel})
	if *debug {
		logger.SetLevel(log.DebugLevel)
	}

	if err := run(logger, flag.Arg(0), flag.Args()[1:]); err != nil {
		logger.Error("Command failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, cmd string, args []string) error {
	if cmd == "discover" {
		return discover(logger)
	}

	target, path := *addr, remote.DefaultPath
	if target == "" {
		found, err := discoverOne(logger)
		if err != nil {
			return err
		}
		target, path = net.JoinHostPort(found.Host, strconv.Itoa(found.Port)), found.Path
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := remote.Dial(ctx, remote.ClientConfig{Addr: target, Path: path, Name: *name, Logger: logger})
	if err != nil {
		return err
	}
	defer client.Close()

	switch cmd {
	case "status":
		status, err := client.Status(ctx)
		if err != nil {
			return err
		}
		printStatus(client.Server(), status)

	case "play":
		if len(args) != 1 {
			return fmt.Errorf("play needs exactly one file")
		}
		req := remote.PlayRequest{File: args[0], Streaming: *streamIt, VolumeDB: *volumeDB, FadeInMs: *fadeMs}
		if *loopIt {
			req.Loop = &remote.Loop{}
		}
		played, err := client.Play(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%.1fs\n", played.SoundID, played.Name, played.Duration)

	case "stop":
		return client.Stop(ctx, remote.StopRequest{SoundID: *soundID, FadeMs: *fadeMs})

	case "volume":
		if len(args) != 1 {
			return fmt.Errorf("volume needs a dB value")
		}
		db, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid volume %q: %w", args[0], err)
		}
		return client.SetVolume(ctx, remote.VolumeRequest{SoundID: *soundID, VolumeDB: db, FadeMs: *fadeMs})

	case "listener":
		if len(args) != 3 {
			return fmt.Errorf("listener needs x y z")
		}
		var pos [3]float64
		for i, a := range args {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return fmt.Errorf("invalid coordinate %q: %w", a, err)
			}
			pos[i] = v
		}
		return client.SetListener(ctx, remote.ListenerRequest{Position: pos, Yaw: *yaw, FadeMs: *fadeMs})

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func printStatus(hello remote.ServerHello, s remote.Status) {
	fmt.Printf("%s: %s on %s, %d Hz, %s", hello.Name, s.Backend, s.Device, s.SampleRate, s.StreamState)
	if s.Restarts > 0 {
		fmt.Printf(", %d restarts", s.Restarts)
	}
	fmt.Printf(", main %+.1f dB\n", s.VolumeDB)

	if len(s.Sounds) == 0 {
		fmt.Println("Nothing playing")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPOSITION\tSTATE\tKIND")
	for _, snd := range s.Sounds {
		kind := "static"
		if snd.Streaming {
			kind = "stream"
		}
		if snd.Error {
			kind += " (error)"
		}
		fmt.Fprintf(w, "%s\t%s\t%.1f/%.1fs\t%s\t%s\n", snd.ID, snd.Name, snd.Position, snd.Duration, snd.State, kind)
	}
	w.Flush()
}

func discover(logger *log.Logger) error {
	disc := discovery.NewManager(discovery.Config{Logger: logger})
	defer disc.Stop()
	disc.Browse()

	seen := make(map[string]bool)
	deadline := time.After(*timeout)
	for {
		select {
		case m := <-disc.Mixers():
			if seen[m.URL()] {
				continue
			}
			seen[m.URL()] = true
			fmt.Printf("%s\t%s\t%s\n", m.Name, m.URL(), m.Version)
		case <-deadline:
			if len(seen) == 0 {
				fmt.Println("No mixers found")
			}
			return nil
		}
	}
}

func discoverOne(logger *log.Logger) (*discovery.MixerInfo, error) {
	disc := discovery.NewManager(discovery.Config{Logger: logger})
	defer disc.Stop()
	disc.Browse()

	select {
	case m := <-disc.Mixers():
		logger.Info("Discovered mixer", "name", m.Name, "url", m.URL())
		return m, nil
	case <-time.After(*timeout):
		return nil, fmt.Errorf("no mixer found after %s", *timeout)
	}
}
