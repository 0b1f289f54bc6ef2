// Command vocaltune-play loads audio tracks into a practice session and
// plays them with optional pitch shift, tempo change, A/B loop and export.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/ricky40043/vocaltune"
	"github.com/ricky40043/vocaltune/internal/conf"
	"github.com/ricky40043/vocaltune/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML settings file")
		pitch      = flag.Int("pitch", 0, "pitch shift in semitones (-12..12)")
		tempo      = flag.Float64("tempo", 1.0, "playback rate (0.5..2.0)")
		volume     = flag.Float64("volume", 1.0, "master volume (0..1)")
		loopA      = flag.Float64("loop-a", -1, "loop point A in seconds")
		loopB      = flag.Float64("loop-b", -1, "loop point B in seconds")
		exportOut  = flag.String("export", "", "render to WAV file instead of playing")
		exportFrom = flag.Float64("export-from", 0, "export range start in seconds")
		exportTo   = flag.Float64("export-to", 0, "export range end in seconds (0 = track end)")
		mic        = flag.Bool("mic", false, "mix the microphone monitor into playback")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()
	if flag.NArg() == 0 {
		log.Fatal("usage: vocaltune-play [flags] file.wav [more files...]")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logging.Init(os.Stderr, level)

	settings := conf.Default()
	if *configPath != "" {
		var err error
		settings, err = conf.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	session, err := vocaltune.NewSession(vocaltune.WithSettings(settings))
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	var tracks []*vocaltune.Track
	for _, path := range flag.Args() {
		track, err := session.LoadTrackFile(trackName(path), path)
		if err != nil {
			log.Fatalf("load %s: %v", path, err)
		}
		fmt.Printf("loaded %s (%.1fs)\n", track.Name(), track.Duration())
		tracks = append(tracks, track)
	}

	if err := session.SetPitch(*pitch); err != nil {
		log.Fatal(err)
	}
	if err := session.SetTempo(*tempo); err != nil {
		log.Fatal(err)
	}
	session.SetMasterVolume(*volume)

	if *exportOut != "" {
		end := *exportTo
		if end == 0 {
			end = tracks[0].Duration()
		}
		data, err := session.ExportRange(tracks[0].ID(), *exportFrom, end)
		if err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(*exportOut, data, 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("exported %s (%d bytes)\n", *exportOut, len(data))
		return
	}

	if *mic {
		if _, err := session.EnableMicMonitor(); err != nil {
			fmt.Fprintf(os.Stderr, "mic monitor unavailable: %v\n", err)
		}
	}

	if *loopA >= 0 && *loopB > *loopA {
		session.Seek(*loopA)
		session.SetLoopPointA()
		session.Seek(*loopB)
		if _, err := session.SetLoopPointB(); err != nil {
			log.Fatal(err)
		}
		session.Seek(*loopA)
	}

	events := session.Watch()
	if err := session.Play(); err != nil {
		log.Fatal(err)
	}
	for ev := range events {
		switch ev.Kind {
		case vocaltune.EventPosition:
			fmt.Printf("\r%7.2fs [%s]   ", ev.Position, ev.State)
		case vocaltune.EventLoopWrap:
			fmt.Printf("\rloop -> %.2fs          \n", ev.Position)
		case vocaltune.EventEnded:
			fmt.Println("\nplayback completed")
			return
		}
	}
}

func trackName(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}
