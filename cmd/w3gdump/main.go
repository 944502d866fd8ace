// Command w3gdump decodes a Warcraft III replay and prints a summary,
// optionally as JSON, and can write the decompressed payload to a file
// for closer inspection.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	w3g "github.com/kelindar/w3g-sdk"
)

func main() {
	var (
		jsonOut  = flag.Bool("json", false, "print the decoded replay as JSON")
		dumpPath = flag.String("dump", "", "write the decompressed payload to this file (a .zst suffix compresses it)")
		quiet    = flag.Bool("q", false, "suppress decode diagnostics")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	level := zerolog.InfoLevel
	if *quiet {
		level = zerolog.ErrorLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Str("run", ulid.Make().String()).
		Logger()

	replay, err := w3g.Open(path, w3g.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("could not decode replay")
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(replay); err != nil {
			log.Fatal().Err(err).Msg("could not encode summary")
		}
	} else {
		printSummary(replay)
	}

	if *dumpPath != "" {
		if err := dumpPayload(replay.Payload(), *dumpPath); err != nil {
			log.Fatal().Err(err).Str("file", *dumpPath).Msg("could not write payload dump")
		}
		log.Info().Str("file", *dumpPath).Int("bytes", len(replay.Payload())).Msg("payload written")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: w3gdump [flags] <replay.w3g>")
	flag.PrintDefaults()
}

func printSummary(r *w3g.Replay) {
	fmt.Printf("Game:    %s\n", r.GameName)
	fmt.Printf("Map:     %s\n", r.Settings.Map.Path)
	fmt.Printf("Length:  %s\n", r.SubHeader.Duration())
	fmt.Printf("Version: %d (build %d)\n", r.SubHeader.Version, r.SubHeader.Build)

	fmt.Println("Players:")
	for _, a := range r.Activity {
		host := " "
		if r.Host().ID == a.Player {
			host = "*"
		}
		fmt.Printf("  %s %-16s %5d actions  %6.1f apm\n", host, a.Name, a.Actions, a.APM)
	}

	if len(r.Selections) > 0 {
		fmt.Println("Selections:")
		for _, s := range r.Selections {
			fmt.Printf("    %-10s %d\n", s.FourCC(), s.Count)
		}
	}
	fmt.Printf("Blocks:  %d\n", r.ActionBlocks)
}

// dumpPayload persists the decompressed stream verbatim, or as a zstd
// frame when the target name asks for it.
func dumpPayload(data []byte, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		_, err = f.Write(data)
		return err
	}

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
