// Command ec3kdecode decodes a file of recovered-clock hex lines (§6) into
// EC3K telemetry records, offline. It plays the role atest.go plays for
// direwolf's modem: feed it a capture, get back decoded output, with no
// audio device or concurrency involved.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/kf7etx/ec3k/internal/ec3k"
	"github.com/kf7etx/ec3k/internal/telemetrylog"
)

func main() {
	var outCSV = pflag.StringP("out", "o", "", "Write decoded records as CSV to this file instead of stdout.")
	var allowIDsStr = pflag.StringP("device", "d", "", "Comma-separated list of device IDs to keep; all others are dropped after CRC validation.")
	var quiet = pflag.BoolP("quiet", "q", false, "Suppress per-line rejection logging.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: ec3kdecode [options] [input-file ...]")
		fmt.Fprintln(os.Stderr, "Reads \"data <hex> <hex> ...\" lines, one candidate per line, from the")
		fmt.Fprintln(os.Stderr, "named files or stdin, and decodes each into an EC3K telemetry record.")
		fmt.Fprintln(os.Stderr)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	allow, err := parseAllowList(*allowIDsStr)
	if err != nil {
		log.Fatal("bad -device list", "err", err)
	}

	var logger *telemetrylog.Logger
	if *outCSV != "" {
		logger = telemetrylog.NewFixed(*outCSV)
		defer logger.Close()
	}

	files := pflag.Args()
	if len(files) == 0 {
		files = []string{"-"}
	}

	var decoded, rejected int
	for _, name := range files {
		n, r, err := decodeFile(name, allow, *quiet, logger)
		if err != nil {
			log.Fatal("reading input", "file", name, "err", err)
		}
		decoded += n
		rejected += r
	}

	log.Info("done", "decoded", decoded, "rejected", rejected)
}

func parseAllowList(s string) (map[int]bool, error) {
	if s == "" {
		return nil, nil
	}
	allow := map[int]bool{}
	for _, tok := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", tok, err)
		}
		allow[id] = true
	}
	return allow, nil
}

func decodeFile(name string, allow map[int]bool, quiet bool, logger *telemetrylog.Logger) (decoded, rejected int, err error) {
	var r io.Reader
	if name == "-" {
		r = os.Stdin
	} else {
		f, openErr := os.Open(name)
		if openErr != nil {
			return 0, 0, openErr
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, decodeErr := ec3k.DecodeHexLine(line, time.Now().Unix())
		if decodeErr != nil {
			rejected++
			if !quiet {
				log.Debug("rejected candidate", "err", decodeErr)
			}
			continue
		}

		if allow != nil && !allow[rec.DeviceID] {
			continue
		}

		decoded++
		if logger != nil {
			if err := logger.Write(rec); err != nil {
				return decoded, rejected, err
			}
		} else {
			printRecord(rec)
		}
	}
	return decoded, rejected, scanner.Err()
}

func printRecord(rec *ec3k.Record) {
	fmt.Printf("device=0x%04x time_total=%ds time_on=%ds energy=%dWs power=%.1fW peak=%.1fW resets=%d on=%v\n",
		rec.DeviceID, rec.TimeTotal, rec.TimeOn, rec.Energy,
		rec.PowerCurrent, rec.PowerMax, rec.ResetCounter, rec.DeviceOnFlag)
}
