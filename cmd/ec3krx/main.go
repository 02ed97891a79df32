// Command ec3krx captures a live, already FM-demodulated audio stream from
// a sound card, rescales and thresholds its samples, and logs decoded EC3K
// telemetry records to a CSV file. It plays the role direwolf's main capture loop plays for AFSK
// packet radio: open an audio device, run samples through a chain of
// signal-processing stages, hand off whatever comes out the far end.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"

	"github.com/kf7etx/ec3k/internal/captureconfig"
	"github.com/kf7etx/ec3k/internal/devicewait"
	"github.com/kf7etx/ec3k/internal/ec3k"
	"github.com/kf7etx/ec3k/internal/telemetrylog"
)

const framesPerBuffer = 4096

func main() {
	var configPath = pflag.StringP("config", "c", "", "Path to YAML configuration file.")
	var help = pflag.Bool("help", false, "Display help text.")
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: ec3krx [options]")
		fmt.Fprintln(os.Stderr, "Captures live audio, decodes EC3K telemetry frames, and logs them.")
		fmt.Fprintln(os.Stderr)
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	cfg, err := captureconfig.Load(*configPath)
	if err != nil {
		log.Fatal("loading config", "err", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.WaitForDevice != "" {
		log.Info("waiting for device", "subsystem", cfg.WaitForDevice)
		if err := devicewait.Wait(ctx, cfg.WaitForDevice); err != nil {
			log.Fatal("waiting for device", "err", err)
		}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal("opening telemetry log", "err", err)
	}
	defer logger.Close()

	var allow map[int]bool
	if len(cfg.DeviceAllowList) > 0 {
		allow = make(map[int]bool, len(cfg.DeviceAllowList))
		for _, id := range cfg.DeviceAllowList {
			allow[id] = true
		}
	}

	if err := portaudio.Initialize(); err != nil {
		log.Fatal("initializing portaudio", "err", err)
	}
	defer portaudio.Terminate()

	dev, err := inputDevice(cfg.AudioDevice)
	if err != nil {
		log.Fatal("selecting input device", "err", err)
	}

	in := make([]int16, framesPerBuffer)
	streamParams := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: framesPerBuffer,
	}
	stream, err := portaudio.OpenStream(streamParams, in)
	if err != nil {
		log.Fatal("opening audio stream", "err", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		log.Fatal("starting audio stream", "err", err)
	}
	defer stream.Stop()

	log.Info("capturing", "device", dev.Name, "sample_rate", cfg.SampleRate)

	p := ec3k.NewPacketizer()
	var candidates []ec3k.Candidate
	var decoded, rejected int

	for ctx.Err() == nil {
		if err := stream.Read(); err != nil {
			log.Error("reading audio", "err", err)
			continue
		}

		samples := make([]byte, len(in))
		for i, s := range in {
			samples[i] = int16ToSample(s)
		}

		candidates = p.Feed(samples, candidates[:0])
		for _, c := range candidates {
			bits, ok := ec3k.RecoverClock(c)
			if !ok {
				log.Debug("dropped candidate", "bits", len(c.Bits), "transitions", c.Transitions)
				continue
			}

			raw := packBits(bits)
			rec, err := ec3k.Decode(raw, time.Now().Unix())
			if err != nil {
				rejected++
				log.Debug("rejected frame", "err", err)
				continue
			}

			if allow != nil && !allow[rec.DeviceID] {
				continue
			}

			decoded++
			if err := logger.Write(rec); err != nil {
				log.Error("writing telemetry log", "err", err)
			}
		}
	}

	log.Info("stopping", "decoded", decoded, "rejected", rejected)
}

func newLogger(cfg captureconfig.Config) (*telemetrylog.Logger, error) {
	if cfg.LogDir != "" {
		return telemetrylog.NewDaily(cfg.LogDir)
	}
	return telemetrylog.NewFixed(cfg.LogFile), nil
}

func inputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		return portaudio.DefaultInputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Name == name && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input device named %q", name)
}

// int16ToSample maps a signed 16-bit PCM sample to the 0..255 demodulated
// sample byte ec3k.Threshold expects (§4.1): rescale to unsigned 8-bit by
// shifting and scaling the full int16 range down.
func int16ToSample(s int16) byte {
	scaled := (float64(s) + math.MaxInt16 + 1) / 65536 * 255
	return byte(scaled)
}

func packBits(bits []byte) []byte {
	nbytes := (len(bits) + 7) / 8
	out := make([]byte, nbytes)
	for i := 0; i < len(bits); i++ {
		if bits[i] != 0 {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}
