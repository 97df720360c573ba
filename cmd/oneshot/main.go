// Command oneshot is the standalone host adapter: it drives the playback
// engine from an oto audio stream and triggers it from the keyboard.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ebitengine/oto/v3"
	"golang.org/x/term"

	"github.com/justyntemme/oneshot/pkg/debug"
	"github.com/justyntemme/oneshot/pkg/engine"
	"github.com/justyntemme/oneshot/pkg/sample"
)

func main() {
	var (
		samplePath = flag.String("sample", "", "wav/mp3/flac file to play (built-in sound when empty)")
		rate       = flag.Int("rate", 48000, "output sample rate in Hz")
		block      = flag.Int("block", 512, "render block size in frames")
		gainDB     = flag.Float64("gain", 0, "output gain in dB")
		pitch      = flag.Float64("pitch", 1.0, "playback rate multiplier")
		loop       = flag.Bool("loop", false, "loop at end of sample")
		releaseMs  = flag.Float64("release", 50, "tail fade in milliseconds")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := debug.LogLevelInfo
	if *verbose {
		level = debug.LogLevelDebug
	}
	log := debug.NewStderrLogger(level)
	log.SetPrefix("oneshot")

	if err := run(*samplePath, *rate, *block, *gainDB, *pitch, *loop, *releaseMs, log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(samplePath string, rate, block int, gainDB, pitch float64, loop bool, releaseMs float64, log *debug.Logger) error {
	store, err := loadStore(samplePath)
	if err != nil {
		return err
	}
	log.Infof("sample: %d frames, %d ch @ %d Hz (%.0f ms)",
		store.NumFrames(), store.Channels(), store.SampleRate(),
		store.Duration().Seconds()*1000)

	eng, err := engine.New(store)
	if err != nil {
		return err
	}
	eng.SetLogger(log)
	if err := eng.Initialize(float64(rate), int32(block)); err != nil {
		return err
	}

	params := eng.GetParameters()
	params.Get(engine.ParamGain).SetPlainValue(gainDB)
	params.Get(engine.ParamPitch).SetPlainValue(pitch)
	params.Get(engine.ParamRelease).SetPlainValue(releaseMs)
	if loop {
		params.Get(engine.ParamLoop).SetValue(1)
	}

	if err := eng.SetActive(true); err != nil {
		return err
	}

	r := newRenderer(eng, params, rate, block)

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("opening audio output: %w", err)
	}
	<-ready

	player := otoCtx.NewPlayer(r)
	player.Play()
	defer player.Close()

	fmt.Println("space: trigger  s: stop  r: reset  l: loop toggle  q: quit")
	return keyboardLoop(eng, r, log)
}

func loadStore(path string) (*sample.Store, error) {
	if path == "" {
		return sample.Default()
	}
	return sample.LoadFile(path)
}

// keyboardLoop reads single keys in raw mode and forwards them to the
// engine through its lock-free control surface.
func keyboardLoop(eng *engine.Engine, r *renderer, log *debug.Logger) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw terminal mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	loopParam := eng.GetParameters().Get(engine.ParamLoop)

	var key [1]byte
	for {
		if _, err := os.Stdin.Read(key[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		switch key[0] {
		case ' ':
			if !eng.Trigger(1.0) {
				log.Warnf("trigger dropped: queue full")
			}
		case 's':
			eng.ReleaseVoice()
		case 'r':
			r.RequestReset()
		case 'l':
			if loopParam.GetValue() > 0.5 {
				loopParam.SetValue(0)
			} else {
				loopParam.SetValue(1)
			}
			log.Debugf("loop: %v", loopParam.GetValue() > 0.5)
		case 'q', 3: // q or ctrl-c
			return nil
		}
	}
}
