package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/polysynth-go"
	intaudio "github.com/cbegin/polysynth-go/internal/audio"
	intosc "github.com/cbegin/polysynth-go/internal/osc"
	intparams "github.com/cbegin/polysynth-go/internal/params"
	intscore "github.com/cbegin/polysynth-go/internal/score"
	intwt "github.com/cbegin/polysynth-go/internal/wavetable"
)

var (
	sampleRate  int
	polyphony   int
	mono        bool
	logLevel    string
	kernelName  string
	backendName string
	assignments []string
	wavetables  []string

	outPath  string
	bitDepth int
	tail     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "polysynth",
	Short: "Polyphonic subtractive synthesizer",
	Long: `polysynth renders and plays note scores through a polyphonic
subtractive synth: three oscillators per voice, a resonant filter, two
envelopes, two LFOs and a master effects rack.

Scores are Standard MIDI Files (.mid) or Lua scripts (.lua). Any synth
parameter can be set with --set id=value; run "polysynth params" to list
them.`,
	SilenceUsage: true,
}

var renderCmd = &cobra.Command{
	Use:   "render <score>",
	Short: "Render a score to a WAV file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var playCmd = &cobra.Command{
	Use:   "play <score>",
	Short: "Play a score through the audio device",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "List every parameter with its current value",
	Args:  cobra.NoArgs,
	RunE:  runParams,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVarP(&sampleRate, "sample-rate", "r", 48000, "output sample rate")
	pf.IntVarP(&polyphony, "polyphony", "p", 16, "number of voices (1-64)")
	pf.BoolVar(&mono, "mono", false, "single voice with last-note priority")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	pf.StringVar(&kernelName, "kernel", "scalar", "oscillator kernel: scalar|unrolled")
	pf.StringVar(&backendName, "backend", string(intaudio.BackendEbiten), "audio backend: "+joinBackends())
	pf.StringArrayVarP(&assignments, "set", "s", nil, "set a parameter, e.g. --set filter.cutoff=800 (repeatable)")
	pf.StringArrayVar(&wavetables, "wavetable", nil, "load a single-cycle WAV as name=path (repeatable)")

	renderCmd.Flags().StringVarP(&outPath, "out", "o", "out.wav", "output WAV path")
	renderCmd.Flags().IntVar(&bitDepth, "bits", 16, "WAV bit depth: 16|24")
	renderCmd.Flags().DurationVar(&tail, "tail", polysynth.DefaultTail, "time rendered after the last event")
	playCmd.Flags().DurationVar(&tail, "tail", polysynth.DefaultTail, "time played after the last event")

	rootCmd.AddCommand(renderCmd, playCmd, paramsCmd, keysCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func joinBackends() string {
	names := make([]string, 0, 3)
	for _, b := range intaudio.Backends() {
		names = append(names, string(b))
	}
	return strings.Join(names, "|")
}

func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// sound builds the initial snapshot from --set assignments.
func sound() (intparams.Snapshot, error) {
	s := intparams.Default()
	reg := intparams.NewRegistry()
	for _, a := range assignments {
		if err := reg.Assign(&s, a); err != nil {
			return s, fmt.Errorf("--set %s: %w", a, err)
		}
	}
	return s, nil
}

// library returns the builtin tables plus any --wavetable files, or nil
// when none were given.
func library() (*intwt.Library, error) {
	if len(wavetables) == 0 {
		return nil, nil
	}
	lib := intwt.Builtin()
	for _, arg := range wavetables {
		name, path, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("--wavetable %q: expected name=path", arg)
		}
		path, err := homedir.Expand(path)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		err = lib.AddWAV(name, f)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func loadScore(ctx context.Context, path string) (*intscore.Score, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	return intscore.Load(ctx, path)
}

func newPlayer(log *slog.Logger) (*polysynth.Player, error) {
	snap, err := sound()
	if err != nil {
		return nil, err
	}
	kernel, err := intosc.ParseKernel(kernelName)
	if err != nil {
		return nil, err
	}
	backend, err := intaudio.ParseBackend(backendName)
	if err != nil {
		return nil, err
	}
	lib, err := library()
	if err != nil {
		return nil, err
	}
	return polysynth.NewPlayer(sampleRate,
		polysynth.WithPolyphony(polyphony),
		polysynth.WithMono(mono),
		polysynth.WithKernel(kernel),
		polysynth.WithBackend(backend),
		polysynth.WithWavetables(lib),
		polysynth.WithParams(snap),
		polysynth.WithLogger(log),
	)
}

func runRender(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	sc, err := loadScore(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	snap, err := sound()
	if err != nil {
		return err
	}
	kernel, err := intosc.ParseKernel(kernelName)
	if err != nil {
		return err
	}
	lib, err := library()
	if err != nil {
		return err
	}
	start := time.Now()
	samples, err := polysynth.Render(sc, polysynth.RenderConfig{
		SampleRate: sampleRate,
		Polyphony:  polyphony,
		Mono:       mono,
		Kernel:     kernel,
		Params:     &snap,
		Wavetables: lib,
		Tail:       tail,
	})
	if err != nil {
		return err
	}
	path, err := homedir.Expand(outPath)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := polysynth.WriteWAV(f, samples, sampleRate, bitDepth); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	audioLen := time.Duration(len(samples)/2) * time.Second / time.Duration(sampleRate)
	log.Info("rendered", "score", args[0], "out", path, "events", len(sc.Events),
		"length", audioLen.Round(time.Millisecond), "took", time.Since(start).Round(time.Millisecond))
	return nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := loadScore(ctx, args[0])
	if err != nil {
		return err
	}
	pl, err := newPlayer(log)
	if err != nil {
		return err
	}
	if err := pl.Start(); err != nil {
		return err
	}
	defer pl.Stop()

	ctx, done := context.WithCancel(ctx)
	defer done()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer done()
		if err := pl.PlayScore(ctx, sc); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
		case <-time.After(tail):
		}
		return nil
	})
	g.Go(func() error {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				log.Debug("playing", "voices", pl.ActiveVoices(), "dropped", pl.DroppedEvents())
			}
		}
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runParams(cmd *cobra.Command, args []string) error {
	snap, err := sound()
	if err != nil {
		return err
	}
	reg := intparams.NewRegistry()
	out := cmd.OutOrStdout()
	for _, line := range reg.Dump(&snap) {
		id, _, _ := strings.Cut(line, "=")
		info, _ := reg.Lookup(id)
		if len(info.Choices) > 0 {
			fmt.Fprintf(out, "%-24s %s\n", line, strings.Join(info.Choices, "|"))
			continue
		}
		fmt.Fprintf(out, "%-24s [%g, %g]\n", line, info.Min, info.Max)
	}
	return nil
}
