package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cbegin/polysynth-go"
)

// Two rows of a QWERTY keyboard laid out like a piano, starting at C.
const keyRow = "awsedftgyhujkolp;'"

var (
	hold   time.Duration
	octave int
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Play the synth from the computer keyboard",
	Long: `keys turns the terminal into a keyboard. The row "a w s e d f t g y h
u j k" plays one octave from C; z and x shift the octave; space releases
every note; q or Ctrl-C quits.

Terminals report key presses but not releases, so each note is held for
--hold before it is released.`,
	Args: cobra.NoArgs,
	RunE: runKeys,
}

func init() {
	keysCmd.Flags().DurationVar(&hold, "hold", 400*time.Millisecond, "how long each key press holds its note")
	keysCmd.Flags().IntVar(&octave, "octave", 4, "starting octave (C4 is middle C)")
}

// keyNote maps a key to a MIDI note in the given octave.
func keyNote(key byte, oct int) (uint8, bool) {
	i := strings.IndexByte(keyRow, key)
	if i < 0 {
		return 0, false
	}
	n := (oct+1)*12 + i
	if n < 0 || n > 127 {
		return 0, false
	}
	return uint8(n), true
}

// keyboard turns key presses into timed note events.
type keyboard struct {
	pl     *polysynth.Player
	hold   time.Duration
	octave int

	mu     sync.Mutex
	timers map[uint8]*time.Timer
}

func newKeyboard(pl *polysynth.Player, hold time.Duration, oct int) *keyboard {
	return &keyboard{pl: pl, hold: hold, octave: oct, timers: make(map[uint8]*time.Timer)}
}

// press handles one key. It reports false when the key asks to quit.
func (k *keyboard) press(key byte) (bool, error) {
	switch key {
	case 'q', 3, 4:
		return false, nil
	case 'z':
		k.octave = max(-1, k.octave-1)
		return true, nil
	case 'x':
		k.octave = min(8, k.octave+1)
		return true, nil
	case ' ':
		k.releaseAll()
		return true, k.pl.AllNotesOff()
	}
	note, ok := keyNote(key, k.octave)
	if !ok {
		return true, nil
	}
	if err := k.pl.NoteOn(note, 0.8); err != nil {
		return true, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if t, ok := k.timers[note]; ok {
		t.Reset(k.hold)
		return true, nil
	}
	k.timers[note] = time.AfterFunc(k.hold, func() {
		k.mu.Lock()
		delete(k.timers, note)
		k.mu.Unlock()
		_ = k.pl.NoteOff(note)
	})
	return true, nil
}

func (k *keyboard) releaseAll() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for n, t := range k.timers {
		t.Stop()
		delete(k.timers, n)
	}
}

func runKeys(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("keys needs an interactive terminal")
	}
	pl, err := newPlayer(log)
	if err != nil {
		return err
	}
	if err := pl.Start(); err != nil {
		return err
	}
	defer pl.Stop()

	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, state)
	fmt.Fprint(cmd.OutOrStdout(), "keys: a-k play, z/x octave, space silence, q quit\r\n")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kb := newKeyboard(pl, hold, octave)
	defer kb.releaseAll()

	keys := make(chan byte)
	readErr := make(chan error, 1)
	// Stdin cannot be interrupted; the reader exits with the process if
	// ctx ends first.
	go func() {
		r := bufio.NewReader(os.Stdin)
		for {
			b, err := r.ReadByte()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case keys <- b:
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case b := <-keys:
			more, err := kb.press(b)
			if err != nil {
				log.Warn("key dropped", "key", string(b), "err", err)
			}
			if !more {
				return nil
			}
		}
	}
}
