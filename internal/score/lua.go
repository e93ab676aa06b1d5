package score

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/cbegin/polysynth-go/internal/events"
)

// RunLua executes a score script and returns the events it produced.
// Times are in seconds. The script sees these globals:
//
//	note(t, key, vel, dur)    NoteOn at t, NoteOff at t+dur
//	chord(t, {keys}, vel, dur)
//	on(t, key, vel)  off(t, key)  alloff(t)
//	param(t, id, value)       e.g. param(0, "filter.cutoff", 800)
//	bpm(n)  beats(n)          beats(n) converts beats to seconds
//
// Velocities above 1 are read as MIDI 0..127. Only the base, table,
// string and math libraries are loaded. ctx bounds the run time.
func RunLua(ctx context.Context, name, src string) (*Score, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	if ctx != nil {
		L.SetContext(ctx)
	}

	b := &luaBuilder{score: &Score{}, bpm: 120}
	b.register(L)

	fn, err := L.Load(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}
	b.score.Sort()
	return b.score, nil
}

type luaBuilder struct {
	score *Score
	bpm   float64
}

func (b *luaBuilder) register(L *lua.LState) {
	fns := map[string]lua.LGFunction{
		"note":   b.note,
		"chord":  b.chord,
		"on":     b.on,
		"off":    b.off,
		"alloff": b.allOff,
		"param":  b.param,
		"bpm":    b.setBPM,
		"beats":  b.beats,
	}
	for name, fn := range fns {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

func seconds(L *lua.LState, n int) time.Duration {
	v := float64(L.CheckNumber(n))
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		L.ArgError(n, "time must be a non-negative number")
	}
	return time.Duration(v * float64(time.Second))
}

func key(L *lua.LState, n int) uint8 {
	k := L.CheckInt(n)
	if k < 0 || k > 127 {
		L.ArgError(n, "key must be in 0..127")
	}
	return uint8(k)
}

func velocity(L *lua.LState, n int) float32 {
	v := float64(L.OptNumber(n, 1))
	if v > 1 {
		v /= 127
	}
	return float32(v)
}

func (b *luaBuilder) note(L *lua.LState) int {
	at, k, vel := seconds(L, 1), key(L, 2), velocity(L, 3)
	b.score.Note(at, k, vel, b.duration(L, 4))
	return 0
}

func (b *luaBuilder) chord(L *lua.LState) int {
	at := seconds(L, 1)
	keys := L.CheckTable(2)
	vel := velocity(L, 3)
	dur := b.duration(L, 4)
	for i := 1; i <= keys.Len(); i++ {
		n, ok := keys.RawGetInt(i).(lua.LNumber)
		if !ok || n < 0 || n > 127 {
			L.ArgError(2, "chord keys must be numbers in 0..127")
		}
		b.score.Note(at, uint8(n), vel, dur)
	}
	return 0
}

func (b *luaBuilder) duration(L *lua.LState, n int) time.Duration {
	if L.GetTop() < n {
		return time.Duration(60 / b.bpm * float64(time.Second))
	}
	return seconds(L, n)
}

func (b *luaBuilder) on(L *lua.LState) int {
	b.score.Add(seconds(L, 1), events.On(key(L, 2), velocity(L, 3)))
	return 0
}

func (b *luaBuilder) off(L *lua.LState) int {
	b.score.Add(seconds(L, 1), events.Off(key(L, 2)))
	return 0
}

func (b *luaBuilder) allOff(L *lua.LState) int {
	b.score.Add(seconds(L, 1), events.AllOff())
	return 0
}

func (b *luaBuilder) param(L *lua.LState) int {
	at := seconds(L, 1)
	id := L.CheckString(2)
	v := L.CheckAny(3)
	b.score.Set(at, id+"="+v.String())
	return 0
}

func (b *luaBuilder) setBPM(L *lua.LState) int {
	v := float64(L.CheckNumber(1))
	if !(v > 0) || v > 1000 {
		L.ArgError(1, "bpm must be in (0, 1000]")
	}
	b.bpm = v
	return 0
}

func (b *luaBuilder) beats(L *lua.LState) int {
	n := float64(L.CheckNumber(1))
	L.Push(lua.LNumber(n * 60 / b.bpm))
	return 1
}
