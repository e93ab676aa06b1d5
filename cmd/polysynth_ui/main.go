package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"math/cmplx"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/cbegin/polysynth-go"
	intosc "github.com/cbegin/polysynth-go/internal/osc"
	intparams "github.com/cbegin/polysynth-go/internal/params"
)

const (
	windowW      = 1100
	windowH      = 640
	minWindowW   = 900
	minWindowH   = 560
	uiSampleRate = 48000

	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale
)

var (
	bgColor         = color.RGBA{192, 192, 192, 255}
	panelColor      = color.RGBA{192, 192, 192, 255}
	borderColor     = color.RGBA{128, 128, 128, 255}
	bevelLight      = color.RGBA{255, 255, 255, 255}
	bevelDarker     = color.RGBA{64, 64, 64, 255}
	sunkenBgColor   = color.RGBA{24, 24, 32, 255}
	sliderFillColor = color.RGBA{0, 0, 128, 255}
	heldKeyColor    = color.RGBA{80, 200, 255, 255}
)

const (
	fftSize    = 2048
	ringBufLen = 16384
)

type analyzer struct {
	mu         sync.Mutex
	sampleRate int
	ring       []float32 // mono ring buffer
	writePos   int
}

func newAnalyzer(sampleRate int) *analyzer {
	return &analyzer{sampleRate: sampleRate, ring: make([]float32, ringBufLen)}
}

// Tap runs on the audio thread and only copies into the ring.
func (a *analyzer) Tap(samples []float32) {
	a.mu.Lock()
	for i := 0; i+1 < len(samples); i += 2 {
		a.ring[a.writePos] = (samples[i] + samples[i+1]) * 0.5
		a.writePos = (a.writePos + 1) % ringBufLen
	}
	a.mu.Unlock()
}

// Latest copies the newest n samples.
func (a *analyzer) Latest(n int) []float32 {
	n = min(n, ringBufLen)
	out := make([]float32, n)
	a.mu.Lock()
	start := (a.writePos - n + ringBufLen) % ringBufLen
	for i := range out {
		out[i] = a.ring[(start+i)%ringBufLen]
	}
	a.mu.Unlock()
	return out
}

// pianoKeys maps the home row onto one and a half octaves from C.
var pianoKeys = []ebiten.Key{
	ebiten.KeyA, ebiten.KeyW, ebiten.KeyS, ebiten.KeyE, ebiten.KeyD,
	ebiten.KeyF, ebiten.KeyT, ebiten.KeyG, ebiten.KeyY, ebiten.KeyH,
	ebiten.KeyU, ebiten.KeyJ, ebiten.KeyK, ebiten.KeyO, ebiten.KeyL,
	ebiten.KeyP, ebiten.KeySemicolon,
}

const pianoOctaves = 3

type game struct {
	player   *polysynth.Player
	analyzer *analyzer
	hann     []float64
	scopeImg *ebiten.Image
	scopeW   int
	scopeH   int
	specBins []float64
	wavePeak float64

	volume  float64
	eqGains [5]float64
	octave  int

	draggingVolume bool
	draggingEQ     int // -1 = none

	keyNotes  map[ebiten.Key]uint8
	mouseNote int // -1 = none
	held      [128]bool

	status    string
	statusErr bool

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(opts ...polysynth.PlayerOption) (*game, error) {
	a := newAnalyzer(uiSampleRate)
	opts = append(opts, polysynth.WithSampleTap(a.Tap))
	pl, err := polysynth.NewPlayer(uiSampleRate, opts...)
	if err != nil {
		return nil, err
	}
	if err := pl.Start(); err != nil {
		return nil, err
	}
	return &game{
		player:     pl,
		analyzer:   a,
		hann:       window.Hann(fftSize),
		volume:     1.0,
		eqGains:    [5]float64{1, 1, 1, 1, 1},
		octave:     4,
		draggingEQ: -1,
		keyNotes:   make(map[ebiten.Key]uint8),
		mouseNote:  -1,
		status:     "Ready",
		textCache:  make(map[string]*ebiten.Image, 256),
		viewW:      windowW,
		viewH:      windowH,
	}, nil
}

func (g *game) Update() error {
	g.handleKeys()
	g.handleMouse()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()

	g.drawDarkPanel(screen, l.spectrum)
	g.drawPanel(screen, l.eq)
	g.drawButton(screen, l.wave, "Osc "+g.waveLabel())
	g.drawButton(screen, l.filter, "Flt "+g.filterLabel())
	g.drawVolumeSlider(screen, l.volume)
	g.drawSunkenPanel(screen, l.piano)
	g.drawSunkenPanel(screen, l.status)

	g.drawSpectrum(screen, l.spectrum)
	g.drawEQ(screen, l.eq)
	g.drawPiano(screen, l.piano)
	g.drawStatus(screen, l.status)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.viewW = max(outsideW, minWindowW)
	g.viewH = max(outsideH, minWindowH)
	return g.viewW, g.viewH
}

func (g *game) Close() { _ = g.player.Stop() }

func (g *game) noteOn(n uint8) {
	if err := g.player.NoteOn(n, 0.8); err != nil {
		g.setError(err.Error())
		return
	}
	g.held[n] = true
}

func (g *game) noteOff(n uint8) {
	_ = g.player.NoteOff(n)
	g.held[n] = false
}

func (g *game) handleKeys() {
	for i, k := range pianoKeys {
		if inpututil.IsKeyJustPressed(k) {
			n := (g.octave+1)*12 + i
			if n >= 0 && n < 128 {
				g.keyNotes[k] = uint8(n)
				g.noteOn(uint8(n))
			}
		}
		if inpututil.IsKeyJustReleased(k) {
			// Release what was pressed even if the octave moved since.
			if n, ok := g.keyNotes[k]; ok {
				delete(g.keyNotes, k)
				g.noteOff(n)
			}
		}
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyZ):
		g.octave = max(-1, g.octave-1)
		g.setStatus(fmt.Sprintf("Octave %d", g.octave))
	case inpututil.IsKeyJustPressed(ebiten.KeyX):
		g.octave = min(8, g.octave+1)
		g.setStatus(fmt.Sprintf("Octave %d", g.octave))
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		_ = g.player.AllNotesOff()
		clear(g.keyNotes)
		g.held = [128]bool{}
		g.setStatus("All notes off")
	}
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		switch {
		case pointInRect(mx, my, l.wave):
			g.cycleWaveform()
		case pointInRect(mx, my, l.filter):
			g.cycleFilter()
		case pointInRect(mx, my, l.volume):
			g.draggingVolume = true
			g.updateVolumeFromMouse(mx, l.volume)
		case pointInRect(mx, my, l.eq):
			g.clickEQ(mx, my, l.eq)
		case pointInRect(mx, my, l.piano):
			if n := g.pianoNoteAt(mx, my, l.piano); n >= 0 {
				g.mouseNote = n
				g.noteOn(uint8(n))
			}
		}
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.draggingVolume = false
		g.draggingEQ = -1
		if g.mouseNote >= 0 {
			g.noteOff(uint8(g.mouseNote))
			g.mouseNote = -1
		}
		return
	}
	if g.draggingVolume {
		g.updateVolumeFromMouse(mx, l.volume)
	}
	if g.draggingEQ >= 0 {
		g.dragEQ(mx, my, l.eq)
	}
}

func (g *game) cycleWaveform() {
	next := (g.player.Params().Osc[0].Waveform + 1) % intosc.Waveform(len(waveNames()))
	if err := g.player.Assign("osc1.waveform=" + next.String()); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("Osc 1 " + next.String())
}

func (g *game) cycleFilter() {
	next := (g.player.Params().Filter.Type + 1) % 3
	if err := g.player.SetParam("filter.type", float64(next)); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("Filter " + g.filterLabel())
}

func waveNames() []string {
	info, _ := registry.Lookup("osc1.waveform")
	return info.Choices
}

var registry = intparams.NewRegistry()

func (g *game) waveLabel() string {
	return g.player.Params().Osc[0].Waveform.String()
}

func (g *game) filterLabel() string {
	info, _ := registry.Lookup("filter.type")
	t := int(g.player.Params().Filter.Type)
	if t < len(info.Choices) {
		return info.Choices[t]
	}
	return "?"
}

type uiLayout struct {
	spectrum image.Rectangle
	eq       image.Rectangle
	wave     image.Rectangle
	filter   image.Rectangle
	volume   image.Rectangle
	piano    image.Rectangle
	status   image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	const pad = 10
	w, h := g.viewW, g.viewH
	statusH := lineH + 12
	pianoH := 150
	controlsH := 44
	eqW := 260

	status := image.Rect(pad, h-pad-statusH, w-pad, h-pad)
	piano := image.Rect(pad, status.Min.Y-pad-pianoH, w-pad, status.Min.Y-pad)
	controlsY := piano.Min.Y - pad - controlsH
	btnW := 220
	wave := image.Rect(pad, controlsY, pad+btnW, controlsY+controlsH)
	filter := image.Rect(wave.Max.X+pad, controlsY, wave.Max.X+pad+btnW, controlsY+controlsH)
	volume := image.Rect(filter.Max.X+pad, controlsY, w-pad, controlsY+controlsH)
	top := image.Rect(pad, pad, w-pad, controlsY-pad)
	return uiLayout{
		spectrum: image.Rect(top.Min.X, top.Min.Y, top.Max.X-eqW-pad, top.Max.Y),
		eq:       image.Rect(top.Max.X-eqW, top.Min.Y, top.Max.X, top.Max.Y),
		wave:     wave,
		filter:   filter,
		volume:   volume,
		piano:    piano,
		status:   status,
	}
}

func (g *game) drawSpectrum(screen *ebiten.Image, rect image.Rectangle) {
	inner := image.Rect(rect.Min.X+8, rect.Min.Y+8, rect.Max.X-8, rect.Max.Y-8)
	width := inner.Dx()
	height := inner.Dy()
	if width <= 0 || height <= 0 {
		return
	}
	if g.scopeImg == nil || g.scopeW != width || g.scopeH != height {
		g.scopeW = width
		g.scopeH = height
		g.scopeImg = ebiten.NewImage(width, height)
	}
	g.scopeImg.Fill(color.RGBA{14, 16, 22, 255})

	snap := g.analyzer.Latest(fftSize)
	waveH := int(float64(height) * 0.45)
	g.drawWaveform(g.scopeImg, snap, width, waveH)
	ebitenutil.DrawRect(g.scopeImg, 0, float64(waveH), float64(width), 1, color.RGBA{50, 54, 68, 180})
	g.drawSpectrumBars(g.scopeImg, snap, width, height-waveH-1, waveH+1)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(inner.Min.X), float64(inner.Min.Y))
	screen.DrawImage(g.scopeImg, op)
}

func (g *game) drawWaveform(dst *ebiten.Image, samples []float32, width int, height int) {
	if len(samples) < 2 || width < 2 || height < 4 {
		return
	}
	midY := height / 2
	ebitenutil.DrawRect(dst, 0, float64(midY), float64(width), 1, color.RGBA{40, 44, 58, 100})

	// Auto-gain: fast attack, slow release.
	peak := 0.01
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	if peak > g.wavePeak {
		g.wavePeak = g.wavePeak*0.3 + peak*0.7
	} else {
		g.wavePeak = g.wavePeak*0.995 + peak*0.005
	}
	g.wavePeak = math.Max(g.wavePeak, 0.01)
	gain := float64(midY-2) / g.wavePeak

	trigger := findZeroCrossing(samples, len(samples)/4)
	visible := max(2, len(samples)-trigger)
	waveColor := color.RGBA{80, 200, 255, 220}
	prevX, prevY := 0, midY-int(float64(samples[trigger])*gain)
	for px := 1; px < width; px++ {
		si := min(trigger+px*visible/width, len(samples)-1)
		y := midY - int(float64(samples[si])*gain)
		ebitenutil.DrawLine(dst, float64(prevX), float64(prevY), float64(px), float64(y), waveColor)
		prevX, prevY = px, y
	}
}

// findZeroCrossing finds a rising zero crossing to steady the scope.
func findZeroCrossing(samples []float32, searchLen int) int {
	searchLen = min(searchLen, len(samples)-2)
	for i := 1; i < searchLen; i++ {
		if samples[i-1] <= 0 && samples[i] > 0 {
			return i
		}
	}
	return 0
}

// spectrum returns magnitudes of the Hann-windowed frame.
func spectrum(samples []float32, hann []float64) []float64 {
	x := make([]float64, len(hann))
	off := len(samples) - len(hann)
	for i := range x {
		x[i] = float64(samples[off+i]) * hann[i]
	}
	bins := fft.FFTReal(x)
	mags := make([]float64, len(bins)/2)
	for i := range mags {
		mags[i] = cmplx.Abs(bins[i])
	}
	return mags
}

func (g *game) drawSpectrumBars(dst *ebiten.Image, samples []float32, width int, height int, yOffset int) {
	if len(samples) < fftSize || width < 4 || height < 4 {
		return
	}
	mags := spectrum(samples, g.hann)
	numBars := min(max(width/3, 16), 256)
	if len(g.specBins) != numBars {
		g.specBins = make([]float64, numBars)
	}

	half := len(mags)
	maxBin := min(half, half*18000/(g.analyzer.sampleRate/2))
	logMin, logMax := 0.0, math.Log(float64(maxBin))
	for i := 0; i < numBars; i++ {
		b0 := int(math.Exp(logMin + float64(i)/float64(numBars)*(logMax-logMin)))
		b1 := int(math.Exp(logMin + float64(i+1)/float64(numBars)*(logMax-logMin)))
		b1 = min(max(b1, b0+1), half)
		sum := 0.0
		for b := b0; b < b1; b++ {
			sum += mags[b]
		}
		db := 20 * math.Log10(sum/float64(b1-b0)/fftSize+1e-10)
		norm := clamp((db+80)/80, 0, 1)
		if prev := g.specBins[i]; norm > prev {
			g.specBins[i] = prev*0.3 + norm*0.7
		} else {
			g.specBins[i] = prev*0.85 + norm*0.15
		}
	}

	barW := float64(width) / float64(numBars)
	for i, v := range g.specBins {
		barH := math.Max(1, v*float64(height-4))
		x := float64(i) * barW
		y := float64(yOffset) + float64(height-2) - barH
		r, gr, b := spectrumColor(v)
		ebitenutil.DrawRect(dst, x+1, y, barW-1, barH, color.RGBA{r, gr, b, 220})
	}
}

func spectrumColor(v float64) (uint8, uint8, uint8) {
	if v < 0.33 {
		t := v / 0.33
		return uint8(30 + 20*t), uint8(80 + 120*t), uint8(200 + 55*t)
	}
	if v < 0.66 {
		t := (v - 0.33) / 0.33
		return uint8(50 + 140*t), uint8(200 + 30*t), uint8(255 - 100*t)
	}
	t := (v - 0.66) / 0.34
	return uint8(190 + 65*t), uint8(230 - 100*t), uint8(155 - 100*t)
}

var blackKey = [12]bool{1: true, 3: true, 6: true, 8: true, 10: true}

func (g *game) pianoNoteAt(mx, my int, rect image.Rectangle) int {
	whites := pianoOctaves * 7
	keyW := rect.Dx() / whites
	if keyW <= 0 {
		return -1
	}
	base := (g.octave + 1) * 12
	// Black keys sit on top and win in the upper half.
	if my < rect.Min.Y+rect.Dy()*3/5 {
		for n := 0; n < pianoOctaves*12; n++ {
			if !blackKey[n%12] {
				continue
			}
			x := rect.Min.X + whiteIndex(n)*keyW - keyW/3
			if mx >= x && mx < x+keyW*2/3 {
				return min(127, base+n)
			}
		}
	}
	wi := (mx - rect.Min.X) / keyW
	if wi < 0 || wi >= whites {
		return -1
	}
	for n := 0; n < pianoOctaves*12; n++ {
		if !blackKey[n%12] && whiteIndex(n) == wi {
			return min(127, base+n)
		}
	}
	return -1
}

// whiteIndex counts white keys below note offset n.
func whiteIndex(n int) int {
	w := 0
	for i := 0; i < n; i++ {
		if !blackKey[i%12] {
			w++
		}
	}
	return w
}

func (g *game) drawPiano(screen *ebiten.Image, rect image.Rectangle) {
	inner := image.Rect(rect.Min.X+4, rect.Min.Y+4, rect.Max.X-4, rect.Max.Y-4)
	whites := pianoOctaves * 7
	keyW := inner.Dx() / whites
	if keyW <= 2 {
		return
	}
	base := (g.octave + 1) * 12
	held := func(n int) bool { return base+n < 128 && g.held[base+n] }
	for n := 0; n < pianoOctaves*12; n++ {
		if blackKey[n%12] {
			continue
		}
		x := inner.Min.X + whiteIndex(n)*keyW
		col := color.Color(color.White)
		if held(n) {
			col = heldKeyColor
		}
		ebitenutil.DrawRect(screen, float64(x), float64(inner.Min.Y), float64(keyW-1), float64(inner.Dy()), col)
	}
	for n := 0; n < pianoOctaves*12; n++ {
		if !blackKey[n%12] {
			continue
		}
		x := inner.Min.X + whiteIndex(n)*keyW - keyW/3
		col := color.Color(color.Black)
		if held(n) {
			col = heldKeyColor
		}
		ebitenutil.DrawRect(screen, float64(x), float64(inner.Min.Y), float64(keyW*2/3), float64(inner.Dy()*3/5), col)
	}
}

func (g *game) drawStatus(screen *ebiten.Image, rect image.Rectangle) {
	msg := fmt.Sprintf("Voices %2d  Oct %d  %s", g.player.ActiveVoices(), g.octave, g.status)
	if g.statusErr {
		msg = "ERROR - " + g.status
	}
	if d := g.player.DroppedEvents(); d > 0 {
		msg += fmt.Sprintf("  (dropped %d)", d)
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, shortenEnd(msg, maxChars), rect.Min.X+8, rect.Min.Y+6)
}

func (g *game) drawVolumeSlider(screen *ebiten.Image, rect image.Rectangle) {
	g.drawPanel(screen, rect)
	g.drawText(screen, fmt.Sprintf("Vol %d%%", int(g.volume*100+0.5)), rect.Min.X+8, rect.Min.Y+8)

	trackX := rect.Min.X + 130
	trackW := rect.Dx() - 146
	trackY := rect.Min.Y + rect.Dy()/2 - 4
	if trackW < 20 {
		return
	}
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW), 8, bevelDarker)
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW-1), 1, borderColor)
	fillW := int(float64(trackW) * clamp(g.volume, 0, 1))
	if fillW > 2 {
		ebitenutil.DrawRect(screen, float64(trackX+1), float64(trackY+1), float64(fillW-1), 6, sliderFillColor)
	}
	knobX := min(max(trackX+fillW-5, trackX-5), trackX+trackW-5)
	knob := image.Rect(knobX, trackY-4, knobX+10, trackY+12)
	ebitenutil.DrawRect(screen, float64(knob.Min.X), float64(knob.Min.Y), float64(knob.Dx()), float64(knob.Dy()), panelColor)
	drawBorder(screen, knob)
}

func (g *game) updateVolumeFromMouse(mx int, rect image.Rectangle) {
	trackX := rect.Min.X + 130
	trackW := rect.Dx() - 146
	if trackW <= 0 {
		return
	}
	g.volume = clamp(float64(mx-trackX)/float64(trackW), 0, 1)
	g.player.SetMasterVolume(g.volume)
}

var eqBandLabels = [5]string{"Lo", "LoM", "Mid", "HiM", "Hi"}

func (g *game) drawEQ(screen *ebiten.Image, rect image.Rectangle) {
	const pad, labelH = 8, lineH + 4
	innerX := rect.Min.X + pad
	innerY := rect.Min.Y + pad
	innerH := rect.Dy() - labelH - pad*2
	bandW := (rect.Dx() - pad*2) / 5
	if bandW < 10 || innerH < 16 {
		return
	}
	for i := range g.eqGains {
		bx := innerX + i*bandW
		bw := bandW - 4
		ebitenutil.DrawRect(screen, float64(bx+bw/2-2), float64(innerY), 4, float64(innerH), bevelDarker)
		ebitenutil.DrawRect(screen, float64(bx), float64(innerY+innerH/2), float64(bw), 1, borderColor)
		frac := clamp(g.eqGains[i]/2, 0, 1)
		knobY := innerY + innerH - int(frac*float64(innerH)) - 4
		knob := image.Rect(bx+2, knobY, bx+bw-2, knobY+8)
		ebitenutil.DrawRect(screen, float64(knob.Min.X), float64(knob.Min.Y), float64(knob.Dx()), float64(knob.Dy()), panelColor)
		drawBorder(screen, knob)
		g.drawText(screen, eqBandLabels[i], bx+(bw-len(eqBandLabels[i])*charW)/2, innerY+innerH+4)
	}
}

func (g *game) clickEQ(mx, my int, rect image.Rectangle) {
	bandW := (rect.Dx() - 16) / 5
	if bandW <= 0 {
		return
	}
	band := (mx - rect.Min.X - 8) / bandW
	if band < 0 || band >= 5 {
		return
	}
	g.draggingEQ = band
	g.dragEQ(mx, my, rect)
}

func (g *game) dragEQ(mx, my int, rect image.Rectangle) {
	band := g.draggingEQ
	innerY := rect.Min.Y + 8
	innerH := rect.Dy() - lineH - 4 - 16
	if innerH <= 0 {
		return
	}
	gain := 2 * (1 - clamp(float64(my-innerY)/float64(innerH), 0, 1))
	g.eqGains[band] = gain
	g.player.SetEQBand(band, float32(gain))
	g.setStatus(fmt.Sprintf("EQ %s: %.1f", eqBandLabels[band], gain))
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), panelColor)
	drawBorder(screen, rect)
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), sunkenBgColor)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawDarkPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), color.Black)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawButton(screen *ebiten.Image, rect image.Rectangle, label string) {
	g.drawPanel(screen, rect)
	x := rect.Min.X + (rect.Dx()-len(label)*charW)/2
	y := rect.Min.Y + (rect.Dy()-lineH)/2
	g.drawText(screen, label, x, y)
}

// drawBorder draws a raised bevel.
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float64(rect.Min.X), float64(rect.Min.Y)
	w, h := float64(rect.Dx()), float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, bevelLight)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, bevelLight)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+h-2, w-3, 1, borderColor)
	ebitenutil.DrawRect(screen, x+w-2, y+1, 1, h-3, borderColor)
}

// drawSunkenBorder draws a sunken bevel.
func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float64(rect.Min.X), float64(rect.Min.Y)
	w, h := float64(rect.Dx()), float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, borderColor)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, borderColor)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelLight)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelLight)
	ebitenutil.DrawRect(screen, x+1, y+1, w-3, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+2, 1, h-4, bevelDarker)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		img = ebiten.NewImage(max(1, len(msg)*7), 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 1000 {
			clear(g.textCache)
		}
		g.textCache[msg] = img
	}
	shadow := &ebiten.DrawImageOptions{}
	shadow.GeoM.Scale(textScale, textScale)
	shadow.GeoM.Translate(float64(x+2), float64(y+2))
	shadow.ColorScale.Scale(0, 0, 0, 1)
	screen.DrawImage(img, shadow)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

func shortenEnd(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return s[:max(0, maxChars)]
	}
	return s[:maxChars-3] + "..."
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return image.Pt(x, y).In(rect)
}

func main() {
	var (
		polyphony = flag.Int("polyphony", 16, "number of voices (1-64)")
		mono      = flag.Bool("mono", false, "single voice with last-note priority")
		sets      = flag.String("set", "", "comma-separated id=value parameter assignments")
	)
	flag.Parse()

	snap := intparams.Default()
	if *sets != "" {
		for _, a := range strings.Split(*sets, ",") {
			if err := registry.Assign(&snap, a); err != nil {
				log.Fatal(err)
			}
		}
	}
	g, err := newGame(polysynth.WithPolyphony(*polyphony), polysynth.WithMono(*mono), polysynth.WithParams(snap))
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("polysynth")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
