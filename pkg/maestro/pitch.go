package maestro

import (
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/mjibson/go-dsp/fft"
)

const (
	// Readings outside the practical instrument range are unreliable
	// and discarded; the last displayed value is retained.
	MinPitchHz = 80.0
	MaxPitchHz = 2000.0

	// Analysis cadence approximates a display refresh callback.
	pitchPollInterval = 16 * time.Millisecond
)

// AcceptableReading reports whether a frequency estimate falls inside
// the trusted instrument range.
func AcceptableReading(freq float64) bool {
	return freq >= MinPitchHz && freq <= MaxPitchHz
}

// DominantFrequency estimates the strongest fundamental in one analysis
// window as the maximum-magnitude FFT bin.
func DominantFrequency(samples []float64, sampleRate float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	spectrum := fft.FFTReal(samples)

	maxIdx := 0
	maxMag := 0.0
	for i := 1; i < len(spectrum)/2; i++ {
		re, im := real(spectrum[i]), imag(spectrum[i])
		mag := re*re + im*im
		if mag > maxMag {
			maxMag = mag
			maxIdx = i
		}
	}
	return BinFrequency(maxIdx, sampleRate, len(samples)/2)
}

// BinFrequency converts a spectral bin index to its center frequency for
// an analysis producing binCount usable bins.
func BinFrequency(bin int, sampleRate float64, binCount int) float64 {
	if binCount == 0 {
		return 0
	}
	return float64(bin) * sampleRate / float64(2*binCount)
}

// PitchDetector continuously analyzes a live input stream and reports
// in-range fundamental frequency estimates. Polling stops with the
// widget, so analysis naturally pauses when the owner is stopped.
type PitchDetector struct {
	cfg *AudioConfig

	mu      sync.Mutex // lifecycle
	stream  *portaudio.Stream
	poll    *Schedule
	running bool

	windowMu sync.Mutex // held by the capture callback
	window   []float64
	filled   int
}

func NewPitchDetector(cfg *AudioConfig) *PitchDetector {
	if cfg == nil {
		cfg = NewAudioConfig()
	}
	return &PitchDetector{
		cfg:    cfg,
		window: make([]float64, cfg.WindowSize),
	}
}

// Start opens the capture device and begins periodic analysis. onReading
// is invoked only for accepted (in-range) readings.
func (d *PitchDetector) Start(onReading func(freq float64)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return NewCaptureError("pitch detector already running")
	}
	if err := portaudio.Initialize(); err != nil {
		return WrapError(err, ErrCodeAudioDevice)
	}

	stream, err := portaudio.OpenDefaultStream(d.cfg.Channels, 0, float64(d.cfg.SampleRate), d.cfg.BufferSize, d.capture)
	if err != nil {
		portaudio.Terminate()
		return WrapError(err, ErrCodeCapture)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return WrapError(err, ErrCodeCapture)
	}

	d.stream = stream
	d.running = true
	d.poll = StartSchedule(ConstantRate(pitchPollInterval), func(int) {
		if freq, ok := d.analyze(); ok {
			onReading(freq)
		}
	})
	return nil
}

// capture shifts fresh samples into the rolling analysis window.
func (d *PitchDetector) capture(in []float32) {
	d.windowMu.Lock()
	defer d.windowMu.Unlock()

	if n := len(in); n >= len(d.window) {
		in = in[n-len(d.window):]
		for i, s := range in {
			d.window[i] = float64(s)
		}
		d.filled = len(d.window)
		return
	}

	keep := len(d.window) - len(in)
	if d.filled > keep {
		copy(d.window, d.window[d.filled-keep:d.filled])
		d.filled = keep
	}
	for _, s := range in {
		d.window[d.filled] = float64(s)
		d.filled++
	}
}

func (d *PitchDetector) analyze() (float64, bool) {
	d.windowMu.Lock()
	if d.filled < len(d.window) {
		d.windowMu.Unlock()
		return 0, false
	}
	snapshot := make([]float64, len(d.window))
	copy(snapshot, d.window)
	d.windowMu.Unlock()
	sampleRate := float64(d.cfg.SampleRate)

	freq := DominantFrequency(snapshot, sampleRate)
	if !AcceptableReading(freq) {
		return 0, false
	}
	return freq, true
}

// Stop halts polling and releases the capture device. Idempotent.
func (d *PitchDetector) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}
	d.running = false

	d.windowMu.Lock()
	d.filled = 0
	d.windowMu.Unlock()

	if d.poll != nil {
		d.poll.Cancel()
		d.poll = nil
	}

	var firstErr error
	if d.stream != nil {
		if err := d.stream.Stop(); err != nil {
			firstErr = WrapError(err, ErrCodeCapture)
		}
		if err := d.stream.Close(); err != nil && firstErr == nil {
			firstErr = WrapError(err, ErrCodeCapture)
		}
		d.stream = nil
	}
	portaudio.Terminate()
	return firstErr
}
