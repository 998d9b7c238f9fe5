package maestro

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// RecorderConfig is the immutable creation configuration. MaxDuration is
// informational only; the server decides when a recording runs too long.
type RecorderConfig struct {
	Prompt      string
	MaxDuration float64
}

// RecordingStats summarizes one capture session.
type RecordingStats struct {
	Duration         time.Duration
	TotalSamples     int64
	AverageAmplitude float32
	MaxAmplitude     float32
	RMSAmplitude     float32

	sumAbs     float64
	sumSquares float64
}

func (s *RecordingStats) add(in []float32) {
	for _, v := range in {
		abs := float32(math.Abs(float64(v)))
		s.sumAbs += float64(abs)
		s.sumSquares += float64(v * v)
		if abs > s.MaxAmplitude {
			s.MaxAmplitude = abs
		}
	}
	s.TotalSamples += int64(len(in))
	if s.TotalSamples > 0 {
		s.AverageAmplitude = float32(s.sumAbs / float64(s.TotalSamples))
		s.RMSAmplitude = float32(math.Sqrt(s.sumSquares / float64(s.TotalSamples)))
	}
}

// Recorder captures microphone audio and hands the raw bytes to the
// upload collaborator, announcing the returned asset id to the server.
type Recorder struct {
	id       string
	cfg      RecorderConfig
	audioCfg *AudioConfig
	session  *SessionContext
	uploader Uploader

	mu        sync.Mutex // lifecycle
	state     RecordingState
	stream    *portaudio.Stream
	startedAt time.Time

	samplesMu sync.Mutex // held by the capture callback
	samples   []float32
	stats     RecordingStats
}

func NewRecorder(id string, cfg RecorderConfig, audioCfg *AudioConfig, session *SessionContext, uploader Uploader) *Recorder {
	if cfg.Prompt == "" {
		cfg.Prompt = "Please record audio"
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 60
	}
	if audioCfg == nil {
		audioCfg = NewAudioConfig()
	}
	if session == nil {
		session = NewSessionContext()
	}
	return &Recorder{
		id:       id,
		cfg:      cfg,
		audioCfg: audioCfg,
		session:  session,
		uploader: uploader,
		state:    IdleRecording,
	}
}

func (r *Recorder) ID() string       { return r.id }
func (r *Recorder) Kind() WidgetKind { return KindRecorder }

func (r *Recorder) Prompt() string { return r.cfg.Prompt }

func (r *Recorder) RecordingState() RecordingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) Stats() RecordingStats {
	r.samplesMu.Lock()
	defer r.samplesMu.Unlock()
	return r.stats
}

// Start opens the capture device. A microphone failure leaves the
// recorder idle; the capture simply does not begin.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Recording {
		return NewCaptureError("already recording")
	}
	if err := portaudio.Initialize(); err != nil {
		return WrapError(err, ErrCodeAudioDevice)
	}

	stream, err := portaudio.OpenDefaultStream(r.audioCfg.Channels, 0, float64(r.audioCfg.SampleRate), r.audioCfg.BufferSize, r.capture)
	if err != nil {
		portaudio.Terminate()
		return WrapError(err, ErrCodeCapture)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return WrapError(err, ErrCodeCapture)
	}

	r.samplesMu.Lock()
	r.samples = r.samples[:0]
	r.stats = RecordingStats{}
	r.samplesMu.Unlock()

	r.stream = stream
	r.startedAt = time.Now()
	r.state = Recording
	return nil
}

func (r *Recorder) capture(in []float32) {
	r.samplesMu.Lock()
	r.samples = append(r.samples, in...)
	r.stats.add(in)
	r.samplesMu.Unlock()
}

// stopCapture releases the capture device. Caller holds r.mu.
func (r *Recorder) stopCapture() {
	if r.stream == nil {
		return
	}
	if err := r.stream.Stop(); err != nil {
		GetGlobalLogger().WithComponent("recorder").WithError(err).Warn("capture stop failed")
	}
	if err := r.stream.Close(); err != nil {
		GetGlobalLogger().WithComponent("recorder").WithError(err).Warn("capture close failed")
	}
	r.stream = nil
	portaudio.Terminate()

	r.samplesMu.Lock()
	r.stats.Duration = time.Since(r.startedAt)
	r.samplesMu.Unlock()
}

// StopAndSend ends the capture, uploads the audio and announces the
// asset to the server. An upload failure returns the recorder to the
// retryable idle state instead of tearing it down.
func (r *Recorder) StopAndSend(ctx context.Context) error {
	r.mu.Lock()
	if r.state != Recording && r.state != IdleRecording {
		r.mu.Unlock()
		return NewCaptureError("nothing to send")
	}
	r.stopCapture()
	r.state = UploadingRecording

	r.samplesMu.Lock()
	audio := EncodeSamples(r.samples)
	r.samplesMu.Unlock()
	r.mu.Unlock()

	if len(audio) == 0 {
		r.setState(IdleRecording)
		return NewCaptureError("no audio captured")
	}
	if r.uploader == nil {
		r.setState(IdleRecording)
		return NewUploadError("no uploader configured")
	}

	fileID, err := r.uploader.Upload(ctx, r.id, audio)
	if err != nil {
		r.setState(IdleRecording)
		return WrapError(err, ErrCodeUpload)
	}

	if err := r.session.Send(NewAudioReadyFrame(fileID, r.id, r.session.ID())); err != nil {
		r.setState(IdleRecording)
		return err
	}
	r.setState(CompletedRecording)
	return nil
}

// Cancel aborts the capture and tells the server to drop the recording.
func (r *Recorder) Cancel() error {
	r.mu.Lock()
	r.stopCapture()
	r.state = IdleRecording
	r.mu.Unlock()

	return r.session.Send(NewCancelRecordingFrame(r.id))
}

// Stop ends the capture without sending anything. Stopping twice is safe.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Recording {
		return
	}
	r.stopCapture()
	r.state = IdleRecording
}

func (r *Recorder) setState(state RecordingState) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
}

// EncodeSamples serializes captured samples as little-endian float32 PCM.
func EncodeSamples(samples []float32) []byte {
	buf := new(bytes.Buffer)
	for _, sample := range samples {
		bits := math.Float32bits(sample)
		binary.Write(buf, binary.LittleEndian, bits)
	}
	return buf.Bytes()
}
