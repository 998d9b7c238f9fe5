package maestro

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	fileID string
	err    error

	gotRecordingID string
	gotAudio       []byte
}

func (f *fakeUploader) Upload(_ context.Context, recordingID string, audio []byte) (string, error) {
	f.gotRecordingID = recordingID
	f.gotAudio = audio
	return f.fileID, f.err
}

type fakeSender struct {
	frames []interface{}
	err    error
}

func (f *fakeSender) SendFrame(frame interface{}) error {
	f.frames = append(f.frames, frame)
	return f.err
}

func newTestRecorder(uploader Uploader, sender FrameSender) *Recorder {
	session := NewSessionContext()
	session.SetID("sess-1")
	if sender != nil {
		session.SetSender(sender)
	}
	return NewRecorder("rec-1", RecorderConfig{}, NewAudioConfig(), session, uploader)
}

func TestEncodeSamples(t *testing.T) {
	assert.Empty(t, EncodeSamples(nil))

	encoded := EncodeSamples([]float32{1.0})
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, encoded)

	encoded = EncodeSamples([]float32{0, 1, -0.5})
	assert.Len(t, encoded, 12)
}

func TestRecordingStatsAdd(t *testing.T) {
	var stats RecordingStats
	stats.add([]float32{0.5, -0.5})

	assert.Equal(t, int64(2), stats.TotalSamples)
	assert.InDelta(t, 0.5, float64(stats.AverageAmplitude), 1e-6)
	assert.InDelta(t, 0.5, float64(stats.MaxAmplitude), 1e-6)
	assert.InDelta(t, 0.5, float64(stats.RMSAmplitude), 1e-6)

	stats.add([]float32{-1.0})
	assert.Equal(t, int64(3), stats.TotalSamples)
	assert.InDelta(t, 1.0, float64(stats.MaxAmplitude), 1e-6)
	assert.InDelta(t, 2.0/3.0, float64(stats.AverageAmplitude), 1e-6)
}

func TestRecorderDefaults(t *testing.T) {
	r := newTestRecorder(&fakeUploader{}, &fakeSender{})

	assert.Equal(t, "Please record audio", r.Prompt())
	assert.Equal(t, IdleRecording, r.RecordingState())
	assert.Equal(t, KindRecorder, r.Kind())
	assert.Equal(t, "rec-1", r.ID())
}

func TestRecorderStopAndSend(t *testing.T) {
	uploader := &fakeUploader{fileID: "af-9"}
	sender := &fakeSender{}
	r := newTestRecorder(uploader, sender)
	r.samples = []float32{0.1, 0.2, 0.3}

	require.NoError(t, r.StopAndSend(context.Background()))
	assert.Equal(t, CompletedRecording, r.RecordingState())
	assert.Equal(t, "rec-1", uploader.gotRecordingID)
	assert.Len(t, uploader.gotAudio, 12)

	require.Len(t, sender.frames, 1)
	frame, ok := sender.frames[0].(*AudioReadyFrame)
	require.True(t, ok)
	assert.Equal(t, "audio_ready", frame.Type)
	assert.Equal(t, "af-9", frame.AudioFileID)
	assert.Equal(t, "rec-1", frame.RecordingID)
	assert.Equal(t, "sess-1", frame.SessionID)
}

func TestRecorderStopAndSendUploadFailure(t *testing.T) {
	uploader := &fakeUploader{err: NewUploadError("storage unavailable")}
	sender := &fakeSender{}
	r := newTestRecorder(uploader, sender)
	r.samples = []float32{0.1}

	err := r.StopAndSend(context.Background())
	require.Error(t, err)
	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.True(t, IsRetryableError(clientErr))
	assert.Equal(t, IdleRecording, r.RecordingState())
	assert.Empty(t, sender.frames)

	// The captured audio survives for a retry.
	uploader.err = nil
	uploader.fileID = "af-1"
	require.NoError(t, r.StopAndSend(context.Background()))
	assert.Equal(t, CompletedRecording, r.RecordingState())
}

func TestRecorderStopAndSendNoAudio(t *testing.T) {
	r := newTestRecorder(&fakeUploader{fileID: "af-1"}, &fakeSender{})

	err := r.StopAndSend(context.Background())
	require.Error(t, err)
	assert.Equal(t, IdleRecording, r.RecordingState())
}

func TestRecorderStopAndSendSendFailure(t *testing.T) {
	sender := &fakeSender{err: NewSendRejectedError("no active connection")}
	r := newTestRecorder(&fakeUploader{fileID: "af-1"}, sender)
	r.samples = []float32{0.1}

	err := r.StopAndSend(context.Background())
	require.Error(t, err)
	assert.Equal(t, IdleRecording, r.RecordingState())
}

func TestRecorderStopAndSendAfterComplete(t *testing.T) {
	r := newTestRecorder(&fakeUploader{fileID: "af-1"}, &fakeSender{})
	r.samples = []float32{0.1}
	require.NoError(t, r.StopAndSend(context.Background()))

	err := r.StopAndSend(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to send")
}

func TestRecorderCancel(t *testing.T) {
	sender := &fakeSender{}
	r := newTestRecorder(&fakeUploader{}, sender)

	require.NoError(t, r.Cancel())
	assert.Equal(t, IdleRecording, r.RecordingState())

	require.Len(t, sender.frames, 1)
	frame, ok := sender.frames[0].(*CancelRecordingFrame)
	require.True(t, ok)
	assert.Equal(t, "cancel_recording", frame.Type)
	assert.Equal(t, "rec-1", frame.RecordingID)
}

func TestRecorderStopWhenIdle(t *testing.T) {
	r := newTestRecorder(&fakeUploader{}, &fakeSender{})
	r.Stop()
	assert.Equal(t, IdleRecording, r.RecordingState())
}
