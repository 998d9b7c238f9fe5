package maestro

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer records the calls the protocol client makes on its view.
type fakeRenderer struct {
	mu          sync.Mutex
	stream      strings.Builder
	thinking    strings.Builder
	finalized   []*ReplyMedia
	messages    []string
	errors      []string
	notices     []string
	typingShown int
	typingClear int
}

func (r *fakeRenderer) ShowTyping()  { r.mu.Lock(); r.typingShown++; r.mu.Unlock() }
func (r *fakeRenderer) ClearTyping() { r.mu.Lock(); r.typingClear++; r.mu.Unlock() }
func (r *fakeRenderer) AppendStreamText(text string) {
	r.mu.Lock()
	r.stream.WriteString(text)
	r.mu.Unlock()
}
func (r *fakeRenderer) AppendThinking(text string) {
	r.mu.Lock()
	r.thinking.WriteString(text)
	r.mu.Unlock()
}
func (r *fakeRenderer) FinalizeStream(media *ReplyMedia) {
	r.mu.Lock()
	r.finalized = append(r.finalized, media)
	r.mu.Unlock()
}
func (r *fakeRenderer) RenderAssistantMessage(text string, media *ReplyMedia) {
	r.mu.Lock()
	r.messages = append(r.messages, text)
	r.mu.Unlock()
}
func (r *fakeRenderer) RenderError(text string) {
	r.mu.Lock()
	r.errors = append(r.errors, text)
	r.mu.Unlock()
}
func (r *fakeRenderer) RenderNotice(text string) {
	r.mu.Lock()
	r.notices = append(r.notices, text)
	r.mu.Unlock()
}

func newTestClient(t *testing.T) (*StreamClient, *fakeRenderer, *Dispatcher) {
	t.Helper()
	renderer := &fakeRenderer{}
	dispatcher := NewDispatcher(nil, nil, nil)
	client := NewStreamClient(NewClientConfig(), renderer, dispatcher)
	return client, renderer, dispatcher
}

func mustEvent(t *testing.T, payload string) Event {
	t.Helper()
	ev, err := DecodeEvent([]byte(payload))
	require.NoError(t, err)
	return ev
}

func TestReconnectDelay(t *testing.T) {
	base := 3 * time.Second
	cap := 30 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 3 * time.Second},
		{2, 6 * time.Second},
		{3, 9 * time.Second},
		{10, 30 * time.Second},
		{100, 30 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, reconnectDelay(tt.attempt, base, cap), "attempt %d", tt.attempt)
	}
}

func TestProcessEventSessionID(t *testing.T) {
	client, _, _ := newTestClient(t)

	client.processEvent(mustEvent(t, `{"type":"session","session_id":"s-42"}`))
	assert.Equal(t, "s-42", client.Session().ID())

	// An empty session id never clobbers the stored one.
	client.processEvent(mustEvent(t, `{"type":"session"}`))
	assert.Equal(t, "s-42", client.Session().ID())
}

func TestProcessEventTokenConcatenation(t *testing.T) {
	client, renderer, _ := newTestClient(t)

	client.processEvent(mustEvent(t, `{"type":"token","content":"Hel"}`))
	client.processEvent(mustEvent(t, `{"type":"token","content":"lo "}`))
	client.processEvent(mustEvent(t, `{"type":"token","content":"world"}`))

	assert.Equal(t, "Hello world", renderer.stream.String())
	assert.Empty(t, renderer.finalized)
}

func TestProcessEventResponseFinalizesStreamWithMedia(t *testing.T) {
	client, renderer, _ := newTestClient(t)
	client.replyInFlight = true

	client.processEvent(mustEvent(t, `{"type":"token","content":"playing it"}`))
	client.processEvent(mustEvent(t, `{"type":"response","message":"done","audio_file_id":"af-1","notation_url":"https://x/n.png"}`))

	require.Len(t, renderer.finalized, 1)
	require.NotNil(t, renderer.finalized[0])
	assert.Equal(t, "af-1", renderer.finalized[0].AudioFileID)
	assert.Equal(t, "https://x/n.png", renderer.finalized[0].NotationURL)
	// The streamed text stands; the terminal message is not re-rendered.
	assert.Empty(t, renderer.messages)
	// Typing cleared once by the first token, once by the response.
	assert.Equal(t, 2, renderer.typingClear)
	assert.False(t, client.ReplyInFlight())
}

func TestProcessEventResponseWithoutStream(t *testing.T) {
	client, renderer, _ := newTestClient(t)

	client.processEvent(mustEvent(t, `{"type":"response","message":"direct answer"}`))

	require.Len(t, renderer.messages, 1)
	assert.Equal(t, "direct answer", renderer.messages[0])
	assert.Empty(t, renderer.finalized)
	assert.Equal(t, 1, renderer.typingClear)
}

func TestProcessEventToolCallPreemptsStream(t *testing.T) {
	client, renderer, dispatcher := newTestClient(t)
	client.replyInFlight = true

	client.processEvent(mustEvent(t, `{"type":"token","content":"setting up"}`))
	client.processEvent(mustEvent(t, `{"type":"tool_call","tool_name":"create_metronome","tool_id":"m-1","arguments":{"bpm":90}}`))

	// The stream closes without media.
	require.Len(t, renderer.finalized, 1)
	assert.Nil(t, renderer.finalized[0])
	// The widget exists.
	w, ok := dispatcher.Registry().Get("m-1")
	require.True(t, ok)
	assert.Equal(t, KindMetronome, w.Kind())
	t.Cleanup(w.Stop)
	// A tool call does not end the turn: the response is still pending.
	assert.True(t, client.ReplyInFlight())
}

func TestProcessEventErrorClearsStream(t *testing.T) {
	client, renderer, _ := newTestClient(t)
	client.replyInFlight = true

	client.processEvent(mustEvent(t, `{"type":"token","content":"half a rep"}`))
	client.processEvent(mustEvent(t, `{"type":"error","message":"model overloaded"}`))

	require.Len(t, renderer.finalized, 1)
	assert.Nil(t, renderer.finalized[0])
	require.Len(t, renderer.errors, 1)
	assert.Equal(t, "model overloaded", renderer.errors[0])
	assert.False(t, client.ReplyInFlight())
}

func TestProcessEventThinking(t *testing.T) {
	client, renderer, _ := newTestClient(t)

	client.processEvent(mustEvent(t, `{"type":"thinking","content":"considering tempo"}`))
	assert.Equal(t, "considering tempo", renderer.thinking.String())
}

func TestProcessEventRecordingCancelled(t *testing.T) {
	client, renderer, dispatcher := newTestClient(t)
	dispatcher.Registry().Create(&stubWidget{id: "rec-1", kind: KindRecorder})

	client.processEvent(mustEvent(t, `{"type":"recording_cancelled","recording_id":"rec-1","message":"recording cancelled"}`))

	_, ok := dispatcher.Registry().Get("rec-1")
	assert.False(t, ok)
	require.Len(t, renderer.notices, 1)
}

func TestSendMessageRejectedWhileDisconnected(t *testing.T) {
	client, _, _ := newTestClient(t)

	err := client.SendMessage("hello")
	require.Error(t, err)
	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, ErrCodeSendRejected, clientErr.Code)
	assert.False(t, client.ReplyInFlight())
}

func TestSendMessageRejectedWhileReplyInFlight(t *testing.T) {
	client, _, _ := newTestClient(t)
	client.state = Connected
	client.replyInFlight = true

	err := client.SendMessage("another one")
	require.Error(t, err)
	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, ErrCodeSendRejected, clientErr.Code)
}

func TestSendFrameRejectedWhileDisconnected(t *testing.T) {
	client, _, _ := newTestClient(t)

	err := client.SendFrame(NewCancelRecordingFrame("r-1"))
	require.Error(t, err)
}

func TestDisconnectResetsState(t *testing.T) {
	client, _, _ := newTestClient(t)
	client.state = Connected
	client.replyInFlight = true
	client.streaming = true

	client.Disconnect()

	assert.Equal(t, Disconnected, client.GetState())
	assert.False(t, client.ReplyInFlight())
	assert.False(t, client.IsConnected())
}

func TestAddHandlerUnsubscribe(t *testing.T) {
	client, _, _ := newTestClient(t)

	unsubscribe := client.AddEventHandler(func(Event) {})
	assert.Len(t, client.eventHandlers, 1)
	unsubscribe()
	assert.Len(t, client.eventHandlers, 0)
}

func TestConnectReturnsWhenAttemptsExhausted(t *testing.T) {
	config := NewClientConfig()
	config.WsEndpoint = "ws://127.0.0.1:1/v1/stream/chat"
	config.MaxReconnectAttempts = 1
	config.ReconnectBaseDelay = 10 * time.Millisecond

	client := NewStreamClient(config, &fakeRenderer{}, nil)
	reported := make(chan *ClientError, 1)
	client.AddErrorHandler(func(err *ClientError) { reported <- err })

	done := make(chan error, 1)
	go func() { done <- client.Connect() }()

	select {
	case err := <-done:
		require.Error(t, err)
		var clientErr *ClientError
		require.ErrorAs(t, err, &clientErr)
		assert.Equal(t, ErrCodeConnectionFailed, clientErr.Code)
	case <-time.After(3 * time.Second):
		t.Fatal("Connect did not return after attempts ran out")
	}

	// The client stays usable after the failure.
	assert.Equal(t, ErrorState, client.GetState())
	assert.Error(t, client.SendMessage("hello"))

	select {
	case err := <-reported:
		assert.Equal(t, ErrCodeConnectionFailed, err.Code)
	case <-time.After(time.Second):
		t.Fatal("error handler was not notified")
	}
}

func TestProcessEventSessionIDFromAnyEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"response", `{"type":"response","message":"hi","session_id":"s-77"}`},
		{"token", `{"type":"token","content":"hi","session_id":"s-77"}`},
		{"error", `{"type":"error","message":"boom","session_id":"s-77"}`},
		{"unknown", `{"type":"status_update","session_id":"s-77"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _ := newTestClient(t)
			client.processEvent(mustEvent(t, tt.payload))
			assert.Equal(t, "s-77", client.Session().ID())

			// An id-less follow-up never clears it.
			client.processEvent(mustEvent(t, `{"type":"token","content":"x"}`))
			assert.Equal(t, "s-77", client.Session().ID())
		})
	}
}

func TestProcessEventUnknownWithMessage(t *testing.T) {
	client, renderer, _ := newTestClient(t)

	client.processEvent(mustEvent(t, `{"type":"status_update","message":"server maintenance at noon"}`))
	require.Len(t, renderer.notices, 1)
	assert.Equal(t, "server maintenance at noon", renderer.notices[0])

	// Message-less unknown frames stay silent.
	client.processEvent(mustEvent(t, `{"type":"heartbeat"}`))
	assert.Len(t, renderer.notices, 1)
}

func TestProcessEventFirstTokenClearsTyping(t *testing.T) {
	client, renderer, _ := newTestClient(t)

	client.processEvent(mustEvent(t, `{"type":"token","content":"Hel"}`))
	assert.Equal(t, 1, renderer.typingClear)

	// Only the first token of a stream clears the indicator.
	client.processEvent(mustEvent(t, `{"type":"token","content":"lo"}`))
	assert.Equal(t, 1, renderer.typingClear)

	// The next turn starts a fresh stream and clears again.
	client.processEvent(mustEvent(t, `{"type":"response","message":""}`))
	client.processEvent(mustEvent(t, `{"type":"token","content":"next"}`))
	assert.Equal(t, 3, renderer.typingClear)
}

func TestHandleFrameDeliversEventsInOrder(t *testing.T) {
	client, _, _ := newTestClient(t)

	var kinds []EventKind
	client.AddEventHandler(func(ev Event) { kinds = append(kinds, ev.Kind()) })

	transcript := NewTranscript(0)
	client.AddEventHandler(transcript.Observe())

	client.handleFrame([]byte(`{"type":"token","content":"Hello "}`))
	client.handleFrame([]byte(`{"type":"token","content":"from "}`))
	client.handleFrame([]byte(`{"type":"token","content":"the band"}`))
	client.handleFrame([]byte(`{"type":"response"}`))

	assert.Equal(t, []EventKind{EventToken, EventToken, EventToken, EventResponse}, kinds)

	entries := transcript.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Hello from the band", entries[0].Content)
}

func TestSendMessageStreamFlag(t *testing.T) {
	frames := make(chan MessageFrame, 2)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var frame MessageFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			frames <- frame
		}
	}))
	defer server.Close()

	config := NewClientConfig()
	config.WsEndpoint = "ws" + strings.TrimPrefix(server.URL, "http")
	config.MaxReconnectAttempts = 1

	client := NewStreamClient(config, &fakeRenderer{}, nil)
	require.NoError(t, client.Connect())
	defer client.Disconnect()

	require.NoError(t, client.SendMessage("walk me through this solo"))
	select {
	case frame := <-frames:
		assert.True(t, frame.Stream)
	case <-time.After(2 * time.Second):
		t.Fatal("streamed message never arrived")
	}

	client.mu.Lock()
	client.replyInFlight = false
	client.mu.Unlock()

	require.NoError(t, client.SendMessageOneShot("just the answer"))
	select {
	case frame := <-frames:
		assert.False(t, frame.Stream)
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot message never arrived")
	}
}
