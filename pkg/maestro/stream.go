package maestro

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// reconnectDelay implements a linear backoff: the nth attempt waits
// n*base, capped at max.
func reconnectDelay(attempt int, base, max time.Duration) time.Duration {
	delay := time.Duration(attempt) * base
	if delay > max {
		return max
	}
	return delay
}

// StreamClient speaks the assistant protocol over a websocket. It owns
// the connection lifecycle, decodes server frames into events, and
// drives the renderer and dispatcher from the event stream.
type StreamClient struct {
	config     *ClientConfig
	session    *SessionContext
	renderer   Renderer
	dispatcher *Dispatcher
	logger     *Logger

	conn               *websocket.Conn
	state              ConnectionState
	eventHandlers      []EventHandler
	connectionHandlers []ConnectionHandler
	errorHandlers      []ErrorHandler
	reconnectAttempts  int
	shouldReconnect    bool
	replyInFlight      bool
	streaming          bool
	ctx                context.Context
	cancel             context.CancelFunc
	mu                 sync.Mutex
}

func NewStreamClient(config *ClientConfig, renderer Renderer, dispatcher *Dispatcher) *StreamClient {
	ctx, cancel := context.WithCancel(context.Background())

	if config == nil {
		config = NewClientConfig()
	}
	if renderer == nil {
		renderer = NewConsoleRenderer()
	}

	c := &StreamClient{
		config:             config,
		session:            NewSessionContext(),
		renderer:           renderer,
		dispatcher:         dispatcher,
		logger:             GetGlobalLogger().WithComponent("stream"),
		state:              Disconnected,
		eventHandlers:      []EventHandler{},
		connectionHandlers: []ConnectionHandler{},
		errorHandlers:      []ErrorHandler{},
		shouldReconnect:    true,
		ctx:                ctx,
		cancel:             cancel,
	}
	c.session.SetSender(c)
	if dispatcher != nil {
		dispatcher.Bind(c.session)
	}
	return c
}

func (c *StreamClient) Session() *SessionContext { return c.session }

func (c *StreamClient) Connect() error {
	c.mu.Lock()
	if c.state == Connected || c.state == Connecting {
		c.mu.Unlock()
		return NewConnectionError("already connected or connecting")
	}
	c.setState(Connecting)
	c.reconnectAttempts = 0
	c.mu.Unlock()

	if err := c.connectWithRetry(); err != nil {
		wrapped := WrapError(err, ErrCodeConnectionFailed)
		c.handleError(wrapped)
		return wrapped
	}
	return nil
}

// connectWithRetry dials until connected or attempts run out. It must
// not be called with c.mu held: backoff sleeps happen between short
// critical sections so sends and state reads stay responsive.
func (c *StreamClient) connectWithRetry() error {
	for {
		err := c.performConnection()
		if err == nil {
			c.mu.Lock()
			c.setState(Connected)
			c.reconnectAttempts = 0
			conn := c.conn
			c.mu.Unlock()
			go c.readLoop(conn)
			return nil
		}

		c.mu.Lock()
		c.reconnectAttempts++
		attempt := c.reconnectAttempts
		exhausted := attempt >= c.config.MaxReconnectAttempts
		if exhausted {
			c.setState(ErrorState)
		}
		c.mu.Unlock()

		if exhausted {
			return err
		}

		delay := reconnectDelay(attempt, c.config.ReconnectBaseDelay, c.config.ReconnectMaxDelay)
		if c.config.DebugWebsocket {
			c.logger.Debugf("connect attempt %d failed, retrying in %s: %v", attempt, delay, err)
		}
		time.Sleep(delay)
	}
}

func (c *StreamClient) performConnection() error {
	header := make(http.Header)
	for k, v := range c.config.Headers {
		header.Set(k, v)
	}

	conn, _, err := websocket.DefaultDialer.Dial(c.config.WsEndpoint, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *StreamClient) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, payload, err := conn.ReadMessage()
			if err != nil {
				c.mu.Lock()
				if c.shouldReconnect && c.state == Connected {
					c.setState(Reconnecting)
					go c.handleReconnect()
				}
				c.mu.Unlock()
				return
			}

			c.handleFrame(payload)
		}
	}
}

func (c *StreamClient) handleFrame(payload []byte) {
	if c.config.DebugWebsocket {
		c.logger.Debugf("received frame: %s", string(payload))
	}

	event, err := DecodeEvent(payload)
	if err != nil {
		c.handleError(WrapError(err, ErrCodeDecode))
		return
	}

	c.processEvent(event)

	// Handlers run synchronously on the read loop so order-sensitive
	// consumers like the transcript see events in arrival order.
	c.mu.Lock()
	handlers := make([]EventHandler, len(c.eventHandlers))
	copy(handlers, c.eventHandlers)
	c.mu.Unlock()
	for _, handler := range handlers {
		handler(event)
	}
}

// processEvent applies each server event to the session, the renderer
// and the widget dispatcher.
func (c *StreamClient) processEvent(event Event) {
	c.logger.LogProtocolEvent(event.Kind(), map[string]interface{}{"session_id": event.SessionID()})

	// Any frame may carry the session identifier; adopt it wherever it
	// shows up. An absent id never clears the current one.
	if id := event.SessionID(); id != "" {
		c.session.SetID(id)
	}

	switch ev := event.(type) {
	case *TokenEvent:
		c.mu.Lock()
		first := !c.streaming
		c.streaming = true
		c.mu.Unlock()
		if first {
			c.renderer.ClearTyping()
		}
		c.renderer.AppendStreamText(ev.Content)

	case *ThinkingEvent:
		c.renderer.AppendThinking(ev.Content)

	case *ToolCallEvent:
		// A tool call ends the current text stream but the turn is
		// still open; the final response is yet to arrive.
		c.mu.Lock()
		wasStreaming := c.streaming
		c.streaming = false
		c.mu.Unlock()
		if wasStreaming {
			c.renderer.FinalizeStream(nil)
		}
		if ev.Message != "" {
			c.renderer.RenderNotice(ev.Message)
		}
		if c.dispatcher != nil {
			c.dispatcher.Dispatch(ev)
		}

	case *ResponseEvent:
		var media *ReplyMedia
		if ev.AudioFileID != "" || ev.NotationURL != "" {
			media = &ReplyMedia{AudioFileID: ev.AudioFileID, NotationURL: ev.NotationURL}
		}

		c.mu.Lock()
		wasStreaming := c.streaming
		c.streaming = false
		c.replyInFlight = false
		c.mu.Unlock()

		c.renderer.ClearTyping()
		if wasStreaming {
			c.renderer.FinalizeStream(media)
		} else if ev.Message != "" || media != nil {
			c.renderer.RenderAssistantMessage(ev.Message, media)
		}

	case *ErrorEvent:
		c.mu.Lock()
		wasStreaming := c.streaming
		c.streaming = false
		c.replyInFlight = false
		c.mu.Unlock()

		c.renderer.ClearTyping()
		if wasStreaming {
			c.renderer.FinalizeStream(nil)
		}
		c.renderer.RenderError(ev.Message)

	case *RecordingCancelledEvent:
		if c.dispatcher != nil {
			c.dispatcher.CancelRecording(ev.RecordingID)
		}
		if ev.Message != "" {
			c.renderer.RenderNotice(ev.Message)
		}

	case *UnknownEvent:
		if ev.Message != "" {
			c.renderer.RenderNotice(ev.Message)
		} else {
			c.logger.Debugf("ignoring unrecognized event type %q", ev.Type)
		}
	}
}

// SendMessage submits a user turn and asks for a streamed reply. It is
// rejected while disconnected or while a reply is still in flight, so
// callers can surface the refusal instead of silently queueing.
func (c *StreamClient) SendMessage(text string) error {
	return c.sendMessage(text, true)
}

// SendMessageOneShot submits a user turn and asks for the reply as a
// single response frame instead of a token stream.
func (c *StreamClient) SendMessageOneShot(text string) error {
	return c.sendMessage(text, false)
}

func (c *StreamClient) sendMessage(text string, stream bool) error {
	c.mu.Lock()

	if c.state != Connected {
		c.mu.Unlock()
		return NewSendRejectedError("not connected")
	}
	if c.replyInFlight {
		c.mu.Unlock()
		return NewSendRejectedError("a reply is already in progress")
	}

	c.replyInFlight = true
	frame := NewMessageFrame(text, c.session.ID(), stream)
	err := c.writeFrame(frame)
	if err != nil {
		c.replyInFlight = false
	}
	c.mu.Unlock()

	if err == nil {
		c.renderer.ShowTyping()
	}
	return err
}

// SendFrame satisfies FrameSender for collaborators that emit protocol
// frames outside the user-turn gate, such as recorder announcements.
func (c *StreamClient) SendFrame(frame interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Connected {
		return NewSendRejectedError("not connected")
	}
	return c.writeFrame(frame)
}

// writeFrame serializes a frame onto the socket. Caller holds c.mu.
func (c *StreamClient) writeFrame(frame interface{}) error {
	if c.conn == nil {
		return NewSendRejectedError("no connection")
	}
	if c.config.DebugWebsocket {
		c.logger.Debugf("sending frame: %+v", frame)
	}
	if err := c.conn.WriteJSON(frame); err != nil {
		return WrapError(err, ErrCodeWebSocket)
	}
	return nil
}

func (c *StreamClient) handleReconnect() {
	c.mu.Lock()
	if c.state != Reconnecting {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := c.connectWithRetry(); err != nil {
		c.handleError(WrapError(err, ErrCodeReconnectFailed))
	}
}

func (c *StreamClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shouldReconnect = false
	c.cancel()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	c.replyInFlight = false
	c.streaming = false
	c.setState(Disconnected)
}

// setState transitions the connection state and notifies handlers.
// Caller holds c.mu.
func (c *StreamClient) setState(state ConnectionState) {
	if c.state != state {
		c.state = state
		c.logger.LogConnectionEvent("state_change", state)
		for _, handler := range c.connectionHandlers {
			go handler(state)
		}
	}
}

func (c *StreamClient) handleError(err *ClientError) {
	c.logger.LogClientError(err)

	c.mu.Lock()
	handlers := make([]ErrorHandler, len(c.errorHandlers))
	copy(handlers, c.errorHandlers)
	c.mu.Unlock()
	for _, handler := range handlers {
		go handler(err)
	}
}

func (c *StreamClient) AddEventHandler(handler EventHandler) func() {
	c.mu.Lock()
	c.eventHandlers = append(c.eventHandlers, handler)
	idx := len(c.eventHandlers) - 1
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		if idx < len(c.eventHandlers) {
			c.eventHandlers = append(c.eventHandlers[:idx], c.eventHandlers[idx+1:]...)
		}
		c.mu.Unlock()
	}
}

func (c *StreamClient) AddConnectionHandler(handler ConnectionHandler) func() {
	c.mu.Lock()
	c.connectionHandlers = append(c.connectionHandlers, handler)
	idx := len(c.connectionHandlers) - 1
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		if idx < len(c.connectionHandlers) {
			c.connectionHandlers = append(c.connectionHandlers[:idx], c.connectionHandlers[idx+1:]...)
		}
		c.mu.Unlock()
	}
}

func (c *StreamClient) AddErrorHandler(handler ErrorHandler) func() {
	c.mu.Lock()
	c.errorHandlers = append(c.errorHandlers, handler)
	idx := len(c.errorHandlers) - 1
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		if idx < len(c.errorHandlers) {
			c.errorHandlers = append(c.errorHandlers[:idx], c.errorHandlers[idx+1:]...)
		}
		c.mu.Unlock()
	}
}

func (c *StreamClient) GetState() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *StreamClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Connected
}

func (c *StreamClient) ReplyInFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replyInFlight
}
