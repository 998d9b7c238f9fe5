package maestro

import (
	"time"
)

// Factory functions for common handlers

func CreateLoggingEventHandler(verbose bool) EventHandler {
	logger := GetGlobalLogger().WithComponent("events")
	return func(event Event) {
		if verbose {
			logger.Infof("received %s (session=%s) at %s", event.Kind(), event.SessionID(), time.Now().Format(time.RFC3339))
		} else {
			logger.Infof("received %s", event.Kind())
		}
	}
}

func CreateTokenHandler(callback func(string)) EventHandler {
	return func(event Event) {
		if ev, ok := event.(*TokenEvent); ok && ev.Content != "" {
			callback(ev.Content)
		}
	}
}

func CreateResponseHandler(callback func(string, *ReplyMedia)) EventHandler {
	return func(event Event) {
		ev, ok := event.(*ResponseEvent)
		if !ok {
			return
		}
		var media *ReplyMedia
		if ev.AudioFileID != "" || ev.NotationURL != "" {
			media = &ReplyMedia{AudioFileID: ev.AudioFileID, NotationURL: ev.NotationURL}
		}
		callback(ev.Message, media)
	}
}

func CreateToolCallHandler(callback func(*ToolCallEvent)) EventHandler {
	return func(event Event) {
		if ev, ok := event.(*ToolCallEvent); ok {
			callback(ev)
		}
	}
}

func CreateErrorLoggingHandler(prefix string) ErrorHandler {
	logger := GetGlobalLogger().WithComponent(prefix)
	return func(err *ClientError) {
		if err != nil {
			logger.LogClientError(err)
		}
	}
}

func CreateConnectionStatusHandler(callback func(ConnectionState)) ConnectionHandler {
	logger := GetGlobalLogger().WithComponent("connection")
	return func(state ConnectionState) {
		logger.LogConnectionEvent("state_change", state)
		if callback != nil {
			callback(state)
		}
	}
}

func CreateEventKindFilter(kind EventKind, handler EventHandler) EventHandler {
	return func(event Event) {
		if event.Kind() == kind {
			handler(event)
		}
	}
}

// Composability functions

func ChainEventHandlers(handlers ...EventHandler) EventHandler {
	return func(event Event) {
		for _, h := range handlers {
			if h != nil {
				go h(event)
			}
		}
	}
}

func ChainErrorHandlers(handlers ...ErrorHandler) ErrorHandler {
	return func(err *ClientError) {
		for _, h := range handlers {
			if h != nil {
				go h(err)
			}
		}
	}
}

func ChainConnectionHandlers(handlers ...ConnectionHandler) ConnectionHandler {
	return func(state ConnectionState) {
		for _, h := range handlers {
			if h != nil {
				go h(state)
			}
		}
	}
}

func SequentialEventHandlers(handlers ...EventHandler) EventHandler {
	return func(event Event) {
		for _, h := range handlers {
			if h != nil {
				h(event)
			}
		}
	}
}
