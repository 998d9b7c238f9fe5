// Package maestro provides a Go client SDK for a conversational
// music-practice assistant: a streaming chat protocol over WebSocket
// plus real-time audio practice widgets.
//
// # Overview
//
// The Maestro SDK provides a complete solution for:
//   - Streaming assistant replies token-by-token with auto-reconnection
//   - Server-driven practice widgets: metronome, tuner, tempo trainer,
//     chord progression player, ear trainer, practice timer
//   - Microphone recording with upload hand-off
//   - Audio device enumeration and validation
//   - Structured logging with Zerolog
//   - Type-safe protocol events
//
// # Quick Start
//
// Basic usage example:
//
//	config := maestro.NewClientConfig()
//	dispatcher := maestro.NewDispatcher(nil, nil, uploader)
//	client := maestro.NewStreamClient(config, nil, dispatcher)
//
//	client.AddErrorHandler(maestro.CreateErrorLoggingHandler("main"))
//
//	if err := client.Connect(); err != nil {
//		log.Fatal(err)
//	}
//	client.SendMessage("give me a metronome at 90 bpm")
//
// # Configuration
//
// The SDK uses two main configuration structures:
//
// ClientConfig for connection settings:
//
//	config := maestro.NewClientConfig()
//	config.WsEndpoint = "wss://example.com/ws"
//	config.MaxReconnectAttempts = 5
//
// AudioConfig for audio-specific settings:
//
//	audioConfig := maestro.NewAudioConfig()
//	audioConfig.SampleRate = 44100
//	audioConfig.BufferSize = 2048
//
// Both load from YAML files and MAESTRO_* environment variables via
// LoadConfig.
//
// # Practice Widgets
//
// Widgets are normally created by server tool calls through the
// Dispatcher, but can be driven directly:
//
//	m := maestro.NewMetronome("m1", maestro.MetronomeConfig{BPM: 90}, nil)
//	if err := m.Play(); err != nil {
//		log.Fatal(err)
//	}
//	defer m.Stop()
//
// # Event Handlers
//
// Observers attach to the protocol stream without affecting the
// built-in rendering:
//
//	unsubscribe := client.AddEventHandler(maestro.CreateTokenHandler(func(text string) {
//		fmt.Print(text)
//	}))
//	defer unsubscribe()
//
// # Error Handling
//
// Errors carry machine-readable codes:
//
//	err := maestro.NewConnectionError("dial failed")
//	err.AddDetail("endpoint", "wss://example.com/ws")
//	if maestro.IsRetryableError(err) {
//		// retry
//	}
//
// # Thread Safety
//
// All client operations are protected by mutexes, handlers run in
// separate goroutines, and each widget owns its own audio resources.
//
// # Dependencies
//
// The SDK depends on:
//   - github.com/gorilla/websocket: WebSocket client
//   - github.com/gordonklaus/portaudio: Audio I/O
//   - github.com/mjibson/go-dsp: FFT pitch detection
//   - github.com/rs/zerolog: Structured logging
//   - github.com/spf13/cobra: CLI framework
//   - github.com/joho/godotenv: Environment variables
//   - github.com/google/uuid: Widget identifiers
//   - gopkg.in/yaml.v3: Config files
package maestro
