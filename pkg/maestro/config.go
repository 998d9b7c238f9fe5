package maestro

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ClientConfig holds connection and protocol settings.
type ClientConfig struct {
	WsEndpoint           string            `yaml:"ws_endpoint"`
	UploadEndpoint       string            `yaml:"upload_endpoint"`
	Headers              map[string]string `yaml:"headers,omitempty"`
	AutoConnect          bool              `yaml:"auto_connect"`
	MaxReconnectAttempts int               `yaml:"max_reconnect_attempts"`
	ReconnectBaseDelay   time.Duration     `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration     `yaml:"reconnect_max_delay"`
	DebugWebsocket       bool              `yaml:"debug_websocket"`
}

// AudioConfig holds shared audio input/output settings.
type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	Format     string `yaml:"format"`
	BufferSize int    `yaml:"buffer_size"`
	WindowSize int    `yaml:"window_size"`
	DeviceID   *int   `yaml:"device_id,omitempty"`
}

func NewClientConfig() *ClientConfig {
	c := &ClientConfig{
		WsEndpoint:           "ws://localhost:8000/v1/stream/chat",
		UploadEndpoint:       "http://localhost:8000/v1/audio/upload",
		Headers:              make(map[string]string),
		AutoConnect:          false,
		MaxReconnectAttempts: 10,
		ReconnectBaseDelay:   3 * time.Second,
		ReconnectMaxDelay:    30 * time.Second,
	}
	c.loadFromEnv()
	return c
}

func NewAudioConfig() *AudioConfig {
	return &AudioConfig{
		SampleRate: 44100,
		Channels:   1,
		Format:     "pcm_f32le",
		BufferSize: 1024,
		WindowSize: 4096,
	}
}

// LoadConfig reads an optional YAML file and then applies environment
// overrides on top of it. An empty path loads defaults plus environment.
func LoadConfig(path string) (*ClientConfig, error) {
	c := NewClientConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, WrapError(err, ErrCodeConfigInvalid)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, WrapError(err, ErrCodeConfigInvalid)
		}
		c.loadFromEnv()
	}
	return c, nil
}

func (c *ClientConfig) loadFromEnv() {
	// Load .env if exists
	_ = godotenv.Load()

	if endpoint := os.Getenv("MAESTRO_WS_ENDPOINT"); endpoint != "" {
		c.WsEndpoint = endpoint
	}
	if endpoint := os.Getenv("MAESTRO_UPLOAD_ENDPOINT"); endpoint != "" {
		c.UploadEndpoint = endpoint
	}
	c.AutoConnect = c.AutoConnect || os.Getenv("MAESTRO_AUTO_CONNECT") == "true"

	if maxReconnect := os.Getenv("MAESTRO_MAX_RECONNECT_ATTEMPTS"); maxReconnect != "" {
		if val, err := strconv.Atoi(maxReconnect); err == nil {
			c.MaxReconnectAttempts = val
		}
	}
	if delay := os.Getenv("MAESTRO_RECONNECT_BASE_DELAY_MS"); delay != "" {
		if val, err := strconv.Atoi(delay); err == nil {
			c.ReconnectBaseDelay = time.Duration(val) * time.Millisecond
		}
	}
	if delay := os.Getenv("MAESTRO_RECONNECT_MAX_DELAY_MS"); delay != "" {
		if val, err := strconv.Atoi(delay); err == nil {
			c.ReconnectMaxDelay = time.Duration(val) * time.Millisecond
		}
	}
	c.DebugWebsocket = c.DebugWebsocket || os.Getenv("MAESTRO_DEBUG_WEBSOCKET") == "true"
}

// Validate returns a list of configuration issues.
func (c *ClientConfig) Validate() []string {
	issues := []string{}

	if !strings.HasPrefix(c.WsEndpoint, "ws") {
		issues = append(issues, fmt.Sprintf("invalid WebSocket endpoint: %s", c.WsEndpoint))
	}
	if c.UploadEndpoint != "" && !strings.HasPrefix(c.UploadEndpoint, "http") {
		issues = append(issues, fmt.Sprintf("invalid upload endpoint: %s", c.UploadEndpoint))
	}
	if c.ReconnectBaseDelay <= 0 {
		issues = append(issues, "reconnect base delay must be positive")
	}
	if c.ReconnectMaxDelay < c.ReconnectBaseDelay {
		issues = append(issues, "reconnect max delay must be at least the base delay")
	}
	return issues
}

// Validate returns a list of audio configuration issues.
func (a *AudioConfig) Validate() []string {
	issues := []string{}

	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		issues = append(issues, fmt.Sprintf("sample rate %d outside 8000-192000", a.SampleRate))
	}
	if a.Channels < 1 {
		issues = append(issues, "at least one channel required")
	}
	if a.WindowSize&(a.WindowSize-1) != 0 || a.WindowSize == 0 {
		issues = append(issues, fmt.Sprintf("analysis window size %d must be a power of two", a.WindowSize))
	}
	return issues
}

func (c *ClientConfig) PrintConfig() {
	fmt.Println("Maestro SDK Configuration")
	fmt.Println("==================================================")
	fmt.Printf("WebSocket Endpoint: %s\n", c.WsEndpoint)
	fmt.Printf("Upload Endpoint: %s\n", c.UploadEndpoint)
	fmt.Printf("Auto Connect: %t\n", c.AutoConnect)
	fmt.Printf("Max Reconnect Attempts: %d\n", c.MaxReconnectAttempts)
	fmt.Printf("Reconnect Base Delay: %s\n", c.ReconnectBaseDelay)
	fmt.Printf("Reconnect Max Delay: %s\n", c.ReconnectMaxDelay)
	fmt.Printf("Debug WebSocket: %t\n", c.DebugWebsocket)
}
