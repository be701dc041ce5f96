package capture

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEndpoint       = "ws://localhost:5000/audio"
	defaultConnectTimeout = 12 * time.Second
	defaultChunkInterval  = time.Second
	defaultSampleRate     = 16000
	defaultChannels       = 1
)

// Config controls capture and streaming behavior. Values are loaded from the
// environment (CAPTURE_* keys, .env supported) with sensible defaults.
type Config struct {
	Endpoint        string            `json:"endpoint"`
	APIKey          string            `json:"-"`
	UserID          string            `json:"user_id,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	ConnectTimeout  time.Duration     `json:"connect_timeout"`
	ChunkInterval   time.Duration     `json:"chunk_interval"`
	SampleRate      int               `json:"sample_rate"`
	Channels        int               `json:"channels"`
	BufferSize      int               `json:"buffer_size"`
	SecondaryAudio  bool              `json:"secondary_audio"`
	SecondaryMatch  []string          `json:"secondary_match,omitempty"`
	Encodings       []string          `json:"encodings,omitempty"`
	DebugTransport  bool              `json:"debug_transport"`
	DebugAudio      bool              `json:"debug_audio"`
	AllowInsecureWS bool              `json:"allow_insecure_ws"`
}

func NewConfig() *Config {
	c := &Config{
		Endpoint:       defaultEndpoint,
		ConnectTimeout: defaultConnectTimeout,
		ChunkInterval:  defaultChunkInterval,
		SampleRate:     defaultSampleRate,
		Channels:       defaultChannels,
		BufferSize:     1024,
		SecondaryAudio: true,
		SecondaryMatch: []string{"monitor", "loopback", "stereo mix"},
		Encodings:      []string{EncodingPCM16, EncodingPCMF32},
		Headers:        make(map[string]string),
	}
	c.loadFromEnv()
	return c
}

func (c *Config) loadFromEnv() {
	// Load .env if exists
	_ = godotenv.Load()

	if endpoint := os.Getenv("CAPTURE_WS_ENDPOINT"); endpoint != "" {
		c.Endpoint = endpoint
	}
	c.APIKey = os.Getenv("CAPTURE_API_KEY")
	c.UserID = os.Getenv("CAPTURE_USER_ID")

	if timeout := os.Getenv("CAPTURE_CONNECT_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			c.ConnectTimeout = d
		}
	}

	if interval := os.Getenv("CAPTURE_CHUNK_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil && d > 0 {
			c.ChunkInterval = d
		}
	}

	if rate := os.Getenv("CAPTURE_SAMPLE_RATE"); rate != "" {
		if val, err := strconv.Atoi(rate); err == nil && val > 0 {
			c.SampleRate = val
		}
	}

	if channels := os.Getenv("CAPTURE_CHANNELS"); channels != "" {
		if val, err := strconv.Atoi(channels); err == nil && val > 0 {
			c.Channels = val
		}
	}

	if secondary := os.Getenv("CAPTURE_SECONDARY_AUDIO"); secondary != "" {
		c.SecondaryAudio = secondary != "false"
	}

	c.DebugTransport = os.Getenv("CAPTURE_DEBUG_TRANSPORT") == "true"
	c.DebugAudio = os.Getenv("CAPTURE_DEBUG_AUDIO") == "true"
	c.AllowInsecureWS = os.Getenv("CAPTURE_ALLOW_INSECURE_WS") == "true"
}

// EndpointIsSecure reports whether the endpoint is wss:// or targets a
// loopback host. Plain ws:// to a remote host is treated like an insecure
// execution context and rejected before any device is touched.
func (c *Config) EndpointIsSecure() bool {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return false
	}
	if u.Scheme == "wss" {
		return true
	}
	if u.Scheme != "ws" {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// Validate returns list of issues
func (c *Config) Validate() []string {
	issues := []string{}

	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		issues = append(issues, fmt.Sprintf("Invalid websocket endpoint: %s", c.Endpoint))
	} else if !c.EndpointIsSecure() && !c.AllowInsecureWS {
		issues = append(issues, "Endpoint uses ws:// to a non-loopback host (set CAPTURE_ALLOW_INSECURE_WS=true to override)")
	}

	if c.APIKey != "" {
		if _, err := ValidateAPIKeyFormat(c.APIKey); err != nil {
			issues = append(issues, "Invalid API key format (should start with 'cap_')")
		}
	}

	if c.ConnectTimeout < time.Second {
		issues = append(issues, "Connect timeout below 1s is unlikely to succeed")
	}
	if c.ChunkInterval < 100*time.Millisecond {
		issues = append(issues, "Chunk interval below 100ms floods the transport")
	}
	if len(c.Encodings) == 0 {
		issues = append(issues, "No preferred encodings configured")
	}

	return issues
}

func (c *Config) PrintConfig() {
	fmt.Println("Capture SDK Configuration")
	fmt.Println("==================================================")
	fmt.Printf("Endpoint: %s\n", c.Endpoint)
	if c.APIKey != "" {
		fmt.Printf("API Key: %s...\n", c.APIKey[:min(len(c.APIKey), 8)])
	} else {
		fmt.Println("API Key: NOT SET")
	}
	if c.UserID != "" {
		fmt.Printf("User ID: %s\n", c.UserID)
	}
	fmt.Printf("Connect Timeout: %s\n", c.ConnectTimeout)
	fmt.Printf("Chunk Interval: %s\n", c.ChunkInterval)
	fmt.Printf("Sample Rate: %d\n", c.SampleRate)
	fmt.Printf("Channels: %d\n", c.Channels)
	fmt.Printf("Secondary Audio: %t\n", c.SecondaryAudio)
	fmt.Printf("Encodings: %s\n", strings.Join(c.Encodings, ", "))
	fmt.Printf("Debug Transport: %t\n", c.DebugTransport)
	fmt.Printf("Debug Audio: %t\n", c.DebugAudio)
}
