package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all assistant configuration
type Config struct {
	GeminiAPIKey string
	Model        string
	VoiceName    string

	InputSampleRate  int
	OutputSampleRate int
	MicBlockSize     int
	OutputGain       float64

	CameraEnabled bool
	CameraDevice  string
	CameraFormat  string
	CameraWidth   int
	CameraHeight  int
	FFmpegPath    string
	FrameRate     float64
	JPEGQuality   float64 // 0..1

	LogCapacity int
	LogFile     string

	HUDPort        int // 0 disables the websocket HUD feed
	AllowedOrigins []string

	RedisURL       string
	RedisPassword  string
	SessionTimeout time.Duration
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Model:            "models/gemini-2.5-flash-native-audio-preview-12-2025",
		VoiceName:        "Puck",
		InputSampleRate:  16000,
		OutputSampleRate: 24000,
		MicBlockSize:     4096,
		OutputGain:       1,
		CameraEnabled:    true,
		CameraWidth:      1280,
		CameraHeight:     720,
		FFmpegPath:       "ffmpeg",
		FrameRate:        1,
		JPEGQuality:      0.4,
		LogCapacity:      50,
		LogFile:          "jarvis.log",
		HUDPort:          8080,
		AllowedOrigins:   []string{"*"},
		RedisURL:         "localhost:6379",
		SessionTimeout:   30 * time.Minute,
	}

	// Required: GEMINI_API_KEY
	config.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	setString(&config.Model, "GEMINI_MODEL")
	setString(&config.VoiceName, "VOICE_NAME")
	setString(&config.CameraDevice, "CAMERA_DEVICE")
	setString(&config.CameraFormat, "CAMERA_FORMAT")
	setString(&config.FFmpegPath, "FFMPEG_PATH")
	setString(&config.LogFile, "LOG_FILE")
	setString(&config.RedisURL, "REDIS_URL")
	setString(&config.RedisPassword, "REDIS_PASSWORD")

	ints := []struct {
		key string
		dst *int
		min int
	}{
		{"INPUT_SAMPLE_RATE", &config.InputSampleRate, 1},
		{"OUTPUT_SAMPLE_RATE", &config.OutputSampleRate, 1},
		{"MIC_BLOCK_SIZE", &config.MicBlockSize, 1},
		{"CAMERA_WIDTH", &config.CameraWidth, 1},
		{"CAMERA_HEIGHT", &config.CameraHeight, 1},
		{"LOG_CAPACITY", &config.LogCapacity, 1},
		{"HUD_PORT", &config.HUDPort, 0},
	}
	for _, v := range ints {
		if err := setInt(v.dst, v.key, v.min); err != nil {
			return nil, err
		}
	}

	floats := []struct {
		key      string
		dst      *float64
		min, max float64
	}{
		{"FRAME_RATE", &config.FrameRate, 0.01, 60},
		{"JPEG_QUALITY", &config.JPEGQuality, 0, 1},
		{"OUTPUT_GAIN", &config.OutputGain, 0, 4},
	}
	for _, v := range floats {
		if err := setFloat(v.dst, v.key, v.min, v.max); err != nil {
			return nil, err
		}
	}

	// Optional: CAMERA_ENABLED
	if enabled := os.Getenv("CAMERA_ENABLED"); enabled != "" {
		b, err := strconv.ParseBool(enabled)
		if err != nil {
			return nil, fmt.Errorf("invalid CAMERA_ENABLED: %w", err)
		}
		config.CameraEnabled = b
	}

	// Optional: SESSION_TIMEOUT (in minutes)
	if timeout := os.Getenv("SESSION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
		}
		config.SessionTimeout = time.Duration(t) * time.Minute
	}

	// Optional: ALLOWED_ORIGINS (comma-separated)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, o)
			}
		}
	}

	return config, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string, min int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < min {
		return fmt.Errorf("invalid %s: must be at least %d", key, min)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string, min, max float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if f < min || f > max {
		return fmt.Errorf("invalid %s: must be between %g and %g", key, min, max)
	}
	*dst = f
	return nil
}
