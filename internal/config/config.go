package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed captions.yaml
var captionsYAML []byte

type Config struct {
	CompanyCam CompanyCamConfig
	Content    ContentConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	Pairing    PairingConfig
	State      StateConfig
	Database   DatabaseConfig
	Web        WebConfig
	Captions   CaptionsConfig
}

type CompanyCamConfig struct {
	URL   string // API base URL, defaults to https://api.companycam.com/v2
	Token string // bearer token for API access
}

type ContentConfig struct {
	URL    string // content datastore REST endpoint (e.g., https://xyz.supabase.co)
	APIKey string // service key for the datastore
	Table  string // posts table name (default cc_posts)
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

// PairingConfig holds the tunable thresholds of the pairing engine.
// Zero values are replaced by defaults in pairing.DefaultConfig.
type PairingConfig struct {
	GapThresholdSeconds int     // max gap between photos in one batch (default 1800)
	MinBatchSize        int     // minimum photos per batch (default 2)
	MinGapSeconds       int     // min gap between before/after batches (default 3600)
	MinSimilarity       float64 // Jaccard threshold for fingerprint candidates (default 0.3)
	GPSToleranceMeters  float64 // max haversine distance for a GPS match (default 50)
	AcceptThreshold     float64 // minimum composite score to accept a pair (default 0.5)
}

type StateConfig struct {
	FilePath     string // path to JSON run-state file (default .photo-pairer-state.json)
	MaxPhotoIDs  int    // bounded history of seen photo ids (default 1000)
	MaxPairKeys  int    // bounded history of emitted pair keys (default 200)
	UsePostgres  bool   // persist run state in PostgreSQL instead of the state file
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	Token string // bearer token required by the web API (empty disables auth)
}

type CaptionsConfig struct {
	Captions []string `yaml:"captions"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envOr returns the env var value or the default when unset.
func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var captions CaptionsConfig
	if err := yaml.Unmarshal(captionsYAML, &captions); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded captions.yaml: " + err.Error())
	}

	return &Config{
		CompanyCam: CompanyCamConfig{
			URL:   envOr("COMPANYCAM_URL", "https://api.companycam.com/v2"),
			Token: os.Getenv("COMPANYCAM_TOKEN"),
		},
		Content: ContentConfig{
			URL:    os.Getenv("CONTENT_URL"),
			APIKey: os.Getenv("CONTENT_API_KEY"),
			Table:  envOr("CONTENT_TABLE", "cc_posts"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Pairing: PairingConfig{
			GapThresholdSeconds: envInt("PAIRING_GAP_THRESHOLD", 1800),
			MinBatchSize:        envInt("PAIRING_MIN_BATCH_SIZE", 2),
			MinGapSeconds:       envInt("PAIRING_MIN_BATCH_GAP", 3600),
			MinSimilarity:       envFloat("PAIRING_MIN_SIMILARITY", 0.3),
			GPSToleranceMeters:  envFloat("PAIRING_GPS_TOLERANCE", 50),
			AcceptThreshold:     envFloat("PAIRING_ACCEPT_THRESHOLD", 0.5),
		},
		State: StateConfig{
			FilePath:    envOr("STATE_FILE", ".photo-pairer-state.json"),
			MaxPhotoIDs: envInt("STATE_MAX_PHOTO_IDS", 1000),
			MaxPairKeys: envInt("STATE_MAX_PAIR_KEYS", 200),
			UsePostgres: os.Getenv("STATE_USE_POSTGRES") == "true",
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			Token: os.Getenv("WEB_TOKEN"),
		},
		Captions: captions,
	}
}

// Caption returns the caption for the given day of month, rotating through
// the embedded list. Returns an empty string if no captions are configured.
func (c *Config) Caption(dayOfMonth int) string {
	if len(c.Captions.Captions) == 0 {
		return ""
	}
	return c.Captions.Captions[dayOfMonth%len(c.Captions.Captions)]
}
