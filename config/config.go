// Package config collects session settings from flags, environment variables and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sat8bit/firstcontact/conversation"
	"github.com/sat8bit/firstcontact/llm"
)

const (
	DefaultFeedURL    = "https://feeds.bbci.co.uk/news/world/rss.xml"
	DefaultHeadlines  = 5
	DefaultCasualties = 10000
	DefaultOutDir     = "./debriefs"
)

type Config struct {
	// Generative services
	ProjectID   string
	Location    string
	APIKey      string
	TextModel   string
	ImageModel  string
	CallTimeout time.Duration

	// Session
	Species         string
	LeadersFile     string
	TranscriptLimit int
	Speed           float64
	Casualties      int
	EndOnDepletion  bool
	MaxExchanges    int

	// Headlines
	FeedURL   string
	Headlines int

	// Output
	OutDir      string
	MetricsAddr string
	Debug       bool
}

// LookupFunc は環境変数の参照関数です。os.LookupEnv と同じ形です。
type LookupFunc func(key string) (string, bool)

// Load parses args (without the program name). Values from envFile fill in
// variables that lookup does not know; real environment variables win.
func Load(args []string, lookup LookupFunc, stderr io.Writer) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := &Config{}
	fs := flag.NewFlagSet("firstcontact", flag.ContinueOnError)
	if stderr != nil {
		fs.SetOutput(stderr)
	}

	envFile := fs.String("env-file", ".env", "optional dotenv file")
	fs.StringVar(&cfg.Species, "species", "", "species to play (skips the selection prompt)")
	fs.StringVar(&cfg.TextModel, "text-model", llm.DefaultTextModel, "text generation model")
	fs.StringVar(&cfg.ImageModel, "image-model", llm.DefaultImageModel, "image generation model")
	fs.DurationVar(&cfg.CallTimeout, "timeout", llm.DefaultTimeout, "timeout of a single service call")
	fs.StringVar(&cfg.FeedURL, "feed", DefaultFeedURL, "RSS feed for Earth headlines (empty disables)")
	fs.IntVar(&cfg.Headlines, "headlines", DefaultHeadlines, "number of headlines folded into the species context")
	fs.IntVar(&cfg.TranscriptLimit, "transcript-limit", conversation.DefaultLimit, "exchanges kept in the transcript (0 = unbounded)")
	fs.Float64Var(&cfg.Speed, "speed", 1, "simulated clock multiplier")
	fs.BoolVar(&cfg.EndOnDepletion, "end-on-depletion", true, "end the session when the resource runs out")
	fs.IntVar(&cfg.MaxExchanges, "max-exchanges", 0, "end the session after this many resolved exchanges (0 = unlimited)")
	fs.StringVar(&cfg.OutDir, "out", DefaultOutDir, "directory for the markdown debrief (empty disables)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")
	fs.StringVar(&cfg.LeadersFile, "leaders", "", "YAML file overriding the embedded leader seed")
	fs.IntVar(&cfg.Casualties, "casualties", DefaultCasualties, "casualties of the missile strike")
	fs.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	fileEnv, err := readEnvFile(*envFile)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	get := func(key string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fileEnv[key]
	}

	cfg.ProjectID = get("PROJECT_ID")
	cfg.Location = get("LOCATION")
	cfg.APIKey = get("GEMINI_API_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// readEnvFile は .env を読み込みます。ファイルが無い場合は空を返します。
func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return env, nil
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		if c.ProjectID == "" {
			return errors.New("set GEMINI_API_KEY, or PROJECT_ID and LOCATION")
		}
		if c.Location == "" {
			return errors.New("set LOCATION environment variable")
		}
	}
	if c.Speed <= 0 {
		return fmt.Errorf("speed must be positive, got %v", c.Speed)
	}
	if c.Headlines < 0 {
		return fmt.Errorf("headlines must not be negative, got %d", c.Headlines)
	}
	if c.TranscriptLimit < 0 {
		return fmt.Errorf("transcript-limit must not be negative, got %d", c.TranscriptLimit)
	}
	if c.MaxExchanges < 0 {
		return fmt.Errorf("max-exchanges must not be negative, got %d", c.MaxExchanges)
	}
	if c.Casualties <= 0 {
		return fmt.Errorf("casualties must be positive, got %d", c.Casualties)
	}
	return nil
}

// Gemini returns the service settings for llm.NewGemini.
func (c *Config) Gemini() llm.GeminiConfig {
	return llm.GeminiConfig{
		ProjectID:  c.ProjectID,
		Location:   c.Location,
		APIKey:     c.APIKey,
		TextModel:  c.TextModel,
		ImageModel: c.ImageModel,
		Timeout:    c.CallTimeout,
	}
}
