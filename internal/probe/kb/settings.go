// Package kb probes a gateway's knowledge-base pipeline end to end: fetch
// sample documents from public sources, build vector stores through the
// gateway API and run semantic searches against them.
package kb

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings configure a probe run. Connection values come from the
// environment, behaviour values from flags.
type Settings struct {
	GatewayURL string `env:"GATEWAY_URL" envDefault:"http://localhost:8080"`
	APIKey     string `env:"GATEWAY_API_KEY" envDefault:"test-key"`
	OrgID      string `env:"GATEWAY_ORG_ID" envDefault:"00000000-0000-0000-0000-000000000001"`

	DryRun         bool
	KeepStores     bool
	MaxDocs        int
	MaxFileSizeMB  float64
	EmbeddingModel string
	Timeout        time.Duration
}

// SettingsFromEnv returns probe settings with defaults overlaid by the
// environment.
func SettingsFromEnv() Settings {
	s := Settings{
		MaxDocs:        3,
		MaxFileSizeMB:  10,
		EmbeddingModel: "text-embedding-3-small",
		Timeout:        30 * time.Second,
	}
	if err := env.Parse(&s); err != nil {
		slog.Error("Failed to parse env", "error", err)
	}
	return s
}

// MaxFileSizeBytes converts the megabyte flag value.
func (s Settings) MaxFileSizeBytes() int64 {
	return int64(s.MaxFileSizeMB * 1024 * 1024)
}
