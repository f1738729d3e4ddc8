package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the daybrief service.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	// All providers (openai, deepseek, siliconflow, zai, dashscope, openrouter, ollama)
	// use the same config.
	LLMProvider string // Provider identifier
	LLMAPIKey   string // LLM API key
	LLMBaseURL  string // LLM base URL (optional, has default per provider)
	LLMModel    string // Model name: gpt-4o, deepseek-chat, glm-4.7, etc.
	LLMTimeout  int    // LLM request timeout in seconds (default: 120)
	LLMRateRPS  int    // Max gateway requests per second (default: 2)

	// Synthesis configuration
	SynthesisIntervalMinutes int    // Interval between synthesis cycles (default: 15)
	DailyBriefingHour        int    // Hour of day for the wide-lookback daily cycle (default: 8)
	SourceTimeoutSeconds     int    // Per-source-agent extraction timeout (default: 60)
	StaleContactDays         int    // Days without contact before a relationship is flagged (default: 21)
	Users                    string // Comma-separated user ids to schedule cycles for
	MailDropPath             string // JSON-lines mail drop file (default: <data>/maildrop.jsonl)

	// Other configurations
	Mode        string
	Addr        string
	Port        int
	Data        string
	Driver      string
	DSN         string
	Version     string
	MetricsPath string
}

// Provider default configurations for LLM.
// Used when DAYBRIEF_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"zai": {
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4.7",
	},
	"dashscope": {
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:   "qwen-max-latest",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != ""
}

// UserIDs returns the configured user list split and trimmed.
func (p *Profile) UserIDs() []string {
	if p.Users == "" {
		return nil
	}
	parts := strings.Split(p.Users, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("DAYBRIEF_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("DAYBRIEF_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("DAYBRIEF_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("DAYBRIEF_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("DAYBRIEF_LLM_TIMEOUT_SECONDS", 120)
	p.LLMRateRPS = getEnvOrDefaultInt("DAYBRIEF_LLM_RATE_RPS", 2)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("unknown LLM provider, using default: openai", "provider", p.LLMProvider)
		p.LLMProvider = "openai"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.SynthesisIntervalMinutes = getEnvOrDefaultInt("DAYBRIEF_SYNTHESIS_INTERVAL_MINUTES", 15)
	p.DailyBriefingHour = getEnvOrDefaultInt("DAYBRIEF_DAILY_BRIEFING_HOUR", 8)
	p.SourceTimeoutSeconds = getEnvOrDefaultInt("DAYBRIEF_SOURCE_TIMEOUT_SECONDS", 60)
	p.StaleContactDays = getEnvOrDefaultInt("DAYBRIEF_STALE_CONTACT_DAYS", 21)
	p.Users = getEnvOrDefault("DAYBRIEF_USERS", p.Users)
	p.MailDropPath = getEnvOrDefault("DAYBRIEF_MAIL_DROP", "")
	p.MetricsPath = getEnvOrDefault("DAYBRIEF_METRICS_PATH", "/metrics")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/daybrief"
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("daybrief_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn required for postgres driver")
	}

	if p.MailDropPath == "" {
		p.MailDropPath = filepath.Join(dataDir, "maildrop.jsonl")
	}

	if p.SynthesisIntervalMinutes <= 0 {
		p.SynthesisIntervalMinutes = 15
	}
	if p.DailyBriefingHour < 0 || p.DailyBriefingHour > 23 {
		p.DailyBriefingHour = 8
	}

	return nil
}
