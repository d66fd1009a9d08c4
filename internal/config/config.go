package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"agenda-activites-report-ui/internal/report"
)

// Config holds runtime configuration for the report UI service.
type Config struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Activities snapshot source. URL wins over the local path when set.
	ActivitiesPath    string
	ActivitiesURL     string
	ActivitiesTimeout time.Duration
	RefreshInterval   time.Duration

	KoboEnabled  bool
	KoboBaseURL  string
	KoboToken    string
	KoboAssetUID string
	KoboTimeout  time.Duration

	DBEnabled      bool
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBTable        string
	DBConnTimeout  time.Duration
	DBQueryTimeout time.Duration

	ViewsSQLitePath string

	TopRiskLimit     int
	CategoryMax      int
	DefaultLimit     int
	RiskKeywordsFile string
	Risk             report.RiskConfig
}

// FromEnv loads configuration from environment variables with sensible defaults.
func FromEnv() Config {
	loadConfigDefaultsFromFile()
	loadSecretsDefaultsFromFile()

	cfg := Config{
		ListenAddr:      getEnv("APP_LISTEN_ADDR", ":8080"),
		ReadTimeout:     time.Duration(getEnvInt("APP_READ_TIMEOUT_SEC", 10)) * time.Second,
		WriteTimeout:    time.Duration(getEnvInt("APP_WRITE_TIMEOUT_SEC", 20)) * time.Second,
		ShutdownTimeout: time.Duration(getEnvInt("APP_SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,

		ActivitiesPath:    getEnv("APP_ACTIVITIES_PATH", "data/activities.json"),
		ActivitiesURL:     getEnv("APP_ACTIVITIES_URL", ""),
		ActivitiesTimeout: time.Duration(getEnvInt("APP_ACTIVITIES_TIMEOUT_SEC", 10)) * time.Second,
		RefreshInterval:   time.Duration(getEnvInt("APP_REFRESH_INTERVAL_SEC", 300)) * time.Second,

		KoboEnabled:  getEnvBool("APP_KOBO_ENABLED", false),
		KoboBaseURL:  getEnv("APP_KOBO_BASE_URL", "https://kf.kobotoolbox.org"),
		KoboToken:    getEnv("APP_KOBO_TOKEN", ""),
		KoboAssetUID: getEnv("APP_KOBO_ASSET_UID", ""),
		KoboTimeout:  time.Duration(getEnvInt("APP_KOBO_TIMEOUT_SEC", 120)) * time.Second,

		DBEnabled:      getEnvBool("APP_DB_ENABLED", false),
		DBHost:         getEnv("APP_DB_HOST", "127.0.0.1"),
		DBPort:         getEnvInt("APP_DB_PORT", 3306),
		DBUser:         getEnv("APP_DB_USER", "agenda"),
		DBPassword:     getEnv("APP_DB_PASSWORD", ""),
		DBName:         getEnv("APP_DB_NAME", "agenda"),
		DBTable:        getEnv("APP_DB_TABLE", "activities"),
		DBConnTimeout:  time.Duration(getEnvInt("APP_DB_CONN_TIMEOUT_SEC", 5)) * time.Second,
		DBQueryTimeout: time.Duration(getEnvInt("APP_DB_QUERY_TIMEOUT_SEC", 10)) * time.Second,

		ViewsSQLitePath: getEnv("APP_VIEWS_SQLITE_PATH", ""),

		TopRiskLimit: getEnvInt("APP_TOP_RISK_LIMIT", report.DefaultTopRiskLimit),
		CategoryMax:  getEnvInt("APP_CATEGORY_MAX", 12),
		DefaultLimit: getEnvInt("APP_DEFAULT_LIMIT", 500),

		RiskKeywordsFile: getEnv("APP_RISK_KEYWORDS_FILE", ""),
	}

	rc := report.DefaultRiskConfig()
	rc.OverdueWeight = getEnvInt("APP_RISK_OVERDUE_WEIGHT", rc.OverdueWeight)
	rc.LateWeight = getEnvInt("APP_RISK_LATE_WEIGHT", rc.LateWeight)
	rc.CancelledWeight = getEnvInt("APP_RISK_CANCELLED_WEIGHT", rc.CancelledWeight)
	rc.ReportedWeight = getEnvInt("APP_RISK_REPORTED_WEIGHT", rc.ReportedWeight)
	rc.PriorityWeight = getEnvInt("APP_RISK_PRIORITY_WEIGHT", rc.PriorityWeight)
	rc.DonePenalty = getEnvInt("APP_RISK_DONE_PENALTY", rc.DonePenalty)
	if cfg.RiskKeywordsFile != "" {
		_ = ApplyRiskKeywordsFile(&rc, cfg.RiskKeywordsFile)
	}
	cfg.Risk = rc

	return cfg
}

// riskKeywordsFile is the YAML override shape: only populated lists replace
// the built-in keyword sets, so a file can override one vocabulary without
// restating the rest.
type riskKeywordsFile struct {
	DoneKeywords         []string              `yaml:"done_keywords"`
	LateKeywords         []string              `yaml:"late_keywords"`
	CancelledKeywords    []string              `yaml:"cancelled_keywords"`
	ReportedKeywords     []string              `yaml:"reported_keywords"`
	HighPriorityKeywords []string              `yaml:"high_priority_keywords"`
	PriorityRanks        []report.PriorityRank `yaml:"priority_ranks"`
}

// ApplyRiskKeywordsFile overlays keyword sets from a YAML file onto rc.
func ApplyRiskKeywordsFile(rc *report.RiskConfig, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file riskKeywordsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if len(file.DoneKeywords) > 0 {
		rc.DoneKeywords = file.DoneKeywords
	}
	if len(file.LateKeywords) > 0 {
		rc.LateKeywords = file.LateKeywords
	}
	if len(file.CancelledKeywords) > 0 {
		rc.CancelledKeywords = file.CancelledKeywords
	}
	if len(file.ReportedKeywords) > 0 {
		rc.ReportedKeywords = file.ReportedKeywords
	}
	if len(file.HighPriorityKeywords) > 0 {
		rc.HighPriorityKeywords = file.HighPriorityKeywords
	}
	if len(file.PriorityRanks) > 0 {
		rc.PriorityRanks = file.PriorityRanks
	}
	return nil
}

func loadConfigDefaultsFromFile() {
	bootstrapCandidates := []string{
		"./agenda-activites-report-ui.env",
		"/etc/default/agenda-activites-report-ui",
	}

	for _, candidate := range bootstrapCandidates {
		abs := candidate
		if !filepath.IsAbs(candidate) {
			if wd, err := os.Getwd(); err == nil {
				abs = filepath.Join(wd, candidate)
			}
		}
		_ = applyEnvDefaultsFromFile(abs)
	}

	candidates := make([]string, 0, 2)
	if explicit := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, "/etc/agenda-activites-report-ui/config.env")

	for _, candidate := range candidates {
		abs := candidate
		if !filepath.IsAbs(candidate) {
			if wd, err := os.Getwd(); err == nil {
				abs = filepath.Join(wd, candidate)
			}
		}

		if err := applyEnvDefaultsFromFile(abs); err == nil {
			return
		}
	}
}

func loadSecretsDefaultsFromFile() {
	candidates := make([]string, 0, 3)
	if explicit := strings.TrimSpace(os.Getenv("APP_SECRETS_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	if credDir := strings.TrimSpace(os.Getenv("CREDENTIALS_DIRECTORY")); credDir != "" {
		credName := strings.TrimSpace(os.Getenv("APP_SECRETS_CREDENTIAL_NAME"))
		if credName == "" {
			credName = "app-secrets"
		}
		candidates = append(candidates, filepath.Join(credDir, credName))
	}
	candidates = append(candidates, "/etc/agenda-activites-report-ui/secrets.env")
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if err := applyEnvDefaultsFromFile(candidate); err == nil {
			return
		}
	}
}

func applyEnvDefaultsFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		if key == "" {
			continue
		}

		if len(val) >= 2 {
			if (val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'') {
				val = val[1 : len(val)-1]
			}
		}

		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}

	return scanner.Err()
}

// MySQLDSN returns a mysql driver DSN with safe defaults for TCP access.
func (c Config) MySQLDSN() string {
	params := url.Values{}
	params.Set("parseTime", "true")
	params.Set("timeout", c.DBConnTimeout.String())
	params.Set("readTimeout", c.DBQueryTimeout.String())
	params.Set("writeTimeout", c.DBQueryTimeout.String())
	params.Set("charset", "utf8mb4")
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, params.Encode())
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsed
}
