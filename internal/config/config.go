package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	APIBaseURL  string
	HTTPTimeout time.Duration

	// ローカル状態ストア（ブラウザ版のlocalStorageに相当）
	StateDBPath string

	// チャットのポーリング間隔
	PollInterval time.Duration

	// 会話集約
	AggregateMaxConcurrent int
	WatchInterval          time.Duration

	// 送信レート制限（req/sec相当とバースト）
	RateLimitPerSec float64
	RateLimitBurst  int

	// watchモードのステータスサーバー
	StatusPort string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.APIBaseURL = os.Getenv("LISTIGO_API_BASE_URL")
	if cfg.APIBaseURL == "" {
		missing = append(missing, "LISTIGO_API_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.HTTPTimeout = getEnvDuration("LISTIGO_HTTP_TIMEOUT", 10*time.Second)
	cfg.StateDBPath = getEnvString("LISTIGO_STATE_DB_PATH", defaultStateDBPath())
	cfg.PollInterval = getEnvDuration("LISTIGO_POLL_INTERVAL", 15*time.Second)
	cfg.AggregateMaxConcurrent = getEnvInt("LISTIGO_AGGREGATE_MAX_CONCURRENT", 4)
	cfg.WatchInterval = getEnvDuration("LISTIGO_WATCH_INTERVAL", 1*time.Minute)
	cfg.RateLimitPerSec = getEnvFloat("LISTIGO_RATE_LIMIT_PER_SEC", 10)
	cfg.RateLimitBurst = getEnvInt("LISTIGO_RATE_LIMIT_BURST", 20)
	cfg.StatusPort = getEnvString("LISTIGO_STATUS_PORT", "8090")

	return cfg, nil
}

// defaultStateDBPath はローカル状態DBのデフォルト配置を返す。
// ユーザー設定ディレクトリが取得できない場合はカレントディレクトリに置く。
func defaultStateDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "listigo.db"
	}
	return filepath.Join(dir, "listigo", "state.db")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
