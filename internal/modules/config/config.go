package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	databaseDSN       = "DATABASE_DSN"
	brokerTokenENV    = "BROKER_ACCESS_TOKEN"
	advisorKeyENV     = "ADVISOR_API_KEY"
	telegramTokenENV  = "TELEGRAM_TOKEN"
)

// Config — инфраструктурная конфигурация процесса. Торговые параметры
// (profit target, лимиты) живут отдельно в SystemParameters и могут
// перезагружаться на лету.
type Config struct {
	DB string `yaml:"db_dsn"`

	Broker struct {
		AppKey      string `yaml:"app_key"`
		AppSecret   string `yaml:"app_secret"`
		AccessToken string `yaml:"access_token"`
		HTTPURL     string `yaml:"http_url"`
		QuoteWSURL  string `yaml:"quote_ws_url"`
	} `yaml:"broker"`

	Advisor struct {
		APIBase string        `yaml:"api_base"`
		APIKey  string        `yaml:"api_key"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"advisor"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// Режим по умолчанию для автономного мониторинга
	Mode string `yaml:"mode"`

	// Вселенная наблюдения
	Universe []string `yaml:"universe"`

	// Лимит исходящих запросов котировок
	QuoteRateMax    int           `yaml:"quote_rate_max"`
	QuoteRateWindow time.Duration `yaml:"quote_rate_window"`

	HealthAddr string `yaml:"health_addr"`
}

func NewConfig() (*Config, error) {

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		Mode:            getenvDefault("TRADE_MODE", "SIMULATED"),
		QuoteRateMax:    intFromEnv("QUOTE_RATE_MAX", 5),
		QuoteRateWindow: durationFromEnv("QUOTE_RATE_WINDOW", "1s"),
		HealthAddr:      getenvDefault("HEALTH_ADDR", ":8080"),
	}
	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}
	if tok := os.Getenv(brokerTokenENV); tok != "" {
		config.Broker.AccessToken = tok
	}
	if key := os.Getenv(advisorKeyENV); key != "" {
		config.Advisor.APIKey = key
	}
	if tok := os.Getenv(telegramTokenENV); tok != "" {
		config.Telegram.Token = tok
	}

	if config.Broker.HTTPURL == "" {
		config.Broker.HTTPURL = "https://openapi.longbridgeapp.com"
	}
	if config.Broker.QuoteWSURL == "" {
		config.Broker.QuoteWSURL = "wss://openapi-quote.longbridgeapp.com"
	}
	if config.Advisor.APIBase == "" {
		config.Advisor.APIBase = "https://api.openai.com/v1"
	}
	if config.Advisor.Model == "" {
		config.Advisor.Model = "gpt-4o-mini"
	}
	if config.Advisor.Timeout <= 0 {
		config.Advisor.Timeout = 30 * time.Second
	}
	if len(config.Universe) == 0 {
		config.Universe = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "NVDA", "META", "TSLA"}
	}

	return &config, nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
