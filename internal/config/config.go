package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Logger   Logger   `mapstructure:"logger"`
	Mail     Mail     `mapstructure:"mail"`
	Market   Market   `mapstructure:"market"`
	News     News     `mapstructure:"news"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port         int  `mapstructure:"port"`
	SecureCookie bool `mapstructure:"secure_cookie"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Mail holds the SMTP settings used for OTP delivery.
type Mail struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Market holds the configuration for the quote provider.
type Market struct {
	ApiKey         string   `mapstructure:"apiKey"`
	Symbols        []string `mapstructure:"symbols"`
	RateLimit      float64  `mapstructure:"rate_limit"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
}

// News holds the configuration for the market news feed.
type News struct {
	FeedURL  string `mapstructure:"feed_url"`
	MaxItems int    `mapstructure:"max_items"`
	CacheTTL int    `mapstructure:"cache_ttl"` // minutes
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.dsn", "tradex.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("mail.port", 587)
	viper.SetDefault("market.symbols", []string{"NSEI", "BSESN"})
	viper.SetDefault("market.rate_limit", 1) // requests per second
	viper.SetDefault("market.rate_limit_burst", 2)
	viper.SetDefault("news.feed_url",
		"https://news.google.com/rss/search?q=Indian+Stock+Market+when:24h&hl=en-IN&gl=IN&ceid=IN:en")
	viper.SetDefault("news.max_items", 15)
	viper.SetDefault("news.cache_ttl", 15)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
