package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Google     GoogleConfig
	Scheduling SchedulingConfig
}

type AppConfig struct {
	Port           string
	Env            string
	RateLimitRPS   float64
	RateLimitBurst int
}

type DBConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	MigrationsDir string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// GoogleConfig holds the OAuth client and Calendar settings used to
// create Meet-enabled events on a doctor's calendar.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	TimeZone     string
	CallTimeout  time.Duration
}

// SchedulingConfig drives the priority-based assignment engine.
type SchedulingConfig struct {
	DefaultDuration time.Duration
	UrgentLead      time.Duration
	HighLead        time.Duration
	DefaultLead     time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	accessExpiry, err := time.ParseDuration(viper.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 30 * time.Minute
	}

	refreshExpiry, err := time.ParseDuration(viper.GetString("JWT_REFRESH_EXPIRY"))
	if err != nil {
		refreshExpiry = 7 * 24 * time.Hour
	}

	callTimeout, err := time.ParseDuration(viper.GetString("GOOGLE_CALL_TIMEOUT"))
	if err != nil {
		callTimeout = 10 * time.Second
	}

	timeZone := viper.GetString("TIME_ZONE")
	if timeZone == "" {
		timeZone = "America/Bogota"
	}

	rateLimitRPS := viper.GetFloat64("RATE_LIMIT_RPS")
	if rateLimitRPS <= 0 {
		rateLimitRPS = 5
	}

	rateLimitBurst := viper.GetInt("RATE_LIMIT_BURST")
	if rateLimitBurst <= 0 {
		rateLimitBurst = 10
	}

	migrationsDir := viper.GetString("DB_MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "db/migrations"
	}

	config := &Config{
		App: AppConfig{
			Port:           viper.GetString("APP_PORT"),
			Env:            viper.GetString("APP_ENV"),
			RateLimitRPS:   rateLimitRPS,
			RateLimitBurst: rateLimitBurst,
		},
		DB: DBConfig{
			Host:          viper.GetString("DB_HOST"),
			Port:          viper.GetString("DB_PORT"),
			User:          viper.GetString("DB_USER"),
			Password:      viper.GetString("DB_PASSWORD"),
			Name:          viper.GetString("DB_NAME"),
			MigrationsDir: migrationsDir,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  accessExpiry,
			RefreshExpiry: refreshExpiry,
		},
		Google: GoogleConfig{
			ClientID:     viper.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: viper.GetString("GOOGLE_CLIENT_SECRET"),
			RedirectURI:  viper.GetString("GOOGLE_REDIRECT_URI"),
			Scopes: []string{
				"https://www.googleapis.com/auth/calendar.events",
				"https://www.googleapis.com/auth/userinfo.email",
			},
			TimeZone:    timeZone,
			CallTimeout: callTimeout,
		},
		Scheduling: SchedulingConfig{
			DefaultDuration: 30 * time.Minute,
			UrgentLead:      30 * time.Minute,
			HighLead:        2 * time.Hour,
			DefaultLead:     24 * time.Hour,
		},
	}

	return config, nil
}
