package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"ig-oauth-service/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	OAuth       OAuth       `json:"oauth"`
	Scheduler   Scheduler   `json:"scheduler"`
	Publish     Publish     `json:"publish"`
}

type App struct {
	Port           int      `json:"port"`
	SecretKey      string   `json:"secretKey"`
	AllowedOrigins []string `json:"allowedOrigins"`
}

type Database struct {
	Psql Db `json:"psql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID    string `json:"projectID"`
	AttemptTopic string `json:"attemptTopic"`
}

// ServiceBus enables mirroring attempt events to Azure for deployments
// whose consumers live there. Empty namespace disables it.
type ServiceBus struct {
	Namespace    string `json:"namespace"`
	AttemptQueue string `json:"attemptQueue"`
}

// OAuth holds third-party platform OAuth client credentials
type OAuth struct {
	Facebook OAuthClient `json:"facebook"`
}

type OAuthClient struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectURI"`
}

// Scheduler tunes the background token refresh loop.
type Scheduler struct {
	CheckIntervalHours  int `json:"checkIntervalHours"`
	RefreshBeforeDays   int `json:"refreshBeforeDays"`
	RefreshDelaySeconds int `json:"refreshDelaySeconds"`
}

// Publish tunes the container polling loop.
type Publish struct {
	PollIntervalSeconds int `json:"pollIntervalSeconds"`
	MaxPollAttempts     int `json:"maxPollAttempts"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initOAuth(&C)
	initDefaults(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

// IsHardened reports the hardened deployment mode: provider error detail is
// logged but never returned to callers.
func IsHardened() bool {
	env := os.Getenv("ENV")
	return env == "production" || env == "prod"
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = "localhost"
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = "5432"
	}
}

func initApp(C *Config) {
	// Prefer SECRET_KEY from environment for JWT verification; overrides config file when provided
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 3000
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 3000
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		C.App.AllowedOrigins = strings.Split(v, ",")
	}
	if len(C.App.AllowedOrigins) == 0 {
		C.App.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initOAuth(C *Config) {
	if v := os.Getenv("FACEBOOK_APP_ID"); v != "" {
		C.OAuth.Facebook.ClientID = v
	}
	if v := os.Getenv("FACEBOOK_APP_SECRET"); v != "" {
		C.OAuth.Facebook.ClientSecret = v
	}
	if v := os.Getenv("REDIRECT_URI"); v != "" {
		C.OAuth.Facebook.RedirectURI = v
	}
}

func initDefaults(C *Config) {
	if C.Scheduler.CheckIntervalHours == 0 {
		C.Scheduler.CheckIntervalHours = 24
	}
	if C.Scheduler.RefreshBeforeDays == 0 {
		C.Scheduler.RefreshBeforeDays = 30
	}
	if C.Scheduler.RefreshDelaySeconds == 0 {
		C.Scheduler.RefreshDelaySeconds = 1
	}
	if C.Publish.PollIntervalSeconds == 0 {
		C.Publish.PollIntervalSeconds = 2
	}
	if C.Publish.MaxPollAttempts == 0 {
		C.Publish.MaxPollAttempts = 30
	}
}
