package wire

import (
	"os"
	"strconv"
	"strings"

	"roomly/internal/chat/handler"
	"roomly/internal/chat/hub"
	"roomly/internal/chat/service"
	"roomly/internal/config"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Application aggregates everything the service entrypoint needs.
type Application struct {
	Config  *config.Config
	DB      *gorm.DB
	Logger  *zap.Logger
	Service service.ChatService
	Hub     *hub.Hub
	Handler *handler.ChatHandler
}

func ProvideConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvOrDefault("SERVER_PORT", "8080"),
			ReadTimeout:  getEnvIntOrDefault("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", 15),
			Environment:  getEnvOrDefault("ENVIRONMENT", "development"),
		},
		Database: config.DatabaseConfig{
			Host:         getEnvOrDefault("DB_HOST", "localhost"),
			Port:         getEnvOrDefault("DB_PORT", "3306"),
			Username:     getEnvOrDefault("DB_USER", "roomly_user"),
			Password:     getEnvOrDefault("DB_PASSWORD", ""),
			DatabaseName: getEnvOrDefault("DB_NAME", "roomly_db"),
			MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		},
		Chat: config.ChatConfig{
			PageSize:       getEnvIntOrDefault("CHAT_PAGE_SIZE", 20),
			EgressBuffer:   getEnvIntOrDefault("CHAT_EGRESS_BUFFER", 256),
			MaxMessageSize: getEnvIntOrDefault("CHAT_MAX_MESSAGE_SIZE", 16*1024),
			AllowedOrigins: splitEnvList(os.Getenv("CHAT_ALLOWED_ORIGINS")),
		},
		Logging: config.LoggingConfig{
			Level:      getEnvOrDefault("LOG_LEVEL", "info"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "stdout"),
		},
	}
}

func ProvideLogger(cnf *config.Config) (*zap.Logger, func(), error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cnf.Server.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = logger.Sync()
	}
	return logger, cleanup, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitEnvList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
