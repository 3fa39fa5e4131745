package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BackendREST      = "rest"
	BackendFirestore = "firestore"
)

type Config struct {
	ServerPort  string `validate:"required,numeric"`
	Environment string `validate:"required,oneof=development staging production"`
	LogLevel    string `validate:"oneof=debug info warn error"`

	DataBackend    string        `validate:"required,oneof=rest firestore"`
	BackendURL     string        `validate:"required_if=DataBackend rest"`
	BackendAPIKey  string        `validate:"required_if=DataBackend rest"`
	BackendTimeout time.Duration `validate:"gt=0"`

	FirebaseProject    string `validate:"required"`
	ServiceAccountPath string
	ServiceAccountJSON string
	StorageBucket      string `validate:"required"`
	ProofMaxBytes      int64  `validate:"gt=0"`
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DataBackend:    getEnv("DATA_BACKEND", BackendREST),
		BackendURL:     getEnv("BACKEND_URL", ""),
		BackendAPIKey:  getEnv("BACKEND_API_KEY", ""),
		BackendTimeout: time.Duration(getEnvAsInt64("BACKEND_TIMEOUT_SECONDS", 15)) * time.Second,

		FirebaseProject:    getEnv("FIREBASE_PROJECT_ID", ""),
		ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		ServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		StorageBucket:      getEnv("STORAGE_BUCKET", ""),
		ProofMaxBytes:      getEnvAsInt64("PROOF_MAX_BYTES", 5<<20), // 5 MiB
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}
