package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database (OMOP CDM source + document store)
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	CDMSchema        string
	VocabSchema      string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers []string
	KafkaGroupID string

	// Conversion
	SemanticMappingPath string
	ResourceCatalogPath string
	CreatedBy           string
	WorkerCount         int
	DocumentCacheTTL    time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "phenobridge"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "phenobridge123"),
		PostgresDB:       getEnv("POSTGRES_DB", "phenobridge"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		CDMSchema:        getEnv("CDM_SCHEMA", "cdm"),
		VocabSchema:      getEnv("VOCAB_SCHEMA", "vocab"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "phenobridge-platform"),

		SemanticMappingPath: getEnv("SEMANTIC_MAPPING_PATH", ""),
		ResourceCatalogPath: getEnv("RESOURCE_CATALOG_PATH", ""),
		CreatedBy:           getEnv("CREATED_BY", "phenobridge-converter"),
		WorkerCount:         getIntEnv("WORKER_COUNT", 4),
		DocumentCacheTTL:    getDuration("DOCUMENT_CACHE_TTL", 15*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
