package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/room-chat-demo/modules/chat"
	"github.com/example/room-chat-demo/modules/sequence"
)

// Sequence backends selectable with SEQUENCE_BACKEND.
const (
	SequenceBackendRedis = "redis"
	SequenceBackendSQL   = "sql"
)

// Config holds the process configuration read from the environment.
type Config struct {
	HTTPPort        int
	DBPath          string
	DBDebug         bool
	SequenceBackend string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	SequencePrefix  string
	StoreTimeout    time.Duration
	RoomListName    string
	UserListName    string
}

// LoadConfig reads the configuration from environment variables.
func LoadConfig() Config {
	return Config{
		HTTPPort:        getEnvInt("HTTP_PORT", 3000),
		DBPath:          getEnv("CHAT_DB_PATH", "./chat.db"),
		DBDebug:         getEnvBool("DB_DEBUG", false),
		SequenceBackend: strings.ToLower(getEnv("SEQUENCE_BACKEND", SequenceBackendRedis)),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		SequencePrefix:  getEnv("SEQUENCE_PREFIX", sequence.DefaultPrefix),
		StoreTimeout:    getEnvDuration("STORE_TIMEOUT", chat.DefaultConfig().StoreTimeout),
		RoomListName:    getEnv("ROOM_LIST", chat.DefaultRoomList),
		UserListName:    getEnv("USER_LIST", chat.DefaultUserList),
	}
}

// Validate reports configuration that cannot start the application.
func (c Config) Validate() error {
	switch c.SequenceBackend {
	case SequenceBackendRedis, SequenceBackendSQL:
	default:
		return fmt.Errorf("unknown SEQUENCE_BACKEND %q (want %q or %q)",
			c.SequenceBackend, SequenceBackendRedis, SequenceBackendSQL)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.HTTPPort)
	}
	if c.DBPath == "" {
		return fmt.Errorf("CHAT_DB_PATH must not be empty")
	}
	if err := chat.ValidateRoomName(c.RoomListName); err != nil {
		return fmt.Errorf("invalid ROOM_LIST: %w", err)
	}
	if err := chat.ValidateRoomName(c.UserListName); err != nil {
		return fmt.Errorf("invalid USER_LIST: %w", err)
	}
	return nil
}

// ChatConfig returns the settings of the chat module.
func (c Config) ChatConfig() chat.Config {
	return chat.Config{
		RoomListName: c.RoomListName,
		UserListName: c.UserListName,
		StoreTimeout: c.StoreTimeout,
	}
}

// SequenceConfig returns the settings of the Redis sequence plugin.
func (c Config) SequenceConfig() sequence.Config {
	return sequence.Config{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		Prefix:   c.SequencePrefix,
	}
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvBool returns environment variable as bool or default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("Warning: invalid bool value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}
