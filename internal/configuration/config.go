package configuration

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type MongoConfig struct {
	Uri                     string `json:"uri"`
	Database                string `json:"database"`
	ConversationsCollection string `json:"conversationsCollection"`
	MessagesCollection      string `json:"messagesCollection"`
	NotificationsCollection string `json:"notificationsCollection"`
	InteractionsCollection  string `json:"interactionsCollection"`
	PostsCollection         string `json:"postsCollection"`
	ReportsCollection       string `json:"reportsCollection"`
}

type RedisConfig struct {
	Addr     string `json:"addr"` // empty disables the backplane
	Password string `json:"password"`
	DB       int    `json:"db"`
	Channel  string `json:"channel"`
}

type AuthConfig struct {
	Secret string `json:"secret"`
	Alg    string `json:"alg"`
}

type ServerConfig struct {
	AppPort    int `json:"app_port"`
	SocketPort int `json:"socket_port"`
}

type Config struct {
	Mongo  MongoConfig  `json:"mongo"`
	Redis  RedisConfig  `json:"redis"`
	Auth   AuthConfig   `json:"auth"`
	Server ServerConfig `json:"server"`
}

func LoadConfig(configPath string) (*Config, error) {
	// .env is optional; real deployments set env directly
	_ = godotenv.Load()

	config := defaults()
	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err == nil {
			if err := json.Unmarshal(file, config); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnv(config)
	return config, nil
}

func defaults() *Config {
	return &Config{
		Mongo: MongoConfig{
			Uri:                     "mongodb://localhost:27017",
			Database:                "mention",
			ConversationsCollection: "conversations",
			MessagesCollection:      "messages",
			NotificationsCollection: "notifications",
			InteractionsCollection:  "interactions",
			PostsCollection:         "posts",
			ReportsCollection:       "reports",
		},
		Redis: RedisConfig{
			Channel: "mention:fanout",
		},
		Auth: AuthConfig{
			Alg: "HS256",
		},
		Server: ServerConfig{
			AppPort:    4000,
			SocketPort: 4001,
		},
	}
}

// applyEnv lets environment variables override file values so one image can
// run in every environment.
func applyEnv(c *Config) {
	setString(&c.Mongo.Uri, "MONGODB_URI")
	setString(&c.Mongo.Database, "MONGODB_DATABASE")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Redis.Channel, "REDIS_CHANNEL")
	setString(&c.Auth.Secret, "ACCESS_TOKEN_SECRET")
	setString(&c.Auth.Alg, "ACCESS_TOKEN_ALG")
	setInt(&c.Server.AppPort, "APP_PORT")
	setInt(&c.Server.SocketPort, "SOCKET_PORT")
	setInt(&c.Redis.DB, "REDIS_DB")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
