package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Milvus    MilvusConfig
	Neo4j     Neo4jConfig
	SQLite    SQLiteConfig
	Embedding EmbeddingConfig
	Engine    EngineConfig
	Cache     CacheConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
	Enabled  bool
}

type SQLiteConfig struct {
	Path string
}

type EmbeddingConfig struct {
	APIKey     string
	Model      string
	Dim        int
	TimeoutSec int
}

// EngineConfig carries every scoring knob. The source material disagrees with
// itself on several of these defaults, so none of them are hard-coded anywhere
// past this package.
type EngineConfig struct {
	DefaultPreference      string
	QualityThreshold       float64
	DiversityWeight        float64
	RelevanceThreshold     float64
	MaxWorkingSet          int
	MaxRecommendations     int
	FastTimeout            time.Duration
	ContextTimeout         time.Duration
	EnsembleFastWeight     float64
	EnsembleContextWeight  float64
	MonitorWindow          int
	ComplexTitleLength     int
	ComplexDescLength      int
	ComplexTechCount       int
	ComplexInterestsLength int
}

type CacheConfig struct {
	MemoryTTL      time.Duration
	DistributedTTL time.Duration
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/devfeed")

	viper.SetEnvPrefix("DEVFEED")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "content_embeddings")
	viper.SetDefault("milvus.vectorDim", 1536)

	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "password")
	viper.SetDefault("neo4j.database", "neo4j")
	viper.SetDefault("neo4j.enabled", true)

	viper.SetDefault("sqlite.path", "./data/devfeed.db")

	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dim", 1536)
	viper.SetDefault("embedding.timeoutSec", 10)

	viper.SetDefault("engine.defaultPreference", "auto")
	viper.SetDefault("engine.qualityThreshold", 5.0)
	viper.SetDefault("engine.diversityWeight", 0.0)
	viper.SetDefault("engine.relevanceThreshold", 0.3)
	viper.SetDefault("engine.maxWorkingSet", 100)
	viper.SetDefault("engine.maxRecommendations", 10)
	viper.SetDefault("engine.fastTimeout", 10*time.Second)
	viper.SetDefault("engine.contextTimeout", 15*time.Second)
	viper.SetDefault("engine.ensembleFastWeight", 0.4)
	viper.SetDefault("engine.ensembleContextWeight", 0.6)
	viper.SetDefault("engine.monitorWindow", 1000)
	viper.SetDefault("engine.complexTitleLength", 50)
	viper.SetDefault("engine.complexDescLength", 100)
	viper.SetDefault("engine.complexTechCount", 3)
	viper.SetDefault("engine.complexInterestsLength", 50)

	viper.SetDefault("cache.memoryTTL", 5*time.Minute)
	viper.SetDefault("cache.distributedTTL", 60*time.Minute)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
