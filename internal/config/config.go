package config

import (
	"os"
	"strconv"

	"mindguard-analyzer/internal/common/config"
)

// Config 分析服务配置
type Config struct {
	HTTP struct {
		Addr string // 监听地址，默认 ":8080"
	}

	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	// 可选依赖开关，关闭时对应功能降级（只做计算，不落库/不缓存/不推送）
	Enabled struct {
		Database bool
		Redis    bool
		MQTT     bool
	}

	Analysis struct {
		PolicyFile        string // 策略 YAML 文件，为空时使用内置默认值
		BaselineCacheSize int    // 内存基线缓存的用户数上限

		// Redis 缓存配置
		Cache struct {
			BaselineKeyPrefix   string // 基线快照键前缀，如 "mindguard:baseline:"
			BaselineTTL         int    // 基线快照 TTL（秒），默认 7 天
			AssessmentKeyPrefix string // 最新评估键前缀，如 "mindguard:assessment:"
			AssessmentTTL       int    // 最新评估 TTL（秒），默认 1 小时
		}

		// Redis Streams 配置
		Stream struct {
			Name   string // 评估结果 stream，默认 "mindguard:assessments"
			MaxLen int64  // stream 最大长度（近似裁剪）
		}

		AlertTopicPrefix string // 监护人提醒 MQTT 主题前缀，如 "mindguard/alerts/"
		HistoryLimit     int    // 历史查询默认条数
	}

	Classifier struct {
		BaseURL string // 情绪分类模型服务地址，为空时要求请求携带概率分布
		Timeout int    // 请求超时（秒）
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "mindguard")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)
	cfg.Database.ConnMaxLifetime = getEnvInt("DB_CONN_MAX_LIFETIME", 1800)
	cfg.Database.ConnectTimeout = getEnvInt("DB_CONNECT_TIMEOUT", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", 20)
	cfg.Redis.MinIdleConns = getEnvInt("REDIS_MIN_IDLE", 2)
	cfg.Redis.DialTimeout = getEnvInt("REDIS_DIAL_TIMEOUT", 3)
	cfg.Redis.ReadTimeout = getEnvInt("REDIS_READ_TIMEOUT", 2)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "mindguard-analyzer")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))

	cfg.Enabled.Database = getEnvBool("DB_ENABLED", true)
	cfg.Enabled.Redis = getEnvBool("REDIS_ENABLED", true)
	cfg.Enabled.MQTT = getEnvBool("MQTT_ENABLED", false)

	cfg.Analysis.PolicyFile = getEnv("POLICY_FILE", "")
	cfg.Analysis.BaselineCacheSize = getEnvInt("BASELINE_CACHE_SIZE", 10000)
	cfg.Analysis.Cache.BaselineKeyPrefix = getEnv("CACHE_BASELINE_PREFIX", "mindguard:baseline:")
	cfg.Analysis.Cache.BaselineTTL = getEnvInt("CACHE_BASELINE_TTL", 7*24*3600)
	cfg.Analysis.Cache.AssessmentKeyPrefix = getEnv("CACHE_ASSESSMENT_PREFIX", "mindguard:assessment:")
	cfg.Analysis.Cache.AssessmentTTL = getEnvInt("CACHE_ASSESSMENT_TTL", 3600)
	cfg.Analysis.Stream.Name = getEnv("ASSESSMENT_STREAM", "mindguard:assessments")
	cfg.Analysis.Stream.MaxLen = int64(getEnvInt("ASSESSMENT_STREAM_MAXLEN", 10000))
	cfg.Analysis.AlertTopicPrefix = getEnv("ALERT_TOPIC_PREFIX", "mindguard/alerts/")
	cfg.Analysis.HistoryLimit = getEnvInt("HISTORY_LIMIT", 30)

	cfg.Classifier.BaseURL = getEnv("CLASSIFIER_URL", "")
	cfg.Classifier.Timeout = getEnvInt("CLASSIFIER_TIMEOUT", 10)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
