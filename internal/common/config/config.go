package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int

	ConnMaxLifetime int // 连接最长存活时间（秒），0 表示不限制
	ConnectTimeout  int // 启动时连通性检查超时（秒）
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	PoolSize     int // 连接池大小，0 时使用 go-redis 默认值
	MinIdleConns int
	DialTimeout  int // 建连超时（秒）
	ReadTimeout  int // 读超时（秒）
}

// MQTTConfig MQTT 配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// GetDSN 数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LoadFromEnv 从环境变量覆盖数据库配置，如 prefix=DB 时读取 DB_HOST、DB_PORT ...
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	setString(&c.Host, prefix+"_HOST")
	setInt(&c.Port, prefix+"_PORT")
	setString(&c.User, prefix+"_USER")
	setString(&c.Password, prefix+"_PASSWORD")
	setString(&c.Database, prefix+"_NAME")
	setString(&c.SSLMode, prefix+"_SSLMODE")
	setInt(&c.MaxConns, prefix+"_MAX_CONNS")
	setInt(&c.MaxIdle, prefix+"_MAX_IDLE")
	setInt(&c.ConnMaxLifetime, prefix+"_CONN_MAX_LIFETIME")
	setInt(&c.ConnectTimeout, prefix+"_CONNECT_TIMEOUT")
}

// LoadFromEnv 从环境变量覆盖 Redis 配置
func (c *RedisConfig) LoadFromEnv(prefix string) {
	setString(&c.Addr, prefix+"_ADDR")
	setString(&c.Password, prefix+"_PASSWORD")
	setInt(&c.DB, prefix+"_DB")
	setInt(&c.PoolSize, prefix+"_POOL_SIZE")
	setInt(&c.MinIdleConns, prefix+"_MIN_IDLE")
	setInt(&c.DialTimeout, prefix+"_DIAL_TIMEOUT")
	setInt(&c.ReadTimeout, prefix+"_READ_TIMEOUT")
}

// LoadFromEnv 从环境变量覆盖 MQTT 配置
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	setString(&c.Broker, prefix+"_BROKER")
	setString(&c.ClientID, prefix+"_CLIENT_ID")
	setString(&c.Username, prefix+"_USERNAME")
	setString(&c.Password, prefix+"_PASSWORD")
	if v := os.Getenv(prefix + "_QOS"); v != "" {
		if qos, err := strconv.Atoi(v); err == nil && qos >= 0 && qos <= 2 {
			c.QoS = byte(qos)
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setInt 解析失败时保留原值
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
