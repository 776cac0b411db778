package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Checkout  CheckoutConfig  `mapstructure:"checkout"`
	Affiliate AffiliateConfig `mapstructure:"affiliate"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Admin     AdminConfig     `mapstructure:"admin"`

	PasswordPolicy PasswordPolicyConfig `mapstructure:"password_policy"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
	// ShutdownTimeoutSeconds 停机时等待进行中请求的时长
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Stdout     bool   `mapstructure:"stdout"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Stdout:     c.Stdout,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string             `mapstructure:"driver"` // sqlite / postgres
	DSN      string             `mapstructure:"dsn"`
	LogLevel string             `mapstructure:"log_level"` // silent / error / warn / info
	Pool     DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
	Issuer      string `mapstructure:"issuer"`
}

// PasswordPolicyConfig 密码策略
type PasswordPolicyConfig struct {
	MinLength      int  `mapstructure:"min_length"`
	RequireUpper   bool `mapstructure:"require_upper"`
	RequireLower   bool `mapstructure:"require_lower"`
	RequireNumber  bool `mapstructure:"require_number"`
	RequireSpecial bool `mapstructure:"require_special"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// RateLimitConfig 接口限流配置（依赖 Redis）
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// CheckoutConfig 结算配置
type CheckoutConfig struct {
	Currency               string `mapstructure:"currency"`
	ReservationTTLMinutes  int    `mapstructure:"reservation_ttl_minutes"`
	PaymentTimeoutSeconds  int    `mapstructure:"payment_timeout_seconds"`
	ReserveMaxAttempts     int    `mapstructure:"reserve_max_attempts"`
	ReserveBackoffMillis   int    `mapstructure:"reserve_backoff_ms"`
	SweepIntervalSeconds   int    `mapstructure:"sweep_interval_seconds"`
	SweepBatchSize         int    `mapstructure:"sweep_batch_size"`
	MaxQuantityPerCartLine int    `mapstructure:"max_quantity_per_cart_line"`
}

// ReservationTTL 待支付订单的库存保留时长
func (c CheckoutConfig) ReservationTTL() time.Duration {
	if c.ReservationTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.ReservationTTLMinutes) * time.Minute
}

// PaymentTimeout 单次扣款超时
func (c CheckoutConfig) PaymentTimeout() time.Duration {
	if c.PaymentTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.PaymentTimeoutSeconds) * time.Second
}

// ReserveBackoff 事务冲突重试的初始退避
func (c CheckoutConfig) ReserveBackoff() time.Duration {
	if c.ReserveBackoffMillis <= 0 {
		return 20 * time.Millisecond
	}
	return time.Duration(c.ReserveBackoffMillis) * time.Millisecond
}

// SweepInterval 过期订单扫描间隔
func (c CheckoutConfig) SweepInterval() time.Duration {
	if c.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// AffiliateConfig 推广配置
type AffiliateConfig struct {
	AttributionWindowDays int     `mapstructure:"attribution_window_days"`
	ClickDedupeMinutes    int     `mapstructure:"click_dedupe_minutes"`
	ConfirmDays           int     `mapstructure:"confirm_days"`
	DefaultCommissionRate float64 `mapstructure:"default_commission_rate"`
	SettleIntervalSeconds int     `mapstructure:"settle_interval_seconds"`
}

// PaymentConfig 支付网关配置
type PaymentConfig struct {
	Provider         string `mapstructure:"provider"` // offline / sandbox / deferred
	SandboxLatencyMS int    `mapstructure:"sandbox_latency_ms"`
}

// KafkaConfig 订单事件发布配置
type KafkaConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	Brokers          []string `mapstructure:"brokers"`
	Topic            string   `mapstructure:"topic"`
	PublishTimeoutMS int      `mapstructure:"publish_timeout_ms"`
}

// AdminConfig 初始管理员
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// Load 加载 .env、config.yml 与环境变量
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		logger.Infow("dotenv_loaded", "file", ".env")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")
	v.AddConfigPath("./etc")
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed", "error", err, "fallback", "env_or_defaults")
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("config unmarshal failed: %w", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "marketplace.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.stdout", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/marketplace.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("jwt.issuer", "marketplace")
	v.SetDefault("password_policy.min_length", 8)
	v.SetDefault("password_policy.require_number", false)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "mp")
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"critical": 6,
		"default":  3,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Authorization",
		"X-Request-ID",
		"X-Requested-With",
		"X-Visitor-ID",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("rate_limit.max_requests", 30)
	v.SetDefault("rate_limit.block_seconds", 120)
	v.SetDefault("checkout.currency", "USD")
	v.SetDefault("checkout.reservation_ttl_minutes", 15)
	v.SetDefault("checkout.payment_timeout_seconds", 10)
	v.SetDefault("checkout.reserve_max_attempts", 4)
	v.SetDefault("checkout.reserve_backoff_ms", 20)
	v.SetDefault("checkout.sweep_interval_seconds", 60)
	v.SetDefault("checkout.sweep_batch_size", 100)
	v.SetDefault("checkout.max_quantity_per_cart_line", 999)
	v.SetDefault("affiliate.attribution_window_days", 30)
	v.SetDefault("affiliate.click_dedupe_minutes", 10)
	v.SetDefault("affiliate.confirm_days", 7)
	v.SetDefault("affiliate.default_commission_rate", 10.0)
	v.SetDefault("affiliate.settle_interval_seconds", 300)
	v.SetDefault("payment.provider", "offline")
	v.SetDefault("payment.sandbox_latency_ms", 0)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topic", "marketplace.orders")
	v.SetDefault("kafka.publish_timeout_ms", 5000)
	v.SetDefault("admin.email", "admin@example.com")
	v.SetDefault("admin.password", "")
}
