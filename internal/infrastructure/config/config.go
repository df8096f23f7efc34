package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
// 设计说明：使用Viper管理配置，支持YAML文件、环境变量覆盖（前缀B2B_）
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Order    OrderConfig    `mapstructure:"order"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Retry    RetryConfig    `mapstructure:"retry"`
	MQ       MQConfig       `mapstructure:"mq"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EndpointConfig 单个MySQL端点
type EndpointConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host            string           `mapstructure:"host"`
	Port            int              `mapstructure:"port"`
	Replicas        []EndpointConfig `mapstructure:"replicas"` // 只读副本，为空时读写都走主库
	User            string           `mapstructure:"user"`
	Password        string           `mapstructure:"password"`
	DBName          string           `mapstructure:"dbname"`
	Charset         string           `mapstructure:"charset"`
	ParseTime       bool             `mapstructure:"parse_time"`
	Loc             string           `mapstructure:"loc"`
	MaxOpenConns    int              `mapstructure:"max_open_conns"`
	MaxIdleConns    int              `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration    `mapstructure:"conn_max_lifetime"`
	// StatementTimeout 单条语句的网络读写超时（驱动层readTimeout/writeTimeout）
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	// TxTimeout 下单事务整体超时，跨地域部署时需要放宽
	TxTimeout   time.Duration `mapstructure:"tx_timeout"`
	AutoMigrate bool          `mapstructure:"auto_migrate"`
}

// DSN 生成主库连接字符串
func (d DatabaseConfig) DSN() string {
	return d.dsnFor(d.Host, d.Port)
}

// ReplicaDSNs 生成只读副本连接字符串
func (d DatabaseConfig) ReplicaDSNs() []string {
	dsns := make([]string, 0, len(d.Replicas))
	for _, r := range d.Replicas {
		dsns = append(dsns, d.dsnFor(r.Host, r.Port))
	}
	return dsns
}

// MigrateURL golang-migrate使用的连接URL（需要multiStatements）
func (d DatabaseConfig) MigrateURL() string {
	return "mysql://" + d.DSN() + "&multiStatements=true"
}

// dsnFor 格式：user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local
// 注意：
// 1. loc参数需要URL编码（Asia/Shanghai → Asia%2FShanghai）
// 2. clientFoundRows=true让UPDATE返回匹配行数而非变更行数，库存条件更新依赖它
func (d DatabaseConfig) dsnFor(host string, port int) string {
	loc := url.QueryEscape(d.Loc)
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s&clientFoundRows=true",
		d.User, d.Password, host, port, d.DBName, d.Charset, d.ParseTime, loc)
	if d.StatementTimeout > 0 {
		dsn += fmt.Sprintf("&timeout=%s&readTimeout=%s&writeTimeout=%s",
			d.StatementTimeout, d.StatementTimeout, d.StatementTimeout)
	}
	return dsn
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr 返回Redis地址
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level        string `mapstructure:"level"`  // debug | info | warn | error
	Format       string `mapstructure:"format"` // console | json
	Output       string `mapstructure:"output"` // stdout | stderr | /path/to/file
	EnableCaller bool   `mapstructure:"enable_caller"`
}

// OrderConfig 下单规则
type OrderConfig struct {
	MinAmount       int64              `mapstructure:"min_amount"`    // 最低起订金额（货币最小单位）
	NumberPrefix    string             `mapstructure:"number_prefix"` // 订单号两位字母前缀
	RestockOnCancel bool               `mapstructure:"restock_on_cancel"`
	BankTransfer    BankTransferConfig `mapstructure:"bank_transfer"`
}

// BankTransferConfig 对公转账收款信息
type BankTransferConfig struct {
	BankName      string `mapstructure:"bank_name"`
	AccountNumber string `mapstructure:"account_number"`
	AccountHolder string `mapstructure:"account_holder"`
	DueDays       int    `mapstructure:"due_days"`
}

// QueueConfig 库存调整队列
type QueueConfig struct {
	KeyPrefix       string        `mapstructure:"key_prefix"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	MaxRetries      int           `mapstructure:"max_retries"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MaxJobsPerDrain int           `mapstructure:"max_jobs_per_drain"`
	WorkerEnabled   bool          `mapstructure:"worker_enabled"`
}

// CacheConfig 读缓存
type CacheConfig struct {
	KeyPrefix    string        `mapstructure:"key_prefix"`
	ProductTTL   time.Duration `mapstructure:"product_ttl"`
	InventoryTTL time.Duration `mapstructure:"inventory_ttl"`
}

// RetryConfig 存储操作重试策略
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// MQConfig 通知消息（RabbitMQ）
type MQConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	Exchange       string        `mapstructure:"exchange"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// TracingConfig 链路追踪
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// Load 加载配置文件
// 支持：
// 1. 默认加载config/config.yaml
// 2. 通过环境变量B2B_ENV指定环境（如config.prod.yaml）
// 3. 环境变量覆盖（如B2B_DATABASE_PASSWORD）
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("B2B")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	if env := v.GetString("env"); env != "" {
		v.SetConfigName("config." + env)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	return unmarshal(v)
}

// unmarshal 解析并校验
func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults 默认值（配置文件缺省时生效）
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.dbname", "b2b_order")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.loc", "Local")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.statement_timeout", 10*time.Second)
	v.SetDefault("database.tx_timeout", 30*time.Second)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	v.SetDefault("jwt.issuer", "b2b-order")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("order.min_amount", 50000)
	v.SetDefault("order.number_prefix", "OD")
	v.SetDefault("order.restock_on_cancel", true)
	v.SetDefault("order.bank_transfer.due_days", 3)

	v.SetDefault("queue.key_prefix", "b2b")
	v.SetDefault("queue.lock_ttl", 30*time.Second)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.poll_interval", 5*time.Second)
	v.SetDefault("queue.max_jobs_per_drain", 500)
	v.SetDefault("queue.worker_enabled", true)

	v.SetDefault("cache.key_prefix", "b2b")
	v.SetDefault("cache.product_ttl", 5*time.Minute)
	v.SetDefault("cache.inventory_ttl", 30*time.Second)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", 100*time.Millisecond)
	v.SetDefault("retry.max_delay", 2*time.Second)

	v.SetDefault("mq.enabled", false)
	v.SetDefault("mq.exchange", "b2b.events")
	v.SetDefault("mq.publish_timeout", 3*time.Second)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.service_name", "b2b-order")
}

// validate 配置校验
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", cfg.Server.Port)
	}

	if cfg.JWT.Secret == "your-secret-key-change-in-production" && cfg.Server.Mode == "release" {
		return fmt.Errorf("生产环境必须修改JWT密钥")
	}

	if cfg.Order.MinAmount <= 0 {
		return fmt.Errorf("最低起订金额必须大于0: %d", cfg.Order.MinAmount)
	}

	if len(cfg.Order.NumberPrefix) != 2 {
		return fmt.Errorf("订单号前缀必须是两个字母: %q", cfg.Order.NumberPrefix)
	}

	if cfg.Queue.LockTTL < time.Second {
		return fmt.Errorf("队列锁过期时间过短: %s", cfg.Queue.LockTTL)
	}

	if cfg.Retry.MaxAttempts < 1 {
		return fmt.Errorf("重试次数至少为1: %d", cfg.Retry.MaxAttempts)
	}

	return nil
}
