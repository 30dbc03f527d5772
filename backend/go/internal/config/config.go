package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// SQLiteConfig 定义了本地 SQLite 数据库文件 (纯 Go 驱动，无需 cgo)。
type SQLiteConfig struct {
	Path string `yaml:"path"` // 数据库文件路径
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 协议文档所在的存储桶
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address  string `yaml:"address"`  // MongoDB 服务器地址
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// EtcdConfig 定义了 Etcd 服务注册与发现的配置。
type EtcdConfig struct {
	Endpoints   []string `yaml:"endpoints"`   // Etcd 节点地址列表
	Username    string   `yaml:"username"`    // 用户名
	Password    string   `yaml:"password"`    // 密码
	ServiceName string   `yaml:"serviceName"` // 注册时使用的服务名
	LeaseTTL    int64    `yaml:"leaseTTL"`    // 租约有效期 (秒)
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"`           // Kafka Broker 地址列表
	EventsTopic       string   `yaml:"eventsTopic"`       // 协调事件镜像主题
	TaskRequestsTopic string   `yaml:"taskRequestsTopic"` // 外部任务请求主题
	GroupID           string   `yaml:"groupID"`           // 消费者组
}

// Enabled 判断是否配置了 Kafka。
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// DatabaseConfigs 包含所有外部存储与中间件的连接配置。
type DatabaseConfigs struct {
	Redis   RedisConfig  `yaml:"redis"`   // Redis 配置 (在线状态镜像)
	MySQL   MySQLConfig  `yaml:"mysql"`   // MySQL 配置
	SQLite  SQLiteConfig `yaml:"sqlite"`  // SQLite 配置
	MinIO   MinIOConfig  `yaml:"minio"`   // MinIO 配置 (协议文档)
	MongoDB MongoConfig  `yaml:"mongodb"` // MongoDB 配置
	Etcd    EtcdConfig   `yaml:"etcd"`    // Etcd 服务注册配置
	Kafka   KafkaConfig  `yaml:"kafka"`   // Kafka 配置
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了对外监听的地址。
type ServerConfig struct {
	Address          string `yaml:"address"`          // HTTP / WebSocket 监听地址
	GRPCAddress      string `yaml:"grpcAddress"`      // gRPC 健康检查监听地址，留空则不启动
	AdvertiseAddress string `yaml:"advertiseAddress"` // 注册到 etcd 的对外地址
	ShutdownTimeout  int    `yaml:"shutdownTimeout"`  // 优雅关闭超时 (秒)
}

// AuthConfig 用于配置运维接口的 JWT 认证。
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`   // 是否对运维写操作启用认证
	JwtSecret string `yaml:"jwtSecret"` // JWT 密钥
}

// ConvergenceConfig 定义了收敛监控循环的参数，时间单位均为秒。
type ConvergenceConfig struct {
	Enabled               *bool   `yaml:"enabled"`               // 是否启动监控循环，默认启动
	Threshold             float64 `yaml:"threshold"`             // 平均偏离低于该值视为“已收敛”
	InterventionThreshold float64 `yaml:"interventionThreshold"` // 偏离高于该值开启干预
	AssessmentInterval    int     `yaml:"assessmentInterval"`    // 评估周期
	RetryBackoff          int     `yaml:"retryBackoff"`          // 周期失败后的退避时间
	ActiveWindow          int     `yaml:"activeWindow"`          // 视为活跃的最近心跳窗口
	EscalationWindow      int     `yaml:"escalationWindow"`      // 升级时考虑的评估时间窗口
}

// IsEnabled 返回监控循环是否启用。
func (c ConvergenceConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// Interval 返回评估周期。
func (c ConvergenceConfig) Interval() time.Duration { return seconds(c.AssessmentInterval) }

// Backoff 返回失败退避时间。
func (c ConvergenceConfig) Backoff() time.Duration { return seconds(c.RetryBackoff) }

// Window 返回活跃窗口。
func (c ConvergenceConfig) Window() time.Duration { return seconds(c.ActiveWindow) }

// Lookback 返回升级时的评估窗口。
func (c ConvergenceConfig) Lookback() time.Duration { return seconds(c.EscalationWindow) }

// PresenceConfig 定义了在线状态的超时清理与 Redis 镜像。
type PresenceConfig struct {
	Timeout       int    `yaml:"timeout"`       // 超过该时间无心跳则标记为 offline (秒)
	SweepInterval int    `yaml:"sweepInterval"` // 清理周期 (秒)
	RedisMirror   bool   `yaml:"redisMirror"`   // 是否把在线状态镜像到 Redis
	RedisKey      string `yaml:"redisKey"`      // 镜像使用的 Hash 键
	RedisChannel  string `yaml:"redisChannel"`  // 状态变更通知的发布频道
}

// TimeoutDuration 返回心跳超时时间。
func (p PresenceConfig) TimeoutDuration() time.Duration { return seconds(p.Timeout) }

// SweepDuration 返回清理周期。
func (p PresenceConfig) SweepDuration() time.Duration { return seconds(p.SweepInterval) }

// TransportConfig 定义了 WebSocket 连接的参数。
type TransportConfig struct {
	SendBuffer   int     `yaml:"sendBuffer"`   // 每个连接的出站队列长度
	InboundRate  float64 `yaml:"inboundRate"`  // 每个连接每秒允许的入站事件数
	InboundBurst int     `yaml:"inboundBurst"` // 入站事件突发上限
	WriteTimeout int     `yaml:"writeTimeout"` // 单次写超时 (秒)
}

// EmailConfig 定义了 SMTP 通知渠道。
type EmailConfig struct {
	Host     string `yaml:"host"`     // SMTP 主机
	Port     int    `yaml:"port"`     // SMTP 端口
	Username string `yaml:"username"` // SMTP 用户名，留空则不认证
	Password string `yaml:"password"` // SMTP 密码
	From     string `yaml:"from"`     // 发件人地址
	TLS      bool   `yaml:"tls"`      // 是否强制 TLS
}

// WebhookConfig 定义了 Webhook 通知渠道。
type WebhookConfig struct {
	URL     string            `yaml:"url"`     // 接收通知的地址
	Headers map[string]string `yaml:"headers"` // 额外的请求头
}

// NotificationConfig 定义了外部告警渠道。
type NotificationConfig struct {
	Enabled   bool          `yaml:"enabled"`   // 是否启用外部告警
	Channel   string        `yaml:"channel"`   // "email" 或 "webhook"
	Recipient string        `yaml:"recipient"` // 收件地址
	Email     EmailConfig   `yaml:"email"`     // 邮件渠道配置
	Webhook   WebhookConfig `yaml:"webhook"`   // Webhook 渠道配置
}

// StoreConfig 选择持久化后端。
type StoreConfig struct {
	Driver    string `yaml:"driver"`    // "mongo", "mysql", "sqlite" 或 "memory"
	OpTimeout int    `yaml:"opTimeout"` // 持锁期间单次存储调用的超时 (秒)
}

// OpTimeoutDuration 返回单次存储调用的超时时间。
func (s StoreConfig) OpTimeoutDuration() time.Duration { return seconds(s.OpTimeout) }

// ProtocolConfig 定义了干预协议文档的发布位置。
type ProtocolConfig struct {
	Backend   string `yaml:"backend"`   // "filesystem", "minio" 或 "none"
	Directory string `yaml:"directory"` // filesystem 后端的目录，或 minio 后端的对象前缀
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App          AppInfo            `yaml:"app"`          // 应用程序信息
	Server       ServerConfig       `yaml:"server"`       // 监听地址
	Auth         AuthConfig         `yaml:"auth"`         // 认证配置
	Logger       LoggerConfig       `yaml:"logger"`       // 日志记录器配置
	Convergence  ConvergenceConfig  `yaml:"convergence"`  // 收敛监控配置
	Presence     PresenceConfig     `yaml:"presence"`     // 在线状态配置
	Transport    TransportConfig    `yaml:"transport"`    // 连接配置
	Notification NotificationConfig `yaml:"notification"` // 外部告警配置
	Store        StoreConfig        `yaml:"store"`        // 持久化后端
	Protocols    ProtocolConfig     `yaml:"protocols"`    // 协议文档配置
	Databases    DatabaseConfigs    `yaml:"databases"`    // 数据库配置
	Middleware   MiddlewareConfig   `yaml:"middleware"`   // 中间件配置
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	Algorithm      string               `yaml:"algorithm"` // 支持: "fixedWindow", "slidingLog", "slidingCounter", "leakyBucket", "tokenBucket"
	FixedWindow    FixedWindowConfig    `yaml:"fixedWindow"`
	SlidingLog     SlidingLogConfig     `yaml:"slidingLog"`
	SlidingCounter SlidingCounterConfig `yaml:"slidingCounter"`
	LeakyBucket    LeakyBucketConfig    `yaml:"leakyBucket"`
	TokenBucket    TokenBucketConfig    `yaml:"tokenBucket"`
}

// FixedWindowConfig 定义了固定窗口计数器算法的配置。
type FixedWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// SlidingLogConfig 定义了滑动窗口日志算法的配置。
type SlidingLogConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"`
}

// SlidingCounterConfig 定义了滑动窗口计数器算法的配置。
type SlidingCounterConfig struct {
	Limit      int    `yaml:"limit"`
	Window     string `yaml:"window"`
	NumBuckets int    `yaml:"numBuckets"`
}

// LeakyBucketConfig 定义了漏桶算法的配置。
type LeakyBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件，补全默认值后进行校验。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取、解析或校验失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	return Parse(yamlFile)
}

// Parse 解析 YAML 内容，补全默认值并校验。
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
