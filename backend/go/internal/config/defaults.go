package config

import (
	"errors"
	"fmt"
)

// 收敛监控的默认参数。
const (
	DefaultThreshold             = 0.7
	DefaultInterventionThreshold = 0.5
	DefaultAssessmentInterval    = 3600
	DefaultRetryBackoff          = 60
	DefaultActiveWindow          = 3600
	DefaultPresenceTimeout       = 120
	DefaultPresenceSweep         = 30
	DefaultStoreOpTimeout        = 5
)

// Default 返回一份只包含默认值的配置，内存存储、无外部依赖。
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 为未设置的字段填充默认值。
func (c *AppConfig) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "CoordinatorService"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 5
	}

	cv := &c.Convergence
	if cv.Threshold == 0 {
		cv.Threshold = DefaultThreshold
	}
	if cv.InterventionThreshold == 0 {
		cv.InterventionThreshold = DefaultInterventionThreshold
	}
	if cv.AssessmentInterval <= 0 {
		cv.AssessmentInterval = DefaultAssessmentInterval
	}
	if cv.RetryBackoff <= 0 {
		cv.RetryBackoff = DefaultRetryBackoff
	}
	if cv.ActiveWindow <= 0 {
		cv.ActiveWindow = DefaultActiveWindow
	}
	if cv.EscalationWindow <= 0 {
		cv.EscalationWindow = DefaultActiveWindow
	}

	p := &c.Presence
	if p.Timeout <= 0 {
		p.Timeout = DefaultPresenceTimeout
	}
	if p.SweepInterval <= 0 {
		p.SweepInterval = DefaultPresenceSweep
	}
	if p.RedisKey == "" {
		p.RedisKey = "convergence:agents"
	}
	if p.RedisChannel == "" {
		p.RedisChannel = "convergence:presence"
	}

	t := &c.Transport
	if t.SendBuffer <= 0 {
		t.SendBuffer = 64
	}
	if t.InboundRate <= 0 {
		t.InboundRate = 10
	}
	if t.InboundBurst <= 0 {
		t.InboundBurst = 20
	}
	if t.WriteTimeout <= 0 {
		t.WriteTimeout = 10
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.OpTimeout <= 0 {
		c.Store.OpTimeout = DefaultStoreOpTimeout
	}
	if c.Databases.SQLite.Path == "" {
		c.Databases.SQLite.Path = "convergence.db"
	}
	if c.Protocols.Backend == "" {
		c.Protocols.Backend = "filesystem"
	}
	if c.Protocols.Directory == "" {
		c.Protocols.Directory = "protocols"
	}
	if c.Notification.Channel == "" {
		c.Notification.Channel = "email"
	}
	if c.Notification.Email.Port == 0 {
		c.Notification.Email.Port = 587
	}

	k := &c.Databases.Kafka
	if k.EventsTopic == "" {
		k.EventsTopic = "convergence.events"
	}
	if k.TaskRequestsTopic == "" {
		k.TaskRequestsTopic = "convergence.task-requests"
	}
	if k.GroupID == "" {
		k.GroupID = "coordinator-service"
	}

	e := &c.Databases.Etcd
	if e.ServiceName == "" {
		e.ServiceName = "coordinator"
	}
	if e.LeaseTTL <= 0 {
		e.LeaseTTL = 10
	}
}

// Validate 校验配置的取值范围，返回所有问题的合并错误。
func (c *AppConfig) Validate() error {
	var errs []error
	cv := c.Convergence
	if cv.Threshold <= 0 || cv.Threshold > 1 {
		errs = append(errs, fmt.Errorf("convergence.threshold 必须在 (0, 1] 之间，当前为 %v", cv.Threshold))
	}
	if cv.InterventionThreshold < 0 || cv.InterventionThreshold >= 1 {
		errs = append(errs, fmt.Errorf("convergence.interventionThreshold 必须在 [0, 1) 之间，当前为 %v", cv.InterventionThreshold))
	}

	switch c.Store.Driver {
	case "memory", "sqlite", "mysql", "mongo":
	default:
		errs = append(errs, fmt.Errorf("未知的 store.driver: %q", c.Store.Driver))
	}
	if c.Store.Driver == "mongo" && c.Databases.MongoDB.Database == "" {
		errs = append(errs, errors.New("store.driver 为 mongo 时必须配置 databases.mongodb.database"))
	}

	switch c.Protocols.Backend {
	case "filesystem", "none":
	case "minio":
		if c.Databases.MinIO.Bucket == "" {
			errs = append(errs, errors.New("protocols.backend 为 minio 时必须配置 databases.minio.bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("未知的 protocols.backend: %q", c.Protocols.Backend))
	}

	if n := c.Notification; n.Enabled {
		if n.Recipient == "" && n.Channel == "email" {
			errs = append(errs, errors.New("启用邮件通知时必须配置 notification.recipient"))
		}
		switch n.Channel {
		case "email":
			if n.Email.Host == "" || n.Email.From == "" {
				errs = append(errs, errors.New("邮件通知需要 notification.email.host 与 notification.email.from"))
			}
		case "webhook":
			if n.Webhook.URL == "" {
				errs = append(errs, errors.New("Webhook 通知需要 notification.webhook.url"))
			}
		default:
			errs = append(errs, fmt.Errorf("未知的 notification.channel: %q", n.Channel))
		}
	}

	if c.Auth.Enabled && c.Auth.JwtSecret == "" {
		errs = append(errs, errors.New("启用认证时必须配置 auth.jwtSecret"))
	}
	if c.Presence.RedisMirror && c.Databases.Redis.Address == "" {
		errs = append(errs, errors.New("启用 presence.redisMirror 时必须配置 databases.redis.address"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置校验失败: %w", errors.Join(errs...))
	}
	return nil
}
