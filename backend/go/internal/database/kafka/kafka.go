package kafka

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
)

// Topics 返回协调服务需要的全部主题。
func Topics(cfg *config.KafkaConfig) []string {
	return []string{cfg.EventsTopic, cfg.TaskRequestsTopic}
}

// EnsureTopics 连接到集群控制器，创建缺失的主题。
// 主题必须在控制器上创建，普通 broker 会拒绝 CreateTopics 请求。
func EnsureTopics(ctx context.Context, cfg *config.KafkaConfig) error {
	if !cfg.Enabled() {
		return fmt.Errorf("未配置 Kafka brokers")
	}

	dialer := &kafka.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka 初始化连接失败: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("无法获取 Kafka 控制器: %w", err)
	}
	ctrlConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("无法连接 Kafka 控制器: %w", err)
	}
	defer ctrlConn.Close()

	partitions, err := ctrlConn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
	}
	existing := make(map[string]struct{}, len(partitions))
	for _, p := range partitions {
		existing[p.Topic] = struct{}{}
	}

	var toCreate []kafka.TopicConfig
	for _, topic := range Topics(cfg) {
		if _, ok := existing[topic]; ok {
			continue
		}
		toCreate = append(toCreate, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}
	if len(toCreate) == 0 {
		return nil
	}
	if err := ctrlConn.CreateTopics(toCreate...); err != nil {
		return fmt.Errorf("自动创建 Kafka 主题失败: %w", err)
	}
	logrus.WithField("count", len(toCreate)).Info("已创建 Kafka 主题")
	return nil
}

// NewWriter 创建写入指定主题的 Writer。Async 模式下写入不阻塞调用方，失败由 Completion 回调记录。
func NewWriter(cfg *config.KafkaConfig, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logrus.WithError(err).WithField("topic", topic).
					WithField("count", len(messages)).Warn("写入 Kafka 失败")
			}
		},
	}
}

// NewReader 创建属于配置中消费者组的 Reader。
func NewReader(cfg *config.KafkaConfig, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxAttempts: 10,
		Dialer: &kafka.Dialer{
			Timeout: 10 * time.Second,
		},
	})
}
