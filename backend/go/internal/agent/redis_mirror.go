package agent

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

// RedisMirror 把注册表的变化写入 Redis：
// Hash 中保存每个 Agent 的最新快照，频道上发布一条变更通知。
// 写入在后台 goroutine 中进行，注册表的调用方永远不会被 Redis 阻塞。
type RedisMirror struct {
	client  *redis.Client
	key     string
	channel string
	queue   chan models.Agent
	log     *logger.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stop     chan struct{}
}

// NewRedisMirror 创建镜像，需要调用 Start 才会开始写入。
func NewRedisMirror(client *redis.Client, key, channel string, buffer int, log *logger.Logger) *RedisMirror {
	if buffer <= 0 {
		buffer = 256
	}
	return &RedisMirror{
		client:  client,
		key:     key,
		channel: channel,
		queue:   make(chan models.Agent, buffer),
		log:     log.Component("redis_mirror"),
		stop:    make(chan struct{}),
	}
}

// OnAgentChanged 实现 Observer。队列已满时丢弃本次快照，下一次变化会覆盖它。
func (m *RedisMirror) OnAgentChanged(a models.Agent) {
	select {
	case m.queue <- a:
	default:
		m.log.WithPayload(map[string]interface{}{"agent_id": a.ID}).Warn("presence mirror queue full, dropping snapshot")
	}
}

// Start 启动后台写入协程。
func (m *RedisMirror) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				m.drain()
				return
			case a := <-m.queue:
				m.write(a)
			}
		}
	}()
}

// Stop 写完队列中剩余的快照后返回。
func (m *RedisMirror) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

func (m *RedisMirror) drain() {
	for {
		select {
		case a := <-m.queue:
			m.write(a)
		default:
			return
		}
	}
}

func (m *RedisMirror) write(a models.Agent) {
	data, err := json.Marshal(a)
	if err != nil {
		m.log.WithErr(err).Error("failed to encode agent snapshot")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pipe := m.client.Pipeline()
	pipe.HSet(ctx, m.key, a.ID, data)
	pipe.Publish(ctx, m.channel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		m.log.WithError(models.ErrorInfo{Message: err.Error(), Type: "redis"}).
			WithPayload(map[string]interface{}{"agent_id": a.ID}).
			Warn("failed to mirror agent presence")
	}
}

// ReadMirror 读取 Hash 中保存的全部快照，供其他进程只读查询在线状态。
func ReadMirror(ctx context.Context, client *redis.Client, key string) ([]models.Agent, error) {
	raw, err := client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.Agent, 0, len(raw))
	for _, v := range raw {
		var a models.Agent
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	sortByID(out)
	return out, nil
}
