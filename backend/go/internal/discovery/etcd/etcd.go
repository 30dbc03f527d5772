package etcd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// ServiceDiscovery 负责把协调服务注册到 etcd，以及让客户端发现它。
type ServiceDiscovery struct {
	cli *clientv3.Client
}

// NewServiceDiscovery 根据配置创建 etcd 客户端。
func NewServiceDiscovery(cfg *config.EtcdConfig) (*ServiceDiscovery, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接到 etcd: %w", err)
	}
	return &ServiceDiscovery{cli: cli}, nil
}

// ServiceKey 返回服务实例在 etcd 中的键: /<service>/<addr>。
func ServiceKey(serviceName, addr string) string {
	return servicePrefix(serviceName) + addr
}

func servicePrefix(serviceName string) string {
	return "/" + strings.Trim(serviceName, "/") + "/"
}

// Registration 代表一次带租约的注册，Stop 后租约被撤销，键立即消失。
type Registration struct {
	cli     *clientv3.Client
	leaseID clientv3.LeaseID
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Register 以 ttl 秒的租约写入服务地址，并在后台续约直到 Stop 或 ctx 结束。
func (s *ServiceDiscovery) Register(ctx context.Context, serviceName, addr string, ttl int64) (*Registration, error) {
	lease, err := s.cli.Grant(ctx, ttl)
	if err != nil {
		return nil, fmt.Errorf("申请 etcd 租约失败: %w", err)
	}
	if _, err := s.cli.Put(ctx, ServiceKey(serviceName, addr), addr, clientv3.WithLease(lease.ID)); err != nil {
		return nil, fmt.Errorf("写入服务地址失败: %w", err)
	}

	keepCtx, cancel := context.WithCancel(ctx)
	keepAliveCh, err := s.cli.KeepAlive(keepCtx, lease.ID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("启动租约续约失败: %w", err)
	}

	reg := &Registration{cli: s.cli, leaseID: lease.ID, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(reg.done)
		// 续约响应必须被持续读取，否则 etcd 客户端会告警并丢弃。
		for range keepAliveCh {
		}
	}()
	return reg, nil
}

// Done 在续约结束 (租约过期、被撤销或 ctx 结束) 时关闭。
func (r *Registration) Done() <-chan struct{} {
	return r.done
}

// Stop 停止续约并撤销租约。
func (r *Registration) Stop(ctx context.Context) error {
	var err error
	r.once.Do(func() {
		r.cancel()
		_, err = r.cli.Revoke(ctx, r.leaseID)
	})
	return err
}

// Discover 返回 serviceName 下所有存活实例的地址，按字典序排列。
func (s *ServiceDiscovery) Discover(ctx context.Context, serviceName string) ([]string, error) {
	resp, err := s.cli.Get(ctx, servicePrefix(serviceName), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	addrs := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		addrs = append(addrs, string(kv.Value))
	}
	sort.Strings(addrs)
	return addrs, nil
}

// Close closes the etcd client.
func (s *ServiceDiscovery) Close() error {
	return s.cli.Close()
}
