package agentclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// ErrNoCoordinator is returned when etcd has no live coordinator registration.
var ErrNoCoordinator = errors.New("no coordinator registered")

// DiscoverCoordinator looks up the addresses registered under /<service>/
// and returns the first one, sorted for stability.
func DiscoverCoordinator(ctx context.Context, endpoints []string, service string) (string, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return "", fmt.Errorf("connect to etcd: %w", err)
	}
	defer cli.Close()

	prefix := "/" + strings.Trim(service, "/") + "/"
	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return "", fmt.Errorf("read %s: %w", prefix, err)
	}
	addrs := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		addrs = append(addrs, string(kv.Value))
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("%w under %s", ErrNoCoordinator, prefix)
	}
	sort.Strings(addrs)
	return addrs[0], nil
}

// WebSocketURL turns a coordinator address (host:port or http(s) URL) into its /ws endpoint.
func WebSocketURL(addr string) string {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return addr
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String()
}
