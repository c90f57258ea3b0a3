package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"
)

// Resolver yields the base URL of the remote API.
type Resolver interface {
	BaseURL(ctx context.Context) (string, error)
}

// StaticURL is a Resolver for a fixed base URL.
type StaticURL string

func (s StaticURL) BaseURL(context.Context) (string, error) {
	return string(s), nil
}

// ConsulResolver looks the API up in the Consul catalog and picks the first
// healthy instance.
type ConsulResolver struct {
	client  *consulapi.Client
	service string
	scheme  string
	prefix  string
}

// NewConsulResolver connects to the Consul agent at addr. prefix is the path
// the API is mounted under, normally "/api".
func NewConsulResolver(addr, service, prefix string) (*ConsulResolver, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}
	return &ConsulResolver{client: client, service: service, scheme: "http", prefix: prefix}, nil
}

func (r *ConsulResolver) BaseURL(ctx context.Context) (string, error) {
	opts := (&consulapi.QueryOptions{}).WithContext(ctx)
	entries, _, err := r.client.Health().Service(r.service, "", true, opts)
	if err != nil {
		return "", fmt.Errorf("failed to query consul for %s: %w", r.service, err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("no healthy instances of %s", r.service)
	}

	entry := entries[0]
	host := entry.Service.Address
	if host == "" {
		host = entry.Node.Address
	}
	base := fmt.Sprintf("%s://%s%s", r.scheme, net.JoinHostPort(host, strconv.Itoa(entry.Service.Port)), r.prefix)
	slog.Info("Resolved API via consul", "service", r.service, "base_url", base)
	return base, nil
}
