// Package redis implements db.Store on Redis 8+ through rueidis. Vector search
// needs the Query Engine (FT.*) commands.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/taarya/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	clientName     = "taarya"
	minReadyPause  = 50 * time.Millisecond
	maxReadyPause  = time.Second
	defaultTimeout = 5 * time.Second
)

// Config holds connection parameters.
type Config struct {
	Addrs       []string
	Username    string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// Store is safe for concurrent use; rueidis pipelines commands over shared connections.
type Store struct {
	client rueidis.Client
}

// NewStore dials the first reachable address in cfg.Addrs.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = defaultTimeout
	}

	opt := rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   clientName,
		DisableCache: true,
		// FT.SEARCH replies are parsed as RESP2 arrays.
		AlwaysRESP2: true,
	}
	opt.Dialer.Timeout = dial

	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("redis: connect %s: %w", strings.Join(cfg.Addrs, ","), err)
	}
	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings with a doubling pause until the server answers or timeout
// expires. The last ping error is kept in the returned error.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pause := minReadyPause
	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("redis not ready after %s: %w", timeout, err)
		case <-time.After(pause):
		}
		pause = min(pause*2, maxReadyPause)
	}
}

// run executes one command and returns its result.
func (s *Store) run(ctx context.Context, build func(b rueidis.Builder) rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, build(s.client.B()))
}

// serverSaid reports whether err is a server error mentioning any of the phrases, ignoring case.
func serverSaid(err error, phrases ...string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(re.Error())
	for _, p := range phrases {
		if strings.Contains(msg, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
