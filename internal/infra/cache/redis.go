package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redisv8 "github.com/go-redis/redis/v8"
)

const keyPrefix = "moviecrawl:page:"

// RedisOptions 是 redis 页面缓存的连接参数。
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // <=0 表示不过期
}

// RedisStore 把渲染后的 HTML 存进 redis（多台机器共享同一份缓存）。
type RedisStore struct {
	client *redisv8.Client
	ttl    time.Duration
}

// NewRedisStore 建立连接并 Ping 一次；连不上直接返回错误。
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, errors.New("redis 地址不能为空")
	}
	c := redisv8.NewClient(&redisv8.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("连接 redis 失败：%w", err)
	}
	ttl := opts.TTL
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{client: c, ttl: ttl}, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Get(ctx context.Context, url string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, keyPrefix+Key(url)).Bytes()
	if err != nil {
		if errors.Is(err, redisv8.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Put(ctx context.Context, url string, html []byte) error {
	return s.client.Set(ctx, keyPrefix+Key(url), html, s.ttl).Err()
}
