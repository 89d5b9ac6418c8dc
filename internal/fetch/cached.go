package fetch

import (
	"context"

	"github.com/John-Robertt/moviecrawl/internal/logger"
)

// Store 是页面缓存的最小能力（file/redis 两种实现见 infra/cache）。
type Store interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Put(ctx context.Context, url string, html []byte) error
}

// writableStore 由可切换只读的缓存实现（如只读重放的本地目录）。
type writableStore interface {
	Writable() bool
}

// Cached 在 Fetcher 外面包一层页面缓存。
//
// 约束：
// - 命中缓存时不开启底层会话（不占浏览器资源，也不计入限速）
// - 缓存读写失败只记日志，不影响抓取结果
// - 只读缓存不写回，也不产生告警
func Cached(inner Fetcher, store Store, log *logger.Logger) Fetcher {
	if store == nil {
		return inner
	}
	if log == nil {
		log = logger.Nop()
	}
	writable := true
	if ws, ok := store.(writableStore); ok {
		writable = ws.Writable()
	}
	return &cachedFetcher{inner: inner, store: store, writable: writable, log: log}
}

type cachedFetcher struct {
	inner    Fetcher
	store    Store
	writable bool
	log      *logger.Logger
}

func (f *cachedFetcher) Open(context.Context) (Session, error) {
	return &cachedSession{f: f}, nil
}

// cachedSession 在第一次未命中时才打开底层会话。
type cachedSession struct {
	f     *cachedFetcher
	inner Session
}

func (s *cachedSession) Fetch(ctx context.Context, url string) (Page, error) {
	b, ok, err := s.f.store.Get(ctx, url)
	if err != nil {
		s.f.log.Warn().Err(err).Str("url", url).Msg("读取页面缓存失败")
	}
	if ok && len(b) > 0 {
		return Page{URL: url, HTML: b, Cached: true}, nil
	}

	if s.inner == nil {
		inner, err := s.f.inner.Open(ctx)
		if err != nil {
			return Page{}, &Error{URL: url, Stage: StageOpen, Err: err}
		}
		s.inner = inner
	}
	p, err := s.inner.Fetch(ctx, url)
	if err != nil {
		return Page{}, err
	}
	if !s.f.writable {
		return p, nil
	}
	if err := s.f.store.Put(ctx, url, p.HTML); err != nil {
		s.f.log.Warn().Err(err).Str("url", url).Msg("写入页面缓存失败")
	}
	return p, nil
}

func (s *cachedSession) Close() error {
	if s.inner == nil {
		return nil
	}
	return s.inner.Close()
}
