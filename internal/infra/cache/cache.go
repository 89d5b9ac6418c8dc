package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/moviecrawl/internal/infra/fsx"
)

// ErrReadOnly 表示对只读缓存执行了写入。
var ErrReadOnly = errors.New("cache: read-only")

// Key 把 URL 映射为稳定的缓存键（sha256 十六进制）。
// URL 会先去掉首尾空白；query/fragment 保留原样。
func Key(url string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:])
}

// FileStore 把渲染后的 HTML 存在 <Dir>/pages/<key>.html。
//
// 约束：
// - TTL>0 时按文件修改时间判断过期，过期视为未命中
// - ReadOnly=true 时只读（用于离线重放已缓存页面）
type FileStore struct {
	Dir      string
	TTL      time.Duration
	ReadOnly bool

	now func() time.Time
}

func NewFileStore(dir string, ttl time.Duration, readOnly bool) *FileStore {
	return &FileStore{
		Dir:      filepath.Clean(strings.TrimSpace(dir)),
		TTL:      ttl,
		ReadOnly: readOnly,
		now:      time.Now,
	}
}

// PagePath 返回 url 对应的缓存文件路径。
func (s *FileStore) PagePath(url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("url 不能为空")
	}
	return filepath.Join(s.Dir, "pages", Key(url)+".html"), nil
}

func (s *FileStore) Get(_ context.Context, url string) ([]byte, bool, error) {
	path, err := s.PagePath(url)
	if err != nil {
		return nil, false, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if s.TTL > 0 && s.clock().Sub(fi.ModTime()) > s.TTL {
		return nil, false, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// Writable 报告是否允许写回；只读目录上的 Put 总是返回 ErrReadOnly。
func (s *FileStore) Writable() bool { return !s.ReadOnly }

func (s *FileStore) Put(_ context.Context, url string, html []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.PagePath(url)
	if err != nil {
		return err
	}
	return fsx.WriteFile(path, html)
}

func (s *FileStore) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
