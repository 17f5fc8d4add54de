package config

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 配置管理器
type Config[T any] struct {
	v        *viper.Viper
	value    *T
	mu       sync.RWMutex
	watchers []func(old, new T)

	path     string
	optional bool
	watch    bool
	logger   *slog.Logger
}

// Option 配置选项
type Option[T any] func(*Config[T])

// WithDefaults 设置默认值
//
// 环境变量只会覆盖已知的键，因此每个需要从环境读取的键都应当有默认值。
func WithDefaults[T any](defaults map[string]any) Option[T] {
	return func(c *Config[T]) {
		for k, v := range defaults {
			c.v.SetDefault(k, v)
		}
	}
}

// WithEnv 绑定环境变量，例如 prefix 为 SMOKECLOUD 时 log.level 对应 SMOKECLOUD_LOG_LEVEL
func WithEnv[T any](prefix string) Option[T] {
	return func(c *Config[T]) {
		c.v.SetEnvPrefix(prefix)
		c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		c.v.AutomaticEnv()
	}
}

// Optional 配置文件不存在时只使用默认值和环境变量
func Optional[T any]() Option[T] {
	return func(c *Config[T]) { c.optional = true }
}

// WithoutWatch 不监控配置文件变更
func WithoutWatch[T any]() Option[T] {
	return func(c *Config[T]) { c.watch = false }
}

// WithLogger 设置重新加载失败时使用的日志
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(c *Config[T]) {
		if l != nil {
			c.logger = l
		}
	}
}

// Load 加载配置文件并自动监控变更
//
// path 为空时不读取文件。
func Load[T any](path string, opts ...Option[T]) (*Config[T], error) {
	v := viper.New()

	c := &Config[T]{
		v:      v,
		path:   path,
		watch:  true,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(c)
	}

	hasFile := path != ""
	if hasFile {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !c.optional || !missing(path) {
				return nil, err
			}
			hasFile = false
		}
	}

	var val T
	if err := v.Unmarshal(&val); err != nil {
		return nil, err
	}
	c.value = &val

	if hasFile && c.watch {
		c.startWatch()
	}
	return c, nil
}

// Get 获取当前配置（并发安全，返回深拷贝）
func (c *Config[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return deepCopy(*c.value)
}

// Path 返回配置文件路径
func (c *Config[T]) Path() string { return c.path }

// OnChange 注册配置变更回调
func (c *Config[T]) OnChange(callback func(old, new T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers = append(c.watchers, callback)
}

// Reload 立即重新读取配置文件，配置有变化时触发回调
func (c *Config[T]) Reload() error {
	return c.handleConfigChange()
}

// Changed 比较两个值是否不同
func Changed[T any](old, new T) bool {
	return !reflect.DeepEqual(old, new)
}

// deepCopy 通过 JSON 序列化实现深拷贝
func deepCopy[T any](src T) T {
	var dst T
	data, _ := json.Marshal(src)
	_ = json.Unmarshal(data, &dst)
	return dst
}

func missing(path string) bool {
	_, err := os.Stat(path)
	return errors.Is(err, fs.ErrNotExist)
}

func (c *Config[T]) startWatch() {
	var (
		debounceTimer *time.Timer
		debounceMu    sync.Mutex
	)

	c.v.OnConfigChange(func(_ fsnotify.Event) {
		debounceMu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
			if err := c.handleConfigChange(); err != nil {
				c.logger.Warn("config reload failed", "path", c.path, "err", err)
			}
		})
		debounceMu.Unlock()
	})

	c.v.WatchConfig()
}

func (c *Config[T]) handleConfigChange() error {
	oldConfig := c.Get()

	newConfig, watchers, err := c.reloadConfig()
	if err != nil {
		return err
	}

	if reflect.DeepEqual(oldConfig, newConfig) {
		return nil
	}

	for _, cb := range watchers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("config change callback panicked", "path", c.path, "panic", r)
				}
			}()
			cb(oldConfig, newConfig)
		}()
	}
	return nil
}

// reloadConfig 重新加载配置，返回新配置和回调列表
func (c *Config[T]) reloadConfig() (T, []func(old, new T), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if c.path != "" {
		if err := c.v.ReadInConfig(); err != nil {
			return zero, nil, err
		}
	}

	var val T
	if err := c.v.Unmarshal(&val); err != nil {
		return zero, nil, err
	}
	c.value = &val

	watchers := make([]func(old, new T), len(c.watchers))
	copy(watchers, c.watchers)

	return deepCopy(val), watchers, nil
}
