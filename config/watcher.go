// 定义文件变更监听器。
//
// 以轮询检测修改时间，合并防抖窗口内的多次变更后回调。
package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileOp 表示文件变更类型
type FileOp int

const (
	FileOpCreate FileOp = iota
	FileOpWrite
	FileOpRemove
)

func (op FileOp) String() string {
	switch op {
	case FileOpCreate:
		return "CREATE"
	case FileOpWrite:
		return "WRITE"
	case FileOpRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent 是一次文件变更
type FileEvent struct {
	Path      string    `json:"path"`
	Op        FileOp    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// WatcherOption 配置 FileWatcher
type WatcherOption func(*FileWatcher)

// WithDebounceDelay 设置防抖窗口
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *FileWatcher) { w.debounceDelay = d }
}

// WithPollInterval 设置轮询间隔
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *FileWatcher) { w.pollInterval = d }
}

// WithWatcherLogger 设置日志
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *FileWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// FileWatcher 监听一组文件，变更稳定后把这一批事件交给回调。
type FileWatcher struct {
	mu sync.Mutex

	paths         []string
	debounceDelay time.Duration
	pollInterval  time.Duration
	modTimes      map[string]time.Time
	callbacks     []func([]FileEvent)
	running       bool
	cancel        context.CancelFunc
	done          chan struct{}

	logger *zap.Logger
}

// NewFileWatcher 创建监听器。路径会被转换为绝对路径，不存在的文件在创建后触发事件。
func NewFileWatcher(paths []string, opts ...WatcherOption) (*FileWatcher, error) {
	w := &FileWatcher{
		debounceDelay: 200 * time.Millisecond,
		pollInterval:  time.Second,
		modTimes:      make(map[string]time.Time),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "file_watcher"))

	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		w.paths = append(w.paths, abs)
		if _, err := os.Stat(abs); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	return w, nil
}

// OnChange 注册回调，回调在监听 goroutine 中执行。
func (w *FileWatcher) OnChange(fn func([]FileEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Paths 返回监听的绝对路径
func (w *FileWatcher) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.paths...)
}

// IsRunning 返回是否在运行
func (w *FileWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Start 开始监听，直到 ctx 结束或调用 Stop。
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("watcher already running")
	}

	for _, p := range w.paths {
		if info, err := os.Stat(p); err == nil {
			w.modTimes[p] = info.ModTime()
		}
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running = true
	go w.loop(ctx)

	w.logger.Info("file watcher started", zap.Strings("paths", w.paths))
	return nil
}

// Stop 停止监听并等待 goroutine 退出。
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
}

func (w *FileWatcher) loop(ctx context.Context) {
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.done)
		w.logger.Info("file watcher stopped")
	}()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	pending := make(map[string]FileEvent)
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			events := w.scan()
			if len(events) == 0 {
				continue
			}
			for _, e := range events {
				pending[e.Path] = e
			}
			fire = time.After(w.debounceDelay)
		case <-fire:
			fire = nil
			batch := make([]FileEvent, 0, len(pending))
			for _, e := range pending {
				batch = append(batch, e)
			}
			pending = make(map[string]FileEvent)
			w.dispatch(batch)
		}
	}
}

// scan 比较修改时间，返回自上次扫描以来的变更
func (w *FileWatcher) scan() []FileEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	var events []FileEvent
	now := time.Now()
	for _, p := range w.paths {
		info, err := os.Stat(p)
		last, tracked := w.modTimes[p]
		switch {
		case err != nil:
			if tracked && os.IsNotExist(err) {
				delete(w.modTimes, p)
				events = append(events, FileEvent{Path: p, Op: FileOpRemove, Timestamp: now})
			}
		case !tracked:
			w.modTimes[p] = info.ModTime()
			events = append(events, FileEvent{Path: p, Op: FileOpCreate, Timestamp: now})
		case !info.ModTime().Equal(last):
			w.modTimes[p] = info.ModTime()
			events = append(events, FileEvent{Path: p, Op: FileOpWrite, Timestamp: now})
		}
	}
	return events
}

func (w *FileWatcher) dispatch(batch []FileEvent) {
	w.mu.Lock()
	callbacks := slices.Clone(w.callbacks)
	w.mu.Unlock()

	for _, e := range batch {
		w.logger.Debug("file changed", zap.String("path", e.Path), zap.String("op", e.Op.String()))
	}
	for _, cb := range callbacks {
		cb(batch)
	}
}
