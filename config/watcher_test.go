package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastWatcher(t *testing.T, paths ...string) *FileWatcher {
	t.Helper()
	w, err := NewFileWatcher(paths,
		WithPollInterval(10*time.Millisecond),
		WithDebounceDelay(20*time.Millisecond),
		WithWatcherLogger(zap.NewNop()),
	)
	require.NoError(t, err)
	return w
}

type eventSink struct {
	mu      sync.Mutex
	batches [][]FileEvent
}

func (s *eventSink) add(b []FileEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, b)
}

func (s *eventSink) all() []FileEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []FileEvent
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func TestNewFileWatcher(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "agents.yaml")
	require.NoError(t, os.WriteFile(f, []byte("a: 1"), 0o644))

	w, err := NewFileWatcher([]string{f, f, filepath.Join(dir, "missing.yaml")})
	require.NoError(t, err)

	assert.Len(t, w.Paths(), 2, "duplicates are collapsed")
	assert.False(t, w.IsRunning())
	assert.Equal(t, 200*time.Millisecond, w.debounceDelay)
}

func TestFileWatcher_DetectsWrite(t *testing.T) {
	f := filepath.Join(t.TempDir(), "tasks.yaml")
	require.NoError(t, os.WriteFile(f, []byte("v: 1"), 0o644))

	w := fastWatcher(t, f)
	sink := &eventSink{}
	w.OnChange(sink.add)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// 保证 mtime 变化
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(f, []byte("v: 2"), 0o644))
	require.NoError(t, os.Chtimes(f, future, future))

	require.Eventually(t, func() bool { return len(sink.all()) > 0 }, 2*time.Second, 10*time.Millisecond)
	ev := sink.all()[0]
	assert.Equal(t, FileOpWrite, ev.Op)
	assert.Equal(t, f, ev.Path)
}

func TestFileWatcher_DispatchUsesCallbackSnapshot(t *testing.T) {
	w := fastWatcher(t)
	late := &eventSink{}
	var calls int
	// 回调内注册新回调不能死锁，新回调只在下一批生效
	w.OnChange(func([]FileEvent) {
		calls++
		w.OnChange(late.add)
	})

	batch := []FileEvent{{Path: "agents.yaml", Op: FileOpWrite, Timestamp: time.Now()}}
	w.dispatch(batch)
	assert.Equal(t, 1, calls)
	assert.Empty(t, late.all())

	w.dispatch(batch)
	assert.Equal(t, 2, calls)
	assert.Len(t, late.all(), 1)
}

func TestFileWatcher_CreateAndRemove(t *testing.T) {
	f := filepath.Join(t.TempDir(), "later.yaml")

	w := fastWatcher(t, f)
	sink := &eventSink{}
	w.OnChange(sink.add)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	require.Eventually(t, func() bool {
		for _, e := range sink.all() {
			if e.Op == FileOpCreate {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(f))
	require.Eventually(t, func() bool {
		for _, e := range sink.all() {
			if e.Op == FileOpRemove {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFileWatcher_StartTwice(t *testing.T) {
	w := fastWatcher(t, filepath.Join(t.TempDir(), "a.yaml"))
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
	assert.True(t, w.IsRunning())
}

func TestFileWatcher_StopOnContextCancel(t *testing.T) {
	w := fastWatcher(t, filepath.Join(t.TempDir(), "a.yaml"))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	cancel()
	require.Eventually(t, func() bool { return !w.IsRunning() }, time.Second, 10*time.Millisecond)
	w.Stop() // 已停止时为空操作
}

func TestFileOp_String(t *testing.T) {
	assert.Equal(t, "CREATE", FileOpCreate.String())
	assert.Equal(t, "WRITE", FileOpWrite.String())
	assert.Equal(t, "REMOVE", FileOpRemove.String())
	assert.Equal(t, "UNKNOWN", FileOp(42).String())
}
