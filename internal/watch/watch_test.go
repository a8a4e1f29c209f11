package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.home.luguber.info/inful/subsync/internal/config"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithin(t *testing.T) {
	assert.True(t, within("/work/.git/index", "/work/.git"))
	assert.True(t, within("/work/.git", "/work/.git"))
	assert.False(t, within("/work/site/index.html", "/work/.git"))
	assert.False(t, within("/work", "/work/.git"))
}

func TestAddRecursiveSkipsGitDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deep"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o750))

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, addRecursive(watcher, root))

	list := watcher.WatchList()
	assert.Contains(t, list, root)
	assert.Contains(t, list, filepath.Join(root, "sub"))
	assert.Contains(t, list, filepath.Join(root, "sub", "deep"))
	assert.NotContains(t, list, filepath.Join(root, ".git"))
	assert.NotContains(t, list, filepath.Join(root, ".git", "objects"))
}

func TestDefaultDebounce(t *testing.T) {
	w := New("DOCS", config.Subtree{}, Options{}, nil, nil)
	assert.Equal(t, 2*time.Second, w.opts.Debounce)

	w = New("DOCS", config.Subtree{}, Options{Debounce: 100 * time.Millisecond}, nil, nil)
	assert.Equal(t, 100*time.Millisecond, w.opts.Debounce)
}

// TestChangeTriggersDebouncedPublish: a burst of writes produces one publish
// call after the quiet period.
func TestChangeTriggersDebouncedPublish(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "site"), 0o750))

	published := make(chan struct{}, 4)
	cfg := config.Subtree{Path: "site", Dir: dir, Repo: "org/docs", Branch: "master"}
	w := New("DOCS", cfg, Options{Debounce: 50 * time.Millisecond}, func() error {
		published <- struct{}{}
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register, then write a burst.
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "site", "index.html"), []byte{byte(i)}, 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a publish after the debounce window")
	}

	// The burst collapsed into a single publish.
	select {
	case <-published:
		t.Fatal("expected the burst to be debounced into one publish")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
