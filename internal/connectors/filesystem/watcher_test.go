package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher_Validates(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = NewWatcher(file)
	assert.ErrorContains(t, err, "not a directory")
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path   string
		hidden bool
	}{
		{".hidden.txt", true},
		{"path/.hidden/file.txt", true},
		{"/home/user/.ssh/id_rsa", true},
		{".config/.cache/data", true},
		{"file.txt", false},
		{"path/to/file.txt", false},
		{"file.hidden", false},
		{"directory.name/file", false},
		{".", false},
		{"..", false},
		{"path/./file", false},
		{"path/../file", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.hidden, isHidden(tt.path), tt.path)
	}
}

func TestHandleEvent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(file, []byte("content"), 0o644))
	subdir := filepath.Join(dir, "subdir")
	require.NoError(t, os.Mkdir(subdir, 0o755))
	gone := filepath.Join(dir, "gone.txt")

	tests := []struct {
		name     string
		event    fsnotify.Event
		want     ChangeType
		accepted bool
	}{
		{"create file", fsnotify.Event{Name: file, Op: fsnotify.Create}, ChangeCreated, true},
		{"write file", fsnotify.Event{Name: file, Op: fsnotify.Write}, ChangeUpdated, true},
		{"remove file", fsnotify.Event{Name: gone, Op: fsnotify.Remove}, ChangeDeleted, true},
		{"rename file", fsnotify.Event{Name: gone, Op: fsnotify.Rename}, ChangeDeleted, true},
		{"chmod ignored", fsnotify.Event{Name: file, Op: fsnotify.Chmod}, "", false},
		{"directory ignored", fsnotify.Event{Name: subdir, Op: fsnotify.Create}, "", false},
		{"hidden ignored", fsnotify.Event{Name: filepath.Join(dir, ".hidden"), Op: fsnotify.Write}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, ok := handleEvent(tt.event)
			assert.Equal(t, tt.accepted, ok)
			if tt.accepted {
				assert.Equal(t, tt.want, change.Type)
				assert.Equal(t, tt.event.Name, change.Path)
			}
		})
	}
}

func TestWatcher_DeliversChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("hello"), 0o644))

	select {
	case change := <-w.Events():
		assert.Equal(t, ChangeCreated, change.Type)
		assert.Equal(t, filepath.Join(dir, "new.txt"), change.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_PicksUpNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	subdir := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(subdir, 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(subdir, "inner.txt"), []byte("hi"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case change := <-w.Events():
			if change.Path == filepath.Join(subdir, "inner.txt") {
				assert.Equal(t, ChangeCreated, change.Type)
				return
			}
		case <-deadline:
			t.Fatal("nested file change not delivered")
		}
	}
}
