package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("work_minutes: 25\n"), 0o644))

	load := func() (Config, error) {
		cfg, err := LoadFile(path, true)
		if err != nil {
			return Config{}, err
		}
		return Merge(cfg, nil), nil
	}
	changes := make(chan Config, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, load, func(c Config) { changes <- c }, nil)
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "other.txt"), []byte("x"), 0o644))
	// A broken file is skipped rather than delivered.
	require.NoError(t, os.WriteFile(path, []byte("work_minutes: [\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("work_minutes: 40\n"), 0o644))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.WorkMinutes == 40 {
				cancel()
				require.NoError(t, <-done)
				return
			}
			assert.Contains(t, []int{25, 40}, c.WorkMinutes)
		case <-deadline:
			cancel()
			<-done
			t.Fatal("watcher never delivered the updated config")
		}
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	defer goleak.VerifyNone(t)

	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "config.yaml"),
		func() (Config, error) { return Defaults(), nil }, func(Config) {}, nil)
	assert.Error(t, err)
}
