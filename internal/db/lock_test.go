//go:build unix

package db

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestWriteLocker_AcquireRelease(t *testing.T) {
	dir := t.TempDir()
	locker := newWriteLocker(dir)

	if err := locker.acquire(500 * time.Millisecond); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, lockFileName))
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if !strings.Contains(string(data), "pid:") {
		t.Errorf("lock file should record holder, got %q", data)
	}

	if err := locker.release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
}

func TestWriteLocker_Serializes(t *testing.T) {
	dir := t.TempDir()

	const workers, rounds = 4, 10
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				l := newWriteLocker(dir)
				if err := l.acquire(5 * time.Second); err != nil {
					t.Errorf("acquire: %v", err)
					return
				}
				v := counter
				time.Sleep(time.Millisecond)
				counter = v + 1
				l.release()
			}
		}()
	}
	wg.Wait()

	if counter != workers*rounds {
		t.Errorf("counter = %d, want %d", counter, workers*rounds)
	}
}

func TestWriteLocker_TimeoutNamesHolder(t *testing.T) {
	dir := t.TempDir()

	held := newWriteLocker(dir)
	if err := held.acquire(500 * time.Millisecond); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer held.release()

	start := time.Now()
	err := newWriteLocker(dir).acquire(100 * time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("gave up after %v, want ~100ms", elapsed)
	}
	if !strings.Contains(err.Error(), "timeout") || !strings.Contains(err.Error(), "pid:") {
		t.Errorf("error should mention timeout and holder: %v", err)
	}
}

func TestWriteLocker_ReleaseUnblocks(t *testing.T) {
	dir := t.TempDir()

	first := newWriteLocker(dir)
	if err := first.acquire(500 * time.Millisecond); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	first.release()

	second := newWriteLocker(dir)
	start := time.Now()
	if err := second.acquire(500 * time.Millisecond); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	defer second.release()
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("acquire after release took %v", elapsed)
	}
}
