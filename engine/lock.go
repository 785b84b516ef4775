package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const lockName = ".stockdaily.lock"

// ErrLocked 表示同一输出目录上已有另一次运行
var ErrLocked = errors.New("engine: another run holds the lock")

/*
输入输出目录，输出释放锁的函数

以O_EXCL创建锁文件，文件中写入进程号和开始时间，便于人工判断残留的锁。存储只允许单写者，
两个运行同时合并同一集合会互相覆盖
*/
func Lock(outDir string) (func() error, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: create out dir: %w", err)
	}
	path := filepath.Join(outDir, lockName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		holder, _ := os.ReadFile(path)
		return nil, fmt.Errorf("%w: %s (%s)", ErrLocked, path, strings.TrimSpace(string(holder)))
	}
	if err != nil {
		return nil, fmt.Errorf("engine: create lock: %w", err)
	}
	fmt.Fprintf(f, "pid=%s started=%s\n", strconv.Itoa(os.Getpid()), time.Now().Format(time.RFC3339))
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("engine: write lock: %w", err)
	}
	return func() error {
		return os.Remove(path)
	}, nil
}
