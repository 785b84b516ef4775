package index

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Store 是索引的持久化介质
type Store interface {
	Load() (*Index, error)
	Persist(*Index) error
}

// FileStore 把一个集合的索引保存在单个JSON文件中
type FileStore struct {
	path       string
	collection string
	opts       []Option
	options

	// 测试中替换，用于模拟写完临时文件后、rename之前崩溃
	rename func(oldpath, newpath string) error
}

func NewFileStore(path, collection string, opts ...Option) *FileStore {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &FileStore{
		path:       path,
		collection: collection,
		opts:       opts,
		options:    options,
		rename:     os.Rename,
	}
}

func (s *FileStore) Path() string {
	return s.path
}

/*
输入无，输出磁盘上的索引

文件不存在或为空时返回空索引；旧版结构在内存中迁移为当前结构，下一次Persist时才会以新格式写回。
同目录下残留的临时文件不会被读取
*/
func (s *FileStore) Load() (*Index, error) {
	idx := New(s.collection, s.opts...)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("index not found, start empty", zap.String("path", s.path))
		return idx, nil
	}
	if err != nil {
		return nil, &CorruptStoreError{Path: s.path, Reason: "read", Err: err}
	}

	d, err := decode(data)
	if err != nil {
		var ce *CorruptStoreError
		if errors.As(err, &ce) {
			ce.Path = s.path
		}
		return nil, err
	}

	if d.collection != "" && s.collection != "" && d.collection != s.collection {
		s.logger.Warn("index collection mismatch",
			zap.String("path", s.path),
			zap.String("want", s.collection),
			zap.String("got", d.collection))
	}

	idx.Buckets = d.buckets
	idx.Skipped = d.skipped
	if d.shape != ShapeEmpty {
		idx.Migrated = d.shape
	}
	if idx.Migrated != ShapeCurrent {
		s.logger.Info("legacy index migrated",
			zap.String("path", s.path),
			zap.String("shape", idx.Migrated),
			zap.Int("buckets", len(idx.Buckets)))
	}
	if len(idx.Skipped) > 0 {
		s.logger.Warn("index entries skipped on load",
			zap.String("path", s.path),
			zap.Strings("keys", idx.Skipped))
	}
	return idx, nil
}

/*
输入内存中的索引，输出错误

编码后经WriteFile原子地替换目标文件。任何一步失败都返回*PersistError，原文件保持不变
*/
func (s *FileStore) Persist(idx *Index) error {
	if idx.Collection == "" {
		idx.Collection = s.collection
	}
	data, err := encode(idx, s.clock())
	if err != nil {
		return &PersistError{Path: s.path, Op: "encode", Err: err}
	}
	if err := replaceFile(s.path, data, s.rename); err != nil {
		return err
	}
	s.logger.Info("index persisted",
		zap.String("path", s.path),
		zap.Int("buckets", len(idx.Buckets)),
		zap.Int("items", idx.Len()),
		zap.Int("bytes", len(data)))
	return nil
}

/*
输入目标路径和内容，输出错误

写入同目录下的临时文件，fsync后rename覆盖目标文件，再fsync目录。失败时返回*PersistError并清理临时文件，
读者看到的要么是旧文件，要么是完整的新文件
*/
func WriteFile(path string, data []byte) error {
	return replaceFile(path, data, os.Rename)
}

func replaceFile(path string, data []byte, rename func(oldpath, newpath string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistError{Path: path, Op: "mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &PersistError{Path: path, Op: "create temp", Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return &PersistError{Path: path, Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &PersistError{Path: path, Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistError{Path: path, Op: "close", Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &PersistError{Path: path, Op: "chmod", Err: err}
	}
	if err := rename(tmpName, path); err != nil {
		return &PersistError{Path: path, Op: "rename", Err: err}
	}
	committed = true

	if err := syncDir(dir); err != nil {
		return &PersistError{Path: path, Op: "sync dir", Err: err}
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
