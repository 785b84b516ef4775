// Package sqlstorage 把合并后的分桶镜像到MySQL，JSON索引仍然是唯一可信的数据源
package sqlstorage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dszqbsm/stockdaily/index"
	"github.com/dszqbsm/stockdaily/sqldb"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var columns = []sqldb.Field{
	{Title: "date", Type: "VARCHAR(10) NOT NULL"},
	{Title: "identity", Type: "VARCHAR(191) NOT NULL"},
	{Title: "payload", Type: "MEDIUMTEXT NOT NULL"},
	{Title: "updated_at", Type: "DATETIME NOT NULL"},
}

var primaryKey = []string{"date", "identity"}

// SqlStore 每个集合一张表，主键 (date, identity)，重复写入整行替换
type SqlStore struct {
	db     sqldb.DBer
	tables map[string]struct{}
	options
}

func New(opts ...Option) (*SqlStore, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	db, err := sqldb.New(
		sqldb.WithConnURL(options.sqlURL),
		sqldb.WithLogger(options.logger),
	)
	if err != nil {
		return nil, err
	}
	return newWithDB(db, options), nil
}

func newWithDB(db sqldb.DBer, options options) *SqlStore {
	if options.BatchCount < 1 {
		options.BatchCount = 1
	}
	return &SqlStore{db: db, tables: make(map[string]struct{}), options: options}
}

// TableName 集合名中的连字符替换为下划线
func (s *SqlStore) TableName(collection string) string {
	return s.TablePrefix + strings.ReplaceAll(collection, "-", "_")
}

/*
输入集合名和分桶，输出错误

首次写某个集合时建表，然后按BatchCount分批REPLACE。某一批失败不影响其余批次，所有错误合并返回
*/
func (s *SqlStore) Upsert(collection string, b *index.Bucket) error {
	if b == nil || len(b.Items) == 0 {
		return nil
	}
	table := s.TableName(collection)
	if _, ok := s.tables[table]; !ok {
		if err := s.db.CreateTable(sqldb.TableData{
			TableName:   table,
			ColumnNames: columns,
			PrimaryKey:  primaryKey,
		}); err != nil {
			return fmt.Errorf("sqlstorage: create table %s: %w", table, err)
		}
		s.tables[table] = struct{}{}
	}

	var errs error
	keys := b.Keys()
	for start := 0; start < len(keys); start += s.BatchCount {
		end := start + s.BatchCount
		if end > len(keys) {
			end = len(keys)
		}
		args := make([]interface{}, 0, (end-start)*len(columns))
		rows := 0
		for _, k := range keys[start:end] {
			payload, err := json.Marshal(b.Items[k])
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("sqlstorage: encode %s/%s: %w", b.Date, k, err))
				continue
			}
			args = append(args, b.Date, k, string(payload), b.UpdatedAt)
			rows++
		}
		if rows == 0 {
			continue
		}
		if err := s.db.Insert(sqldb.TableData{
			TableName:   table,
			ColumnNames: columns,
			Args:        args,
			DataCount:   rows,
			Replace:     true,
		}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sqlstorage: replace into %s: %w", table, err))
		}
	}
	s.logger.Debug("bucket mirrored",
		zap.String("table", table),
		zap.String("date", b.Date),
		zap.Int("rows", len(keys)))
	return errs
}
