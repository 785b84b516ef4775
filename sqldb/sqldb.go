// Package sqldb 封装对MySQL的建表和批量写入
package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// DBer 统一了建表和批量写入两种操作，测试中用假实现替换
type DBer interface {
	CreateTable(t TableData) error
	Insert(t TableData) error
}

// Field 是表中的一列
type Field struct {
	Title string
	Type  string
}

// TableData 描述一次建表或写入
type TableData struct {
	TableName   string
	ColumnNames []Field
	PrimaryKey  []string
	Args        []interface{} // 按行展开的值，长度为 列数*DataCount
	DataCount   int
	// Replace 为true时使用REPLACE INTO，主键冲突时整行替换
	Replace bool
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// Validate 检查表名、列名只包含安全字符，参数个数与列数匹配
func (t TableData) Validate() error {
	if !identifier.MatchString(t.TableName) {
		return fmt.Errorf("sqldb: invalid table name %q", t.TableName)
	}
	if len(t.ColumnNames) == 0 {
		return errors.New("sqldb: column can not be empty")
	}
	for _, f := range t.ColumnNames {
		if !identifier.MatchString(f.Title) {
			return fmt.Errorf("sqldb: invalid column name %q", f.Title)
		}
	}
	for _, k := range t.PrimaryKey {
		if !identifier.MatchString(k) {
			return fmt.Errorf("sqldb: invalid key column %q", k)
		}
	}
	if t.DataCount > 0 && len(t.Args) != t.DataCount*len(t.ColumnNames) {
		return fmt.Errorf("sqldb: got %d args for %d rows of %d columns", len(t.Args), t.DataCount, len(t.ColumnNames))
	}
	return nil
}

type Sqldb struct {
	options
	db *sql.DB
}

func New(opts ...Option) (*Sqldb, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	d := &Sqldb{options: options}
	if err := d.OpenDB(); err != nil {
		return nil, err
	}
	return d, nil
}

// OpenDB 打开连接池并ping一次确认可用
func (d *Sqldb) OpenDB() error {
	db, err := sql.Open("mysql", d.sqlURL)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(d.maxOpenConns)
	db.SetMaxIdleConns(d.maxOpenConns)
	if err = db.Ping(); err != nil {
		db.Close()
		return err
	}
	d.db = db
	return nil
}

func (d *Sqldb) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// CreateTableSQL 生成 CREATE TABLE IF NOT EXISTS 语句
func CreateTableSQL(t TableData) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	cols := make([]string, 0, len(t.ColumnNames)+1)
	for _, f := range t.ColumnNames {
		cols = append(cols, "`"+f.Title+"` "+f.Type)
	}
	if len(t.PrimaryKey) > 0 {
		cols = append(cols, "PRIMARY KEY (`"+strings.Join(t.PrimaryKey, "`,`")+"`)")
	}
	return "CREATE TABLE IF NOT EXISTS `" + t.TableName + "` (" + strings.Join(cols, ",") +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;", nil
}

/*
输入表数据，输出批量写入语句

形如 INSERT INTO t(a,b) VALUES (?,?),(?,?); 问号个数取决于列数和行数
*/
func InsertSQL(t TableData) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	if t.DataCount < 1 {
		return "", errors.New("sqldb: no rows to insert")
	}
	verb := "INSERT INTO "
	if t.Replace {
		verb = "REPLACE INTO "
	}
	titles := make([]string, len(t.ColumnNames))
	for i, f := range t.ColumnNames {
		titles[i] = "`" + f.Title + "`"
	}
	row := "(" + strings.Repeat(",?", len(t.ColumnNames))[1:] + ")"
	return verb + "`" + t.TableName + "`(" + strings.Join(titles, ",") + ") VALUES " +
		strings.Repeat(","+row, t.DataCount)[1:] + ";", nil
}

func (d *Sqldb) CreateTable(t TableData) error {
	q, err := CreateTableSQL(t)
	if err != nil {
		return err
	}
	d.logger.Debug("create table", zap.String("sql", q))
	_, err = d.db.Exec(q)
	return err
}

func (d *Sqldb) Insert(t TableData) error {
	q, err := InsertSQL(t)
	if err != nil {
		return err
	}
	d.logger.Debug("insert table", zap.String("table", t.TableName), zap.Int("rows", t.DataCount))
	_, err = d.db.Exec(q, t.Args...)
	return err
}
