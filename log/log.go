// Package log 封装zap日志的创建，所有组件通过WithLogger选项拿到logger，不使用包级全局变量
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Plugin = zapcore.Core

// NewLogger 在默认选项（调用者信息、DPanic以上打印堆栈）之后追加调用方的选项
func NewLogger(plugin Plugin, options ...zap.Option) *zap.Logger {
	return zap.New(plugin, append(DefaultOption(), options...)...)
}

func NewPlugin(writer zapcore.WriteSyncer, enabler zapcore.LevelEnabler) Plugin {
	return zapcore.NewCore(DefaultEncoder(), writer, enabler)
}

func NewStdoutPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(zapcore.Lock(zapcore.AddSync(os.Stdout)), enabler)
}

func NewStderrPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(zapcore.Lock(zapcore.AddSync(os.Stderr)), enabler)
}

// NewFilePlugin 返回写入轮转文件的插件。lumberjack不提供Sync，进程退出前必须调用返回的Closer
func NewFilePlugin(filePath string, enabler zapcore.LevelEnabler) (Plugin, io.Closer) {
	writer := DefaultLumberjackLogger()
	writer.Filename = filePath
	return NewPlugin(zapcore.AddSync(writer), enabler), writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

/*
输入日志级别字符串和可选的日志文件路径，输出logger和需要在退出前关闭的Closer

日志总是写到标准错误，保证标准输出只留给运行报告；配置了文件路径时再额外写一份到轮转文件
*/
func Setup(level, filePath string) (*zap.Logger, io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	plugins := []Plugin{NewStderrPlugin(lvl)}
	var closer io.Closer = nopCloser{}
	if filePath != "" {
		p, c := NewFilePlugin(filePath, lvl)
		plugins = append(plugins, p)
		closer = c
	}
	return NewLogger(zapcore.NewTee(plugins...)), closer, nil
}

// ParseLevel 空字符串视为info
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return lvl, err
	}
	return lvl, nil
}
