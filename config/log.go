package config

import (
	"fmt"
	"log"
	"sync/atomic"
)

// LogLevel bounds the messages written by the engine, the analyzers and the
// CVE store. Lower levels are more important.
type LogLevel int32

const (
	LogError LogLevel = iota
	LogWarn
	LogInfo
	LogVerbose
	LogDebug
)

var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(LogInfo))
}

func SetLogLevel(l LogLevel) {
	logLevel.Store(int32(l))
}

func GetLogLevel() LogLevel {
	return LogLevel(logLevel.Load())
}

func logf(l LogLevel, format string, args ...interface{}) {
	if l > GetLogLevel() {
		return
	}
	log.Output(3, fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...interface{}) {
	logf(LogError, Red("[ERROR] ")+format, args...)
}

func Warnf(format string, args ...interface{}) {
	logf(LogWarn, Yellow("[WARN] ")+format, args...)
}

func Infof(format string, args ...interface{}) {
	logf(LogInfo, format, args...)
}

func Verbosef(format string, args ...interface{}) {
	logf(LogVerbose, format, args...)
}

func Debugf(format string, args ...interface{}) {
	logf(LogDebug, format, args...)
}
