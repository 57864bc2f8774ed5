// Copyright 2023 JWXFD2023
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"os"
	"sync/atomic"

	"github.com/JWXFD2023/doris/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var globalLogger atomic.Value // *zap.Logger

func init() {
	SetupEngineLogger(&config.EngineParameters{LogLevel: "info", LogMaxSize: 512, LogMaxBackups: 10})
}

// SetupEngineLogger installs the global logger described by the engine
// parameters. With an empty LogFilename the logger writes to stderr;
// otherwise output goes through a size-rotated file.
func SetupEngineLogger(ep *config.EngineParameters) {
	var ws zapcore.WriteSyncer
	if ep.LogFilename == "" {
		ws = zapcore.AddSync(os.Stderr)
	} else {
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   ep.LogFilename,
			MaxSize:    int(ep.LogMaxSize),
			MaxBackups: int(ep.LogMaxBackups),
		})
	}

	var level zapcore.Level
	switch ep.LogLevel {
	case "debug":
		level = zap.DebugLevel
	case "warn":
		level = zap.WarnLevel
	case "error":
		level = zap.ErrorLevel
	default:
		level = zap.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, level)
	logger := zap.New(core, zap.AddCallerSkip(1))
	globalLogger.Store(logger)
}

func GetGlobalLogger() *zap.Logger {
	return globalLogger.Load().(*zap.Logger)
}

func Debug(msg string, fields ...zap.Field) {
	GetGlobalLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	GetGlobalLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetGlobalLogger().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetGlobalLogger().Error(msg, fields...)
}

func Debugf(msg string, args ...interface{}) {
	GetGlobalLogger().Sugar().Debugf(msg, args...)
}

func Infof(msg string, args ...interface{}) {
	GetGlobalLogger().Sugar().Infof(msg, args...)
}

func Warnf(msg string, args ...interface{}) {
	GetGlobalLogger().Sugar().Warnf(msg, args...)
}

func Errorf(msg string, args ...interface{}) {
	GetGlobalLogger().Sugar().Errorf(msg, args...)
}

// QueryIdField tags a log entry with the query it belongs to.
func QueryIdField(id string) zap.Field {
	return zap.String("query_id", id)
}

// FragmentIdField tags a log entry with a plan fragment.
func FragmentIdField(id int32) zap.Field {
	return zap.Int32("fragment_id", id)
}
