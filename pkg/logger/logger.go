// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger is a small facade over zap, giving every component a
// named, leveled logger without coupling callers to zap's own types.
package logger

import (
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Field is a structured key/value attached to a log line.
type Field = zap.Field

// String builds a string field, mirroring zap.String.
func String(key, val string) Field { return zap.String(key, val) }

// Int builds an int field, mirroring zap.Int.
func Int(key string, val int) Field { return zap.Int(key, val) }

// Error builds an error field under the conventional "error" key.
func Error(err error) Field { return zap.Error(err) }

// Stack attaches the current goroutine stack under the given key.
func Stack(key string) Field { return zap.Stack(key) }

// Logger wraps a zap.Logger scoped to a module and role, e.g.
// GetLogger("concurrent", "Pool").
type Logger struct {
	z *zap.Logger
}

func (l *Logger) Debug(msg string, fields ...Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.z.Error(msg, fields...) }

var (
	mu   sync.RWMutex
	base *zap.Logger
)

func init() {
	base = newBase("")
}

// Configure rebuilds the base logger used by every GetLogger call. When
// filePath is non-empty, output is written to a rotating file via
// lumberjack instead of (rather than in addition to) the console, the
// same trade made by most zap-based services that run as daemons.
func Configure(level zapcore.Level, filePath string) {
	mu.Lock()
	defer mu.Unlock()
	base = newBaseAt(level, filePath)
}

func newBase(filePath string) *zap.Logger {
	return newBaseAt(zapcore.InfoLevel, filePath)
}

func newBaseAt(level zapcore.Level, filePath string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var writer zapcore.WriteSyncer
	var encoder zapcore.Encoder
	if filePath != "" {
		writer = zapcore.AddSync(&lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		writer = zapcore.AddSync(os.Stdout)
		if isatty.IsTerminal(os.Stdout.Fd()) {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
			encoder = zapcore.NewConsoleEncoder(encCfg)
		} else {
			encoder = zapcore.NewJSONEncoder(encCfg)
		}
	}

	core := zapcore.NewCore(encoder, writer, level)
	return zap.New(core, zap.AddCaller())
}

// GetLogger returns a Logger tagged with the owning module and the role it
// plays within that module, e.g. GetLogger("concurrent", "Controller").
func GetLogger(module, role string) *Logger {
	mu.RLock()
	b := base
	mu.RUnlock()
	return &Logger{z: b.With(String("module", module), String("role", role))}
}
