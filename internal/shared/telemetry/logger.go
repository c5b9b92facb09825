package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level orders log severities.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps a LOG_LEVEL value to a Level. Unknown values mean info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	minLevel atomic.Int32
	outMu    sync.Mutex
	out      io.Writer = os.Stdout
	now                = time.Now
)

func init() { minLevel.Store(int32(LevelInfo)) }

// SetLevel drops lines below l.
func SetLevel(l Level) { minLevel.Store(int32(l)) }

// SetOutput redirects log lines to w and returns a func restoring the previous writer.
func SetOutput(w io.Writer) (restore func()) {
	outMu.Lock()
	prev := out
	out = w
	outMu.Unlock()
	return func() {
		outMu.Lock()
		out = prev
		outMu.Unlock()
	}
}

func Debug(msg string, fields map[string]any) { write(LevelDebug, msg, fields) }

func Info(msg string, fields map[string]any) { write(LevelInfo, msg, fields) }

func Warn(msg string, fields map[string]any) { write(LevelWarn, msg, fields) }

func Error(msg string, fields map[string]any) { write(LevelError, msg, fields) }

// write emits one JSON object per line. ts, level and msg cannot be
// overridden by fields; error values are rendered with Error().
func write(level Level, msg string, fields map[string]any) {
	if int32(level) < minLevel.Load() {
		return
	}
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		if err, ok := v.(error); ok && err != nil {
			v = err.Error()
		}
		entry[k] = v
	}
	ts := now().UTC().Format(time.RFC3339Nano)
	entry["ts"] = ts
	entry["level"] = level.String()
	entry["msg"] = msg

	line, err := json.Marshal(entry)
	if err != nil {
		line = []byte(fmt.Sprintf(`{"ts":%q,"level":"error","msg":"log marshal failed","source_msg":%q,"error":%q}`, ts, msg, err.Error()))
	}
	line = append(line, '\n')

	outMu.Lock()
	defer outMu.Unlock()
	_, _ = out.Write(line)
}
