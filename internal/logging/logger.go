package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Logger interface for structured logging with trace support
type Logger interface {
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})

	// Context-aware logging with trace IDs
	InfoContext(ctx context.Context, msg string, fields ...interface{})
	WarnContext(ctx context.Context, msg string, fields ...interface{})
	ErrorContext(ctx context.Context, msg string, fields ...interface{})
	DebugContext(ctx context.Context, msg string, fields ...interface{})

	WithTraceID(traceID string) Logger
	WithComponent(component string) Logger
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	TraceID   string                 `json:"trace_id,omitempty"`
	Component string                 `json:"component,omitempty"`
	File      string                 `json:"file,omitempty"`
	Line      int                    `json:"line,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// ContextKey represents keys used in context for trace IDs
type ContextKey string

const (
	TraceIDKey ContextKey = "trace_id"
)

// LogLevel represents logging levels
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "INFO"
}

var levelColors = map[LogLevel]*color.Color{
	DEBUG: color.New(color.FgHiBlack),
	INFO:  color.New(color.FgCyan),
	WARN:  color.New(color.FgYellow, color.Bold),
	ERROR: color.New(color.FgRed, color.Bold),
	FATAL: color.New(color.FgHiRed, color.Bold, color.ReverseVideo),
}

// Options configures a StructuredLogger
type Options struct {
	Level  LogLevel
	JSON   bool
	Output io.Writer // defaults to os.Stdout
	Color  bool      // colors text output levels; ignored for JSON
}

// sink is shared by every logger derived from the same root so lines never interleave
type sink struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *sink) writeLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.out, line+"\n")
}

// StructuredLogger writes JSON or text log lines to a writer
type StructuredLogger struct {
	level     LogLevel
	traceID   string
	component string
	useJSON   bool
	useColor  bool
	sink      *sink
}

// New creates a structured logger from explicit options
func New(opts Options) Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	return &StructuredLogger{
		level:    opts.Level,
		useJSON:  opts.JSON,
		useColor: opts.Color && !opts.JSON,
		sink:     &sink{out: out},
	}
}

// NewLogger creates a stdout logger whose format follows LOG_JSON
func NewLogger(level LogLevel) Logger {
	return New(Options{
		Level: level,
		JSON:  getEnvBool("LOG_JSON", true),
		Color: !color.NoColor,
	})
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val == "true" || val == "1"
}

func (l *StructuredLogger) derive() *StructuredLogger {
	clone := *l
	return &clone
}

// WithTraceID creates a new logger with a trace ID
func (l *StructuredLogger) WithTraceID(traceID string) Logger {
	next := l.derive()
	next.traceID = traceID
	return next
}

// WithComponent creates a new logger with a component name
func (l *StructuredLogger) WithComponent(component string) Logger {
	next := l.derive()
	next.component = component
	return next
}

func (l *StructuredLogger) Info(msg string, fields ...interface{}) {
	l.log(context.Background(), INFO, msg, fields)
}

func (l *StructuredLogger) Warn(msg string, fields ...interface{}) {
	l.log(context.Background(), WARN, msg, fields)
}

func (l *StructuredLogger) Error(msg string, fields ...interface{}) {
	l.log(context.Background(), ERROR, msg, fields)
}

func (l *StructuredLogger) Debug(msg string, fields ...interface{}) {
	l.log(context.Background(), DEBUG, msg, fields)
}

// Fatal logs a fatal message and exits
func (l *StructuredLogger) Fatal(msg string, fields ...interface{}) {
	l.log(context.Background(), FATAL, msg, fields)
	os.Exit(1)
}

func (l *StructuredLogger) InfoContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, INFO, msg, fields)
}

func (l *StructuredLogger) WarnContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, WARN, msg, fields)
}

func (l *StructuredLogger) ErrorContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, ERROR, msg, fields)
}

func (l *StructuredLogger) DebugContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, DEBUG, msg, fields)
}

func (l *StructuredLogger) log(ctx context.Context, level LogLevel, msg string, fields []interface{}) {
	if level < l.level {
		return
	}

	// Context trace ID takes precedence over the logger's own
	traceID := l.traceID
	if fromCtx := GetTraceID(ctx); fromCtx != "" {
		traceID = fromCtx
	}

	file, line := "unknown", 0
	if _, path, n, ok := runtime.Caller(2); ok {
		file, line = filepath.Base(path), n
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
		TraceID:   traceID,
		Component: l.component,
		File:      file,
		Line:      line,
		Fields:    fieldMap(fields),
	}

	if l.useJSON {
		data, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal log entry: %v\n", err)
			return
		}
		l.sink.writeLine(string(data))
		return
	}
	l.sink.writeLine(l.formatText(level, entry))
}

// fieldMap pairs up key/value arguments; a dangling value is kept under field_N
func fieldMap(fields []interface{}) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	m := make(map[string]interface{}, (len(fields)+1)/2)
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			m[fmt.Sprintf("%v", fields[i])] = fields[i+1]
		} else {
			m[fmt.Sprintf("field_%d", i)] = fields[i]
		}
	}
	return m
}

func (l *StructuredLogger) formatText(level LogLevel, entry LogEntry) string {
	levelTag := fmt.Sprintf("[%s]", entry.Level)
	if l.useColor {
		levelTag = levelColors[level].Sprint(levelTag)
	}

	parts := []string{entry.Timestamp, levelTag}
	if entry.TraceID != "" {
		short := entry.TraceID
		if len(short) > 8 {
			short = short[:8]
		}
		parts = append(parts, "trace:"+short)
	}
	if entry.Component != "" {
		parts = append(parts, "component:"+entry.Component)
	}
	parts = append(parts, entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, entry.Fields[k]))
	}

	if entry.Line > 0 {
		parts = append(parts, fmt.Sprintf("(%s:%d)", entry.File, entry.Line))
	}
	return strings.Join(parts, " ")
}

// GenerateTraceID returns a new random trace ID
func GenerateTraceID() string {
	return uuid.New().String()
}

// WithTraceID stores a trace ID on the context, generating one when empty
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = GenerateTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// ParseLogLevel parses a level name, defaulting to INFO
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}
