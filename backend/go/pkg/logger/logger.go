package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
)

// Logger 是对 logrus 的封装，以提供更方便的结构化日志记录功能。
// With* 方法返回新的 Logger，不会修改接收者，可以在多个 goroutine 间共享。
type Logger struct {
	entry *logrus.Entry
}

// Init 初始化全局的 logrus 配置。
// level: 设置日志级别 (e.g., logrus.InfoLevel, logrus.DebugLevel)。
func Init(level logrus.Level) {
	logrus.SetFormatter(newFormatter())
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(level)
}

// InitFromString 解析日志级别字符串并初始化。
func InitFromString(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Init(lvl)
	return nil
}

func newFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	}
}

// New 创建一个新的 Logger 实例，并预设服务名、追踪ID和 Agent ID。
func New(serviceName, traceID, agentID string) *Logger {
	return &Logger{
		entry: logrus.WithFields(logrus.Fields{
			"service_name": serviceName,
			"trace_id":     traceID,
			"agent_id":     agentID,
		}),
	}
}

// NewWithOutput 创建一个写入指定 io.Writer 的独立 Logger，不影响全局配置。
func NewWithOutput(serviceName string, w io.Writer, level logrus.Level) *Logger {
	base := logrus.New()
	base.SetFormatter(newFormatter())
	base.SetOutput(w)
	base.SetLevel(level)
	return &Logger{entry: base.WithField("service_name", serviceName)}
}

// Discard 返回一个丢弃所有输出的 Logger，用于测试。
func Discard() *Logger {
	return NewWithOutput("discard", io.Discard, logrus.PanicLevel)
}

// Component 返回带有组件名的子 Logger。
func (l *Logger) Component(name string) *Logger {
	return &Logger{entry: l.entry.WithField("component", name)}
}

// WithTrace 返回带有追踪ID的子 Logger。
func (l *Logger) WithTrace(traceID string) *Logger {
	return &Logger{entry: l.entry.WithField("trace_id", traceID)}
}

// WithAgent 返回带有 Agent ID 的子 Logger。
func (l *Logger) WithAgent(agentID string) *Logger {
	return &Logger{entry: l.entry.WithField("agent_id", agentID)}
}

// WithRequest 将请求信息添加到日志条目中。
func (l *Logger) WithRequest(req models.RequestInfo) *Logger {
	return &Logger{entry: l.entry.WithField("request_info", req)}
}

// WithError 将错误信息添加到日志条目中。
func (l *Logger) WithError(err models.ErrorInfo) *Logger {
	return &Logger{entry: l.entry.WithField("error", err)}
}

// WithErr 是 WithError(models.NewErrorInfo(err)) 的简写。
func (l *Logger) WithErr(err error) *Logger {
	return l.WithError(models.NewErrorInfo(err))
}

// WithPayload 将自定义的业务数据添加到日志条目中。
func (l *Logger) WithPayload(payload map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithField("payload", payload)}
}

// Info 记录一条信息级别的日志。
func (l *Logger) Info(message string) {
	l.entry.Info(message)
}

// Warn 记录一条警告级别的日志。
func (l *Logger) Warn(message string) {
	l.entry.Warn(message)
}

// Error 记录一条错误级别的日志。
func (l *Logger) Error(message string) {
	l.entry.Error(message)
}

// Debug 记录一条调试级别的日志。
func (l *Logger) Debug(message string) {
	l.entry.Debug(message)
}

// Fatal 记录一条致命错误级别的日志，并终止程序。
func (l *Logger) Fatal(message string) {
	l.entry.Fatal(message)
}
