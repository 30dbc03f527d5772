package models

// LogEntry 描述了协调服务输出的结构化日志格式，字段与 pkg/logger 写出的 JSON 一一对应。
type LogEntry struct {
	// ServiceName 是产生日志的进程或组件，例如 "CoordinatorService"。
	ServiceName string `json:"service_name"`

	// TraceID 串联同一个请求或同一个评估周期内的日志。
	TraceID string `json:"trace_id,omitempty"`

	// AgentID 标识与日志相关的 Agent（如果适用）。
	AgentID string `json:"agent_id,omitempty"`

	// RequestInfo 是触发日志的 HTTP 请求信息。
	RequestInfo *RequestInfo `json:"request_info,omitempty"`

	// Error 在 Warn 及以上级别时填充。
	Error *ErrorInfo `json:"error,omitempty"`

	// Payload 存放其他业务字段。
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// RequestInfo 存储 HTTP 请求的上下文信息。
type RequestInfo struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`
	Status     int    `json:"status,omitempty"`
	LatencyMS  int64  `json:"latency_ms,omitempty"`
}

// ErrorInfo 存储结构化的错误信息。
type ErrorInfo struct {
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`        // 例如 "store_unavailable", "delivery_failure"
	StatusCode int    `json:"status_code,omitempty"` // 相关的HTTP状态码
}

// NewErrorInfo 从 error 构造 ErrorInfo。
func NewErrorInfo(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{}
	}
	return ErrorInfo{Message: err.Error()}
}
