package models

import "errors"

// 协调服务的错误分类，调用方通过 errors.Is 判断。
var (
	ErrDuplicateAgent      = errors.New("agent already active on another connection")
	ErrUnknownAgent        = errors.New("unknown agent")
	ErrUnknownTask         = errors.New("unknown task")
	ErrUnknownIntervention = errors.New("unknown intervention")
	ErrDeliveryFailure     = errors.New("message delivery failed")
	ErrNotificationChannel = errors.New("notification channel failure")
	ErrAssessmentCycle     = errors.New("assessment cycle failure")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotAssignee         = errors.New("actor is not the owner of this record")
	ErrNotRegistered       = errors.New("connection has no registered agent")
)
