package mq

import (
	"sort"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// loggerAdapter 把 watermill 的日志接口桥接到 zerolog.
//
// watermill 在每次订阅、关闭时都输出 Info，事件发布是附属功能，这些输出降为 Debug.
type loggerAdapter struct {
	l zerolog.Logger
}

// NewLoggerAdapter 创建 watermill 日志适配器.
func NewLoggerAdapter(l zerolog.Logger) watermill.LoggerAdapter {
	return &loggerAdapter{l: l}
}

func (a *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	withFields(a.l.Error().Err(err), fields).Msg(msg)
}

func (a *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	withFields(a.l.Debug(), fields).Msg(msg)
}

func (a *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	withFields(a.l.Trace(), fields).Msg(msg)
}

func (a *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	withFields(a.l.Trace(), fields).Msg(msg)
}

func (a *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := a.l.With()
	for _, k := range sortedKeys(fields) {
		ctx = ctx.Interface(k, fields[k])
	}

	return &loggerAdapter{l: ctx.Logger()}
}

// withFields 按键名顺序追加字段，保证同一事件的输出稳定.
func withFields(ev *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for _, k := range sortedKeys(fields) {
		ev = ev.Interface(k, fields[k])
	}

	return ev
}

func sortedKeys(fields watermill.LogFields) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
