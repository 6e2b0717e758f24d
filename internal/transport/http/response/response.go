package response

import (
	"errors"

	"go-gin-dualstore/internal/domain"
)

// Envelope 所有响应统一外壳
type Envelope struct {
	Status  string `json:"status"`
	Results *int   `json:"results,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK 读成功：data 按 key 包一层，如 {"user": {...}}
func OK(key string, v any) Envelope {
	return Envelope{Status: StatusSuccess, Data: map[string]any{key: v}}
}

// List 列表成功，附带 results 计数
func List[T any](key string, items []T) Envelope {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	return Envelope{Status: StatusSuccess, Results: &n, Data: map[string]any{key: items}}
}

// Done 写成功（创建/更新/删除）
func Done(msg, key string, v any) Envelope {
	return Envelope{Status: StatusSuccess, Message: msg, Data: map[string]any{key: v}}
}

// Error 失败响应
func Error(msg string) Envelope {
	return Envelope{Status: StatusError, Message: msg}
}

// Fail 把适配器返回的错误翻译成 HTTP 状态码 + 外壳
// storeMsg 只用于 StoreError，原始错误放在 error 字段作为补充信息
func Fail(err error, storeMsg string) (int, Envelope) {
	kind := domain.KindOf(err)
	status := KindHTTPStatus[kind]
	switch kind {
	case domain.KindValidation:
		var ve *domain.ValidationError
		errors.As(err, &ve)
		return status, Error(ve.Error())
	case domain.KindStore:
		return status, Envelope{Status: StatusError, Message: storeMsg, Error: err.Error()}
	default:
		return status, Error(KindMsgMap[kind])
	}
}
