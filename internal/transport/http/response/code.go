package response

import (
	"net/http"

	"go-gin-dualstore/internal/domain"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// 对外稳定的 message，客户端只依赖这些文本判断失败类型
const (
	MsgInvalidID    = "Invalid user ID"
	MsgNotFound     = "User not found"
	MsgDuplicateKey = "Email already exists"
	MsgInvalidBody  = "Invalid request body"

	MsgCreated = "User created successfully"
	MsgUpdated = "User updated successfully"
	MsgDeleted = "User deleted successfully"
)

// KindHTTPStatus 错误类别 -> HTTP 状态码，集中在这一处
var KindHTTPStatus = map[domain.Kind]int{
	domain.KindValidation:   http.StatusBadRequest,
	domain.KindInvalidID:    http.StatusBadRequest,
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindDuplicateKey: http.StatusBadRequest,
	domain.KindStore:        http.StatusInternalServerError,
}

// KindMsgMap 固定文案的错误类别；ValidationError / StoreError 的文案按错误生成
var KindMsgMap = map[domain.Kind]string{
	domain.KindInvalidID:    MsgInvalidID,
	domain.KindNotFound:     MsgNotFound,
	domain.KindDuplicateKey: MsgDuplicateKey,
}
