package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-dualstore/internal/domain"
	mdw "go-gin-dualstore/internal/transport/http/middleware"
	resp "go-gin-dualstore/internal/transport/http/response"
)

// UserHandler 只认 domain.UserStore，不关心背后是哪种存储
type UserHandler struct {
	store domain.UserStore
	log   *zap.Logger
}

func NewUserHandler(store domain.UserStore, l *zap.Logger) *UserHandler {
	return &UserHandler{store: store, log: l}
}

// Mount 在 /api/users/<backend> 分组上注册五个接口
func (h *UserHandler) Mount(g *gin.RouterGroup) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.store.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Error fetching users")
		return
	}
	c.JSON(http.StatusOK, resp.List("users", users))
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Error fetching user")
		return
	}
	c.JSON(http.StatusOK, resp.OK("user", u))
}

func (h *UserHandler) Create(c *gin.Context) {
	in, ok := h.bind(c, "Error creating user")
	if !ok {
		return
	}
	u, err := h.store.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err, "Error creating user")
		return
	}
	c.JSON(http.StatusCreated, resp.Done(resp.MsgCreated, "user", u))
}

func (h *UserHandler) Update(c *gin.Context) {
	in, ok := h.bind(c, "Error updating user")
	if !ok {
		return
	}
	u, err := h.store.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err, "Error updating user")
		return
	}
	c.JSON(http.StatusOK, resp.Done(resp.MsgUpdated, "user", u))
}

func (h *UserHandler) Delete(c *gin.Context) {
	u, err := h.store.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Error deleting user")
		return
	}
	c.JSON(http.StatusOK, resp.Done(resp.MsgDeleted, "user", u))
}

func (h *UserHandler) fail(c *gin.Context, err error, storeMsg string) {
	_ = c.Error(err)
	// 超时导致的存储错误按 504 返回
	if mdw.TimedOut(c) && domain.KindOf(err) == domain.KindStore {
		h.log.Warn(storeMsg, zap.String("rid", mdw.RequestIDFrom(c)), zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, resp.Error(mdw.MsgTimeout))
		return
	}
	status, env := resp.Fail(err, storeMsg)
	if status >= http.StatusInternalServerError {
		h.log.Error(storeMsg,
			zap.String("rid", mdw.RequestIDFrom(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, env)
}

// bind 解码请求体；失败时已写好响应
func (h *UserHandler) bind(c *gin.Context, storeMsg string) (domain.UserInput, bool) {
	var in domain.UserInput
	err := c.ShouldBindJSON(&in)
	if err == nil {
		return in, true
	}
	if mdw.BodyTooLarge(err) {
		c.JSON(http.StatusRequestEntityTooLarge, resp.Error(mdw.MsgBodyTooLarge))
		return in, false
	}
	// age 类型错误保留字段信息，其余一律按请求体无效
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		ve = &domain.ValidationError{Reason: resp.MsgInvalidBody}
	}
	h.fail(c, ve, storeMsg)
	return in, false
}
