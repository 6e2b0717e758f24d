package router

import (
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-dualstore/internal/domain"
	"go-gin-dualstore/internal/transport/http/handler"
)

// 路径中的后端标签
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Backends 后端标签 -> 存储适配器
// 分发只在挂载路由时发生一次，handler 内部不再区分后端
type Backends struct {
	mu     sync.RWMutex
	stores map[string]domain.UserStore
}

func NewBackends() *Backends { return &Backends{stores: map[string]domain.UserStore{}} }

// Register 同名标签后注册的覆盖先注册的
func (b *Backends) Register(tag string, s domain.UserStore) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stores[tag] = s
}

func (b *Backends) Lookup(tag string) (domain.UserStore, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.stores[tag]
	return s, ok
}

// Tags 按字典序返回，保证挂载顺序稳定
func (b *Backends) Tags() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tags := make([]string, 0, len(b.stores))
	for t := range b.stores {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// MountAll 在 /api 下为每个后端挂载 /users/<tag>
func (b *Backends) MountAll(api *gin.RouterGroup, l *zap.Logger) {
	for _, tag := range b.Tags() {
		s, _ := b.Lookup(tag)
		handler.NewUserHandler(s, l.With(zap.String("backend", tag))).Mount(api.Group("/users/" + tag))
	}
}
