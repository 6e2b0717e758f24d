package router_test

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-gin-dualstore/internal/domain"
	"go-gin-dualstore/internal/transport/http/router"
)

func init() { gin.SetMode(gin.TestMode) }

// memStore 内存实现，按 intIDs 模拟两种 ID 形态
type memStore struct {
	mu     sync.Mutex
	intIDs bool
	seq    int64
	rows   map[string]domain.User
	order  []string
	tick   time.Time
}

func newMemStore(intIDs bool) *memStore {
	return &memStore{intIDs: intIDs, rows: map[string]domain.User{}, tick: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (s *memStore) now() time.Time {
	s.tick = s.tick.Add(time.Millisecond)
	return s.tick
}

func (s *memStore) parse(raw string) (string, error) {
	if s.intIDs {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 || strings.TrimLeft(raw, "0123456789") != "" {
			return "", domain.ErrInvalidID
		}
		return strconv.FormatInt(n, 10), nil
	}
	if b, err := hex.DecodeString(raw); err != nil || len(b) != 12 {
		return "", domain.ErrInvalidID
	}
	return strings.ToLower(raw), nil
}

func (s *memStore) emailTaken(email, except string) bool {
	for k, u := range s.rows {
		if k != except && u.Email == email {
			return true
		}
	}
	return false
}

func (s *memStore) seed(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if s.intIDs {
		u.ID = domain.IntID(s.seq)
	} else {
		u.ID = domain.StringID(fmt.Sprintf("%024x", s.seq))
	}
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.rows[u.ID.String()] = u
	s.order = append(s.order, u.ID.String())
	return u
}

func (s *memStore) List(context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.order))
	for _, k := range s.order {
		if u, ok := s.rows[k]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memStore) Get(_ context.Context, raw string) (*domain.User, error) {
	key, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *memStore) Create(_ context.Context, in domain.UserInput) (*domain.User, error) {
	nu, err := domain.ValidateForCreate(in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	taken := s.emailTaken(nu.Email, "")
	s.mu.Unlock()
	if taken {
		return nil, domain.ErrDuplicateKey
	}
	u := s.seed(domain.User{Name: nu.Name, Email: nu.Email, Age: nu.Age, Role: nu.Role})
	return &u, nil
}

func (s *memStore) Update(_ context.Context, raw string, in domain.UserInput) (*domain.User, error) {
	key, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	p, err := domain.ValidateForUpdate(in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Email != nil && s.emailTaken(*p.Email, key) {
		return nil, domain.ErrDuplicateKey
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Age != nil {
		u.Age = p.Age
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	u.UpdatedAt = s.now()
	s.rows[key] = u
	return &u, nil
}

func (s *memStore) Delete(_ context.Context, raw string) (*domain.User, error) {
	key, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(s.rows, key)
	return &u, nil
}

type userJSON struct {
	ID        json.RawMessage `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Age       *int            `json:"age"`
	Role      string          `json:"role"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type envelope struct {
	Status  string `json:"status"`
	Results *int   `json:"results"`
	Message string `json:"message"`
	Data    struct {
		User  *userJSON  `json:"user"`
		Users []userJSON `json:"users"`
	} `json:"data"`
	Error string `json:"error"`
}

type fixture struct {
	engine *gin.Engine
	mongo  *memStore
	pg     *memStore
}

func newFixture() *fixture {
	f := &fixture{mongo: newMemStore(false), pg: newMemStore(true)}
	b := router.NewBackends()
	b.Register(router.BackendMongo, f.mongo)
	b.Register(router.BackendPostgres, f.pg)
	f.engine = router.NewAPIEngine(zap.NewNop(), b, router.DefaultOptions())
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, envelope, string) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env, w.Body.String()
}

func idOf(t *testing.T, u *userJSON) string {
	t.Helper()
	require.NotNil(t, u)
	var s string
	if err := json.Unmarshal(u.ID, &s); err == nil {
		return s
	}
	var n int64
	require.NoError(t, json.Unmarshal(u.ID, &n))
	return strconv.FormatInt(n, 10)
}

func TestCreateMongo_DefaultsRoleAndOmitsAge(t *testing.T) {
	f := newFixture()
	code, env, raw := f.do(t, http.MethodPost, "/api/users/mongo", `{"name":"Ann","email":"ann@ex.com"}`)

	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, "User created successfully", env.Message)
	require.NotNil(t, env.Data.User)
	assert.Equal(t, "USER", env.Data.User.Role)
	assert.Nil(t, env.Data.User.Age)
	assert.NotContains(t, raw, `"age"`)
	assert.Equal(t, env.Data.User.CreatedAt, env.Data.User.UpdatedAt)
	assert.Equal(t, byte('"'), env.Data.User.ID[0], "document ids are strings")
}

func TestCreatePostgres_CoercesAgeAndRoundTrips(t *testing.T) {
	f := newFixture()
	code, env, _ := f.do(t, http.MethodPost, "/api/users/postgres", `{"name":"Bo","email":"bo@ex.com","age":"30"}`)
	require.Equal(t, http.StatusCreated, code)
	created := env.Data.User
	require.NotNil(t, created.Age)
	assert.Equal(t, 30, *created.Age)
	assert.NotEqual(t, byte('"'), created.ID[0], "relational ids are numbers")

	code, env, _ = f.do(t, http.MethodGet, "/api/users/postgres/"+idOf(t, created), "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, created, env.Data.User)
}

func TestUpdateMongo_PartialKeepsOtherFields(t *testing.T) {
	f := newFixture()
	seeded := f.mongo.seed(domain.User{Name: "X", Email: "x@ex.com", Role: domain.RoleUser})

	code, env, _ := f.do(t, http.MethodPut, "/api/users/mongo/"+seeded.ID.String(), `{"age":26}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "User updated successfully", env.Message)
	u := env.Data.User
	require.NotNil(t, u)
	assert.Equal(t, "X", u.Name)
	assert.Equal(t, "x@ex.com", u.Email)
	require.NotNil(t, u.Age)
	assert.Equal(t, 26, *u.Age)
	assert.True(t, u.UpdatedAt.After(seeded.UpdatedAt))
	assert.True(t, u.CreatedAt.Equal(seeded.CreatedAt))
}

func TestDeletePostgres_Missing(t *testing.T) {
	f := newFixture()
	code, _, raw := f.do(t, http.MethodDelete, "/api/users/postgres/999999", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.JSONEq(t, `{"status":"error","message":"User not found"}`, raw)
}

func TestDelete_ReturnsSnapshotAndIsTerminal(t *testing.T) {
	f := newFixture()
	seeded := f.pg.seed(domain.User{Name: "Cy", Email: "cy@ex.com", Role: domain.RoleAdmin})
	path := "/api/users/postgres/" + seeded.ID.String()

	code, env, _ := f.do(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Cy", env.Data.User.Name)

	code, _, _ = f.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInvalidIDsPerBackend(t *testing.T) {
	f := newFixture()
	for _, path := range []string{
		"/api/users/mongo/123",
		"/api/users/mongo/not-an-object-id",
		"/api/users/postgres/abc",
		"/api/users/postgres/1.5",
		"/api/users/postgres/65f0c0ffee00000000000001",
	} {
		code, env, _ := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, code, path)
		assert.Equal(t, "Invalid user ID", env.Message, path)
	}
}

func TestDuplicateEmailIsCaseInsensitivePerStore(t *testing.T) {
	f := newFixture()
	code, _, _ := f.do(t, http.MethodPost, "/api/users/mongo", `{"name":"Ann","email":"ann@ex.com"}`)
	require.Equal(t, http.StatusCreated, code)

	code, env, _ := f.do(t, http.MethodPost, "/api/users/mongo", `{"name":"Ann2","email":"ANN@ex.com"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Email already exists", env.Message)

	// 不同存储之间不做唯一性约束
	code, _, _ = f.do(t, http.MethodPost, "/api/users/postgres", `{"name":"Ann","email":"ann@ex.com"}`)
	assert.Equal(t, http.StatusCreated, code)
}

func TestList(t *testing.T) {
	f := newFixture()
	code, env, _ := f.do(t, http.MethodGet, "/api/users/postgres", "")
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Results)
	assert.Equal(t, 0, *env.Results)

	f.pg.seed(domain.User{Name: "A1", Email: "a1@ex.com", Role: domain.RoleUser})
	f.pg.seed(domain.User{Name: "A2", Email: "a2@ex.com", Role: domain.RoleUser})
	_, env, _ = f.do(t, http.MethodGet, "/api/users/postgres", "")
	assert.Equal(t, 2, *env.Results)
	assert.Len(t, env.Data.Users, 2)
}

func TestUnknownBackendAndHealth(t *testing.T) {
	f := newFixture()
	code, env, _ := f.do(t, http.MethodGet, "/api/users/redis", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "error", env.Status)

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","backends":["mongo","postgres"]}`, w.Body.String())
}

func TestBackendsRegistry(t *testing.T) {
	b := router.NewBackends()
	s := newMemStore(true)
	b.Register("b", s)
	b.Register("a", newMemStore(false))

	assert.Equal(t, []string{"a", "b"}, b.Tags())
	got, ok := b.Lookup("b")
	assert.True(t, ok)
	assert.Same(t, s, got)
	_, ok = b.Lookup("c")
	assert.False(t, ok)
}
