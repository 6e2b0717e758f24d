package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type Role string

const (
	RoleUser      Role = "USER"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
)

// ID 由存储分配：文档库是不透明字符串，关系库是正整数
type ID struct {
	str string
	num int64
}

func StringID(s string) ID { return ID{str: s} }
func IntID(n int64) ID     { return ID{num: n} }

func (id ID) IsZero() bool { return id.str == "" && id.num == 0 }

// Int 仅对关系库 ID 返回 true
func (id ID) Int() (int64, bool) { return id.num, id.str == "" && id.num > 0 }

func (id ID) String() string {
	if id.str != "" {
		return id.str
	}
	if id.num > 0 {
		return strconv.FormatInt(id.num, 10)
	}
	return ""
}

func (id ID) MarshalJSON() ([]byte, error) {
	if n, ok := id.Int(); ok {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(id.str)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ID{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = IntID(n)
	return nil
}

type User struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       *int      `json:"age,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserStore 两种后端共用的访问层；id 为路径中的原始字符串，由各适配器自行解析
type UserStore interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, in UserInput) (*User, error)
	Update(ctx context.Context, id string, in UserInput) (*User, error)
	// Delete 返回被删除记录的快照
	Delete(ctx context.Context, id string) (*User, error)
}
