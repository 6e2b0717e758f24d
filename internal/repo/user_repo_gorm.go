package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-gin-dualstore/internal/domain"
	"go-gin-dualstore/internal/feature/user"
)

// UserRepo 关系库适配器，ID 为正整数
type UserRepo struct {
	db      *gorm.DB
	dialect string
	// postgres 支持 RETURNING，其余驱动需要回读
	returning bool
	now       func() time.Time
}

var _ domain.UserStore = (*UserRepo)(nil)

func NewUserRepo(db *gorm.DB, opts ...Option) *UserRepo {
	o := buildOptions(opts)
	var dialect string
	if db.Dialector != nil {
		dialect = db.Dialector.Name()
	}
	return &UserRepo{
		db:        db,
		dialect:   dialect,
		returning: dialect == "postgres",
		now:       o.now,
	}
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	var rows []user.UserModel
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, classifySQLError("list users", err)
	}
	out := make([]domain.User, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.ToDomain())
	}
	return out, nil
}

func (r *UserRepo) Get(ctx context.Context, raw string) (*domain.User, error) {
	id, err := parseIntID(raw)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, id)
}

func (r *UserRepo) get(ctx context.Context, id int64) (*domain.User, error) {
	var m user.UserModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, classifySQLError("get user", err)
	}
	u := m.ToDomain()
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, in domain.UserInput) (*domain.User, error) {
	nu, err := domain.ValidateForCreate(in)
	if err != nil {
		return nil, err
	}
	now := r.stamp()
	m := user.UserModel{
		Name:      nu.Name,
		Email:     nu.Email,
		Age:       nu.Age,
		Role:      string(nu.Role),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, classifySQLError("create user", err)
	}
	u := m.ToDomain()
	return &u, nil
}

func (r *UserRepo) Update(ctx context.Context, raw string, in domain.UserInput) (*domain.User, error) {
	id, err := parseIntID(raw)
	if err != nil {
		return nil, err
	}
	patch, err := domain.ValidateForUpdate(in)
	if err != nil {
		return nil, err
	}
	// 空更新不写库，直接返回当前记录
	if patch.Empty() {
		return r.get(ctx, id)
	}

	// 只发送提供了的列，未提供的列保持原值
	fields := map[string]any{"updated_at": r.bumpUpdatedAt(r.stamp())}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Email != nil {
		fields["email"] = *patch.Email
	}
	if patch.Age != nil {
		fields["age"] = *patch.Age
	}
	if patch.Role != nil {
		fields["role"] = string(*patch.Role)
	}

	var m user.UserModel
	tx := r.db.WithContext(ctx).Model(&m)
	if r.returning {
		tx = tx.Clauses(clause.Returning{})
	}
	res := tx.Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, classifySQLError("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	if !r.returning {
		return r.get(ctx, id)
	}
	u := m.ToDomain()
	return &u, nil
}

func (r *UserRepo) Delete(ctx context.Context, raw string) (*domain.User, error) {
	id, err := parseIntID(raw)
	if err != nil {
		return nil, err
	}

	if !r.returning {
		snap, err := r.get(ctx, id)
		if err != nil {
			return nil, err
		}
		res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&user.UserModel{})
		if res.Error != nil {
			return nil, classifySQLError("delete user", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, domain.ErrNotFound
		}
		return snap, nil
	}

	var m user.UserModel
	res := r.db.WithContext(ctx).Clauses(clause.Returning{}).Where("id = ?", id).Delete(&m)
	if res.Error != nil {
		return nil, classifySQLError("delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	u := m.ToDomain()
	return &u, nil
}

// AutoMigrate 建表 + email 唯一索引
func (r *UserRepo) AutoMigrate() error { return r.db.AutoMigrate(&user.UserModel{}) }

// 两种库的列都是微秒精度（timestamptz(6) / datetime(6)）
func (r *UserRepo) stamp() time.Time { return r.now().UTC().Truncate(time.Microsecond) }

// bumpUpdatedAt 取 max(now, 旧值+1µs)，时钟不动或回拨时 updated_at 仍严格递增
func (r *UserRepo) bumpUpdatedAt(now time.Time) any {
	switch r.dialect {
	case "postgres":
		return gorm.Expr("GREATEST(?, updated_at + interval '1 microsecond')", now)
	case "mysql":
		return gorm.Expr("GREATEST(CAST(? AS DATETIME(6)), updated_at + INTERVAL 1 MICROSECOND)", now)
	default:
		return now
	}
}

func parseIntID(raw string) (int64, error) {
	if raw == "" || len(raw) > 19 {
		return 0, domain.ErrInvalidID
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, domain.ErrInvalidID
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// classifySQLError 把驱动错误翻译成领域错误，handler 不再看原始错误码
func classifySQLError(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case isDupKey(err):
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicateKey)
	default:
		return domain.NewStoreError(op, err)
	}
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062 // ER_DUP_ENTRY
	}
	// 其他驱动只能看错误文本
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}
