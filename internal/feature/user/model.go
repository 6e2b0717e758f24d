package user

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-gin-dualstore/internal/domain"
)

// UserModel 关系库行（硬删除，不带 DeletedAt）
type UserModel struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"size:50;not null"`
	Email string `gorm:"uniqueIndex;size:255;not null"`
	Age   *int
	Role  string `gorm:"size:16;not null;default:USER"`

	CreatedAt time.Time `gorm:"precision:6;not null"`
	UpdatedAt time.Time `gorm:"precision:6;not null"`
}

func (UserModel) TableName() string { return "users" }

func (m UserModel) ToDomain() domain.User {
	return domain.User{
		ID:        domain.IntID(m.ID),
		Name:      m.Name,
		Email:     m.Email,
		Age:       m.Age,
		Role:      domain.Role(m.Role),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// UserDoc 文档库记录
type UserDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Age       *int               `bson:"age,omitempty"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d UserDoc) ToDomain() domain.User {
	return domain.User{
		ID:        domain.StringID(d.ID.Hex()),
		Name:      d.Name,
		Email:     d.Email,
		Age:       d.Age,
		Role:      domain.Role(d.Role),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
