package domain

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// UserInput 原始请求体；解码阶段所有字段都可缺省
// id/createdAt/updatedAt 不在此结构中，客户端传了也会被忽略
type UserInput struct {
	Name  *string  `json:"name"`
	Email *string  `json:"email"`
	Age   *FlexInt `json:"age"`
	Role  *Role    `json:"role"`
}

// FlexInt 接受 JSON 数字或数字字符串（"30" -> 30）
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return errNotInteger
		}
		s = strings.TrimSpace(s)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// 30.0 这类整数值的浮点写法也接受
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return errNotInteger
		}
		v = int(f)
	}
	*n = FlexInt(v)
	return nil
}

var errNotInteger = &ValidationError{Field: "age", Reason: "must be an integer"}

// NewUser 归一化后的创建载荷
type NewUser struct {
	Name  string `json:"name"  validate:"required,min=2,max=50"`
	Email string `json:"email" validate:"required,email"`
	Age   *int   `json:"age"   validate:"omitempty,min=0,max=150"`
	Role  Role   `json:"role"  validate:"required,oneof=USER ADMIN MODERATOR"`
}

// UserPatch 归一化后的部分更新，nil 表示未提供
type UserPatch struct {
	Name  *string `json:"name"  validate:"omitempty,min=2,max=50"`
	Email *string `json:"email" validate:"omitempty,email"`
	Age   *int    `json:"age"   validate:"omitempty,min=0,max=150"`
	Role  *Role   `json:"role"  validate:"omitempty,oneof=USER ADMIN MODERATOR"`
}

func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Age == nil && p.Role == nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误里使用 JSON 字段名
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func ValidateForCreate(in UserInput) (NewUser, error) {
	out := NewUser{Role: RoleUser}
	if in.Name != nil {
		out.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		out.Email = normalizeEmail(*in.Email)
	}
	if in.Age != nil {
		age := int(*in.Age)
		out.Age = &age
	}
	if in.Role != nil {
		out.Role = Role(strings.TrimSpace(string(*in.Role)))
	}
	if err := validate.Struct(out); err != nil {
		return NewUser{}, toValidationError(err)
	}
	return out, nil
}

func ValidateForUpdate(in UserInput) (UserPatch, error) {
	var out UserPatch
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		out.Name = &name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		out.Email = &email
	}
	if in.Age != nil {
		age := int(*in.Age)
		out.Age = &age
	}
	if in.Role != nil {
		role := Role(strings.TrimSpace(string(*in.Role)))
		out.Role = &role
	}
	if err := validate.Struct(out); err != nil {
		return UserPatch{}, toValidationError(err)
	}
	return out, nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// toValidationError 只报告第一个出错字段
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}
	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Reason: reasonFor(fe)}
}

func reasonFor(fe validator.FieldError) string {
	isText := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		if isText {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if isText {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}
