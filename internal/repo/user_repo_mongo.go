package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	"go-gin-dualstore/internal/domain"
	"go-gin-dualstore/internal/feature/user"
)

// UserMongoRepo 文档库适配器，ID 为 ObjectID 的 hex 字符串
type UserMongoRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

var _ domain.UserStore = (*UserMongoRepo)(nil)

func NewUserMongoRepo(coll *mongo.Collection, opts ...Option) *UserMongoRepo {
	o := buildOptions(opts)
	return &UserMongoRepo{coll: coll, now: o.now}
}

// EnsureIndexes email 唯一约束由索引保证
func (r *UserMongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: mongoopts.Index().SetUnique(true).SetName("uniq_email"),
	})
	if err != nil {
		return domain.NewStoreError("ensure indexes", err)
	}
	return nil
}

func (r *UserMongoRepo) List(ctx context.Context) ([]domain.User, error) {
	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, classifyMongoError("list users", err)
	}
	var docs []user.UserDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classifyMongoError("list users", err)
	}
	out := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ToDomain())
	}
	return out, nil
}

func (r *UserMongoRepo) Get(ctx context.Context, raw string) (*domain.User, error) {
	oid, err := parseObjectID(raw)
	if err != nil {
		return nil, err
	}
	var doc user.UserDoc
	if err := r.coll.FindOne(ctx, byID(oid)).Decode(&doc); err != nil {
		return nil, classifyMongoError("get user", err)
	}
	u := doc.ToDomain()
	return &u, nil
}

func (r *UserMongoRepo) Create(ctx context.Context, in domain.UserInput) (*domain.User, error) {
	nu, err := domain.ValidateForCreate(in)
	if err != nil {
		return nil, err
	}
	now := r.stamp()
	doc := user.UserDoc{
		ID:        primitive.NewObjectID(),
		Name:      nu.Name,
		Email:     nu.Email,
		Age:       nu.Age,
		Role:      string(nu.Role),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, classifyMongoError("create user", err)
	}
	u := doc.ToDomain()
	return &u, nil
}

func (r *UserMongoRepo) Update(ctx context.Context, raw string, in domain.UserInput) (*domain.User, error) {
	oid, err := parseObjectID(raw)
	if err != nil {
		return nil, err
	}
	patch, err := domain.ValidateForUpdate(in)
	if err != nil {
		return nil, err
	}

	// 管道更新里以 $ 开头的字符串会被当成字段路径，用户值一律 $literal
	set := bson.D{}
	if patch.Name != nil {
		set = append(set, literal("name", *patch.Name))
	}
	if patch.Email != nil {
		set = append(set, literal("email", *patch.Email))
	}
	if patch.Age != nil {
		set = append(set, literal("age", *patch.Age))
	}
	if patch.Role != nil {
		set = append(set, literal("role", string(*patch.Role)))
	}
	// 空更新也会刷新 updatedAt，且严格大于上一次的值
	set = append(set, bson.E{Key: "updatedAt", Value: bson.D{{Key: "$max", Value: bson.A{
		r.stamp(),
		bson.D{{Key: "$add", Value: bson.A{"$updatedAt", 1}}},
	}}}})

	opts := mongoopts.FindOneAndUpdate().SetReturnDocument(mongoopts.After)
	var doc user.UserDoc
	err = r.coll.FindOneAndUpdate(ctx, byID(oid), mongo.Pipeline{{{Key: "$set", Value: set}}}, opts).Decode(&doc)
	if err != nil {
		return nil, classifyMongoError("update user", err)
	}
	u := doc.ToDomain()
	return &u, nil
}

func (r *UserMongoRepo) Delete(ctx context.Context, raw string) (*domain.User, error) {
	oid, err := parseObjectID(raw)
	if err != nil {
		return nil, err
	}
	var doc user.UserDoc
	if err := r.coll.FindOneAndDelete(ctx, byID(oid)).Decode(&doc); err != nil {
		return nil, classifyMongoError("delete user", err)
	}
	u := doc.ToDomain()
	return &u, nil
}

// BSON datetime 精度为毫秒
func (r *UserMongoRepo) stamp() time.Time { return r.now().UTC().Truncate(time.Millisecond) }

func literal(key string, v any) bson.E {
	return bson.E{Key: key, Value: bson.D{{Key: "$literal", Value: v}}}
}

func byID(oid primitive.ObjectID) bson.D { return bson.D{{Key: "_id", Value: oid}} }

func parseObjectID(raw string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, domain.ErrInvalidID
	}
	return oid, nil
}

func classifyMongoError(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicateKey)
	default:
		return domain.NewStoreError(op, err)
	}
}
