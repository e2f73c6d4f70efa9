package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gopimeda/elearning/core/listing"
	"github.com/gopimeda/elearning/core/user"
)

type UserRepository struct {
	coll *mongo.Collection
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection("users")}
}

// bson mapping stays local so the domain carries no storage tags.
type mongoUser struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	IsActive     *bool     `bson:"isActive"`
	Roles        []string  `bson:"roles"`
	PasswordHash []byte    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
	LastLogin    time.Time `bson:"lastLogin"`
}

func toMongoUser(usr user.User) mongoUser {
	return mongoUser{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		Roles:        usr.Roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
		LastLogin:    usr.LastLogin,
	}
}

func fromMongoUser(mu mongoUser) user.User {
	return user.User{
		ID:           mu.ID,
		Name:         mu.Name,
		Username:     mu.Username,
		Email:        mu.Email,
		IsActive:     mu.IsActive,
		Roles:        mu.Roles,
		PasswordHash: mu.PasswordHash,
		CreatedAt:    mu.CreatedAt,
		UpdatedAt:    mu.UpdatedAt,
		LastLogin:    mu.LastLogin,
	}
}

var userSortFields = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"created_at": "createdAt",
	"last_login": "lastLogin",
}

func (r *UserRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	exclIDs := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, usr.ID)
	}

	check := func(field, value string, target error) error {
		if value == "" {
			return nil
		}
		filter := bson.M{field: exactRegex(value)}
		if len(exclIDs) > 0 {
			filter["_id"] = bson.M{"$nin": exclIDs}
		}
		n, err := r.coll.CountDocuments(ctx, filter)
		if err != nil {
			return errors.Wrap(err, "counting users")
		}
		if n > 0 {
			return target
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (r *UserRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	if _, err := r.coll.InsertOne(ctx, toMongoUser(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (r *UserRepository) getOne(ctx context.Context, filter bson.M) (user.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Cause(err) == mongo.ErrNoDocuments {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}
	return fromMongoUser(mu), nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return r.getOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return r.getOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": username},
	}})
}

func userFilter(qf *user.QueryFilter) bson.M {
	filter := bson.M{}
	if qf == nil || qf.IsEmpty() {
		return filter
	}
	if qf.Search != "" {
		re := searchRegex(qf.Search)
		filter["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"username": re},
			bson.M{"email": re},
		}
	}
	if len(qf.Roles) > 0 {
		filter["roles"] = bson.M{"$in": qf.Roles}
	}
	if qf.IsActive != nil {
		filter["isActive"] = *qf.IsActive
	}
	created := bson.M{}
	if !qf.CreatedFrom.IsZero() {
		created["$gte"] = qf.CreatedFrom
	}
	if !qf.CreatedTo.IsZero() {
		created["$lte"] = qf.CreatedTo
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}
	return filter
}

func (r *UserRepository) QueryUsers(ctx context.Context, qf *user.QueryFilter, params listing.Params) (listing.Page[user.User], error) {
	return queryPage(ctx, r.coll, userFilter(qf), params, userSortFields, fromMongoUser)
}

func (r *UserRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	usr.UpdatedAt = time.Now().UTC()
	if isActive != nil {
		usr.IsActive = isActive
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": usr.ID}, toMongoUser(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if res.MatchedCount == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (r *UserRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return errors.Wrap(err, "deleting users")
}
