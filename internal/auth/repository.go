package auth

import (
	"context"
	"errors"

	"NoticeBoard/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AccountRepository stores admins and users in two collections.
type AccountRepository struct {
	db *config.MongoHandle
}

func NewAccountRepository(db *config.MongoHandle) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) collection(ctx context.Context, role Role) (*mongo.Collection, error) {
	return r.db.Collection(ctx, role.collection())
}

// FindByEmail returns nil, nil when no account matches.
func (r *AccountRepository) FindByEmail(ctx context.Context, role Role, email string) (*Account, error) {
	return r.findOne(ctx, role, bson.M{"email": email})
}

// FindByID returns nil, nil when no account matches.
func (r *AccountRepository) FindByID(ctx context.Context, role Role, id primitive.ObjectID) (*Account, error) {
	return r.findOne(ctx, role, bson.M{"_id": id})
}

func (r *AccountRepository) findOne(ctx context.Context, role Role, filter bson.M) (*Account, error) {
	coll, err := r.collection(ctx, role)
	if err != nil {
		return nil, err
	}
	var acc Account
	if err := coll.FindOne(ctx, filter).Decode(&acc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &acc, nil
}

func (r *AccountRepository) Create(ctx context.Context, role Role, acc *Account) error {
	coll, err := r.collection(ctx, role)
	if err != nil {
		return err
	}
	if acc.ID.IsZero() {
		acc.ID = primitive.NewObjectID()
	}
	if _, err := coll.InsertOne(ctx, acc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// FindAdminIDsByDepartment lists the ids of every admin in department.
func (r *AccountRepository) FindAdminIDsByDepartment(ctx context.Context, department string) ([]primitive.ObjectID, error) {
	coll, err := r.collection(ctx, RoleAdmin)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := coll.Find(ctx, bson.M{"departmentName": department}, opts)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}
