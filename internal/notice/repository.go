package notice

import (
	"context"
	"errors"

	"NoticeBoard/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "notices"

// NoticeRepository handles DB operations for notices. Every mutating query
// filters on the creator so ownership is part of the lookup.
type NoticeRepository struct {
	db *config.MongoHandle
}

func NewNoticeRepository(db *config.MongoHandle) *NoticeRepository {
	return &NoticeRepository{db: db}
}

func (r *NoticeRepository) collection(ctx context.Context) (*mongo.Collection, error) {
	return r.db.Collection(ctx, collectionName)
}

func ownedBy(id, creatorID primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "CreaterId": creatorID}
}

func (r *NoticeRepository) Create(ctx context.Context, n *Notice) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err = coll.InsertOne(ctx, n)
	return err
}

// FindOwned returns nil, nil when the notice is missing or owned by someone else.
func (r *NoticeRepository) FindOwned(ctx context.Context, id, creatorID primitive.ObjectID) (*Notice, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	var n Notice
	if err := coll.FindOne(ctx, ownedBy(id, creatorID)).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

// Replace writes the whole document back. It reports false when the owned
// document no longer exists.
func (r *NoticeRepository) Replace(ctx context.Context, n *Notice) (bool, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return false, err
	}
	res, err := coll.ReplaceOne(ctx, ownedBy(n.ID, n.CreatorID), n)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *NoticeRepository) DeleteOwned(ctx context.Context, id, creatorID primitive.ObjectID) (bool, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return false, err
	}
	res, err := coll.DeleteOne(ctx, ownedBy(id, creatorID))
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// ListByCreator returns every notice of one admin, newest first.
func (r *NoticeRepository) ListByCreator(ctx context.Context, creatorID primitive.ObjectID) ([]*Notice, error) {
	return r.find(ctx, bson.M{"CreaterId": creatorID})
}

// ListActiveByCreators returns the active notices of the given admins, newest first.
func (r *NoticeRepository) ListActiveByCreators(ctx context.Context, creatorIDs []primitive.ObjectID) ([]*Notice, error) {
	if len(creatorIDs) == 0 {
		return []*Notice{}, nil
	}
	return r.find(ctx, bson.M{"CreaterId": bson.M{"$in": creatorIDs}, "isActive": true})
}

func (r *NoticeRepository) find(ctx context.Context, filter bson.M) ([]*Notice, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	notices := []*Notice{}
	if err := cursor.All(ctx, &notices); err != nil {
		return nil, err
	}
	return notices, nil
}
