package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tablekart/merchant_backend/config"
	"github.com/tablekart/merchant_backend/models"
)

// VerifiedUserRepository is the store for login-capable accounts.
type VerifiedUserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.VerifiedUser, error)
	FindByUsername(ctx context.Context, username string) (*models.VerifiedUser, error)
	Create(ctx context.Context, user *models.VerifiedUser) error
}

type mongoVerifiedUserRepository struct {
	collection *mongo.Collection
}

// NewVerifiedUserRepository creates a Mongo-backed VerifiedUserRepository.
func NewVerifiedUserRepository(db *mongo.Client) VerifiedUserRepository {
	return &mongoVerifiedUserRepository{
		collection: config.GetCollection(db, "verifiedUsers"),
	}
}

func (r *mongoVerifiedUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.VerifiedUser, error) {
	var user models.VerifiedUser
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *mongoVerifiedUserRepository) FindByUsername(ctx context.Context, username string) (*models.VerifiedUser, error) {
	var user models.VerifiedUser
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *mongoVerifiedUserRepository) Create(ctx context.Context, user *models.VerifiedUser) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		return wrapDuplicateKey(err)
	}
	return nil
}
