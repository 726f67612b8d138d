package repositories

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tablekart/merchant_backend/config"
	"github.com/tablekart/merchant_backend/models"
)

// UserRepository is the store for provisional signup accounts.
type UserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByEmailOrPhone resolves the identifier of the forgot-password flow.
	FindByEmailOrPhone(ctx context.Context, identifier string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetOTP(ctx context.Context, id primitive.ObjectID, otp *models.OTPInfo) error
	ClearOTP(ctx context.Context, id primitive.ObjectID) error
	// SetStep pins the signup step without touching anything else.
	SetStep(ctx context.Context, id primitive.ObjectID, step int) error
	// SetVerified marks the OTP check as passed and advances the step.
	SetVerified(ctx context.Context, id primitive.ObjectID, step int) error
	SetBusinessInfo(ctx context.Context, id primitive.ObjectID, info *models.BusinessInfo, step int) error
	SetBusinessDocuments(ctx context.Context, id primitive.ObjectID, docs *models.BusinessDocuments, step int) error
	// ResetCredentials writes a new password digest and rewinds the account
	// to step 1, unverified, with no outstanding challenge.
	ResetCredentials(ctx context.Context, id primitive.ObjectID, passwordDigest string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// ClearExpiredOTPs drops challenges whose expiry has passed.
	ClearExpiredOTPs(ctx context.Context) (int64, error)
}

type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a Mongo-backed UserRepository.
func NewUserRepository(db *mongo.Client) UserRepository {
	return &mongoUserRepository{
		collection: config.GetCollection(db, "users"),
	}
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *mongoUserRepository) FindByEmailOrPhone(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	filter := bson.M{"$or": []bson.M{{"email": identifier}, {"phone": identifier}}}
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *mongoUserRepository) Create(ctx context.Context, user *models.User) error {
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

func (r *mongoUserRepository) SetOTP(ctx context.Context, id primitive.ObjectID, otp *models.OTPInfo) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"otp": otp, "updatedAt": time.Now()}})
}

func (r *mongoUserRepository) ClearOTP(ctx context.Context, id primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{
		"$unset": bson.M{"otp": ""},
		"$set":   bson.M{"updatedAt": time.Now()},
	})
}

func (r *mongoUserRepository) SetStep(ctx context.Context, id primitive.ObjectID, step int) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"currentSignupStep": step, "updatedAt": time.Now()}})
}

func (r *mongoUserRepository) SetVerified(ctx context.Context, id primitive.ObjectID, step int) error {
	return r.updateOne(ctx, id, bson.M{
		"$set":   bson.M{"isVerified": true, "currentSignupStep": step, "updatedAt": time.Now()},
		"$unset": bson.M{"otp": ""},
	})
}

func (r *mongoUserRepository) SetBusinessInfo(ctx context.Context, id primitive.ObjectID, info *models.BusinessInfo, step int) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"businessInfo":      info,
		"currentSignupStep": step,
		"updatedAt":         time.Now(),
	}})
}

func (r *mongoUserRepository) SetBusinessDocuments(ctx context.Context, id primitive.ObjectID, docs *models.BusinessDocuments, step int) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"businessDocuments": docs,
		"currentSignupStep": step,
		"updatedAt":         time.Now(),
	}})
}

func (r *mongoUserRepository) ResetCredentials(ctx context.Context, id primitive.ObjectID, passwordDigest string) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{
			"password":          passwordDigest,
			"currentSignupStep": models.StepRegistered,
			"isVerified":        false,
			"updatedAt":         time.Now(),
		},
		"$unset": bson.M{"otp": ""},
	})
}

func (r *mongoUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) ClearExpiredOTPs(ctx context.Context) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"otp.expiresAt": bson.M{"$lt": time.Now()}},
		bson.M{"$unset": bson.M{"otp": ""}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoUserRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return wrapDuplicateKey(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// index key -> field name reported to callers
var duplicateKeyFields = map[string]string{
	"businessDocuments.panNumber": "panNumber",
	"username":                    "username",
	"userId":                      "userId",
	"email":                       "email",
}

// wrapDuplicateKey converts Mongo unique-index violations into
// DuplicateKeyError, naming the offending field from the index key.
func wrapDuplicateKey(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	msg := err.Error()
	for key, field := range duplicateKeyFields {
		if strings.Contains(msg, key) {
			return &DuplicateKeyError{Field: field}
		}
	}
	return &DuplicateKeyError{Field: "unknown"}
}
