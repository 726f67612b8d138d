package repositories

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tablekart/merchant_backend/models"
)

// In-memory implementations backing service and handler tests. They enforce
// the same unique keys the Mongo indexes do.

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

// NewMemoryUserRepository builds an in-memory provisional-account store.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[primitive.ObjectID]models.User)}
}

func (r *memoryUserRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUserRepository) FindByEmailOrPhone(_ context.Context, identifier string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == identifier || user.Phone == identifier {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return &DuplicateKeyError{Field: "email"}
		}
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) SetOTP(_ context.Context, id primitive.ObjectID, otp *models.OTPInfo) error {
	return r.mutate(id, func(u *models.User) error {
		challenge := *otp
		u.OTPInfo = &challenge
		return nil
	})
}

func (r *memoryUserRepository) ClearOTP(_ context.Context, id primitive.ObjectID) error {
	return r.mutate(id, func(u *models.User) error {
		u.OTPInfo = nil
		return nil
	})
}

func (r *memoryUserRepository) SetStep(_ context.Context, id primitive.ObjectID, step int) error {
	return r.mutate(id, func(u *models.User) error {
		u.CurrentSignupStep = step
		return nil
	})
}

func (r *memoryUserRepository) SetVerified(_ context.Context, id primitive.ObjectID, step int) error {
	return r.mutate(id, func(u *models.User) error {
		u.IsVerified = true
		u.CurrentSignupStep = step
		u.OTPInfo = nil
		return nil
	})
}

func (r *memoryUserRepository) SetBusinessInfo(_ context.Context, id primitive.ObjectID, info *models.BusinessInfo, step int) error {
	return r.mutate(id, func(u *models.User) error {
		in := *info
		u.BusinessInfo = &in
		u.CurrentSignupStep = step
		return nil
	})
}

func (r *memoryUserRepository) SetBusinessDocuments(_ context.Context, id primitive.ObjectID, docs *models.BusinessDocuments, step int) error {
	return r.mutate(id, func(u *models.User) error {
		for otherID, other := range r.users {
			if otherID == id || other.BusinessDocuments == nil {
				continue
			}
			if other.BusinessDocuments.PANNumber == docs.PANNumber {
				return &DuplicateKeyError{Field: "panNumber"}
			}
		}
		d := *docs
		u.BusinessDocuments = &d
		u.CurrentSignupStep = step
		return nil
	})
}

func (r *memoryUserRepository) ResetCredentials(_ context.Context, id primitive.ObjectID, passwordDigest string) error {
	return r.mutate(id, func(u *models.User) error {
		u.Password = passwordDigest
		u.CurrentSignupStep = models.StepRegistered
		u.IsVerified = false
		u.OTPInfo = nil
		return nil
	})
}

func (r *memoryUserRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memoryUserRepository) ClearExpiredOTPs(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cleared int64
	now := time.Now()
	for id, user := range r.users {
		if user.OTPInfo != nil && now.After(user.OTPInfo.ExpiresAt) {
			user.OTPInfo = nil
			r.users[id] = user
			cleared++
		}
	}
	return cleared, nil
}

func (r *memoryUserRepository) mutate(id primitive.ObjectID, fn func(*models.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&user); err != nil {
		return err
	}
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return nil
}

type memoryVerifiedUserRepository struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.VerifiedUser
}

// NewMemoryVerifiedUserRepository builds an in-memory verified-account store.
func NewMemoryVerifiedUserRepository() VerifiedUserRepository {
	return &memoryVerifiedUserRepository{users: make(map[primitive.ObjectID]models.VerifiedUser)}
}

func (r *memoryVerifiedUserRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.VerifiedUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *memoryVerifiedUserRepository) FindByUsername(_ context.Context, username string) (*models.VerifiedUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryVerifiedUserRepository) Create(_ context.Context, user *models.VerifiedUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// userId is checked first so re-approving the same account reports the
	// repeat approval rather than the email it necessarily shares.
	for _, existing := range r.users {
		switch {
		case existing.UserID == user.UserID:
			return &DuplicateKeyError{Field: "userId"}
		case existing.Username == user.Username:
			return &DuplicateKeyError{Field: "username"}
		case existing.Email == user.Email:
			return &DuplicateKeyError{Field: "email"}
		}
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = *user
	return nil
}
