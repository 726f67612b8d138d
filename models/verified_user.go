// models/verified_user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VerifiedUser is a login-capable account created exactly once per approved
// provisional User. UserID references the originating User, which is kept
// untouched as the audit trail of the submitted business data.
type VerifiedUser struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Username  string             `json:"username" bson:"username"`
	Password  string             `json:"-" bson:"password"`
	Email     string             `json:"email" bson:"email"`
	IsAdmin   bool               `json:"isAdmin" bson:"isAdmin"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}
