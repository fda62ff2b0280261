package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Username     string             `json:"username" bson:"username" validate:"required"`
	Email        string             `json:"email" bson:"email" validate:"required"`
	PasswordHash string             `json:"-" bson:"passwordHash" validate:"required"`
}

// UserUpdate lists the only fields a PUT may overwrite. Passwords are not
// changed through this path.
type UserUpdate struct {
	Username string
	Email    string
}

func (u *User) Apply(up UserUpdate) {
	u.Username = up.Username
	u.Email = up.Email
}
