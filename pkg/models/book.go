package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Book is one review of a book, owned by the user in UserID.
type Book struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title  string             `json:"title" bson:"title" validate:"required"`
	Author string             `json:"author" bson:"author" validate:"required"`
	Rating int                `json:"rating" bson:"rating" validate:"required,min=1,max=5"`
	Review string             `json:"review,omitempty" bson:"review,omitempty"`
	Genre  string             `json:"genre" bson:"genre" validate:"required"`
	UserID primitive.ObjectID `json:"userId" bson:"userId" validate:"required"`
}

// BookUpdate lists the only fields a PUT may overwrite.
type BookUpdate struct {
	Title  string
	Author string
	Rating int
	Review string
}

func (b *Book) Apply(u BookUpdate) {
	b.Title = u.Title
	b.Author = u.Author
	b.Rating = u.Rating
	b.Review = u.Review
}
