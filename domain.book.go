package main

import (
	"context"
	"errors"
)

var (
	ErrBookNotFound  = errors.New("book not found")
	ErrMissingBookID = errors.New("id is required for update")
)

// Book represents a book entity.
type Book struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Description   string `json:"description"`
	Rating        int    `json:"rating"`
	PublishedDate int    `json:"published_date"`
}

// BookRequest is the payload accepted on creation and update. The id is
// ignored on creation and mandatory on update.
type BookRequest struct {
	ID            *int64 `json:"id,omitempty"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Description   string `json:"description"`
	Rating        int    `json:"rating"`
	PublishedDate int    `json:"published_date"`
}

// ToBook converts the request into a book entity. The id is left
// to zero when not provided so the store can assign one.
func (br BookRequest) ToBook() Book {
	book := Book{
		Title:         br.Title,
		Author:        br.Author,
		Description:   br.Description,
		Rating:        br.Rating,
		PublishedDate: br.PublishedDate,
	}
	if br.ID != nil {
		book.ID = *br.ID
	}
	return book
}

// BookRepository defines possible operations on book entity. It is
// bound to a session obtained from a BookStorage and must not be
// used after that session was released.
type BookRepository interface {
	GetAll(ctx context.Context) ([]Book, error)
	GetOne(ctx context.Context, id int64) (Book, error)
	GetByRating(ctx context.Context, rating int) ([]Book, error)
	GetByPublishedDate(ctx context.Context, year int) ([]Book, error)
	// Add stores the book. A zero ID lets the store assign one,
	// a positive ID is kept as is.
	Add(ctx context.Context, book Book) (Book, error)
	Update(ctx context.Context, book Book) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// BookStorage is the long-lived store handle. Acquire provides a
// repository scoped to one operation and the function to release it.
type BookStorage interface {
	Acquire(ctx context.Context) (BookRepository, func(), error)
	Close() error
}
