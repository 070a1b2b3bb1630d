package main

import (
	"context"

	"go.uber.org/zap"
)

type BookServiceProvider interface {
	GetAll(ctx context.Context) ([]Book, error)
	GetOne(ctx context.Context, id int64) (Book, error)
	GetByRating(ctx context.Context, rating int) ([]Book, error)
	GetByPublishedDate(ctx context.Context, year int) ([]Book, error)
	Add(ctx context.Context, req BookRequest) (Book, error)
	Update(ctx context.Context, req BookRequest) error
	Delete(ctx context.Context, id int64) error
	Seed(ctx context.Context) (int, error)
}

// BookService runs each operation inside its own storage session which
// is always released before the method returns.
type BookService struct {
	logger  *zap.Logger
	storage BookStorage
}

func NewBookService(logger *zap.Logger, storage BookStorage) BookServiceProvider {
	return &BookService{
		logger:  logger,
		storage: storage,
	}
}

// withRepo acquires a repository session, runs fn then releases the session.
func (bs *BookService) withRepo(ctx context.Context, fn func(BookRepository) error) error {
	repo, release, err := bs.storage.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(repo)
}

func (bs *BookService) GetAll(ctx context.Context) ([]Book, error) {
	var books []Book
	err := bs.withRepo(ctx, func(repo BookRepository) (err error) {
		books, err = repo.GetAll(ctx)
		return err
	})
	return books, err
}

func (bs *BookService) GetOne(ctx context.Context, id int64) (Book, error) {
	var book Book
	err := bs.withRepo(ctx, func(repo BookRepository) (err error) {
		book, err = repo.GetOne(ctx, id)
		return err
	})
	return book, err
}

func (bs *BookService) GetByRating(ctx context.Context, rating int) ([]Book, error) {
	if err := ValidateRating(rating); err != nil {
		return nil, err
	}
	var books []Book
	err := bs.withRepo(ctx, func(repo BookRepository) (err error) {
		books, err = repo.GetByRating(ctx, rating)
		return err
	})
	return books, err
}

func (bs *BookService) GetByPublishedDate(ctx context.Context, year int) ([]Book, error) {
	if err := ValidatePublishedDate(year); err != nil {
		return nil, err
	}
	var books []Book
	err := bs.withRepo(ctx, func(repo BookRepository) (err error) {
		books, err = repo.GetByPublishedDate(ctx, year)
		return err
	})
	return books, err
}

// Add validates the payload and stores it as a new book. Any id
// present in the payload is discarded.
func (bs *BookService) Add(ctx context.Context, req BookRequest) (Book, error) {
	book := req.ToBook()
	book.ID = 0
	if err := ValidateBook(book); err != nil {
		return book, err
	}
	err := bs.withRepo(ctx, func(repo BookRepository) (err error) {
		book, err = repo.Add(ctx, book)
		return err
	})
	return book, err
}

// Update replaces every field of an existing book. The id check comes
// first so a payload without id is rejected whatever its content.
func (bs *BookService) Update(ctx context.Context, req BookRequest) error {
	if req.ID == nil {
		return ErrMissingBookID
	}
	book := req.ToBook()
	if err := ValidateBook(book); err != nil {
		return err
	}
	return bs.withRepo(ctx, func(repo BookRepository) error {
		if _, err := repo.GetOne(ctx, book.ID); err != nil {
			return err
		}
		return repo.Update(ctx, book)
	})
}

func (bs *BookService) Delete(ctx context.Context, id int64) error {
	return bs.withRepo(ctx, func(repo BookRepository) error {
		if _, err := repo.GetOne(ctx, id); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
}

// Seed inserts the sample books when the store is empty and returns
// how many were inserted.
func (bs *BookService) Seed(ctx context.Context) (int, error) {
	inserted := 0
	err := bs.withRepo(ctx, func(repo BookRepository) error {
		count, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			bs.logger.Info("service: store already seeded", zap.Int("books.count", count))
			return nil
		}
		for _, book := range SeedBooks() {
			if _, err = repo.Add(ctx, book); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	return inserted, err
}

// SeedBooks returns the sample books inserted into an empty store.
func SeedBooks() []Book {
	return []Book{
		{ID: 1, Title: "Computer Science Pro", Author: "codingwithroby", Description: "A very nice book!", Rating: 5, PublishedDate: 2030},
		{ID: 2, Title: "Be Fast with FastAPI", Author: "codingwithroby", Description: "A great book!", Rating: 5, PublishedDate: 2030},
		{ID: 3, Title: "Master Endpoints", Author: "codingwithroby", Description: "A awesome book!", Rating: 5, PublishedDate: 2029},
		{ID: 4, Title: "HP1", Author: "Author 1", Description: "Book Description", Rating: 2, PublishedDate: 2028},
		{ID: 5, Title: "HP2", Author: "Author 2", Description: "Book Description", Rating: 3, PublishedDate: 2027},
		{ID: 6, Title: "HP3", Author: "Author 3", Description: "Book Description", Rating: 1, PublishedDate: 2026},
	}
}
