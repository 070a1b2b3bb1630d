package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBookService_FiltersValidateBeforeStore(t *testing.T) {
	storage := NewMockBookStorage(&MockBookRepository{})
	bs := NewBookService(zap.NewNop(), storage)

	_, err := bs.GetByRating(context.Background(), 0)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "rating", verrs[0].Field)

	_, err = bs.GetByPublishedDate(context.Background(), 1999)
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "published_date", verrs[0].Field)

	acquired, _ := storage.Sessions()
	assert.Equal(t, int64(0), acquired)
}

func TestBookService_UpdateOrder(t *testing.T) {
	var lookups int
	storage := NewMockBookStorage(&MockBookRepository{
		GetOneFunc: func(ctx context.Context, id int64) (Book, error) {
			lookups++
			return Book{}, ErrBookNotFound
		},
	})
	bs := NewBookService(zap.NewNop(), storage)

	err := bs.Update(context.Background(), BookRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrMissingBookID)

	id := int64(3)
	err = bs.Update(context.Background(), BookRequest{ID: &id, Title: "x"})
	var verrs ValidationErrors
	assert.ErrorAs(t, err, &verrs)
	assert.Equal(t, 0, lookups)

	err = bs.Update(context.Background(), BookRequest{ID: &id, Title: "Valid", Author: "A", Description: "D", Rating: 1, PublishedDate: 2000})
	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.Equal(t, 1, lookups)

	acquired, released := storage.Sessions()
	assert.Equal(t, int64(1), acquired)
	assert.Equal(t, int64(1), released)
}

func TestBookService_DeleteReleasesOnError(t *testing.T) {
	storage := NewMockBookStorage(&MockBookRepository{
		GetOneFunc: func(ctx context.Context, id int64) (Book, error) {
			return Book{}, errStoreDown
		},
	})
	bs := NewBookService(zap.NewNop(), storage)
	assert.ErrorIs(t, bs.Delete(context.Background(), 1), errStoreDown)
	acquired, released := storage.Sessions()
	assert.Equal(t, int64(1), acquired)
	assert.Equal(t, int64(1), released)
}

func TestBookService_Seed(t *testing.T) {
	t.Run("empty store gets the samples", func(t *testing.T) {
		var added []Book
		storage := NewMockBookStorage(&MockBookRepository{
			CountFunc: func(ctx context.Context) (int, error) { return 0, nil },
			AddFunc: func(ctx context.Context, book Book) (Book, error) {
				added = append(added, book)
				return book, nil
			},
		})
		n, err := NewBookService(zap.NewNop(), storage).Seed(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 6, n)
		assert.Equal(t, SeedBooks(), added)
	})

	t.Run("populated store untouched", func(t *testing.T) {
		storage := NewMockBookStorage(&MockBookRepository{
			CountFunc: func(ctx context.Context) (int, error) { return 2, nil },
		})
		n, err := NewBookService(zap.NewNop(), storage).Seed(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

// TestSeedBooksAreValid guards the sample data against the validation rules.
func TestSeedBooksAreValid(t *testing.T) {
	for _, book := range SeedBooks() {
		assert.NoError(t, ValidateBook(book), book.Title)
	}
}
