package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errStoreDown = errors.New("store down")

func sampleBook() Book {
	return Book{ID: 7, Title: "Go in Practice", Author: "Jerome", Description: "Idioms", Rating: 4, PublishedDate: 2021}
}

// newBookAPI wires the handler to the real service over a mocked storage.
func newBookAPI(repo *MockBookRepository) (*APIHandler, *MockBookStorage) {
	storage := NewMockBookStorage(repo)
	return newTestAPIHandler(nil, NewBookService(zap.NewNop(), storage)), storage
}

func decodeBody(t *testing.T, res *http.Response) map[string]interface{} {
	t.Helper()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	m := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func assertReleased(t *testing.T, storage *MockBookStorage) {
	t.Helper()
	acquired, released := storage.Sessions()
	assert.Equal(t, acquired, released)
}

// TestStatusHandler ensures api handler can provides its status.
func TestStatusHandler(t *testing.T) {
	api := newTestAPIHandler(nil, nil)
	api.stats.started = api.clock.Now()
	w := httptest.NewRecorder()
	api.Status(w, httptest.NewRequest(http.MethodGet, "/status", nil), httprouter.Params{})
	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	m := decodeBody(t, res)
	assert.Equal(t, "up & running since 0 mins", m["status"])
	assert.Equal(t, "Hello. Books catalog api is available. Enjoy :)", m["message"])
}

func TestHomeHandler(t *testing.T) {
	api := newTestAPIHandler(nil, nil)
	w := httptest.NewRecorder()
	api.Home(w, httptest.NewRequest(http.MethodGet, "/", nil), httprouter.Params{})
	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Hello from test-host", decodeBody(t, res)["message"])
}

func TestGetAllBooksHandler(t *testing.T) {
	t.Run("should pass: books listed with total", func(t *testing.T) {
		api, storage := newBookAPI(&MockBookRepository{
			GetAllFunc: func(ctx context.Context) ([]Book, error) {
				return []Book{sampleBook(), sampleBook()}, nil
			},
		})
		w := httptest.NewRecorder()
		api.GetAllBooks(w, httptest.NewRequest(http.MethodGet, "/books", nil), httprouter.Params{})
		res := w.Result()
		defer res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
		m := decodeBody(t, res)
		assert.Equal(t, float64(2), m["total"])
		assert.Len(t, m["data"], 2)
		assertReleased(t, storage)
	})

	t.Run("should pass: empty store gives empty list", func(t *testing.T) {
		api, _ := newBookAPI(&MockBookRepository{
			GetAllFunc: func(ctx context.Context) ([]Book, error) {
				return nil, nil
			},
		})
		w := httptest.NewRecorder()
		api.GetAllBooks(w, httptest.NewRequest(http.MethodGet, "/books", nil), httprouter.Params{})
		res := w.Result()
		defer res.Body.Close()
		m := decodeBody(t, res)
		assert.Equal(t, []interface{}{}, m["data"])
		assert.Equal(t, float64(0), m["total"])
	})

	t.Run("should fail: store error hidden", func(t *testing.T) {
		api, storage := newBookAPI(&MockBookRepository{
			GetAllFunc: func(ctx context.Context) ([]Book, error) {
				return nil, errStoreDown
			},
		})
		w := httptest.NewRecorder()
		api.GetAllBooks(w, httptest.NewRequest(http.MethodGet, "/books", nil), httprouter.Params{})
		res := w.Result()
		defer res.Body.Close()
		assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
		m := decodeBody(t, res)
		assert.NotContains(t, m["message"], "store down")
		assertReleased(t, storage)
	})
}

func TestGetOneBookHandler(t *testing.T) {
	repo := &MockBookRepository{
		GetOneFunc: func(ctx context.Context, id int64) (Book, error) {
			if id == 7 {
				return sampleBook(), nil
			}
			return Book{}, ErrBookNotFound
		},
	}
	api, storage := newBookAPI(repo)

	testCases := []struct {
		name   string
		id     string
		status int
	}{
		{"existing book", "7", http.StatusOK},
		{"unknown book", "99", http.StatusNotFound},
		{"zero id", "0", http.StatusUnprocessableEntity},
		{"negative id", "-3", http.StatusUnprocessableEntity},
		{"not a number", "abc", http.StatusUnprocessableEntity},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			api.GetOneBook(w, httptest.NewRequest(http.MethodGet, "/books/"+tc.id, nil),
				httprouter.Params{{Key: "id", Value: tc.id}})
			assert.Equal(t, tc.status, w.Code)
		})
	}

	t.Run("returns the book payload", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.GetOneBook(w, httptest.NewRequest(http.MethodGet, "/books/7", nil),
			httprouter.Params{{Key: "id", Value: "7"}})
		var resp struct {
			Data Book `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, sampleBook(), resp.Data)
	})
	assertReleased(t, storage)
}

func TestGetBooksByRatingHandler(t *testing.T) {
	var asked int
	api, storage := newBookAPI(&MockBookRepository{
		GetByRatingFunc: func(ctx context.Context, rating int) ([]Book, error) {
			asked = rating
			return []Book{sampleBook()}, nil
		},
	})

	testCases := []struct {
		name   string
		query  string
		status int
	}{
		{"valid rating", "?book_rating=4", http.StatusOK},
		{"missing rating", "", http.StatusUnprocessableEntity},
		{"rating too low", "?book_rating=0", http.StatusUnprocessableEntity},
		{"rating too high", "?book_rating=6", http.StatusUnprocessableEntity},
		{"rating not a number", "?book_rating=five", http.StatusUnprocessableEntity},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			api.GetBooksByRating(w, httptest.NewRequest(http.MethodGet, "/books/"+tc.query, nil), httprouter.Params{})
			assert.Equal(t, tc.status, w.Code)
		})
	}
	assert.Equal(t, 4, asked)
	acquired, released := storage.Sessions()
	assert.Equal(t, int64(1), acquired)
	assert.Equal(t, int64(1), released)
}

func TestGetBooksByPublishedDateHandler(t *testing.T) {
	api, _ := newBookAPI(&MockBookRepository{
		GetByPublishedDateFunc: func(ctx context.Context, year int) ([]Book, error) {
			return []Book{}, nil
		},
	})

	testCases := []struct {
		name    string
		segment string
		query   string
		status  int
	}{
		{"valid year", "publish", "?published_date=2021", http.StatusOK},
		{"year too old", "publish", "?published_date=1999", http.StatusUnprocessableEntity},
		{"year too far", "publish", "?published_date=2031", http.StatusUnprocessableEntity},
		{"missing year", "publish", "", http.StatusUnprocessableEntity},
		{"other segment", "7", "?published_date=2021", http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			api.GetBooksByPublishedDate(w,
				httptest.NewRequest(http.MethodGet, "/books/"+tc.segment+"/"+tc.query, nil),
				httprouter.Params{{Key: "id", Value: tc.segment}})
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

// TestCreateBookHandler ensures api handler can create a book.
func TestCreateBookHandler(t *testing.T) {
	var stored Book
	api, storage := newBookAPI(&MockBookRepository{
		AddFunc: func(ctx context.Context, book Book) (Book, error) {
			stored = book
			book.ID = 42
			return book, nil
		},
	})

	t.Run("should pass: valid payload", func(t *testing.T) {
		payload := []byte(`{"id": 5, "title": "Learning Go", "author": "Jon", "description": "A book", "rating": 5, "published_date": 2021}`)
		w := httptest.NewRecorder()
		api.CreateBook(w, httptest.NewRequest(http.MethodPost, "/create-book", bytes.NewBuffer(payload)), httprouter.Params{})
		res := w.Result()
		defer res.Body.Close()
		assert.Equal(t, http.StatusCreated, res.StatusCode)
		m := decodeBody(t, res)
		assert.Equal(t, "Book created successfully.", m["message"])
		data := m["data"].(map[string]interface{})
		assert.Equal(t, float64(42), data["id"])
		assert.Equal(t, int64(0), stored.ID, "client id must be discarded")
	})

	t.Run("should fail: validation errors listed", func(t *testing.T) {
		payload := []byte(`{"title": "Go", "author": "Jon", "description": "A book", "rating": 9, "published_date": 2021}`)
		w := httptest.NewRecorder()
		api.CreateBook(w, httptest.NewRequest(http.MethodPost, "/create-book", bytes.NewBuffer(payload)), httprouter.Params{})
		res := w.Result()
		defer res.Body.Close()
		assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
		m := decodeBody(t, res)
		assert.Len(t, m["data"], 2)
	})

	t.Run("should fail: malformed json", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.CreateBook(w, httptest.NewRequest(http.MethodPost, "/create-book", bytes.NewBufferString(`{"title":`)), httprouter.Params{})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("should fail: wrong field type", func(t *testing.T) {
		payload := []byte(`{"title": "Learning Go", "author": "Jon", "description": "A book", "rating": "five", "published_date": 2021}`)
		w := httptest.NewRecorder()
		api.CreateBook(w, httptest.NewRequest(http.MethodPost, "/create-book", bytes.NewBuffer(payload)), httprouter.Params{})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
	assertReleased(t, storage)
}

func TestUpdateBookHandler(t *testing.T) {
	var updated Book
	api, storage := newBookAPI(&MockBookRepository{
		GetOneFunc: func(ctx context.Context, id int64) (Book, error) {
			if id == 7 {
				return sampleBook(), nil
			}
			return Book{}, ErrBookNotFound
		},
		UpdateFunc: func(ctx context.Context, book Book) error {
			updated = book
			return nil
		},
	})

	testCases := []struct {
		name    string
		payload string
		status  int
	}{
		{"valid update", `{"id": 7, "title": "Go in Action", "author": "Jon", "description": "Second edition", "rating": 3, "published_date": 2022}`, http.StatusNoContent},
		{"missing id", `{"title": "Go in Action", "author": "Jon", "description": "Second edition", "rating": 3, "published_date": 2022}`, http.StatusBadRequest},
		{"missing id and invalid", `{"title": "Go"}`, http.StatusBadRequest},
		{"unknown book", `{"id": 99, "title": "Go in Action", "author": "Jon", "description": "Second edition", "rating": 3, "published_date": 2022}`, http.StatusNotFound},
		{"invalid fields", `{"id": 7, "title": "Go", "author": "Jon", "description": "Second edition", "rating": 3, "published_date": 2022}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"id": 7,`, http.StatusUnprocessableEntity},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			api.UpdateBook(w, httptest.NewRequest(http.MethodPut, "/books/update_book", bytes.NewBufferString(tc.payload)), httprouter.Params{})
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusNoContent {
				assert.Empty(t, w.Body.String())
			}
		})
	}
	assert.Equal(t, "Go in Action", updated.Title)
	assert.Equal(t, int64(7), updated.ID)
	assertReleased(t, storage)
}

func TestDeleteOneBookHandler(t *testing.T) {
	var deleted int64
	api, storage := newBookAPI(&MockBookRepository{
		GetOneFunc: func(ctx context.Context, id int64) (Book, error) {
			if id == 7 {
				return sampleBook(), nil
			}
			return Book{}, ErrBookNotFound
		},
		DeleteFunc: func(ctx context.Context, id int64) error {
			deleted = id
			return nil
		},
	})

	testCases := []struct {
		name   string
		id     string
		status int
	}{
		{"existing book", "7", http.StatusNoContent},
		{"unknown book", "99", http.StatusNotFound},
		{"invalid id", "x", http.StatusUnprocessableEntity},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			api.DeleteOneBook(w, httptest.NewRequest(http.MethodDelete, "/books/"+tc.id, nil),
				httprouter.Params{{Key: "id", Value: tc.id}})
			assert.Equal(t, tc.status, w.Code)
		})
	}
	assert.Equal(t, int64(7), deleted)
	assertReleased(t, storage)
}

func TestHandlersAcquireFailure(t *testing.T) {
	storage := NewMockBookStorage(&MockBookRepository{})
	storage.AcquireErr = errStoreDown
	api := newTestAPIHandler(nil, NewBookService(zap.NewNop(), storage))
	w := httptest.NewRecorder()
	api.GetAllBooks(w, httptest.NewRequest(http.MethodGet, "/books", nil), httprouter.Params{})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCanceledRequestSendsNoBody(t *testing.T) {
	api, _ := newBookAPI(&MockBookRepository{
		GetAllFunc: func(ctx context.Context) ([]Book, error) {
			return []Book{sampleBook()}, nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := httptest.NewRecorder()
	api.GetAllBooks(w, httptest.NewRequest(http.MethodGet, "/books", nil).WithContext(ctx), httprouter.Params{})
	assert.Equal(t, StatusClientClosedRequest, w.Code)
	assert.Empty(t, w.Body.String())
}
