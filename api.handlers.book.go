package main

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const PublishSegment = "publish"

// writeServiceError maps a service error to its response status. Store
// failures are hidden behind a generic message.
func (api *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error, fields ...zap.Field) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	fields = append(fields, zap.String("request.id", requestID), zap.Error(err))

	var verrs ValidationErrors
	var errResp *APIError
	switch {
	case errors.As(err, &verrs):
		api.logger.Warn(message, fields...)
		errResp = NewAPIError(requestID, http.StatusUnprocessableEntity, message, verrs)
	case errors.Is(err, ErrMissingBookID):
		api.logger.Warn(message, fields...)
		errResp = NewAPIError(requestID, http.StatusBadRequest, message, err.Error())
	case errors.Is(err, ErrBookNotFound):
		api.logger.Warn("book does not exist", fields...)
		errResp = NewAPIError(requestID, http.StatusNotFound, "book does not exist", EmptyData)
	default:
		api.logger.Error(message, fields...)
		errResp = NewAPIError(requestID, http.StatusInternalServerError, message, EmptyData)
	}
	if err = WriteErrorResponse(r.Context(), w, errResp); err != nil {
		api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
	}
}

func (api *APIHandler) writeBooks(w http.ResponseWriter, r *http.Request, message string, books []Book) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	if books == nil {
		books = []Book{}
	}
	total := len(books)
	resp := GenericResponse(requestID, http.StatusOK, message, &total, books)
	if err := WriteResponse(r.Context(), w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetAllBooks lists every book of the catalog.
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	books, err := api.bookService.GetAll(r.Context())
	if err != nil {
		api.writeServiceError(w, r, "failed to get all books", err)
		return
	}
	api.writeBooks(w, r, "All books fetched successfully.", books)
}

// GetOneBook fetches a book by its id.
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	rawID := ps.ByName("id")
	id, err := ParseBookID(rawID)
	if err != nil {
		api.writeServiceError(w, r, "book id provided is not valid", err, zap.String("book.id", rawID))
		return
	}
	book, err := api.bookService.GetOne(r.Context(), id)
	if err != nil {
		api.writeServiceError(w, r, "failed to get the book", err, zap.Int64("book.id", id))
		return
	}
	api.logger.Info("success to get book", zap.Int64("book.id", id), zap.String("request.id", requestID))
	resp := GenericResponse(requestID, http.StatusOK, "Book fetched successfully.", nil, book)
	if err = WriteResponse(r.Context(), w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetBooksByRating lists books matching the `book_rating` query value.
func (api *APIHandler) GetBooksByRating(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rating, err := ParseIntQuery("book_rating", r.URL.Query().Get("book_rating"))
	if err != nil {
		api.writeServiceError(w, r, "invalid book rating", err)
		return
	}
	books, err := api.bookService.GetByRating(r.Context(), rating)
	if err != nil {
		api.writeServiceError(w, r, "failed to get books by rating", err, zap.Int("book.rating", rating))
		return
	}
	api.writeBooks(w, r, "Books fetched successfully.", books)
}

// GetBooksByPublishedDate lists books matching the `published_date` query
// value. It is mounted on `/books/:id/` so it only answers `/books/publish/`.
func (api *APIHandler) GetBooksByPublishedDate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("id") != PublishSegment {
		api.NotFound().ServeHTTP(w, r)
		return
	}
	year, err := ParseIntQuery("published_date", r.URL.Query().Get("published_date"))
	if err != nil {
		api.writeServiceError(w, r, "invalid published date", err)
		return
	}
	books, err := api.bookService.GetByPublishedDate(r.Context(), year)
	if err != nil {
		api.writeServiceError(w, r, "failed to get books by published date", err, zap.Int("book.published_date", year))
		return
	}
	api.writeBooks(w, r, "Books fetched successfully.", books)
}

// CreateBook stores a new book and returns it with its assigned id.
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req BookRequest
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	if err := DecodeBookRequestBody(w, r, &req); err != nil {
		api.logger.Warn("failed to decode book", zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusUnprocessableEntity, "failed to create the book", err.Error())
		if err = WriteErrorResponse(r.Context(), w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	book, err := api.bookService.Add(r.Context(), req)
	if err != nil {
		api.writeServiceError(w, r, "failed to create the book", err)
		return
	}
	api.logger.Info("success to create book", zap.Int64("book.id", book.ID), zap.String("request.id", requestID))
	resp := GenericResponse(requestID, http.StatusCreated, "Book created successfully.", nil, book)
	if err = WriteResponse(r.Context(), w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// UpdateBook replaces every field of the book identified by the payload id.
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req BookRequest
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	if err := DecodeBookRequestBody(w, r, &req); err != nil {
		api.logger.Warn("failed to decode book", zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusUnprocessableEntity, "failed to update the book", err.Error())
		if err = WriteErrorResponse(r.Context(), w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	if err := api.bookService.Update(r.Context(), req); err != nil {
		api.writeServiceError(w, r, "failed to update the book", err)
		return
	}
	api.logger.Info("success to update book", zap.Int64("book.id", *req.ID), zap.String("request.id", requestID))
	if err := WriteNoContent(r.Context(), w); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// DeleteOneBook removes a book by its id.
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	rawID := ps.ByName("id")
	id, err := ParseBookID(rawID)
	if err != nil {
		api.writeServiceError(w, r, "book id provided is not valid", err, zap.String("book.id", rawID))
		return
	}
	if err = api.bookService.Delete(r.Context(), id); err != nil {
		api.writeServiceError(w, r, "failed to delete the book", err, zap.Int64("book.id", id))
		return
	}
	api.logger.Info("success to delete book", zap.Int64("book.id", id), zap.String("request.id", requestID))
	if err = WriteNoContent(r.Context(), w); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}
