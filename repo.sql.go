package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const booksTableSchema = `
CREATE TABLE IF NOT EXISTS books (
	id %s PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	description TEXT NOT NULL,
	rating INTEGER NOT NULL,
	published_date INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
CREATE INDEX IF NOT EXISTS idx_books_rating ON books(rating);
CREATE INDEX IF NOT EXISTS idx_books_published_date ON books(published_date);
`

const bookColumns = "id, title, author, description, rating, published_date"

// queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlBookStorage struct {
	logger *zap.Logger
	db     *sql.DB
	driver string
}

type sqlBookRepository struct {
	q      queryer
	driver string
}

// GetSQLDB opens the pool for the given driver and ensures the books table exists.
func GetSQLDB(config *Config) (*sql.DB, error) {
	var db *sql.DB
	var err error
	var idType string
	switch config.Storage.Driver {
	case DriverPostgres:
		db, err = sql.Open("postgres", config.Database.DSN())
		idType = "BIGSERIAL"
	case DriverSQLite:
		if err = os.MkdirAll(filepath.Dir(config.SQLite.FilePath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create sqlite folder: %v", err)
		}
		db, err = sql.Open("sqlite", config.SQLite.FilePath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
		idType = "INTEGER"
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", config.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open the database: %v", err)
	}
	db.SetMaxOpenConns(config.Database.MaxOpenConns)
	db.SetMaxIdleConns(config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(config.Database.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), config.Server.RequestTimeout)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("test connection failed: %v", err)
	}
	if _, err = db.ExecContext(ctx, fmt.Sprintf(booksTableSchema, idType)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set up books table: %v", err)
	}
	return db, nil
}

// NewSQLBookStorage provides an instance of sql-based book storage.
func NewSQLBookStorage(logger *zap.Logger, driver string, db *sql.DB) BookStorage {
	return &sqlBookStorage{logger: logger, db: db, driver: driver}
}

// Acquire reserves a dedicated connection from the pool for the caller.
func (ss *sqlBookStorage) Acquire(ctx context.Context) (BookRepository, func(), error) {
	conn, err := ss.db.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	release := func() {
		if cerr := conn.Close(); cerr != nil {
			ss.logger.Error("storage: failed to release connection", zap.Error(cerr))
		}
	}
	return &sqlBookRepository{q: conn, driver: ss.driver}, release, nil
}

// Close shuts down the connections pool.
func (ss *sqlBookStorage) Close() error {
	return ss.db.Close()
}

// rebind converts `?` placeholders into the `$n` form expected by postgres.
func (sr *sqlBookRepository) rebind(query string) string {
	if sr.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (sr *sqlBookRepository) list(ctx context.Context, where string, args ...any) ([]Book, error) {
	query := "SELECT " + bookColumns + " FROM books" + where + " ORDER BY id"
	rows, err := sr.q.QueryContext(ctx, sr.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var book Book
		if err = rows.Scan(&book.ID, &book.Title, &book.Author, &book.Description, &book.Rating, &book.PublishedDate); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// GetAll retrieves every book row.
func (sr *sqlBookRepository) GetAll(ctx context.Context) ([]Book, error) {
	return sr.list(ctx, "")
}

// GetOne retrieves a book row based on its ID.
func (sr *sqlBookRepository) GetOne(ctx context.Context, id int64) (Book, error) {
	var book Book
	query := sr.rebind("SELECT " + bookColumns + " FROM books WHERE id = ?")
	err := sr.q.QueryRowContext(ctx, query, id).Scan(&book.ID, &book.Title, &book.Author, &book.Description, &book.Rating, &book.PublishedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	return book, err
}

func (sr *sqlBookRepository) GetByRating(ctx context.Context, rating int) ([]Book, error) {
	return sr.list(ctx, " WHERE rating = ?", rating)
}

func (sr *sqlBookRepository) GetByPublishedDate(ctx context.Context, year int) ([]Book, error) {
	return sr.list(ctx, " WHERE published_date = ?", year)
}

// Add inserts a new book row. When the id is provided on postgres, the
// serial sequence is moved forward so that generated ids do not collide.
func (sr *sqlBookRepository) Add(ctx context.Context, book Book) (Book, error) {
	if book.ID == 0 {
		query := sr.rebind("INSERT INTO books (title, author, description, rating, published_date) VALUES (?, ?, ?, ?, ?) RETURNING id")
		err := sr.q.QueryRowContext(ctx, query, book.Title, book.Author, book.Description, book.Rating, book.PublishedDate).Scan(&book.ID)
		return book, err
	}

	query := sr.rebind("INSERT INTO books (" + bookColumns + ") VALUES (?, ?, ?, ?, ?, ?)")
	if _, err := sr.q.ExecContext(ctx, query, book.ID, book.Title, book.Author, book.Description, book.Rating, book.PublishedDate); err != nil {
		return book, err
	}
	if sr.driver == DriverPostgres {
		_, err := sr.q.ExecContext(ctx, "SELECT setval(pg_get_serial_sequence('books', 'id'), GREATEST((SELECT MAX(id) FROM books), 1))")
		return book, err
	}
	return book, nil
}

// Update replaces all columns of an existing book row.
func (sr *sqlBookRepository) Update(ctx context.Context, book Book) error {
	query := sr.rebind("UPDATE books SET title = ?, author = ?, description = ?, rating = ?, published_date = ? WHERE id = ?")
	res, err := sr.q.ExecContext(ctx, query, book.Title, book.Author, book.Description, book.Rating, book.PublishedDate, book.ID)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// Delete removes a book row based on its ID.
func (sr *sqlBookRepository) Delete(ctx context.Context, id int64) error {
	res, err := sr.q.ExecContext(ctx, sr.rebind("DELETE FROM books WHERE id = ?"), id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (sr *sqlBookRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := sr.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM books").Scan(&n)
	return n, err
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}
