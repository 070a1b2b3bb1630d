package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	HBooks       string = "books"
	KBooksLastID string = "books:last_id"
)

// liftLastID moves the ids counter up to ARGV[1] if it is below.
var liftLastID = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local wanted = tonumber(ARGV[1])
if current < wanted then
	redis.call('SET', KEYS[1], wanted)
end
return 1
`)

type redisBookStorage struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisBookStorage provides an instance of redis-based book storage.
func NewRedisBookStorage(logger *zap.Logger, client *redis.Client) BookStorage {
	return &redisBookStorage{
		logger: logger,
		client: client,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// Acquire returns the storage itself. The go-redis client already
// picks a pooled connection per command so there is nothing to release.
func (rs *redisBookStorage) Acquire(_ context.Context) (BookRepository, func(), error) {
	return rs, func() {}, nil
}

func (rs *redisBookStorage) Close() error {
	return rs.client.Close()
}

func (rs *redisBookStorage) filter(ctx context.Context, keep func(Book) bool) ([]Book, error) {
	values, err := rs.client.HVals(ctx, HBooks).Result()
	if err != nil {
		return nil, err
	}
	books := []Book{}
	for _, v := range values {
		var book Book
		if err = json.Unmarshal([]byte(v), &book); err != nil {
			return nil, err
		}
		if keep(book) {
			books = append(books, book)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

// GetAll retrieves a list of all books stored in the redis database.
func (rs *redisBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	return rs.filter(ctx, func(Book) bool { return true })
}

// GetOne retrieves a book record based on its ID.
func (rs *redisBookStorage) GetOne(ctx context.Context, id int64) (Book, error) {
	var book Book
	value, err := rs.client.HGet(ctx, HBooks, strconv.FormatInt(id, 10)).Result()
	if err == redis.Nil {
		return book, ErrBookNotFound
	}
	if err != nil {
		return book, err
	}
	err = json.Unmarshal([]byte(value), &book)
	return book, err
}

func (rs *redisBookStorage) GetByRating(ctx context.Context, rating int) ([]Book, error) {
	return rs.filter(ctx, func(b Book) bool { return b.Rating == rating })
}

func (rs *redisBookStorage) GetByPublishedDate(ctx context.Context, year int) ([]Book, error) {
	return rs.filter(ctx, func(b Book) bool { return b.PublishedDate == year })
}

// Add inserts a new book record. Ids come from an INCR counter which
// is lifted when a book is stored with an explicit id.
func (rs *redisBookStorage) Add(ctx context.Context, book Book) (Book, error) {
	if book.ID == 0 {
		id, err := rs.client.Incr(ctx, KBooksLastID).Result()
		if err != nil {
			return book, err
		}
		book.ID = id
	} else if err := liftLastID.Run(ctx, rs.client, []string{KBooksLastID}, book.ID).Err(); err != nil {
		return book, err
	}
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return book, err
	}
	return book, rs.client.HSet(ctx, HBooks, strconv.FormatInt(book.ID, 10), bookBytes).Err()
}

// Update replaces existing book record data.
func (rs *redisBookStorage) Update(ctx context.Context, book Book) error {
	field := strconv.FormatInt(book.ID, 10)
	exists, err := rs.client.HExists(ctx, HBooks, field).Result()
	if err != nil {
		return err
	}
	if !exists {
		return ErrBookNotFound
	}
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return rs.client.HSet(ctx, HBooks, field, bookBytes).Err()
}

// Delete removes a book record based on its ID.
func (rs *redisBookStorage) Delete(ctx context.Context, id int64) error {
	n, err := rs.client.HDel(ctx, HBooks, strconv.FormatInt(id, 10)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (rs *redisBookStorage) Count(ctx context.Context) (int, error) {
	n, err := rs.client.HLen(ctx, HBooks).Result()
	return int(n), err
}
