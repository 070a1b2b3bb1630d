package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

type boltBookStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(config.BoltDB.FilePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create the database folder, %v", err)
	}
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltBookStorage provides an instance of bolt-based book storage.
func NewBoltBookStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) BookStorage {
	return &boltBookStorage{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Acquire returns the storage itself since each call runs in its own bolt transaction.
func (bs *boltBookStorage) Acquire(_ context.Context) (BookRepository, func(), error) {
	return bs, func() {}, nil
}

// Close shuts down the bolt-based book storage.
func (bs *boltBookStorage) Close() error {
	return bs.client.Close()
}

// itob returns an 8-byte big endian representation of v so keys sort by id.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func (bs *boltBookStorage) filter(keep func(Book) bool) ([]Book, error) {
	books := []Book{}
	err := bs.client.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bs.config.BucketName)).ForEach(func(_, v []byte) error {
			var book Book
			if err := json.Unmarshal(v, &book); err != nil {
				return err
			}
			if keep(book) {
				books = append(books, book)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// GetAll retrieves a list of all books stored in the bolt database.
func (bs *boltBookStorage) GetAll(_ context.Context) ([]Book, error) {
	return bs.filter(func(Book) bool { return true })
}

// GetOne retrieves a book record based on its ID from boltdb store.
func (bs *boltBookStorage) GetOne(_ context.Context, id int64) (Book, error) {
	var book Book
	err := bs.client.View(func(tx *bolt.Tx) error {
		result := tx.Bucket([]byte(bs.config.BucketName)).Get(itob(id))
		if result == nil {
			return ErrBookNotFound
		}
		return json.Unmarshal(result, &book)
	})
	return book, err
}

func (bs *boltBookStorage) GetByRating(_ context.Context, rating int) ([]Book, error) {
	return bs.filter(func(b Book) bool { return b.Rating == rating })
}

func (bs *boltBookStorage) GetByPublishedDate(_ context.Context, year int) ([]Book, error) {
	return bs.filter(func(b Book) bool { return b.PublishedDate == year })
}

// Add inserts a new book record into boltdb store. The bucket sequence
// provides new ids and is moved forward past any explicit id.
func (bs *boltBookStorage) Add(_ context.Context, book Book) (Book, error) {
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bs.config.BucketName))
		if book.ID == 0 {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			book.ID = int64(seq)
		} else if uint64(book.ID) > b.Sequence() {
			if err := b.SetSequence(uint64(book.ID)); err != nil {
				return err
			}
		}
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		return b.Put(itob(book.ID), bookBytes)
	})
	return book, err
}

// Update replaces existing book record data.
func (bs *boltBookStorage) Update(_ context.Context, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bs.config.BucketName))
		if b.Get(itob(book.ID)) == nil {
			return ErrBookNotFound
		}
		return b.Put(itob(book.ID), bookBytes)
	})
}

// Delete removes a book record based on its ID from boltdb store.
func (bs *boltBookStorage) Delete(_ context.Context, id int64) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bs.config.BucketName))
		if b.Get(itob(id)) == nil {
			return ErrBookNotFound
		}
		return b.Delete(itob(id))
	})
}

func (bs *boltBookStorage) Count(_ context.Context) (int, error) {
	var n int
	err := bs.client.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(bs.config.BucketName)).Stats().KeyN
		return nil
	})
	return n, err
}
