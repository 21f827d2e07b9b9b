package imagestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	imageKeyPrefix = "image:"
	gcInterval     = 5 * time.Minute
	gcDiscardRatio = 0.7
)

// Badger keeps image bytes in an embedded BadgerDB and serves them
// under <baseURL>/<id>.
type Badger struct {
	db      *badger.DB
	baseURL string
	logger  *zap.Logger
	stop    chan struct{}
	done    chan struct{}
}

// OpenBadger opens the database at path. An empty path keeps everything
// in memory, which is what the tests use.
func OpenBadger(path, baseURL string, logger *zap.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Silence default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	b := &Badger{
		db:      db,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if path == "" {
		close(b.done)
	} else {
		go b.collectGarbage(gcInterval)
	}
	return b, nil
}

// Close stops the GC loop and closes the database.
func (b *Badger) Close() error {
	close(b.stop)
	<-b.done
	return b.db.Close()
}

// URL is the public address of a stored image.
func (b *Badger) URL(id string) string {
	return b.baseURL + "/" + id
}

func (b *Badger) Upload(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	id := uuid.New().String()
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(imageKeyPrefix+id), data))
	})
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return b.URL(id), nil
}

func (b *Badger) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := b.idFromURL(url)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		key := []byte(imageKeyPrefix + id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
}

// Get returns the stored bytes for id.
func (b *Badger) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(imageKeyPrefix + id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

func (b *Badger) idFromURL(url string) (string, error) {
	id, ok := strings.CutPrefix(url, b.baseURL+"/")
	if !ok {
		return "", ErrForeignURL
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrForeignURL
	}
	return id, nil
}

func (b *Badger) collectGarbage(every time.Duration) {
	defer close(b.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			err := b.db.RunValueLogGC(gcDiscardRatio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				b.logger.Warn("Badger value log GC failed", zap.Error(err))
			}
		}
	}
}
