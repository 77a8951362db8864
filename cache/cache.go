// Package cache records documents which have already been formatted, so unchanged files can be skipped.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/sync/errgroup"
)

const (
	keyHash = "sha256"

	batchSize = 1024
)

// Entry records the state of a file after it was last formatted.
type Entry struct {
	Size     int64
	Modified time.Time
	// Signature identifies the formatter and configuration which processed the file.
	Signature string
}

// Matches reports whether info and signature describe the same state as the entry.
func (e *Entry) Matches(info fs.FileInfo, signature string) bool {
	return e.Size == info.Size() && e.Modified.Equal(info.ModTime()) && e.Signature == signature
}

type update struct {
	path  string
	entry *Entry
}

// Cache is a bolt database of Entry values keyed by path.
// Updates are queued and written in batches by a background goroutine until Close is called.
type Cache struct {
	db  *bolt.DB
	log *log.Logger

	eg       *errgroup.Group
	updateCh chan update
}

// Path returns a unique local cache file path for the given root string, using its SHA-256 hash.
func Path(root string) (string, error) {
	digest := sha256.Sum256([]byte(root))

	name := hex.EncodeToString(digest[:])

	path, err := xdg.CacheFile(fmt.Sprintf("rabbit/eval-cache/%v.db", name))
	if err != nil {
		return "", fmt.Errorf("could not resolve local path for the cache: %w", err)
	}

	return path, nil
}

// Open opens the cache for the tree root.
// The database will be located in `XDG_CACHE_HOME/rabbit/eval-cache/<id>.db`, where <id> is determined by hashing
// the root path.
func Open(root string) (*Cache, error) {
	path, err := Path(root)
	if err != nil {
		return nil, err
	}

	return OpenPath(path)
}

// OpenPath opens a cache database at path, creating it if necessary.
func OpenPath(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db at %s: %w", path, err)
	}

	// ensure buckets exist
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := BucketPaths(tx); err != nil {
			return err
		}

		_, err := BucketFormatters(tx)

		return err
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	c := &Cache{
		db:       db,
		log:      log.WithPrefix("cache"),
		eg:       &errgroup.Group{},
		updateCh: make(chan update, batchSize),
	}

	// start the processing loop
	c.eg.Go(c.process)

	return c, nil
}

// Remove deletes the cache database for root, if one exists.
func Remove(root string) error {
	path, err := Path(root)
	if err != nil {
		return err
	}

	// If a rabbit process is currently running with a db open at the same location, it will continue to function
	// as normal, however, when it exits the disk space its inode was referencing will be reclaimed.
	if err = os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove cache db at %s: %w", path, err)
	}

	return nil
}

// Bust compares hash with the value stored by a previous run. If it has changed, all path entries are removed.
func (c *Cache) Bust(hash string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		formatters, err := BucketFormatters(tx)
		if err != nil {
			return err
		}

		// the previous hash might not exist
		prevHash, err := formatters.Get(keyHash)
		if err != nil && !errors.Is(err, ErrKeyNotFound) {
			return err
		}

		if prevHash == nil || *prevHash != hash {
			c.log.Debug("formatters have changed, deleting all paths", "current_hash", hash)

			paths, err := BucketPaths(tx)
			if err != nil {
				return err
			}

			if err = paths.DeleteAll(); err != nil {
				return fmt.Errorf("failed to delete paths: %w", err)
			}
		}

		return formatters.Put(keyHash, &hash)
	})
}

// Fresh reports whether path was formatted with signature and has not been modified since.
func (c *Cache) Fresh(path string, info fs.FileInfo, signature string) (fresh bool, err error) {
	err = c.db.View(func(tx *bolt.Tx) error {
		paths, err := BucketPaths(tx)
		if err != nil {
			return err
		}

		entry, err := paths.Get(path)
		if errors.Is(err, ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}

		fresh = entry.Matches(info, signature)

		return nil
	})

	return fresh, err //nolint:wrapcheck
}

// Record queues an entry for path, which must only be called after path was formatted successfully.
func (c *Cache) Record(path string, info fs.FileInfo, signature string) {
	c.updateCh <- update{
		path: path,
		entry: &Entry{
			Size:      info.Size(),
			Modified:  info.ModTime(),
			Signature: signature,
		},
	}
}

// process writes queued updates in batches.
func (c *Cache) process() error {
	batch := make([]update, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		c.log.Debugf("writing %d entries", len(batch))

		return c.db.Update(func(tx *bolt.Tx) error {
			paths, err := BucketPaths(tx)
			if err != nil {
				return err
			}

			for _, u := range batch {
				if err := paths.Put(u.path, u.entry); err != nil {
					return err
				}
			}

			return nil
		})
	}

	var errs error

	// keep draining after a failure so Record never blocks
	for u := range c.updateCh {
		batch = append(batch, u)
		if len(batch) < batchSize && len(c.updateCh) > 0 {
			continue
		}

		// write whenever the queue drains or the batch is full
		if err := flush(); err != nil {
			errs = errors.Join(errs, err)
		}

		batch = batch[:0]
	}

	// flush final partial batch
	return errors.Join(errs, flush())
}

// Close waits for queued updates to be written and closes the database.
func (c *Cache) Close() error {
	close(c.updateCh)

	err := c.eg.Wait()
	if err != nil {
		err = fmt.Errorf("failed to write cache updates: %w", err)
	}

	if closeErr := c.db.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close cache db: %w", closeErr))
	}

	return err
}
