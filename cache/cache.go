// Package cache tracks the last seen size and modification time for every
// formatted path, so an unchanged tree costs one stat per file on the next
// run. Entries are invalidated wholesale whenever a backend artifact (the
// shell formatter shared library, the clang-format wasm module) or the
// unified style changes, since either can alter any file's formatted shape.
package cache

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

const (
	pathsBucket     = "paths"
	artifactsBucket = "artifacts"
	metaBucket      = "meta"

	styleKey = "style"
)

// Entry records the last observed size and modification time for a path.
type Entry struct {
	Size     int64
	Modified time.Time
}

type Cache struct {
	db  *bolt.DB
	log *log.Logger
}

// Open creates (or reopens) the cache for a given tree root. If clear is
// true, or if any of the named backend artifacts or the style string has
// changed since the last run, all path entries are dropped.
//
// The database lives in `XDG_CACHE_DIR/fama/eval-cache/<id>.db`, where <id>
// hashes the tree root so each tree gets its own cache.
func Open(treeRoot string, clear bool, artifacts map[string]string, style string) (*Cache, error) {
	h := sha1.New()
	h.Write([]byte(treeRoot))
	name := hex.EncodeToString(h.Sum(nil))

	path, err := xdg.CacheFile(fmt.Sprintf("fama/eval-cache/%v.db", name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve a local path for the cache: %w", err)
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	c := &Cache{db: db, log: log.WithPrefix("cache")}

	if err := c.prepare(clear, artifacts, style); err != nil {
		_ = db.Close()

		return nil, err
	}

	return c, nil
}

func (c *Cache) prepare(clear bool, artifacts map[string]string, style string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		paths, err := tx.CreateBucketIfNotExists([]byte(pathsBucket))
		if err != nil {
			return fmt.Errorf("failed to create paths bucket: %w", err)
		}

		arts, err := tx.CreateBucketIfNotExists([]byte(artifactsBucket))
		if err != nil {
			return fmt.Errorf("failed to create artifacts bucket: %w", err)
		}

		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return fmt.Errorf("failed to create meta bucket: %w", err)
		}

		// a changed style invalidates every cached path
		styleHash := sha1.Sum([]byte(style))
		if prev := meta.Get([]byte(styleKey)); !bytes.Equal(prev, styleHash[:]) {
			if prev != nil {
				c.log.Debug("style has changed")
			}

			clear = true
		}

		if err = meta.Put([]byte(styleKey), styleHash[:]); err != nil {
			return fmt.Errorf("failed to record style hash: %w", err)
		}

		// check for new or modified backend artifacts
		for name, artifactPath := range artifacts {
			stat, err := os.Lstat(artifactPath)
			if err != nil {
				// artifact absent: its backend is unavailable this run, which
				// leaves files unchanged and the cache entries valid
				continue
			}

			entry, err := getEntry(arts, name)
			if err != nil {
				return err
			}

			if entry == nil || entry.Size != stat.Size() || !entry.Modified.Equal(stat.ModTime()) {
				c.log.Debugf("artifact %s is new or has changed", name)

				clear = true
			}

			if err = putEntry(arts, name, &Entry{Size: stat.Size(), Modified: stat.ModTime()}); err != nil {
				return err
			}
		}

		if clear {
			c.log.Debug("clearing path entries")

			cursor := paths.Cursor()
			for k, v := cursor.First(); !(k == nil && v == nil); k, v = cursor.Next() {
				if err = cursor.Delete(); err != nil {
					return fmt.Errorf("failed to remove path entry: %w", err)
				}
			}
		}

		return nil
	})
}

// Changed reports whether path is new or has changed since it was last
// recorded. Unreadable paths count as changed so they surface downstream.
func (c *Cache) Changed(path string) (bool, error) {
	stat, err := os.Lstat(path)
	if err != nil {
		return true, nil
	}

	var entry *Entry

	err = c.db.View(func(tx *bolt.Tx) error {
		entry, err = getEntry(tx.Bucket([]byte(pathsBucket)), path)

		return err
	})
	if err != nil {
		return false, err
	}

	if entry == nil {
		return true, nil
	}

	return entry.Size != stat.Size() || !entry.Modified.Equal(stat.ModTime()), nil
}

// Update records the current size and modification time for a batch of paths.
func (c *Cache) Update(paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(pathsBucket))

		for _, path := range paths {
			stat, err := os.Lstat(path)
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", path, err)
			}

			entry := &Entry{Size: stat.Size(), Modified: stat.ModTime()}
			if err = putEntry(bucket, path, entry); err != nil {
				return err
			}
		}

		return nil
	})
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// getEntry is a helper for reading cache entries from bolt.
func getEntry(bucket *bolt.Bucket, key string) (*Entry, error) {
	b := bucket.Get([]byte(key))
	if b == nil {
		return nil, nil
	}

	var cached Entry
	if err := msgpack.Unmarshal(b, &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry for '%v': %w", key, err)
	}

	return &cached, nil
}

// putEntry is a helper for writing cache entries into bolt.
func putEntry(bucket *bolt.Bucket, key string, entry *Entry) error {
	b, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err = bucket.Put([]byte(key), b); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}

	return nil
}
