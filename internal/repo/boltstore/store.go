// Package boltstore is an embedded alternative to the SQLite drop store.
// Each kind is a BoltDB bucket keyed by drop id holding the JSON document;
// a sibling "<collection>.replies" bucket indexes replies by parent id in
// insertion order so threads can be rebuilt without a full scan.
package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/tbourn/zync-backend/internal/domain"
	"github.com/tbourn/zync-backend/internal/repo"
)

const replySuffix = ".replies"

// Store persists drops in BoltDB. BoltDB serialises writers, so concurrent
// inserts are safe; reads run in parallel.
type Store struct {
	db *bbolt.DB
}

// Open creates the file (and parent directory) if needed and ensures every
// kind's buckets exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, k := range domain.Kinds() {
			if _, err := tx.CreateBucketIfNotExists([]byte(k.Collection())); err != nil {
				return err
			}
			if _, err := tx.CreateBucketIfNotExists([]byte(k.Collection() + replySuffix)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buckets(tx *bbolt.Tx, kind domain.Kind) (docs, replies *bbolt.Bucket, err error) {
	col := kind.Collection()
	if col == "" {
		return nil, nil, repo.ErrUnknownKind
	}
	docs = tx.Bucket([]byte(col))
	replies = tx.Bucket([]byte(col + replySuffix))
	if docs == nil || replies == nil {
		return nil, nil, repo.ErrUnknownKind
	}
	return docs, replies, nil
}

// replyKey is parentID, a NUL separator, then a big-endian sequence number,
// so a prefix scan yields one parent's replies in insertion order.
func replyKey(parentID string, seq uint64) []byte {
	k := make([]byte, 0, len(parentID)+9)
	k = append(k, parentID...)
	k = append(k, 0)
	return binary.BigEndian.AppendUint64(k, seq)
}

func replyPrefix(parentID string) []byte {
	return append([]byte(parentID), 0)
}

// Insert writes d into kind's bucket, failing with repo.ErrDuplicate if the
// id is taken.
func (s *Store) Insert(ctx context.Context, kind domain.Kind, d *domain.Drop) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := *d
	doc.Kind = ""
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		docs, replies, err := buckets(tx, kind)
		if err != nil {
			return err
		}
		if docs.Get([]byte(d.ID)) != nil {
			return repo.ErrDuplicate
		}
		if err := docs.Put([]byte(d.ID), data); err != nil {
			return err
		}
		if d.IsReply() {
			seq, err := replies.NextSequence()
			if err != nil {
				return err
			}
			return replies.Put(replyKey(*d.ReplyTo, seq), []byte(d.ID))
		}
		return nil
	})
}

// Get fetches a drop by id within kind's bucket.
func (s *Store) Get(ctx context.Context, kind domain.Kind, id string) (*domain.Drop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *domain.Drop
	err := s.db.View(func(tx *bbolt.Tx) error {
		docs, _, err := buckets(tx, kind)
		if err != nil {
			return err
		}
		raw := docs.Get([]byte(id))
		if raw == nil {
			return repo.ErrNotFound
		}
		var d domain.Drop
		if err := json.Unmarshal(raw, &d); err != nil {
			return err
		}
		d.Kind = kind
		out = &d
		return nil
	})
	return out, err
}

// ListReplies returns parentID's replies ordered by CreatedAt ascending,
// ties kept in insertion order.
func (s *Store) ListReplies(ctx context.Context, kind domain.Kind, parentID string) ([]domain.Drop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []domain.Drop{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		docs, replies, err := buckets(tx, kind)
		if err != nil {
			return err
		}
		prefix := replyPrefix(parentID)
		c := replies.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			raw := docs.Get(v)
			if raw == nil {
				// reaped
				continue
			}
			var d domain.Drop
			if err := json.Unmarshal(raw, &d); err != nil {
				return err
			}
			d.Kind = kind
			out = append(out, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// DeleteExpired removes drops whose ExpiresAt is before nowMillis along with
// their reply-index entries.
func (s *Store) DeleteExpired(ctx context.Context, kind domain.Kind, nowMillis int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		docs, replies, err := buckets(tx, kind)
		if err != nil {
			return err
		}

		expired := map[string]struct{}{}
		err = docs.ForEach(func(k, v []byte) error {
			var d domain.Drop
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			if d.ExpiresAt < nowMillis {
				expired[string(k)] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}

		// Keys must not be deleted while a ForEach is iterating the bucket.
		var stale [][]byte
		err = replies.ForEach(func(k, v []byte) error {
			if _, ok := expired[string(v)]; ok {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := replies.Delete(k); err != nil {
				return err
			}
		}
		for id := range expired {
			if err := docs.Delete([]byte(id)); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}
