// Package filestore implements the exchange over a directory on a shared
// filesystem, the classic file-based rendezvous: rank 0 writes the ticket,
// the other ranks poll for it.
package filestore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"commlink.dev/rendezvous/exchange"
)

// Store is a directory-backed Exchange.
//
// Objects are written to a temp file and hard-linked into place, so a
// concurrent reader never observes a partial payload and creation is
// exclusive. Stored objects are read-only.
type Store struct {
	root string
}

// New constructs a Store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("filestore: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Publish(key string, payload []byte) error {
	if !exchange.ValidKey(key) {
		return exchange.ErrInvalidKey
	}
	path := s.pathFor(key)

	tmp, err := os.CreateTemp(s.root, ".publish-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o444); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	// Link makes installation exclusive: the first publisher wins, and a
	// concurrent differing publish surfaces as ErrImmutable instead of
	// silently replacing an already-published ticket.
	err = os.Link(tmpName, path)
	_ = os.Remove(tmpName)
	if err == nil {
		return nil
	}
	if !os.IsExist(err) {
		return err
	}
	existing, rerr := os.ReadFile(path)
	if rerr != nil {
		return rerr
	}
	if bytes.Equal(existing, payload) {
		return nil
	}
	return exchange.ErrImmutable
}

func (s *Store) Fetch(key string) ([]byte, error) {
	if !exchange.ValidKey(key) {
		return nil, exchange.ErrInvalidKey
	}
	b, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exchange.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *Store) Has(key string) bool {
	if !exchange.ValidKey(key) {
		return false
	}
	_, err := os.Stat(s.pathFor(key))
	return err == nil
}

func (s *Store) pathFor(key string) string {
	return filepath.Join(s.root, fmt.Sprintf("%s.rdzv", key))
}
