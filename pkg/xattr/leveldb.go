// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package xattr

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
)

// LevelDBStore persists attributes in a local LevelDB database. Records are
// keyed "<volumeID>\x00<key>" so a volume's records are contiguous.
type LevelDBStore struct {
	db            *leveldb.DB
	dir           string
	writeOptsSync *opt.WriteOptions
}

func NewLevelDBStore(dir string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil && !lerrors.IsCorrupted(err) {
		return nil, fmt.Errorf("open xattr db %s: %w", dir, err)
	}
	if lerrors.IsCorrupted(err) {
		logger.Warn().Err(err).Str("dir", dir).Msg("xattr db corrupted, recovering")
		db, err = leveldb.RecoverFile(dir, nil)
		if err != nil {
			return nil, fmt.Errorf("recover xattr db %s: %w", dir, err)
		}
	}
	return &LevelDBStore{
		db:            db,
		dir:           dir,
		writeOptsSync: &opt.WriteOptions{Sync: true},
	}, nil
}

func recordKey(volumeID, key string) []byte {
	b := make([]byte, 0, len(volumeID)+1+len(key))
	b = append(b, volumeID...)
	b = append(b, 0)
	return append(b, key...)
}

func (s *LevelDBStore) Get(_ context.Context, volumeID, key string) (string, bool, error) {
	data, err := s.db.Get(recordKey(volumeID, key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, translate(err)
	}
	return string(data), true, nil
}

func (s *LevelDBStore) Set(_ context.Context, volumeID, key, value string) error {
	if value == "" {
		return translate(s.db.Delete(recordKey(volumeID, key), s.writeOptsSync))
	}
	return translate(s.db.Put(recordKey(volumeID, key), []byte(value), s.writeOptsSync))
}

func (s *LevelDBStore) List(_ context.Context, volumeID, prefix string) (map[string]string, error) {
	base := len(volumeID) + 1
	iter := s.db.NewIterator(util.BytesPrefix(recordKey(volumeID, prefix)), nil)
	defer iter.Release()

	out := make(map[string]string)
	for iter.Next() {
		out[string(iter.Key()[base:])] = string(iter.Value())
	}
	if err := iter.Error(); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

func translate(err error) error {
	if errors.Is(err, leveldb.ErrClosed) {
		return ErrClosed
	}
	return err
}
