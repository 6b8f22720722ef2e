package msglog

import (
	"context"
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"

	"github.com/pitt-rnel/rtma/internal/rtmaerr"
)

// PebbleStore is an on-disk Store backed by a CBOR-encoded Pebble LSM.
// SAVE_MESSAGE_LOG's pathname names the Pebble directory.
type PebbleStore struct {
	db     *pebble.DB
	mu     sync.RWMutex
	closed bool
	prefix []byte
}

// OpenPebbleStore opens (creating if absent) a Pebble database at path.
func OpenPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{ErrorIfExists: false})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db, prefix: []byte("msglog:")}, nil
}

func (p *PebbleStore) makeKey(key string) []byte {
	full := make([]byte, len(p.prefix)+len(key))
	copy(full, p.prefix)
	copy(full[len(p.prefix):], key)
	return full
}

func (p *PebbleStore) Save(_ context.Context, key string, rec Record) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return rtmaerr.ErrStoreClosed
	}
	p.mu.RUnlock()

	data, err := cbor.Marshal(rec)
	if err != nil {
		return err
	}
	return p.db.Set(p.makeKey(key), data, pebble.Sync)
}

func (p *PebbleStore) Load(_ context.Context, key string) (Record, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return Record{}, rtmaerr.ErrStoreClosed
	}
	p.mu.RUnlock()

	data, closer, err := p.db.Get(p.makeKey(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Record{}, rtmaerr.ErrNotFound
		}
		return Record{}, err
	}
	defer closer.Close()

	var rec Record
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (p *PebbleStore) List(_ context.Context) ([]string, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, rtmaerr.ErrStoreClosed
	}
	p.mu.RUnlock()

	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: p.prefix,
		UpperBound: append(append([]byte{}, p.prefix...), 0xff),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()[len(p.prefix):]))
	}
	return keys, iter.Error()
}

func (p *PebbleStore) Reset(ctx context.Context) error {
	keys, err := p.List(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := p.db.Delete(p.makeKey(k), pebble.Sync); err != nil {
			return err
		}
	}
	return nil
}

func (p *PebbleStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return rtmaerr.ErrStoreClosed
	}
	p.closed = true
	return p.db.Close()
}
