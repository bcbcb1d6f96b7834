package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog/log"
	"github.com/tclemos/map-bench/benchmark"
)

var resultPrefix = []byte("result/")

// Pebble is an append-only result log. Each record is stored under
// result/<big-endian sequence> so iteration returns them in append order.
type Pebble struct {
	mu    sync.Mutex
	db    *pebble.DB
	cache *pebble.Cache
	next  uint64
}

// OpenPebble opens or creates the result log at path
func OpenPebble(path string, blockCacheSize int64) (*Pebble, error) {
	opts := &pebble.Options{}

	var cache *pebble.Cache
	if blockCacheSize >= 0 {
		cache = pebble.NewCache(blockCacheSize)
		opts.Cache = cache
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		if cache != nil {
			cache.Unref()
		}
		return nil, benchmark.PersistenceError(err, "open "+path)
	}

	p := &Pebble{db: db, cache: cache}
	if p.next, err = p.lastSequence(); err != nil {
		p.Close()
		return nil, benchmark.PersistenceError(err, "scan "+path)
	}

	log.Info().
		Str("path", path).
		Int64("block_cache_size", blockCacheSize).
		Uint64("records", p.next).
		Msg("Opened results store")
	return p, nil
}

func (p *Pebble) lastSequence() (uint64, error) {
	it, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: resultPrefix,
		UpperBound: prefixEnd(resultPrefix),
	})
	if err != nil {
		return 0, err
	}
	defer it.Close()

	if !it.Last() {
		return 0, it.Error()
	}
	return binary.BigEndian.Uint64(it.Key()[len(resultPrefix):]) + 1, nil
}

// Append implements benchmark.Store. The records of one call are committed
// in a single synced batch.
func (p *Pebble) Append(ctx context.Context, records []benchmark.ResultRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return benchmark.PersistenceError(pebble.ErrClosed, "append")
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	seq := p.next
	for _, r := range records {
		value, err := json.Marshal(r)
		if err != nil {
			return errors.Wrapf(err, "encoding %s record", r.Library)
		}
		if err := batch.Set(recordKey(seq), value, nil); err != nil {
			return benchmark.PersistenceError(err, "append")
		}
		seq++
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return benchmark.PersistenceError(err, "append")
	}
	p.next = seq
	return nil
}

// List implements benchmark.Store
func (p *Pebble) List(ctx context.Context) ([]benchmark.ResultRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil, benchmark.PersistenceError(pebble.ErrClosed, "list")
	}

	it, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: resultPrefix,
		UpperBound: prefixEnd(resultPrefix),
	})
	if err != nil {
		return nil, benchmark.PersistenceError(err, "list")
	}
	defer it.Close()

	records := make([]benchmark.ResultRecord, 0, p.next)
	for valid := it.First(); valid; valid = it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var r benchmark.ResultRecord
		if err := json.Unmarshal(it.Value(), &r); err != nil {
			return nil, errors.Wrapf(err, "decoding record %x", it.Key())
		}
		records = append(records, r)
	}
	if err := it.Error(); err != nil {
		return nil, benchmark.PersistenceError(err, "list")
	}
	return records, nil
}

// Close flushes and closes the database
func (p *Pebble) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.db != nil {
		m := p.db.Metrics()
		log.Debug().
			Uint64("memtable_size", m.MemTable.Size).
			Int64("compactions", m.Compact.Count).
			Msg("Closing results store")
		err = p.db.Close()
		p.db = nil
	}

	if p.cache != nil {
		p.cache.Unref()
		p.cache = nil
	}
	return err
}

func recordKey(seq uint64) []byte {
	key := make([]byte, len(resultPrefix)+8)
	copy(key, resultPrefix)
	binary.BigEndian.PutUint64(key[len(resultPrefix):], seq)
	return key
}

func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	end[len(end)-1]++
	return end
}
