package msglog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pitt-rnel/rtma/internal/wire"
)

// Controller owns the active Store and implements the SAVE_MESSAGE_LOG
// control-message family: SAVE_MESSAGE_LOG opens a named backend and
// starts recording, PAUSE_/RESUME_MESSAGE_LOGGING gate Record without
// closing the backend, RESET_MESSAGE_LOG clears it, and DUMP_MESSAGE_LOG
// replays everything currently stored. It starts with an in-memory store
// so recording is always possible even before SAVE_MESSAGE_LOG arrives.
type Controller struct {
	mu      sync.Mutex
	store   Store
	pathname string
	paused  bool
	seq     atomic.Uint64
}

// NewController returns a Controller backed by a fresh MemoryStore.
func NewController() *Controller {
	return &Controller{store: NewMemoryStore()}
}

// Save records one frame. A no-op while paused.
func (c *Controller) Save(ctx context.Context, hdr wire.Header, payload []byte) error {
	c.mu.Lock()
	store, paused := c.store, c.paused
	c.mu.Unlock()
	if paused {
		return nil
	}

	seq := c.seq.Add(1)
	rec := Record{
		Seq:        seq,
		LoggedAt:   time.Now(),
		MsgType:    hdr.MsgType,
		SrcModID:   hdr.SrcModID,
		SrcHostID:  hdr.SrcHostID,
		DestModID:  hdr.DestModID,
		DestHostID: hdr.DestHostID,
		Header:     hdr,
		Payload:    payload,
	}
	return store.Save(ctx, formatSeq(seq), rec)
}

// OpenLog implements SAVE_MESSAGE_LOG: pathname selects the backend by
// scheme ("redis://host:port" for Redis, always database 0; anything else is a Pebble
// directory path, empty reopens the in-memory store) and recording
// resumes unpaused.
func (c *Controller) OpenLog(pathname string) error {
	store, err := openStore(pathname)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		_ = c.store.Close()
	}
	c.store = store
	c.pathname = pathname
	c.paused = false
	return nil
}

func openStore(pathname string) (Store, error) {
	switch {
	case pathname == "":
		return NewMemoryStore(), nil
	case strings.HasPrefix(pathname, "redis://"):
		addr := strings.TrimPrefix(pathname, "redis://")
		return NewRedisStore(RedisStoreConfig{Addr: addr})
	default:
		return OpenPebbleStore(pathname)
	}
}

// Pause implements PAUSE_MESSAGE_LOGGING.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

// Resume implements RESUME_MESSAGE_LOGGING.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
}

// Reset implements RESET_MESSAGE_LOG: the backend is kept open but
// emptied.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	store := c.store
	c.mu.Unlock()
	return store.Reset(ctx)
}

// Dump implements DUMP_MESSAGE_LOG: returns every stored record in
// insertion order.
func (c *Controller) Dump(ctx context.Context) ([]Record, error) {
	c.mu.Lock()
	store := c.store
	c.mu.Unlock()

	keys, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	recs := make([]Record, 0, len(keys))
	for _, k := range keys {
		rec, err := store.Load(ctx, k)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Pathname returns the backend identifier given to the last OpenLog call.
func (c *Controller) Pathname() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pathname
}

// Close releases the active backend.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func formatSeq(seq uint64) string {
	return fmt.Sprintf("%020d", seq)
}
