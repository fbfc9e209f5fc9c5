package proc

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/leeineian/radiobox/sys"
	"github.com/samber/lo"
)

var (
	ErrCatalogIO      = errors.New("catalog io error")
	ErrEmptyCatalog   = errors.New("catalog is empty")
	ErrDuplicateTrack = errors.New("track already exists")
	ErrTrackNotFound  = errors.New("track not found")
)

// Catalog is the ordered list of playable file names in the track directory
// plus the cursor pointing at the track that is (or is about to be) playing.
type Catalog struct {
	mu    sync.RWMutex
	dir   string
	names []string
	index int
	// fresh means the track at index has not been handed out yet, so the
	// next advance returns it instead of moving on.
	fresh bool
	rng   *rand.Rand
}

func NewCatalog(dir string, rng *rand.Rand) *Catalog {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Catalog{dir: dir, rng: rng, fresh: true}
}

func (c *Catalog) Dir() string {
	return c.dir
}

// Path returns the on-disk location of a catalog entry.
func (c *Catalog) Path(name string) string {
	return filepath.Join(c.dir, name)
}

// ListTracks returns the regular files in dir in directory order.
func ListTracks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogIO, err)
	}
	names := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return e.Name(), !e.IsDir()
	})
	return names, nil
}

// Load replaces the sequence with the directory contents and resets the
// cursor. On error the catalog is left untouched.
func (c *Catalog) Load() error {
	names, err := ListTracks(c.dir)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = names
	c.index = 0
	c.fresh = true
	return nil
}

// Shuffle permutes the sequence and rewinds the cursor.
func (c *Catalog) Shuffle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shuffleLocked()
	c.index = 0
	c.fresh = true
}

func (c *Catalog) shuffleLocked() {
	c.rng.Shuffle(len(c.names), func(i, j int) {
		c.names[i], c.names[j] = c.names[j], c.names[i]
	})
}

func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.names)
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}

func (c *Catalog) Index() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index
}

func (c *Catalog) Contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.names, name)
}

// Current returns the entry under the cursor.
func (c *Catalog) Current() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.names) == 0 {
		return "", false
	}
	return c.names[c.index], true
}

// Next moves the cursor forward and returns the entry it lands on. When the
// move would wrap to 0 the directory is reloaded and shuffled first; a failed
// reload keeps the old entries, reshuffled.
func (c *Catalog) Next() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.names) == 0 {
		return "", ErrEmptyCatalog
	}
	if c.fresh {
		c.fresh = false
		c.index = min(c.index, len(c.names)-1)
		return c.names[c.index], nil
	}

	next := (c.index + 1) % len(c.names)
	if next == 0 {
		if names, err := ListTracks(c.dir); err != nil {
			sys.LogCatalog("Reload failed, reshuffling the current list: %v", err)
		} else {
			c.names = names
		}
		if len(c.names) == 0 {
			c.index = 0
			c.fresh = true
			return "", ErrEmptyCatalog
		}
		c.shuffleLocked()
		sys.LogCatalog("Reshuffled %d tracks", len(c.names))
	}
	c.index = next
	return c.names[c.index], nil
}

// Back rewinds the cursor by two so the following Next lands one track
// before the current one.
func (c *Catalog) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.names)
	if n == 0 {
		return
	}
	c.index = ((c.index-2)%n + n) % n
	c.fresh = false
}

// Add inserts name so that it is the next entry handed out: right after the
// cursor, or in front of the pending entry when the cursor has not been
// handed out yet.
func (c *Catalog) Add(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.Contains(c.names, name) {
		return fmt.Errorf("%w: %s", ErrDuplicateTrack, name)
	}
	if len(c.names) == 0 {
		c.names = []string{name}
		c.index = 0
		c.fresh = true
		return nil
	}
	at := c.index + 1
	if c.fresh {
		at = c.index
	}
	c.names = slices.Insert(c.names, at, name)
	return nil
}

// Remove deletes the first exact match. Removing the entry under the cursor
// leaves the cursor on its successor, which the next advance returns.
func (c *Catalog) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.Index(c.names, name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, name)
	}
	c.names = slices.Delete(c.names, i, i+1)

	switch {
	case len(c.names) == 0:
		c.index = 0
		c.fresh = true
	case i < c.index:
		c.index--
	case i == c.index:
		if c.index >= len(c.names) {
			// last entry: the next advance wraps
			c.index = len(c.names) - 1
			c.fresh = false
		} else {
			c.fresh = true
		}
	}
	return nil
}
