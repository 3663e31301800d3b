// Package logos serves team logo images from disk through an in-memory cache.
package logos

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"hitrivals/schedule/internal/models"
	"hitrivals/schedule/internal/teams"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no asset exists for a team
var ErrNotFound = errors.New("logo not found")

type key struct {
	league models.League
	abbr   string
}

// Cache loads {dir}/{MLB|NBA}/{ABBR}.png on first use and keeps the bytes.
// Reads take a shared lock; a miss takes the exclusive lock to fill the entry.
type Cache struct {
	dir string

	mu      sync.RWMutex
	entries map[key][]byte
}

// NewCache creates a logo cache rooted at dir
func NewCache(dir string) *Cache {
	return &Cache{
		dir:     dir,
		entries: make(map[key][]byte),
	}
}

// Get returns the PNG bytes for abbr in league
func (c *Cache) Get(league models.League, abbr string) ([]byte, error) {
	k := key{league: league, abbr: strings.ToUpper(strings.TrimSpace(abbr))}
	if k.abbr == "" || strings.ContainsAny(k.abbr, `/\.`) {
		return nil, fmt.Errorf("%w: invalid abbreviation %q", ErrNotFound, abbr)
	}

	c.mu.RLock()
	data, ok := c.entries[k]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have filled it while we waited
	if data, ok := c.entries[k]; ok {
		return data, nil
	}

	data, err := os.ReadFile(c.path(k))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, league.AssetDir(), k.abbr)
		}
		return nil, fmt.Errorf("failed to read logo: %w", err)
	}

	c.entries[k] = data
	return data, nil
}

// Verify returns the league's abbreviations that have an asset on disk
func (c *Cache) Verify(league models.League) []string {
	var found, missing []string
	for _, abbr := range teams.Abbreviations(league) {
		if _, err := os.Stat(c.path(key{league: league, abbr: abbr})); err == nil {
			found = append(found, abbr)
		} else {
			missing = append(missing, abbr)
		}
	}

	if len(missing) > 0 {
		log.Warn().
			Str("league", league.String()).
			Strs("missing", missing).
			Msg("Team logos missing")
	}
	return found
}

// Len returns the number of cached logos
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) path(k key) string {
	return filepath.Join(c.dir, k.league.AssetDir(), k.abbr+".png")
}
