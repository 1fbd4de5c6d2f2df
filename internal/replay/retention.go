package replay

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"driftpursuit/corridor/internal/logging"
)

// RetentionPolicy bounds how many bundles stay on disk. Zero disables a limit.
type RetentionPolicy struct {
	MaxBundles int
	MaxAge     time.Duration
}

// StorageStats summarises the bundles left after the last sweep.
type StorageStats struct {
	Bundles   int
	Bytes     int64
	Removed   int
	LastSweep time.Time
}

// Cleaner prunes old bundles under a replay root.
type Cleaner struct {
	mu     sync.RWMutex
	dir    string
	policy RetentionPolicy
	log    *logging.Logger
	now    func() time.Time
	stats  StorageStats
}

// NewCleaner constructs a cleaner for the provided replay root.
func NewCleaner(dir string, policy RetentionPolicy, logger *logging.Logger) *Cleaner {
	if logger == nil {
		logger = logging.L()
	}
	return &Cleaner{dir: dir, policy: policy, log: logger, now: time.Now}
}

// Run sweeps immediately and then on every interval until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context, interval time.Duration) {
	if c == nil || ctx == nil {
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	c.Sweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Stats returns the statistics recorded by the last sweep.
func (c *Cleaner) Stats() StorageStats {
	if c == nil {
		return StorageStats{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

type bundleDir struct {
	path    string
	size    int64
	modTime time.Time
}

// Sweep applies the retention policy once and returns the resulting statistics.
func (c *Cleaner) Sweep() StorageStats {
	if c == nil || strings.TrimSpace(c.dir) == "" {
		return StorageStats{}
	}
	now := c.now()
	stats := StorageStats{LastSweep: now}
	bundles, err := c.collect()
	if err != nil {
		c.log.Warn("replay retention scan failed", logging.Error(err), logging.String("directory", c.dir))
		return stats
	}

	kept := 0
	for _, bundle := range bundles {
		reason := c.removalReason(bundle, now, kept)
		if reason != "" {
			err := os.RemoveAll(bundle.path)
			if err == nil {
				stats.Removed++
				c.log.Info("replay bundle pruned", logging.String("bundle", bundle.path), logging.String("reason", reason))
				continue
			}
			c.log.Warn("replay bundle removal failed", logging.Error(err), logging.String("bundle", bundle.path))
		}
		kept++
		stats.Bundles++
		stats.Bytes += bundle.size
	}

	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
	return stats
}

func (c *Cleaner) collect() ([]bundleDir, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}
	var bundles []bundleDir
	for _, entry := range entries {
		//1.- Only directories holding a manifest are bundles; anything else is left alone.
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(c.dir, entry.Name())
		info, err := os.Stat(filepath.Join(path, manifestFile))
		if err != nil {
			continue
		}
		size, err := directorySize(path)
		if err != nil {
			c.log.Warn("replay retention size failed", logging.Error(err), logging.String("path", path))
			continue
		}
		bundles = append(bundles, bundleDir{path: path, size: size, modTime: info.ModTime()})
	}
	sort.Slice(bundles, func(i, j int) bool {
		if bundles[i].modTime.Equal(bundles[j].modTime) {
			return bundles[i].path > bundles[j].path
		}
		return bundles[i].modTime.After(bundles[j].modTime)
	})
	return bundles, nil
}

func (c *Cleaner) removalReason(bundle bundleDir, now time.Time, kept int) string {
	var reasons []string
	if c.policy.MaxAge > 0 && now.Sub(bundle.modTime) > c.policy.MaxAge {
		reasons = append(reasons, fmt.Sprintf("age>%s", c.policy.MaxAge))
	}
	if c.policy.MaxBundles > 0 && kept >= c.policy.MaxBundles {
		reasons = append(reasons, fmt.Sprintf("count>%d", c.policy.MaxBundles))
	}
	return strings.Join(reasons, ",")
}

func directorySize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
