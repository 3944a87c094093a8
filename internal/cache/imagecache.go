package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"satellite-desktop/internal/utils/naming"
)

// PreviewCache provides disk-based caching of fetched satellite preview
// images so re-selecting a point does not hit the provider again.
// Cache persists across app restarts.
type PreviewCache struct {
	baseDir   string
	maxSize   int64 // Maximum cache size in bytes
	currSize  int64 // Current cache size (atomic)
	ttl       time.Duration
	mu        sync.RWMutex
	metadata  map[string]*EntryMetadata // Persistent metadata index
	evictChan chan struct{}
	done      chan struct{}
}

// EntryMetadata stores information about a cached preview image
type EntryMetadata struct {
	Key        string    `json:"key"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Zoom       int       `json:"zoom"`
	Size       int64     `json:"size"`
	AccessTime time.Time `json:"accessTime"`
	CreateTime time.Time `json:"createTime"`
}

// NewPreviewCache creates a new persistent preview cache.
// Layout: baseDir/{zoom}/{slug}.png with index baseDir/cache_index.json
func NewPreviewCache(baseDir string, maxSizeMB int, ttlDays int) (*PreviewCache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &PreviewCache{
		baseDir:   baseDir,
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		ttl:       time.Duration(ttlDays) * 24 * time.Hour,
		metadata:  make(map[string]*EntryMetadata),
		evictChan: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	if err := cache.loadMetadata(); err != nil {
		// Index missing or unreadable; start empty. Orphaned image
		// files are overwritten as points are re-fetched.
		cache.metadata = make(map[string]*EntryMetadata)
	}

	go cache.maintenanceWorker()

	return cache, nil
}

// Key builds the cache key for a coordinate at a zoom level.
func Key(lat, lng float64, zoom int) string {
	return naming.PointSlug(lat, lng, zoom)
}

// Get retrieves a cached preview image.
func (c *PreviewCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	meta, exists := c.metadata[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if c.ttl > 0 && time.Since(meta.CreateTime) > c.ttl {
		c.evictEntry(key, meta)
		return nil, false
	}

	data, err := os.ReadFile(c.buildFilePath(meta))
	if err != nil {
		// File missing - remove from metadata
		c.evictEntry(key, meta)
		return nil, false
	}

	c.mu.Lock()
	meta.AccessTime = time.Now()
	c.mu.Unlock()

	go c.saveMetadata()

	return data, true
}

// Set stores a preview image for a coordinate.
func (c *PreviewCache) Set(lat, lng float64, zoom int, data []byte) error {
	key := Key(lat, lng, zoom)
	size := int64(len(data))

	now := time.Now()
	meta := &EntryMetadata{
		Key:        key,
		Lat:        lat,
		Lng:        lng,
		Zoom:       zoom,
		Size:       size,
		AccessTime: now,
		CreateTime: now,
	}

	filePath := c.buildFilePath(meta)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	c.mu.Lock()
	if oldMeta, exists := c.metadata[key]; exists {
		atomic.AddInt64(&c.currSize, -oldMeta.Size)
	}
	c.metadata[key] = meta
	c.mu.Unlock()

	atomic.AddInt64(&c.currSize, size)

	if atomic.LoadInt64(&c.currSize) > c.maxSize {
		select {
		case c.evictChan <- struct{}{}:
		default:
		}
	}

	go c.saveMetadata()

	return nil
}

// buildFilePath creates the file path for a cached preview.
// Structure: {baseDir}/{zoom}/{slug}.png
func (c *PreviewCache) buildFilePath(meta *EntryMetadata) string {
	return filepath.Join(c.baseDir, fmt.Sprintf("%d", meta.Zoom), meta.Key+".png")
}

// evictEntry removes one cached image.
func (c *PreviewCache) evictEntry(key string, meta *EntryMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()

	os.Remove(c.buildFilePath(meta))
	delete(c.metadata, key)
	atomic.AddInt64(&c.currSize, -meta.Size)
}

// maintenanceWorker runs periodic cache maintenance.
func (c *PreviewCache) maintenanceWorker() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.evictChan:
			c.evictOldEntries()
		case <-ticker.C:
			c.evictExpiredEntries()
		case <-c.done:
			return
		}
	}
}

// evictOldEntries removes least recently used images when the cache is full.
func (c *PreviewCache) evictOldEntries() {
	c.mu.Lock()
	defer c.mu.Unlock()

	currSize := atomic.LoadInt64(&c.currSize)
	if currSize <= c.maxSize {
		return
	}

	// Target size: 80% of max to avoid thrashing
	targetSize := c.maxSize * 8 / 10

	entries := make([]*EntryMetadata, 0, len(c.metadata))
	for _, meta := range c.metadata {
		entries = append(entries, meta)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].AccessTime.Before(entries[j].AccessTime)
	})

	for _, meta := range entries {
		if currSize <= targetSize {
			break
		}
		os.Remove(c.buildFilePath(meta))
		delete(c.metadata, meta.Key)
		atomic.AddInt64(&c.currSize, -meta.Size)
		currSize -= meta.Size
	}

	c.persistMetadataLocked()
}

// evictExpiredEntries removes images that exceed the TTL.
func (c *PreviewCache) evictExpiredEntries() {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	evicted := 0
	for key, meta := range c.metadata {
		if now.Sub(meta.CreateTime) > c.ttl {
			os.Remove(c.buildFilePath(meta))
			delete(c.metadata, key)
			atomic.AddInt64(&c.currSize, -meta.Size)
			evicted++
		}
	}

	if evicted > 0 {
		c.persistMetadataLocked()
	}
}

// loadMetadata loads the metadata index from disk.
func (c *PreviewCache) loadMetadata() error {
	data, err := os.ReadFile(filepath.Join(c.baseDir, "cache_index.json"))
	if err != nil {
		return err
	}

	var metadata map[string]*EntryMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return fmt.Errorf("failed to parse cache index: %w", err)
	}

	c.metadata = metadata

	var totalSize int64
	for _, meta := range metadata {
		totalSize += meta.Size
	}
	atomic.StoreInt64(&c.currSize, totalSize)

	return nil
}

// saveMetadata saves the metadata index to disk.
func (c *PreviewCache) saveMetadata() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.persistMetadataLocked()
}

// persistMetadataLocked writes the index; callers hold at least a read lock.
func (c *PreviewCache) persistMetadataLocked() error {
	metaPath := filepath.Join(c.baseDir, "cache_index.json")

	data, err := json.MarshalIndent(c.metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache index: %w", err)
	}

	// Write to temp file first, then rename (atomic operation)
	tempPath := metaPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache index: %w", err)
	}
	if err := os.Rename(tempPath, metaPath); err != nil {
		return fmt.Errorf("failed to rename cache index: %w", err)
	}

	return nil
}

// Stats returns cache statistics.
func (c *PreviewCache) Stats() (entries int, sizeBytes int64, maxBytes int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.metadata), atomic.LoadInt64(&c.currSize), c.maxSize
}

// Clear removes all cached preview images.
func (c *PreviewCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, meta := range c.metadata {
		os.Remove(c.buildFilePath(meta))
	}
	c.metadata = make(map[string]*EntryMetadata)
	atomic.StoreInt64(&c.currSize, 0)

	return c.persistMetadataLocked()
}

// GetCachePath returns the base directory of the cache.
func (c *PreviewCache) GetCachePath() string {
	return c.baseDir
}

// Close stops background maintenance.
func (c *PreviewCache) Close() {
	close(c.done)
}
