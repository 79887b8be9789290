package pager

import "fmt"

// Settings holds paging cache configuration.
type Settings struct {
	// MaxItems is the memory budget in loaded items.
	MaxItems int `yaml:"max_items"`

	// NumPrecedingPreloadedPages is how many pages before the position stay loaded.
	NumPrecedingPreloadedPages int `yaml:"preceding_pages"`

	// NumFollowingPreloadedPages is how many pages after the position stay loaded.
	NumFollowingPreloadedPages int `yaml:"following_pages"`

	// MaxBatchSize caps the number of items per fetch or release call.
	MaxBatchSize int `yaml:"max_batch_size"`

	// MaxConcurrentBatches caps the batches in flight while loading one page.
	MaxConcurrentBatches int `yaml:"max_concurrent_batches"`

	// LoadMetadata also loads item metadata; a page is then resident only
	// when payload and metadata of all its items are loaded.
	LoadMetadata bool `yaml:"load_metadata"`
}

// DefaultSettings returns the default cache settings.
func DefaultSettings() Settings {
	return Settings{
		MaxItems:                   1000,
		NumPrecedingPreloadedPages: 1,
		NumFollowingPreloadedPages: 2,
		MaxBatchSize:               64,
		MaxConcurrentBatches:       4,
	}
}

// Validate checks the settings for values the cache cannot work with.
func (s Settings) Validate() error {
	if s.MaxItems < 0 {
		return fmt.Errorf("max_items must be >= 0 (got %d)", s.MaxItems)
	}
	if s.NumPrecedingPreloadedPages < 0 {
		return fmt.Errorf("preceding_pages must be >= 0 (got %d)", s.NumPrecedingPreloadedPages)
	}
	if s.NumFollowingPreloadedPages < 0 {
		return fmt.Errorf("following_pages must be >= 0 (got %d)", s.NumFollowingPreloadedPages)
	}
	if s.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be > 0 (got %d)", s.MaxBatchSize)
	}
	if s.MaxConcurrentBatches <= 0 {
		return fmt.Errorf("max_concurrent_batches must be > 0 (got %d)", s.MaxConcurrentBatches)
	}
	return nil
}
