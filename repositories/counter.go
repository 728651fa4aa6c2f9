package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const counterFileName = "upload_count.json"

// counterDocument is the on-disk shape of the counter store.
type counterDocument struct {
	Count int `json:"count"`
}

// CounterRepository persists the total number of successful uploads.
// It is written synchronously after every success, so the persisted value
// never overcounts; a crash loses at most the in-flight item.
type CounterRepository struct {
	path  string
	log   *slog.Logger
	count int
}

func NewCounterRepository(dataDir string, log *slog.Logger) *CounterRepository {
	return &CounterRepository{
		path: filepath.Join(dataDir, counterFileName),
		log:  log,
	}
}

// Load reads the persisted count. Any failure leaves the count at zero and
// is logged, never fatal.
func (r *CounterRepository) Load() {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.log.Warn("counter file unreadable, starting at 0", "path", r.path, "error", err)
		}
		return
	}

	var doc counterDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		r.log.Warn("counter file corrupt, starting at 0", "path", r.path, "error", err)
		return
	}
	if doc.Count < 0 {
		r.log.Warn("negative persisted count, starting at 0", "path", r.path, "count", doc.Count)
		return
	}
	r.count = doc.Count
}

func (r *CounterRepository) Count() int {
	return r.count
}

func (r *CounterRepository) Increment() {
	r.count++
}

// Save writes the current count in one pass.
func (r *CounterRepository) Save() error {
	data, err := json.Marshal(counterDocument{Count: r.count})
	if err != nil {
		return fmt.Errorf("encoding counter: %w", err)
	}
	return writeFileAtomic(r.path, data)
}
