package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"vrc-uploader/domain"
)

const historyFileName = "upload_history.json"

// HistoryRepository is the durable record of which avatars were already
// uploaded and when. On disk it is a JSON object mapping avatar id to an
// append-only array of RFC3339 timestamps. The worker owns it exclusively
// while a run is active.
type HistoryRepository struct {
	path    string
	log     *slog.Logger
	entries map[domain.AvatarID][]time.Time
}

func NewHistoryRepository(dataDir string, log *slog.Logger) *HistoryRepository {
	return &HistoryRepository{
		path:    filepath.Join(dataDir, historyFileName),
		log:     log,
		entries: make(map[domain.AvatarID][]time.Time),
	}
}

// Load reads the history file into memory. A missing, corrupt or unreadable
// file is never fatal: the repository starts empty and the failure is logged.
func (r *HistoryRepository) Load() {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.log.Warn("history file unreadable, starting empty", "path", r.path, "error", err)
		}
		return
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		r.log.Warn("history file corrupt, starting empty", "path", r.path, "error", err)
		return
	}

	for id, stamps := range raw {
		for _, s := range stamps {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				r.log.Warn("skipping unparsable history timestamp", "avatar_id", id, "value", s)
				continue
			}
			r.entries[domain.AvatarID(id)] = append(r.entries[domain.AvatarID(id)], t)
		}
	}
}

// Contains reports whether the avatar was uploaded before.
func (r *HistoryRepository) Contains(id domain.AvatarID) bool {
	_, ok := r.entries[id]
	return ok
}

// Record appends one upload timestamp for the avatar. In-memory only;
// call Save to persist.
func (r *HistoryRepository) Record(id domain.AvatarID, at time.Time) {
	r.entries[id] = append(r.entries[id], at)
}

// Save writes the full history document. The write goes to a temp file first
// so a crash mid-write cannot destroy the previous version.
func (r *HistoryRepository) Save() error {
	raw := make(map[string][]string, len(r.entries))
	for id, stamps := range r.entries {
		out := make([]string, 0, len(stamps))
		for _, t := range stamps {
			out = append(out, t.Format(time.RFC3339))
		}
		raw[string(id)] = out
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	return writeFileAtomic(r.path, data)
}

// All returns a copy of the mapping for read-only display.
func (r *HistoryRepository) All() map[domain.AvatarID][]time.Time {
	out := make(map[domain.AvatarID][]time.Time, len(r.entries))
	for id, stamps := range r.entries {
		cp := make([]time.Time, len(stamps))
		copy(cp, stamps)
		sort.Slice(cp, func(i, j int) bool { return cp[i].Before(cp[j]) })
		out[id] = cp
	}
	return out
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
