package vault

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"
)

// DigestLog is one line of the digest history
type DigestLog struct {
	TS          string `json:"ts"`
	Actor       string `json:"actor"`
	Week        string `json:"week"`
	Path        string `json:"path"`
	Reflections int    `json:"reflections"`
}

// DigestLogPath is the vault-relative path of the digest history
var DigestLogPath = filepath.Join("Digests", "digests.jsonl")

// LogDigest appends an entry to the digest history
func (v *Vault) LogDigest(entry DigestLog) error {
	v.logLock.Lock()
	defer v.logLock.Unlock()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling digest log: %w", err)
	}

	if err := AppendLine(filepath.Join(v.basePath, DigestLogPath), line); err != nil {
		return fmt.Errorf("appending digest log: %w", err)
	}

	return nil
}

// NewDigestLog creates a log entry for a written digest
func NewDigestLog(d Digest, relPath string) DigestLog {
	entry := DigestLog{
		TS:    time.Now().UTC().Format(time.RFC3339),
		Actor: d.Actor,
		Week:  d.Week,
		Path:  relPath,
	}
	if d.Summary != nil {
		entry.Reflections = d.Summary.TotalReflections
	}
	return entry
}
