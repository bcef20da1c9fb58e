package vault

import (
	"regexp"
	"strings"
	"sync"
)

// Vault handles all file operations under a markdown vault directory
type Vault struct {
	basePath string
	logLock  sync.Mutex // Protects digest log JSONL writes
}

// NewVault creates a new Vault instance
func NewVault(basePath string) *Vault {
	return &Vault{basePath: basePath}
}

// BasePath returns the vault base path
func (v *Vault) BasePath() string {
	return v.basePath
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRuns   = regexp.MustCompile(`-+`)
)

// slugify converts a name to a filename-safe slug
func slugify(s string) string {
	s = strings.ToLower(s)

	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")

	s = nonSlugChars.ReplaceAllString(s, "")
	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}

	if s == "" {
		s = "actor"
	}

	return s
}
