package vault

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrwolf/parami/internal/analytics"
)

const frontmatterSeparator = "---\n"

// Digest is a weekly reflection summary for one actor. A nil Summary renders
// as an empty week.
type Digest struct {
	Actor       string
	Week        string // ISO week, e.g. "2025-W10"
	GeneratedAt time.Time
	Summary     *analytics.Summary
}

// WeekLabel returns the ISO week label of t
func WeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// DigestPath returns the vault-relative path of an actor's weekly digest
func DigestPath(actor, week string) string {
	return filepath.Join("Digests", "Weekly", fmt.Sprintf("%s-%s.md", week, slugify(actor)))
}

// WriteDigest renders the digest as markdown with YAML frontmatter and
// returns its vault-relative path. An existing digest for the week is replaced.
func (v *Vault) WriteDigest(d Digest) (string, error) {
	relPath := DigestPath(d.Actor, d.Week)

	content, err := renderDigest(d)
	if err != nil {
		return "", err
	}

	if err := WriteFileAtomic(filepath.Join(v.basePath, relPath), []byte(content)); err != nil {
		return "", fmt.Errorf("writing digest: %w", err)
	}

	if err := v.LogDigest(NewDigestLog(d, relPath)); err != nil {
		return relPath, err
	}

	return relPath, nil
}

// ReadDigest returns the digest markdown, or "" if it has not been written
func (v *Vault) ReadDigest(actor, week string) (string, error) {
	fullPath := filepath.Join(v.basePath, DigestPath(actor, week))
	if !FileExists(fullPath) {
		return "", nil
	}
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("reading digest: %w", err)
	}
	return string(content), nil
}

// ParseFrontmatter splits a markdown document into its YAML metadata and body
func ParseFrontmatter(content string) (map[string]any, string, error) {
	if !strings.HasPrefix(content, frontmatterSeparator) {
		return map[string]any{}, content, nil
	}
	rest := strings.TrimPrefix(content, frontmatterSeparator)
	idx := strings.Index(rest, "\n"+frontmatterSeparator)
	if idx < 0 {
		return nil, "", fmt.Errorf("invalid frontmatter: missing closing separator")
	}

	meta := map[string]any{}
	if err := yaml.Unmarshal([]byte(rest[:idx]), &meta); err != nil {
		return nil, "", fmt.Errorf("unmarshal frontmatter: %w", err)
	}
	return meta, rest[idx+len("\n"+frontmatterSeparator):], nil
}

func renderDigest(d Digest) (string, error) {
	meta := digestFrontmatter(d)
	raw, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterSeparator)
	buf.Write(raw)
	buf.WriteString(frontmatterSeparator)
	buf.WriteString("\n")
	buf.WriteString(digestBody(d))
	return buf.String(), nil
}

func digestFrontmatter(d Digest) map[string]any {
	meta := map[string]any{
		"id":          fmt.Sprintf("digest-%s-%s", d.Week, slugify(d.Actor)),
		"type":        "weekly-digest",
		"actor":       d.Actor,
		"week":        d.Week,
		"generated":   d.GeneratedAt.UTC().Format(time.RFC3339),
		"reflections": 0,
	}

	s := d.Summary
	if s == nil {
		return meta
	}

	meta["reflections"] = s.TotalReflections
	meta["first_date"] = s.FirstDate
	meta["last_date"] = s.LastDate
	meta["dominant_emotion"] = string(s.DominantEmotion)
	meta["resilience_trend"] = string(s.ResilienceTrend)
	meta["second_arrow_trend"] = string(s.SecondArrow.Trend)
	meta["cultivation_ratio"] = round2(s.Cultivation.Ratio)
	if s.Patterns.Dominant != nil {
		meta["dominant_pattern"] = string(*s.Patterns.Dominant)
	}
	return meta
}

func digestBody(d Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Weekly digest %s\n\n", d.Week)

	s := d.Summary
	if s == nil {
		b.WriteString("No reflections recorded yet.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%d reflections from %s to %s.\n\n", s.TotalReflections, s.FirstDate, s.LastDate)

	b.WriteString("## Emotional states\n\n")
	for _, c := range s.EmotionCounts {
		fmt.Fprintf(&b, "- %s: %d\n", c.State, c.Count)
	}
	fmt.Fprintf(&b, "\nResilience trend: %s\n\n", s.ResilienceTrend)

	b.WriteString("## Cultivation\n\n")
	fmt.Fprintf(&b, "- Wholesome seeds: %d (%.2f per day)\n", s.Cultivation.WholesomeSeedsCount, s.Cultivation.AverageWholesomePerDay)
	fmt.Fprintf(&b, "- Unwholesome seeds: %d (%.2f per day)\n", s.Cultivation.UnwholesomeSeedsCount, s.Cultivation.AverageUnwholesomePerDay)
	fmt.Fprintf(&b, "- Ratio: %.2f\n\n", s.Cultivation.Ratio)

	b.WriteString("## Patterns\n\n")
	fmt.Fprintf(&b, "- Form: %.1f%%\n", s.Patterns.FormPercent)
	fmt.Fprintf(&b, "- Speech: %.1f%%\n", s.Patterns.SpeechPercent)
	fmt.Fprintf(&b, "- Mind: %.1f%%\n\n", s.Patterns.MindPercent)

	b.WriteString("## Second arrow\n\n")
	fmt.Fprintf(&b, "%d occurrences (%.1f%%), trend %s\n", s.SecondArrow.Occurrences, s.SecondArrow.FrequencyPercent, s.SecondArrow.Trend)
	return b.String()
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
