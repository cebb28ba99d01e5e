package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"opspulse/internal/errors"
)

var (
	monthDirPattern = regexp.MustCompile(`^\d{6}$`)
	archivePattern  = regexp.MustCompile(`^(\d{8})\.(7z|zip)$`)
)

// Candidate is one discoverable archive: a calendar date and the bundle path.
type Candidate struct {
	Date time.Time
	Path string
}

// DiscoverArchives walks the two-level monthly layout
// <root>/<YYYYMM>/<YYYYMMDD>.<ext> and returns candidates sorted ascending by
// date. Chronological order is required because comparisons read the
// preceding calendar date's facts. Files whose date does not belong to their
// month folder are ignored.
func DiscoverArchives(root string) ([]Candidate, error) {
	months, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive root %s: %w", root, err)
	}

	var candidates []Candidate
	for _, month := range months {
		if !month.IsDir() || !monthDirPattern.MatchString(month.Name()) {
			continue
		}

		entries, err := os.ReadDir(filepath.Join(root, month.Name()))
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			m := archivePattern.FindStringSubmatch(entry.Name())
			if m == nil {
				continue
			}
			date, err := time.ParseInLocation("20060102", m[1], time.UTC)
			if err != nil {
				continue
			}
			if date.Format("200601") != month.Name() {
				continue
			}
			candidates = append(candidates, Candidate{
				Date: date,
				Path: filepath.Join(root, month.Name(), entry.Name()),
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Date.Before(candidates[j].Date)
	})

	return candidates, nil
}

// FindArchive locates the archive for one specific date, used by the manual
// run-for-date entry point. Returns ErrArchiveNotFound when no bundle exists.
func FindArchive(root string, date time.Time) (string, error) {
	monthDir := filepath.Join(root, date.Format("200601"))
	for _, ext := range []string{"7z", "zip"} {
		path := filepath.Join(monthDir, fmt.Sprintf("%s.%s", date.Format("20060102"), ext))
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no archive for %s under %s", errors.ErrArchiveNotFound, date.Format("20060102"), monthDir)
}
