// Package version reports the running build and checks GitHub for a
// newer release. Results are cached on disk so the startup check costs
// at most one request per day.
package version

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Version is stamped by release builds via -ldflags. Source builds
// report devel and skip the update check.
var Version = "devel"

// releasesURL is a var so tests can point Check at a local server.
var releasesURL = "https://api.github.com/repos/arbordev/arbor/releases/latest"

// configDir is swapped in tests to keep the cache out of the real home.
var configDir = os.UserConfigDir

const cacheMaxAge = 24 * time.Hour

// UpdateAvailableMsg is delivered to the program when a newer release
// exists.
type UpdateAvailableMsg struct {
	CurrentVersion string
	LatestVersion  string
	ReleaseURL     string
	UpdateCommand  string
}

// CheckResult is the outcome of one release lookup.
type CheckResult struct {
	CurrentVersion string
	LatestVersion  string
	ReleaseURL     string
	HasUpdate      bool
	Error          error
}

// release is the subset of the GitHub payload the check reads.
type release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// CacheEntry records one completed check.
type CacheEntry struct {
	CurrentVersion string    `json:"current_version"`
	LatestVersion  string    `json:"latest_version"`
	HasUpdate      bool      `json:"has_update"`
	CheckedAt      time.Time `json:"checked_at"`
}

// Check asks GitHub for the latest release tag. Development builds
// return an empty result without touching the network.
func Check(current string) CheckResult {
	if isDevel(current) {
		return CheckResult{CurrentVersion: current}
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(releasesURL)
	if err != nil {
		return CheckResult{CurrentVersion: current, Error: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return CheckResult{CurrentVersion: current, Error: fmt.Errorf("release lookup: %s", resp.Status)}
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return CheckResult{CurrentVersion: current, Error: fmt.Errorf("release lookup: %w", err)}
	}

	return CheckResult{
		CurrentVersion: current,
		LatestVersion:  rel.TagName,
		ReleaseURL:     rel.HTMLURL,
		HasUpdate:      compareVersions(rel.TagName, current) > 0,
	}
}

// CheckAsync returns a command that resolves the update status in the
// background, consulting the cache first. It yields UpdateAvailableMsg
// or nil.
func CheckAsync(current string) tea.Cmd {
	return func() tea.Msg {
		if cached, err := LoadCache(); err == nil && IsCacheValid(cached, current) {
			if cached.HasUpdate {
				return updateMsg(current, cached.LatestVersion, "")
			}
			return nil
		}

		result := Check(current)
		if result.Error != nil {
			// Network failures are not cached, so the next start retries.
			return nil
		}
		_ = SaveCache(&CacheEntry{
			CurrentVersion: current,
			LatestVersion:  result.LatestVersion,
			HasUpdate:      result.HasUpdate,
			CheckedAt:      time.Now(),
		})
		if result.HasUpdate {
			return updateMsg(current, result.LatestVersion, result.ReleaseURL)
		}
		return nil
	}
}

func updateMsg(current, latest, url string) UpdateAvailableMsg {
	return UpdateAvailableMsg{
		CurrentVersion: current,
		LatestVersion:  latest,
		ReleaseURL:     url,
		UpdateCommand:  "go install github.com/arbordev/arbor/cmd/arbor@" + latest,
	}
}

func isDevel(v string) bool {
	return v == "" || v == "unknown" || strings.HasPrefix(v, "devel")
}

// compareVersions orders two dotted tags numerically, ignoring a
// leading v. It returns >0 when a is newer, 0 on equal, <0 when older.
// Parts that fail to parse compare as strings so odd tags stay stable.
func compareVersions(a, b string) int {
	pa := strings.Split(strings.TrimPrefix(a, "v"), ".")
	pb := strings.Split(strings.TrimPrefix(b, "v"), ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		sa, sb := "0", "0"
		if i < len(pa) {
			sa = pa[i]
		}
		if i < len(pb) {
			sb = pb[i]
		}
		na, errA := strconv.Atoi(sa)
		nb, errB := strconv.Atoi(sb)
		if errA != nil || errB != nil {
			if c := strings.Compare(sa, sb); c != 0 {
				return c
			}
			continue
		}
		if na != nb {
			return na - nb
		}
	}
	return 0
}

func cachePath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "arbor", "version-check.json"), nil
}

// LoadCache reads the last completed check.
func LoadCache() (*CacheEntry, error) {
	path, err := cachePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// SaveCache writes the check result, creating the config directory when
// missing.
func SaveCache(entry *CacheEntry) error {
	path, err := cachePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// IsCacheValid reports whether the entry is fresh enough to reuse and
// was produced for the same running version.
func IsCacheValid(entry *CacheEntry, current string) bool {
	if entry == nil || entry.CurrentVersion != current {
		return false
	}
	return time.Since(entry.CheckedAt) < cacheMaxAge
}
