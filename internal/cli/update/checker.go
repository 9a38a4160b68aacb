package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIURL      = "https://api.github.com/repos/diatrack-dev/diatrack/releases/latest"
	defaultDownloadURL = "https://github.com/diatrack-dev/diatrack/releases/download"
	userAgent          = "diatrack-cli"
)

// Release is the slice of the GitHub release payload we care about
type Release struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

// Checker resolves the latest published release. The URLs are fields
// so tests can point it at a local server.
type Checker struct {
	APIURL      string
	DownloadURL string
	Client      *http.Client
}

// NewChecker returns a checker against the official release feed
func NewChecker() *Checker {
	return &Checker{
		APIURL:      defaultAPIURL,
		DownloadURL: defaultDownloadURL,
		Client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Latest fetches the most recent release
func (ck *Checker) Latest() (*Release, error) {
	req, err := http.NewRequest("GET", ck.APIURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := ck.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release feed returned status %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release feed: %w", err)
	}
	if release.TagName == "" {
		return nil, fmt.Errorf("release feed returned no tag")
	}
	return &release, nil
}

// CheckForUpdate reports whether a release newer than currentVersion exists
func (ck *Checker) CheckForUpdate(currentVersion string) (bool, string, error) {
	release, err := ck.Latest()
	if err != nil {
		return false, "", err
	}
	return isNewer(currentVersion, release.TagName), release.TagName, nil
}

// isNewer compares two semver-ish tags numerically. Development builds
// ("dev") always count as outdated; unparsable tags fall back to
// plain inequality.
func isNewer(current, latest string) bool {
	current = strings.TrimPrefix(current, "v")
	latest = strings.TrimPrefix(latest, "v")

	if current == "dev" {
		return true
	}

	cur, curOK := parseVersion(current)
	lat, latOK := parseVersion(latest)
	if !curOK || !latOK {
		return current != latest
	}

	for i := 0; i < 3; i++ {
		if lat[i] != cur[i] {
			return lat[i] > cur[i]
		}
	}
	return false
}

func parseVersion(v string) ([3]int, bool) {
	var out [3]int
	parts := strings.SplitN(v, ".", 3)
	if len(parts) != 3 {
		return out, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return out, false
		}
		out[i] = n
	}
	return out, true
}

// PrintUpdateNotification nudges the user on stderr when a newer
// release exists. Failures are swallowed: the check is advisory.
func PrintUpdateNotification(currentVersion string) {
	available, latest, err := NewChecker().CheckForUpdate(currentVersion)
	if err != nil || !available {
		return
	}
	fmt.Fprintf(os.Stderr, "New version %s -> %s. Run: diatrack update\n\n", currentVersion, latest)
}
