package update

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// assetNames maps GOOS/GOARCH to the release asset published for it
var assetNames = map[string]string{
	"linux/amd64":   "diatrack-linux-amd64",
	"linux/arm64":   "diatrack-linux-arm64",
	"darwin/amd64":  "diatrack-darwin-amd64",
	"darwin/arm64":  "diatrack-darwin-arm64",
	"windows/amd64": "diatrack-windows-amd64.exe",
}

// SelfUpdate replaces the running binary with the latest release
func SelfUpdate(currentVersion string) error {
	ck := NewChecker()

	release, err := ck.Latest()
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}
	if !isNewer(currentVersion, release.TagName) {
		fmt.Printf("Already up to date (version %s)\n", currentVersion)
		return nil
	}

	asset, ok := assetNames[runtime.GOOS+"/"+runtime.GOARCH]
	if !ok {
		return fmt.Errorf("no release asset for %s/%s", runtime.GOOS, runtime.GOARCH)
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate current binary: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("failed to resolve current binary: %w", err)
	}

	fmt.Printf("Updating from %s to %s...\n", currentVersion, release.TagName)
	assetURL := fmt.Sprintf("%s/%s/%s", ck.DownloadURL, release.TagName, asset)

	// Stage next to the binary so the final rename stays on one filesystem
	staged, err := downloadAsset(assetURL, filepath.Dir(execPath))
	if err != nil {
		return fmt.Errorf("failed to download update: %w", err)
	}
	defer os.Remove(staged)

	fmt.Println("Verifying checksum...")
	expected, err := fetchChecksum(assetURL + ".sha256")
	if err != nil {
		return fmt.Errorf("failed to fetch checksum: %w", err)
	}
	if err := verifyChecksum(staged, expected); err != nil {
		return err
	}

	fmt.Println("Installing new version...")
	if err := install(staged, execPath); err != nil {
		return fmt.Errorf("failed to install update: %w", err)
	}

	fmt.Printf("\n✓ Successfully updated to version %s!\n", release.TagName)
	return nil
}

// downloadAsset streams the release asset into a staging file in dir
func downloadAsset(url, dir string) (string, error) {
	client := &http.Client{Timeout: 5 * time.Minute}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	staged, err := os.CreateTemp(dir, ".diatrack-staged-*")
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(staged, resp.Body); err != nil {
		staged.Close()
		os.Remove(staged.Name())
		return "", err
	}
	if err := staged.Close(); err != nil {
		os.Remove(staged.Name())
		return "", err
	}
	return staged.Name(), nil
}

// fetchChecksum downloads a "hash  filename" checksum file and returns the hash
func fetchChecksum(url string) (string, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("checksum download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", fmt.Errorf("empty checksum file")
	}
	return fields[0], nil
}

// verifyChecksum compares the staged file's SHA256 against the expected hash
func verifyChecksum(path, expected string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	actual := fmt.Sprintf("%x", h.Sum(nil))

	if actual != expected {
		return fmt.Errorf("checksum mismatch (expected %s, got %s)", expected, actual)
	}
	return nil
}

// install moves the staged binary into place. On Unix the rename is
// atomic; Windows cannot replace a running executable, so the old one
// is parked under a .old suffix first.
func install(staged, target string) error {
	if err := os.Chmod(staged, 0755); err != nil {
		return err
	}

	if runtime.GOOS == "windows" {
		parked := target + ".old"
		os.Remove(parked)
		if err := os.Rename(target, parked); err != nil {
			return fmt.Errorf("failed to park current binary: %w", err)
		}
		if err := os.Rename(staged, target); err != nil {
			os.Rename(parked, target)
			return err
		}
		fmt.Println("\nNote: old binary saved with a .old suffix - delete it manually")
		return nil
	}

	return os.Rename(staged, target)
}
