package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// FetchResource downloads url into confDir, using target as the
// filename when present, else the last path component of the URL, as
// described in spec.md §4.8's FetchResource action.
func FetchResource(ctx context.Context, confDir, url, target string) (string, error) {
	name := target
	if name == "" {
		name = path.Base(url)
	}
	// Base strips any directory components a malicious target/url could
	// carry, so the download always lands inside confDir.
	dest := filepath.Join(confDir, filepath.Base(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch resource: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch resource: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch resource: %s: unexpected status %s", url, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("fetch resource: create %s: %w", dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("fetch resource: write %s: %w", dest, err)
	}

	return dest, nil
}
