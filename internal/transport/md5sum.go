package transport

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// MD5File computes the hex-encoded MD5 digest of a file, per spec.md
// §6 (used to report the config and DBC file digests in the start-up
// state message).
func MD5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("md5sum: %w", err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("md5sum: %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
