package queue

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// HashFile streams the file at path through sha256 and returns the hex
// digest. The file is never read into memory as a whole.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
