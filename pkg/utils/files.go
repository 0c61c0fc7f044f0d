package utils

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// DecodeSource reads text saved by editors that prepend a byte order mark.
// A UTF-8 or UTF-16 BOM selects the encoding and is dropped; without one the
// input is taken as UTF-8. CRLF line endings become LF.
func DecodeSource(r io.Reader) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(r, dec))
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

// ReadSource loads a program or listing file from disk.
func ReadSource(path string) (string, error) {
	fullPath, _, err := GetPathInfo(path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return DecodeSource(f)
}
