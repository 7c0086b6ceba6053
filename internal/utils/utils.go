package utils

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

func UriToPath(uri string) (string, error) {
	if !strings.HasPrefix(uri, "file://") {
		return "", fmt.Errorf("unsupported URI scheme in %q", uri)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse URI %q: %w", uri, err)
	}
	return filepath.FromSlash(u.Path), nil
}

func PathToURI(path string) string {
	uri := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return uri.String()
}

// DocumentName is the file name parse errors are reported against.
func DocumentName(uri string) string {
	if p, err := UriToPath(uri); err == nil {
		return filepath.Base(p)
	}
	return path.Base(uri)
}
