// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads repository credentials from a directory of plain-text
// files. Each file in the directory represents one secret: the filename is
// the key name and the file contents (trimmed) are the value.
//
// Recognized key files are listed in ConfigKeys.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
)

// ConfigKeys maps secret file names to the configuration keys they supply.
var ConfigKeys = map[string]string{
	"oai-pmh-api-key":        "api-key",
	"oai-pmh-api-key-header": "api-key-header",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A leading ~ in dir is expanded. A missing directory or missing files are not
// errors; Load returns an empty map. Unreadable files are logged as warnings
// but do not abort.
func Load(dir string, logger zerolog.Logger) (map[string]string, error) {
	dir, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("expanding secrets directory %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Defaults returns the configuration values supplied by loaded secrets,
// keyed by configuration key. Unrecognized secrets are ignored.
func Defaults(loaded map[string]string) map[string]string {
	out := make(map[string]string)
	for file, key := range ConfigKeys {
		if v, ok := loaded[file]; ok {
			out[key] = v
		}
	}
	return out
}
