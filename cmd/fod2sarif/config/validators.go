// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

func sanitizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")

	// check if the url has a protocol
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return baseURL
}

// isValidOutputPath checks if the document can be written to path.
// The file itself and its parents do not need to exist.
func isValidOutputPath(path string) error {
	if path == "" {
		return fmt.Errorf("output path is empty")
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("output path contains null bytes")
	}

	if runtime.GOOS == "windows" {
		if err := isValidWindowsPath(path); err != nil {
			return err
		}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if info, err := os.Stat(absPath); err == nil && info.IsDir() {
		return fmt.Errorf("output path is a directory: %s", absPath)
	}

	return nil
}

func isValidWindowsPath(path string) error {
	// the volume name may carry a colon, the rest may not
	rest := strings.TrimPrefix(path, filepath.VolumeName(path))
	for _, char := range `<>:"|?*` {
		if strings.ContainsRune(rest, char) {
			return fmt.Errorf("invalid character '%c' in output path", char)
		}
	}

	if len(path) > 260 {
		return fmt.Errorf("output path length exceeds 260 characters")
	}
	return nil
}
