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

package storage

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/l3montree-dev/fod2sarif/internal/sarif"
	"github.com/pkg/errors"
)

// WriteDocument serializes the document and writes it to path in one go.
// Missing parent directories are created.
func WriteDocument(path string, doc sarif.Document) error {
	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return errors.Wrap(err, "could not encode sarif document")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "could not create directory %s", dir)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { // nolint:gosec
		return errors.Wrapf(err, "could not write %s", path)
	}
	return nil
}
