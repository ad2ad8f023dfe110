// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTestFile writes the given data into a new file in a temporary
// directory and returns its path.
func WriteTestFile(tb testing.TB, name string, data []byte) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), name)

	err := os.WriteFile(path, data, 0o600)
	if err != nil {
		tb.Fatalf("failed to write test file %s: %v", path, err)
	}

	return path
}
