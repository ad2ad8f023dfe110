// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"os"

	"github.com/aibor/virtmon/internal/sys"
)

// readBinary reads the guest image. The content is opaque. It is loaded into
// guest memory as is.
func readBinary(path string) ([]byte, error) {
	err := sys.ValidateFilePath(path)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	image, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	return image, nil
}
