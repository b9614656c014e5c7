package main

import "path/filepath"

// dirOf returns the parent directory of a file path, used when a command
// accepts either a module directory or its manifest file directly.
func dirOf(path string) string {
	return filepath.Dir(path)
}
