package main

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/tdewolff/cidfont"
	"github.com/tdewolff/prompt"
)

func formatBytes(size uint64) string {
	if size < 10 {
		return fmt.Sprintf("%d B", size)
	}

	units := []string{"B", "kB", "MB", "GB", "TB", "PB", "EB"}
	scale := int(math.Floor((math.Log10(float64(size)) + math.Log10(2.0)) / 3.0))
	value := float64(size) / math.Pow10(scale*3.0)
	format := "%.0f %s"
	if value < 10.0 {
		format = "%.1f %s"
	}
	return fmt.Sprintf(format, value, units[scale])
}

// readFile reads a file, or standard input for "-".
func readFile(filename string) ([]byte, error) {
	if filename == "-" {
		return io.ReadAll(os.Stdin)
	} else if filename == "" {
		return nil, fmt.Errorf("input file not set")
	}
	return os.ReadFile(filename)
}

// readFont reads a TrueType font or collection, unwrapping EOT files.
func readFont(filename string) ([]byte, error) {
	b, err := readFile(filename)
	if err != nil {
		return nil, err
	}
	if cidfont.IsEOT(b) {
		log.WithField("file", filename).Debug("unwrapping EOT")
	}
	if b, err = cidfont.ToSFNT(b); err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return b, nil
}

func writeFile(filename string, b []byte, force bool) error {
	if _, err := os.Stat(filename); err == nil {
		if !force && !prompt.YesNo(fmt.Sprintf("%s already exists, overwrite?", filename), false) {
			return fmt.Errorf("%s: file already exists", filename)
		}
	}
	log.WithField("file", filename).Debugf("writing %v", formatBytes(uint64(len(b))))
	return os.WriteFile(filename, b, 0644)
}
