package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chojs23/threeway/internal/textdoc"
)

// BackupSuffix is appended to the output path when a backup is requested.
const BackupSuffix = ".threeway.bak"

// Files names the inputs of a merge.
type Files struct {
	Base  string
	Left  string
	Right string
}

// ReadInput reads the three files. The returned Content carries the line
// terminator conventions of the Left file, which are used when writing.
func ReadInput(f Files) (Input, textdoc.Content, error) {
	read := func(kind, path string) (textdoc.Content, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return textdoc.Content{}, fmt.Errorf("read %s: %w", kind, err)
		}
		return textdoc.Split(data), nil
	}

	base, err := read("base", f.Base)
	if err != nil {
		return Input{}, textdoc.Content{}, err
	}
	left, err := read("local", f.Left)
	if err != nil {
		return Input{}, textdoc.Content{}, err
	}
	right, err := read("remote", f.Right)
	if err != nil {
		return Input{}, textdoc.Content{}, err
	}

	in := Input{Left: left.Lines, Base: base.Lines, Right: right.Lines}
	left.Lines = nil
	if !left.TrailingNewline && len(in.Left) == 0 {
		left.TrailingNewline = base.TrailingNewline || right.TrailingNewline
	}
	return in, left, nil
}

// SplitInput builds an Input from raw file contents.
func SplitInput(base, left, right []byte) Input {
	return Input{
		Left:  textdoc.Split(left).Lines,
		Base:  textdoc.Split(base).Lines,
		Right: textdoc.Split(right).Lines,
	}
}

// WriteResult writes data to path, first copying the existing file to
// path+BackupSuffix when backup is set.
func WriteResult(path string, data []byte, backup bool) error {
	if backup {
		old, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s for backup: %w", filepath.Base(path), err)
		}
		bak := path + BackupSuffix
		if err := os.WriteFile(bak, old, 0o644); err != nil {
			return fmt.Errorf("write backup %s: %w", filepath.Base(bak), err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
