package decoder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode"
)

// Path helpers used to build output file names. They follow POSIX dirname
// and basename semantics, which differ from path/filepath for "" and for
// trailing slashes.

func CollapseDuplicateSlashes(path string) string {
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}

// CleanupPath collapses duplicate slashes and drops a trailing slash.
func CleanupPath(path string) string {
	path = CollapseDuplicateSlashes(path)
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

func Dirname(path string) string {
	path = CleanupPath(path)
	if path == "" {
		return "."
	}
	if path == "/" {
		return path
	}
	lastSlash := strings.LastIndexByte(path, '/')
	switch {
	case lastSlash == -1:
		return "."
	case lastSlash == 0:
		return "/"
	default:
		return path[:lastSlash]
	}
}

func Basename(path string) string {
	path = CleanupPath(path)
	if path == "" {
		return "."
	}
	if path == "/" {
		return path
	}
	return path[strings.LastIndexByte(path, '/')+1:]
}

// IsNumericPostfix reports whether the extension of the base name is made of
// digits only, as in run.001. Such suffixes are kept as part of the name.
func IsNumericPostfix(path string) bool {
	base := Basename(path)
	lastDot := strings.LastIndexByte(base, '.')
	if lastDot <= 0 || lastDot+1 == len(base) {
		return false
	}
	for _, c := range base[lastDot+1:] {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}

// extensionDot returns the index of the dot starting the extension of base,
// or -1 if base has no strippable extension.
func extensionDot(base string) int {
	lastDot := strings.LastIndexByte(base, '.')
	if lastDot <= 0 || IsNumericPostfix(base) {
		return -1
	}
	return lastDot
}

func StripExtension(path string) string {
	base := Basename(path)
	if dot := extensionDot(base); dot != -1 {
		base = base[:dot]
	}
	return Dirname(path) + "/" + base
}

// AddInfix inserts infix before the extension of the file name.
func AddInfix(path string, infix string) string {
	base := Basename(path)
	if dot := extensionDot(base); dot != -1 {
		base = base[:dot] + infix + base[dot:]
	} else {
		base += infix
	}
	return Dirname(path) + "/" + base
}

// BuildFilename joins dir and the base name of base with its extension
// replaced by extension.
func BuildFilename(base string, dir string, extension string) string {
	result := dir
	if result == "" {
		result = Dirname(dir)
	}
	if !strings.HasSuffix(result, "/") {
		result += "/"
	}

	baseName := Basename(base)
	if dot := extensionDot(baseName); dot != -1 {
		baseName = baseName[:dot]
	}
	result += baseName

	if extension != "" {
		if !strings.HasPrefix(extension, ".") && !strings.HasSuffix(result, ".") {
			result += "."
		}
		result += extension
	}
	return result
}

func BuildFilenameWithInfix(base string, dir string, extension string, infix string) string {
	return AddInfix(BuildFilename(base, dir, extension), infix)
}

func BuildDirname(base string, sub string) string {
	if base == "" {
		base = "./"
	} else if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + sub
}

func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	return !info.IsDir(), nil
}

func IsRegularFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// DirectoryExists fails if path exists and is not a directory.
func DirectoryExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%s exists and is not a directory", path)
	}
	return true, nil
}

func CreateDirectory(path string, mode fs.FileMode) error {
	exists, err := DirectoryExists(path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := os.Mkdir(path, mode); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
