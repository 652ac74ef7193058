package dictionary

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/wordfst/pkg/fst"
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

// FileFormat represents the file kinds wordfst reads
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatIndex              // Compiled index
	FormatText               // Plain text word list
)

func (f FileFormat) String() string {
	if info, ok := supportedFormats[f]; ok {
		return info.Description
	}
	return "Unknown"
}

// FormatInfo contains metadata about a file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	MinSize     int64 // Minimum expected file size in bytes
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatIndex: {
		Format:      FormatIndex,
		Description: "Compiled Index",
		Extensions:  []string{".fst", ".idx"},
		MinSize:     fst.HeaderSize,
	},
	FormatText: {
		Format:      FormatText,
		Description: "Plain Text Word List",
		Extensions:  []string{".txt", ".csv"},
		MinSize:     0,
	},
}

// FileInfo is what Inspect learns about a file.
type FileInfo struct {
	Path   string
	Format FileFormat
	Size   int64
	Header fst.Header // set for FormatIndex
	Lines  int        // set for FormatText
}

// ValidateFileFormat checks if a file matches the expected format
func ValidateFileFormat(filename string, expectedFormat FileFormat) error {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to stat file %s", filename)
	}

	formatInfo, exists := supportedFormats[expectedFormat]
	if !exists {
		return errors.Newf("unknown format: %d", expectedFormat)
	}

	if fileInfo.Size() < formatInfo.MinSize {
		return errors.Newf("file %s is too small (%d bytes) for format %s (minimum: %d bytes)",
			filename, fileInfo.Size(), formatInfo.Description, formatInfo.MinSize)
	}

	switch expectedFormat {
	case FormatIndex:
		_, err := readIndexHeader(filename)
		return err
	case FormatText:
		return validateTextFormat(filename)
	}
	return nil
}

func readIndexHeader(filename string) (fst.Header, error) {
	file, err := os.Open(filename)
	if err != nil {
		return fst.Header{}, errors.Wrapf(err, "failed to open file %s", filename)
	}
	defer file.Close()

	hdr, err := fst.ReadHeader(file)
	if err != nil {
		return hdr, errors.Wrapf(err, "reading header of %s", filename)
	}
	log.Debugf("Index file %s validated: %d keys", filename, hdr.Keys)
	return hdr, nil
}

// validateTextFormat checks that the head of a text file is UTF-8
func validateTextFormat(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open file %s", filename)
	}
	defer file.Close()

	buffer := make([]byte, 1024)
	n, err := io.ReadFull(file, buffer)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return errors.Wrapf(err, "failed to read from text file %s", filename)
	}
	head := buffer[:n]
	if n == len(buffer) {
		head = trimPartialRune(head)
	}
	if !utf8.Valid(head) {
		return errors.Wrapf(ErrInvalidEncoding, "%s", filename)
	}

	log.Debugf("Text file %s validated", filename)
	return nil
}

// trimPartialRune drops a multi-byte sequence cut off at the end of b.
func trimPartialRune(b []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			break
		}
	}
	return b
}

// DetectFileFormat attempts to detect the format of a file. The index magic
// wins over the extension; other files are treated as text when their
// extension says so or their head is valid UTF-8.
func DetectFileFormat(filename string) (FileFormat, error) {
	if err := ValidateFileFormat(filename, FormatIndex); err == nil {
		return FormatIndex, nil
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if hasExtension(FormatIndex, ext) {
		return FormatUnknown, errors.Newf("file %s has an index extension but no valid index header", filename)
	}
	if err := ValidateFileFormat(filename, FormatText); err == nil {
		return FormatText, nil
	}
	return FormatUnknown, errors.Newf("unable to detect format for file %s", filename)
}

func hasExtension(format FileFormat, ext string) bool {
	for _, e := range supportedFormats[format].Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Inspect detects the format of path and gathers its vital numbers.
func Inspect(path string) (FileInfo, error) {
	info := FileInfo{Path: path}
	st, err := os.Stat(path)
	if err != nil {
		return info, errors.Wrapf(err, "inspecting %s", path)
	}
	info.Size = st.Size()

	info.Format, err = DetectFileFormat(path)
	if err != nil {
		return info, err
	}

	switch info.Format {
	case FormatIndex:
		info.Header, err = readIndexHeader(path)
	case FormatText:
		info.Lines, err = countLines(path)
	}
	return info, err
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	n := 0
	for scanner.Scan() {
		n++
	}
	return n, errors.Wrapf(scanner.Err(), "counting lines in %s", path)
}
