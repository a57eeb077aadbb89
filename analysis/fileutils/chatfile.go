package fileutils

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaxChatBytes bounds how much of a chat export is read.
const MaxChatBytes = 64 << 20

var (
	ErrUnsupportedFormat = errors.New("unsupported chat file format")
	ErrNoChatInArchive   = errors.New("no chat text file found in archive")
	ErrChatTooLarge      = errors.New("chat file too large")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadChatFile returns the normalized text of a .txt export or of the chat text file inside a
// .zip export.
func ReadChatFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("ReadChatFile: %w", err)
		}
		defer f.Close()
		b, err := readLimited(f)
		if err != nil {
			return "", fmt.Errorf("ReadChatFile: %s: %w", path, err)
		}
		return NormalizeChatText(b), nil
	case ".zip":
		text, err := readChatZip(path)
		if err != nil {
			return "", fmt.Errorf("ReadChatFile: %s: %w", path, err)
		}
		return text, nil
	default:
		return "", fmt.Errorf("ReadChatFile: %s: %w", path, ErrUnsupportedFormat)
	}
}

func readChatZip(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !IsChatEntry(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", f.Name, err)
		}
		b, err := readLimited(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", f.Name, err)
		}
		return NormalizeChatText(b), nil
	}
	return "", ErrNoChatInArchive
}

// IsChatEntry reports whether an archive entry name looks like an exported chat transcript.
func IsChatEntry(name string) bool {
	base := strings.ToLower(filepath.Base(name))
	if !strings.HasSuffix(base, ".txt") || strings.HasPrefix(base, "._") {
		return false
	}
	return strings.Contains(base, "chat") || strings.Contains(base, "whatsapp")
}

func readLimited(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxChatBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > MaxChatBytes {
		return nil, ErrChatTooLarge
	}
	return b, nil
}

// NormalizeChatText strips a UTF-8 BOM and converts CRLF and lone CR line endings to LF.
func NormalizeChatText(b []byte) string {
	b = bytes.TrimPrefix(b, utf8BOM)
	s := strings.ReplaceAll(string(b), "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// ChatFiles lists the .txt and .zip files directly inside dir, sorted by name.
func ChatFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ChatFiles: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".zip":
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
