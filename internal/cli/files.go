package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"spendora/internal/core"
)

// MaxUploadBytes matches the inline payload limit of the model API.
const MaxUploadBytes = 20 << 20

// Upload is a file read from disk together with its sniffed media type.
type Upload struct {
	Name     string
	Data     []byte
	MIMEType string
}

// ReadUpload reads path and detects its type from the content. Any textual
// subtype such as text/csv is reported as text/plain, the only type bank
// statements are accepted in.
func ReadUpload(path string) (Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return Upload{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > MaxUploadBytes {
		return Upload{}, fmt.Errorf("%s is larger than %d MB", filepath.Base(path), MaxUploadBytes>>20)
	}

	return Upload{
		Name:     filepath.Base(path),
		Data:     data,
		MIMEType: detectMIME(data),
	}, nil
}

func detectMIME(data []byte) string {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(core.MIMEText) {
			return core.MIMEText
		}
	}
	return core.NormalizeMIME(detected.String())
}
