package portal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Opaque handle on one of the two input files. Never mutated after creation.
type Artifact struct {
	open        func() (io.ReadCloser, error)
	Name        string
	ContentType string
	Size        int64
}

func (a *Artifact) Open() (io.ReadCloser, error) {
	return a.open()
}

// Builds an artifact from a path on disk. The content type is inferred from
// the extension first and from the leading bytes otherwise.
func ArtifactFromFile(path string) (*Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType, err = sniff(path)
		if err != nil {
			return nil, err
		}
	}

	return &Artifact{
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
	}, nil
}

func sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}

	return http.DetectContentType(head[:n]), nil
}

// Builds an artifact over an in-memory buffer with a declared content type
func ArtifactFromBytes(name, contentType string, data []byte) *Artifact {
	return &Artifact{
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
	}
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// Structured markup SBOM document
func IsSBOM(a *Artifact) bool {
	return mediaType(a.ContentType) == "text/xml" || strings.HasSuffix(a.Name, ".xml")
}

// Data preparation spreadsheet
func IsDataPrep(a *Artifact) bool {
	ct := strings.ToLower(a.ContentType)
	return strings.Contains(ct, "excel") ||
		strings.Contains(ct, "spreadsheet") ||
		strings.HasSuffix(a.Name, ".xlsx")
}
