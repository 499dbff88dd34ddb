package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Document describes one structured data file and its generated script mirror.
// The data file is the source of truth; the mirror can be regenerated from it at any time.
type Document struct {
	DataPath     string
	MirrorPath   string
	VariableName string
	Header       string
}

// CatalogDocument returns the document layout for the product catalog in dir.
func CatalogDocument(dir string) Document {
	return Document{
		DataPath:     filepath.Join(dir, "products.json"),
		MirrorPath:   filepath.Join(dir, "products-data.js"),
		VariableName: "productsData",
		Header:       "Product data - generated by the catalog manager, do not edit",
	}
}

// FeaturedDocument returns the document layout for the featured subset in dir.
func FeaturedDocument(dir string) Document {
	return Document{
		DataPath:     filepath.Join(dir, "featured.json"),
		MirrorPath:   filepath.Join(dir, "featured-data.js"),
		VariableName: "featuredProductsData",
		Header:       "Featured products - generated by the catalog manager, do not edit",
	}
}

// WriteDocument replaces the data file with records and regenerates the mirror.
// When only the mirror write fails the returned error wraps ErrMirrorStale.
func WriteDocument[T any](doc Document, records []T) error {
	if records == nil {
		records = []T{}
	}
	body, err := marshalRecords(records)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(doc.DataPath, append(body, '\n')); err != nil {
		return fmt.Errorf("store: write %s: %w", doc.DataPath, err)
	}
	if err := writeFileAtomic(doc.MirrorPath, mirrorContent(doc, body)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMirrorStale, doc.MirrorPath, err)
	}
	return nil
}

// LoadDocument reads the records stored at dataPath. A missing file yields an empty sequence.
func LoadDocument[T any](dataPath string) ([]T, error) {
	data, err := os.ReadFile(dataPath)
	if errors.Is(err, os.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", dataPath, err)
	}
	records := []T{}
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", dataPath, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// RegenerateMirror rebuilds the mirror file from the current data file.
func RegenerateMirror[T any](doc Document) error {
	records, err := LoadDocument[T](doc.DataPath)
	if err != nil {
		return err
	}
	body, err := marshalRecords(records)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(doc.MirrorPath, mirrorContent(doc, body)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMirrorStale, doc.MirrorPath, err)
	}
	return nil
}

// marshalRecords renders records with 4-space indentation and without HTML escaping,
// leaving non-ASCII text as is.
func marshalRecords(records any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("store: encode records: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func mirrorContent(doc Document, body []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(body) + len(doc.Header) + len(doc.VariableName) + 16)
	fmt.Fprintf(&buf, "// %s\n", doc.Header)
	fmt.Fprintf(&buf, "const %s = ", doc.VariableName)
	buf.Write(body)
	buf.WriteString(";\n")
	return buf.Bytes()
}

// writeFileAtomic replaces path with data via a temp file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
