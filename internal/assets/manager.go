// Package assets keeps product image and QR files in lockstep with catalog entries.
//
// Files live in a single directory next to the catalog data directory and are named
// after the product id: <id><ext> for the product image and <id>_qr.webp for the QR code.
// Paths handed back to callers are relative to the data directory ("../<dir>/<file>"),
// which is how the storefront pages reference them.
package assets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"
)

const qrSuffix = "_qr.webp"

// Manager owns copying and removal of product assets.
type Manager struct {
	dataDir string
	dirName string
	dir     string
	qr      QREncoder
	logger  *zap.Logger
}

// NewManager returns a Manager for assets stored in <dataDir>/../<dirName>.
// qr may be nil, in which case QR generation is unavailable and GenerateQR returns "".
func NewManager(dataDir, dirName string, qr QREncoder, logger *zap.Logger) *Manager {
	return &Manager{
		dataDir: dataDir,
		dirName: dirName,
		dir:     filepath.Join(dataDir, "..", dirName),
		qr:      qr,
		logger:  logger.Named("assets"),
	}
}

// Dir returns the on-disk asset directory.
func (m *Manager) Dir() string { return m.dir }

// QRAvailable reports whether QR codes can be generated.
func (m *Manager) QRAvailable() bool { return m.qr != nil }

// StoreImage copies sourcePath into the asset directory as <productID><ext>,
// overwriting any existing file, and returns its data-relative path.
func (m *Manager) StoreImage(productID, sourcePath string) (string, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("assets: create asset dir: %w", err)
	}
	name := productID + filepath.Ext(sourcePath)
	if err := copyFile(sourcePath, filepath.Join(m.dir, name)); err != nil {
		return "", err
	}
	m.logger.Debug("stored product image", zap.String("product_id", productID), zap.String("file", name))
	return m.relPath(name), nil
}

// GenerateQR encodes link into <productID>_qr.webp and returns its data-relative path.
// Failures are logged and reported as "" so the caller can carry on without a QR image.
func (m *Manager) GenerateQR(productID, link string) string {
	if m.qr == nil || link == "" {
		return ""
	}
	payload, err := m.qr.Encode(link)
	if err != nil {
		m.logger.Warn("QR encoding failed", zap.String("product_id", productID), zap.Error(err))
		return ""
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		m.logger.Warn("QR asset dir unavailable", zap.String("product_id", productID), zap.Error(err))
		return ""
	}
	name := productID + qrSuffix
	if err := os.WriteFile(filepath.Join(m.dir, name), payload, 0o644); err != nil {
		m.logger.Warn("QR write failed", zap.String("product_id", productID), zap.Error(err))
		return ""
	}
	return m.relPath(name)
}

// RemoveAssets deletes the image and QR files referenced by a product. Empty paths and
// missing files are ignored; paths that resolve outside the asset directory are refused.
func (m *Manager) RemoveAssets(imagePath, qrPath string) {
	for _, rel := range []string{imagePath, qrPath} {
		if rel == "" {
			continue
		}
		target, ok := m.Resolve(rel)
		if !ok {
			m.logger.Warn("refusing to remove file outside asset dir", zap.String("path", rel))
			continue
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("asset removal failed", zap.String("path", rel), zap.Error(err))
		}
	}
}

// Resolve maps a data-relative asset path to its on-disk location. It reports false
// when the path does not point directly into the asset directory.
func (m *Manager) Resolve(rel string) (string, bool) {
	target := filepath.Clean(filepath.Join(m.dataDir, filepath.FromSlash(rel)))
	if filepath.Dir(target) != filepath.Clean(m.dir) {
		return "", false
	}
	return target, true
}

func (m *Manager) relPath(name string) string {
	return path.Join("..", m.dirName, name)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("assets: open source image: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("assets: stat source image: %w", err)
	}
	if existing, err := os.Stat(dst); err == nil && os.SameFile(info, existing) {
		return nil
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("assets: create image copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("assets: copy image: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("assets: close image copy: %w", err)
	}
	// Keep the source modification time, like a metadata-preserving copy.
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
