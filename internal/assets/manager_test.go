package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockQREncoder is a mock implementation of QREncoder.
type MockQREncoder struct {
	mock.Mock
}

func (m *MockQREncoder) Encode(data string) ([]byte, error) {
	args := m.Called(data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// newTestManager lays out <root>/shop as the data dir and <root>/assets as the asset dir.
func newTestManager(t *testing.T, qr QREncoder) (*Manager, string) {
	root := t.TempDir()
	dataDir := filepath.Join(root, "shop")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	return NewManager(dataDir, "assets", qr, zaptest.NewLogger(t)), root
}

func writeSource(t *testing.T, dir, name, content string) string {
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestManager_StoreImage(t *testing.T) {
	m, root := newTestManager(t, nil)
	src := writeSource(t, t.TempDir(), "photo.JPG", "jpeg-bytes")

	rel, err := m.StoreImage("coc_su", src)
	require.NoError(t, err)
	assert.Equal(t, "../assets/coc_su.JPG", rel)

	data, err := os.ReadFile(filepath.Join(root, "assets", "coc_su.JPG"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	// Same name overwrites.
	src2 := writeSource(t, t.TempDir(), "other.JPG", "new-bytes")
	_, err = m.StoreImage("coc_su", src2)
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(root, "assets", "coc_su.JPG"))
	require.NoError(t, err)
	assert.Equal(t, "new-bytes", string(data))
}

func TestManager_StoreImage_SameFileIsKept(t *testing.T) {
	m, root := newTestManager(t, nil)
	src := writeSource(t, t.TempDir(), "a.png", "png-bytes")
	_, err := m.StoreImage("mug", src)
	require.NoError(t, err)

	stored := filepath.Join(root, "assets", "mug.png")
	_, err = m.StoreImage("mug", stored)
	require.NoError(t, err)

	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestManager_StoreImage_MissingSource(t *testing.T) {
	m, _ := newTestManager(t, nil)
	_, err := m.StoreImage("mug", filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestManager_GenerateQR(t *testing.T) {
	qr := new(MockQREncoder)
	qr.On("Encode", "https://shop.example/x").Return([]byte("webp-bytes"), nil).Once()
	m, root := newTestManager(t, qr)

	rel := m.GenerateQR("coc_su", "https://shop.example/x")
	assert.Equal(t, "../assets/coc_su_qr.webp", rel)
	data, err := os.ReadFile(filepath.Join(root, "assets", "coc_su_qr.webp"))
	require.NoError(t, err)
	assert.Equal(t, "webp-bytes", string(data))
	assert.True(t, m.QRAvailable())

	qr.AssertExpectations(t)
}

func TestManager_GenerateQR_Degrades(t *testing.T) {
	t.Run("encoder unavailable", func(t *testing.T) {
		m, root := newTestManager(t, nil)
		assert.False(t, m.QRAvailable())
		assert.Equal(t, "", m.GenerateQR("mug", "https://shop.example/mug"))
		_, err := os.Stat(filepath.Join(root, "assets", "mug_qr.webp"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("encoder error", func(t *testing.T) {
		qr := new(MockQREncoder)
		qr.On("Encode", mock.Anything).Return(nil, errors.New("boom")).Once()
		m, _ := newTestManager(t, qr)
		assert.Equal(t, "", m.GenerateQR("mug", "https://shop.example/mug"))
		qr.AssertExpectations(t)
	})
}

func TestManager_RemoveAssets(t *testing.T) {
	qr := new(MockQREncoder)
	qr.On("Encode", mock.Anything).Return([]byte("qr"), nil)
	m, root := newTestManager(t, qr)
	src := writeSource(t, t.TempDir(), "a.webp", "img")

	img, err := m.StoreImage("mug", src)
	require.NoError(t, err)
	qrPath := m.GenerateQR("mug", "https://shop.example/mug")

	m.RemoveAssets(img, qrPath)
	_, err = os.Stat(filepath.Join(root, "assets", "mug.webp"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "assets", "mug_qr.webp"))
	assert.True(t, os.IsNotExist(err))

	// Already gone and empty paths are not errors.
	assert.NotPanics(t, func() { m.RemoveAssets(img, "") })
}

func TestManager_RemoveAssets_StaysInsideAssetDir(t *testing.T) {
	m, root := newTestManager(t, nil)
	outside := writeSource(t, filepath.Join(root, "shop"), "products.json", "[]")

	m.RemoveAssets("products.json", "../assets/../shop/products.json")

	_, err := os.Stat(outside)
	assert.NoError(t, err, "files outside the asset dir must survive")
}

func TestManager_Resolve(t *testing.T) {
	m, root := newTestManager(t, nil)

	p, ok := m.Resolve("../assets/mug.png")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "assets", "mug.png"), p)

	_, ok = m.Resolve("../assets/sub/mug.png")
	assert.False(t, ok)
}
