package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"audio-transcriber/internal/domain"
)

// minUsableSize is the sanity floor for a local model file. It guards
// against zero-byte or truncated files left by interrupted downloads
// without paying for a full checksum on every UI query.
const minUsableSize = 1 << 20

// hashBufferSize bounds memory used when checksumming large model files.
const hashBufferSize = 64 * 1024

// AssetManager answers whether a model is usable locally and supplies the
// download worker with everything it needs to fetch one.
type AssetManager struct {
	registry  *Registry
	modelsDir string
	stat      func(string) (os.FileInfo, error)
	open      func(string) (*os.File, error)
	remove    func(string) error
}

// NewAssetManager creates a manager storing model files under modelsDir.
func NewAssetManager(registry *Registry, modelsDir string) *AssetManager {
	return &AssetManager{
		registry:  registry,
		modelsDir: modelsDir,
		stat:      os.Stat,
		open:      os.Open,
		remove:    os.Remove,
	}
}

// LocalPath returns where a descriptor's file lives on disk.
func (m *AssetManager) LocalPath(d domain.ModelDescriptor) string {
	return filepath.Join(m.modelsDir, d.FileName)
}

// Asset computes the on-disk view of one model. It is never cached because
// the file may change out of band.
func (m *AssetManager) Asset(modelID string) (domain.ModelAsset, error) {
	descriptor, ok := m.registry.Get(modelID)
	if !ok {
		return domain.ModelAsset{}, fmt.Errorf("%w: %s", domain.ErrModelNotFound, modelID)
	}

	asset := domain.ModelAsset{
		Descriptor: descriptor,
		LocalPath:  m.LocalPath(descriptor),
	}

	info, err := m.stat(asset.LocalPath)
	if err != nil || info.IsDir() {
		return asset, nil
	}

	asset.Present = true
	asset.Usable = info.Size() >= minUsableSize
	return asset, nil
}

// ListAssets returns the on-disk view of every catalog model.
func (m *AssetManager) ListAssets() []domain.ModelAsset {
	descriptors := m.registry.All()
	out := make([]domain.ModelAsset, 0, len(descriptors))
	for _, d := range descriptors {
		asset, err := m.Asset(d.ID)
		if err != nil {
			continue
		}
		out = append(out, asset)
	}
	return out
}

// IsUsable reports whether a transcription may start against this model.
// Unknown ids fail closed. A file below the size floor is treated as a
// truncated leftover and is not usable.
func (m *AssetManager) IsUsable(modelID string) bool {
	asset, err := m.Asset(modelID)
	if err != nil {
		return false
	}
	return asset.Usable
}

// DownloadInfo returns what the download worker needs for one model.
func (m *AssetManager) DownloadInfo(modelID string) (domain.DownloadInfo, bool) {
	descriptor, ok := m.registry.Get(modelID)
	if !ok {
		return domain.DownloadInfo{}, false
	}

	return domain.DownloadInfo{
		ModelID:         descriptor.ID,
		DownloadURL:     descriptor.DownloadURL,
		DestinationPath: m.LocalPath(descriptor),
		SHA256:          descriptor.SHA256,
		DisplayName:     descriptor.DisplayName,
		SizeBytes:       descriptor.SizeBytes,
	}, true
}

// VerifyIntegrity recomputes the local file's SHA-256 in streaming reads and
// compares it case-insensitively to the expected checksum. Models without a
// checksum on record degrade to the presence/size check; that is an accepted
// policy, not an oversight.
func (m *AssetManager) VerifyIntegrity(modelID string) (bool, error) {
	descriptor, ok := m.registry.Get(modelID)
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrModelNotFound, modelID)
	}

	if descriptor.SHA256 == "" {
		return m.IsUsable(modelID), nil
	}

	sum, err := hashFileSHA256(m.open, m.LocalPath(descriptor))
	if err != nil {
		return false, nil
	}
	return strings.EqualFold(sum, descriptor.SHA256), nil
}

// Delete removes the local file for a model, if any.
func (m *AssetManager) Delete(modelID string) error {
	descriptor, ok := m.registry.Get(modelID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrModelNotFound, modelID)
	}

	err := m.remove(m.LocalPath(descriptor))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// hashFileSHA256 streams a file through SHA-256 with a fixed-size buffer so
// memory stays constant regardless of file size.
func hashFileSHA256(open func(string) (*os.File, error), path string) (string, error) {
	f, err := open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashBufferSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
