package models

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"audio-transcriber/internal/domain"
)

// sha256Pattern matches a full lowercase hex SHA-256 digest.
var sha256Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// builtinCatalog is the minimal fallback used when the catalog document is
// missing or yields no valid entries. Checksums are intentionally absent;
// integrity verification degrades to presence/size checking for these.
var builtinCatalog = []domain.ModelDescriptor{
	{
		ID:          "tiny.en",
		DisplayName: "Tiny (English)",
		FileName:    "ggml-tiny.en.bin",
		DownloadURL: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.en.bin",
		SizeBytes:   77_691_713,
		Description: "Fastest, English-only model.",
	},
	{
		ID:          "base.en",
		DisplayName: "Base (English)",
		FileName:    "ggml-base.en.bin",
		DownloadURL: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.en.bin",
		SizeBytes:   147_951_465,
		Description: "Balanced speed and quality, English-only.",
	},
	{
		ID:          "base",
		DisplayName: "Base (Multilingual)",
		FileName:    "ggml-base.bin",
		DownloadURL: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
		SizeBytes:   147_964_211,
		Description: "Balanced speed and quality, multilingual.",
	},
}

// DefaultModelID is the model selected on first launch.
func DefaultModelID() string {
	return builtinCatalog[0].ID
}

// catalogDocument mirrors the YAML layout of the model catalog file.
type catalogDocument struct {
	Models []domain.ModelDescriptor `yaml:"models"`
}

// Registry holds the immutable model catalog. Descriptors are never mutated
// in place; reloads replace the whole set.
type Registry struct {
	mu     sync.RWMutex
	models []domain.ModelDescriptor
}

// NewRegistry creates a registry from an already-validated descriptor list.
func NewRegistry(models []domain.ModelDescriptor) *Registry {
	out := make([]domain.ModelDescriptor, len(models))
	copy(out, models)
	return &Registry{models: out}
}

// LoadCatalog reads the YAML catalog document at path. Invalid entries are
// dropped; a missing, unreadable, or entirely invalid document falls back to
// the built-in catalog so the registry is never empty.
func LoadCatalog(path string) *Registry {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewRegistry(builtinCatalog)
	}

	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return NewRegistry(builtinCatalog)
	}

	valid := make([]domain.ModelDescriptor, 0, len(doc.Models))
	for _, entry := range doc.Models {
		normalized, err := normalizeDescriptor(entry)
		if err != nil {
			continue
		}
		valid = append(valid, normalized)
	}
	if len(valid) == 0 {
		return NewRegistry(builtinCatalog)
	}

	return NewRegistry(valid)
}

// All returns a copy of every descriptor in catalog order.
func (r *Registry) All() []domain.ModelDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ModelDescriptor, len(r.models))
	copy(out, r.models)
	return out
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (domain.ModelDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.models {
		if m.ID == id {
			return m, true
		}
	}
	return domain.ModelDescriptor{}, false
}

// ReplaceAll swaps in a new catalog wholesale.
func (r *Registry) ReplaceAll(models []domain.ModelDescriptor) {
	out := make([]domain.ModelDescriptor, len(models))
	copy(out, models)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = out
}

// normalizeDescriptor validates one catalog entry and canonicalizes its
// checksum to lowercase hex.
func normalizeDescriptor(d domain.ModelDescriptor) (domain.ModelDescriptor, error) {
	d.ID = strings.TrimSpace(d.ID)
	d.DisplayName = strings.TrimSpace(d.DisplayName)
	d.FileName = strings.TrimSpace(d.FileName)
	d.DownloadURL = strings.TrimSpace(d.DownloadURL)
	d.SHA256 = strings.ToLower(strings.TrimSpace(d.SHA256))

	if d.ID == "" {
		return domain.ModelDescriptor{}, fmt.Errorf("model id is required")
	}
	if d.FileName == "" || strings.ContainsAny(d.FileName, `/\`) {
		return domain.ModelDescriptor{}, fmt.Errorf("model %s: invalid file name", d.ID)
	}
	if d.DisplayName == "" {
		d.DisplayName = d.ID
	}

	parsed, err := url.Parse(d.DownloadURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return domain.ModelDescriptor{}, fmt.Errorf("model %s: invalid download url", d.ID)
	}
	if d.SizeBytes < 0 {
		return domain.ModelDescriptor{}, fmt.Errorf("model %s: negative size", d.ID)
	}
	if d.SHA256 != "" && !sha256Pattern.MatchString(d.SHA256) {
		return domain.ModelDescriptor{}, fmt.Errorf("model %s: malformed sha256", d.ID)
	}

	return d, nil
}
