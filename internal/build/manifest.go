package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vango-dev/squid/internal/errors"
	"github.com/vango-dev/squid/pkg/artifact"
	"github.com/vango-dev/squid/pkg/routetree"
)

// ManifestFile is the route manifest written to the output root.
const ManifestFile = "routes.json"

// Manifest describes one build. Paths are slash separated and relative to the
// output root so a build can be served from another directory or a bucket.
type Manifest struct {
	BuildID      string    `json:"buildId" yaml:"buildId"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
	BaseDir      string    `json:"baseDir" yaml:"baseDir"`
	ConflictMode string    `json:"conflictMode" yaml:"conflictMode"`
	Entries      []Entry   `json:"routes" yaml:"routes"`

	// Assets maps runtime asset names to their fingerprinted copies.
	Assets map[string]string `json:"assets,omitempty" yaml:"assets,omitempty"`
}

// Entry is a compiled route module.
type Entry struct {
	routetree.Record `yaml:",inline"`

	// Hash is the hex SHA-256 of the artifact.
	Hash string `json:"hash" yaml:"hash"`
	Size int64  `json:"size" yaml:"size"`
}

// WriteManifest writes m to dir/routes.json.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644)
}

// LoadManifest reads dir/routes.json.
func LoadManifest(dir string) (*Manifest, error) {
	p := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.New("E210").Wrap(err)
	}
	return parseManifest(p, data)
}

// FetchManifest reads routes.json from an artifact store.
func FetchManifest(ctx context.Context, f artifact.Fetcher) (*Manifest, error) {
	data, err := f.Fetch(ctx, ManifestFile)
	if err != nil {
		return nil, errors.New("E210").Wrap(err)
	}
	return parseManifest(ManifestFile, data)
}

func parseManifest(name string, data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.New("E210").WithLocation(name, 0, 0).Wrap(err)
	}
	return &m, nil
}

// Records returns the entries as route records rooted at dir.
func (m *Manifest) Records(dir string) []routetree.Record {
	out := make([]routetree.Record, 0, len(m.Entries))
	for _, e := range m.Entries {
		rec := e.Record
		rec.OutputPath = filepath.Join(dir, filepath.FromSlash(rec.OutputPath))
		out = append(out, rec)
	}
	return out
}

// Tree rebuilds the route tree of the build stored in dir.
func (m *Manifest) Tree(dir string, logger *slog.Logger) (*routetree.Tree, error) {
	return routetree.NewBuilder(
		routetree.WithBaseDir(filepath.Join(dir, filepath.FromSlash(m.BaseDir))),
		routetree.WithConflictMode(routetree.ParseConflictMode(m.ConflictMode)),
		routetree.WithLogger(logger),
	).Add(m.Records(dir)...).Build()
}

// hashFile returns the size and hex SHA-256 of a file.
func hashFile(p string) (int64, string, error) {
	f, err := os.Open(p)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
