package preprocess

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/frauddesk/fraudctl/pkg/schema"
)

const (
	artifactVersion = 1
	fileMode        = 0600
)

// artifact is the on-disk envelope. Changing the encoding is a
// breaking-change boundary: bytes written by older versions may no
// longer decode, hence the explicit version field.
type artifact struct {
	Version      int          `json:"version"`
	Preprocessor Preprocessor `json:"preprocessor"`
}

// Save persists the fitted preprocessor as gzip-compressed JSON. The
// write goes to a temp file in the target directory followed by a
// rename, so a serving process concurrently loading the path observes
// either the old artifact or the new one, never a partial write.
func Save(path string, p *Preprocessor) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating artifact dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	if err := json.NewEncoder(zw).Encode(artifact{Version: artifactVersion, Preprocessor: *p}); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding artifact: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("compressing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}

	if err := os.Chmod(tmp.Name(), fileMode); err != nil {
		return fmt.Errorf("setting artifact mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing artifact %s: %w", path, err)
	}
	return nil
}

// Load reads the fitted preprocessor from path. A missing, unreadable,
// or schema-inconsistent artifact yields a *ConfigError whose message
// names the path and the fit step to re-run. Load is meant to be
// called once at startup; the returned value is immutable and shared.
func Load(path string) (*Preprocessor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Path: path, cause: err}
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, &ConfigError{Path: path, cause: err}
	}
	defer zr.Close()

	var a artifact
	if err := json.NewDecoder(zr).Decode(&a); err != nil {
		return nil, &ConfigError{Path: path, cause: err}
	}
	if a.Version != artifactVersion {
		return nil, &ConfigError{Path: path, cause: fmt.Errorf("unsupported artifact version %d", a.Version)}
	}

	p := a.Preprocessor
	if err := validate(&p); err != nil {
		return nil, &ConfigError{Path: path, cause: err}
	}
	return &p, nil
}

// validate checks that the artifact covers every compiled schema field.
func validate(p *Preprocessor) error {
	for _, name := range schema.Numeric {
		if _, ok := p.Numeric[name]; !ok {
			return fmt.Errorf("artifact missing numeric feature %q", name)
		}
	}
	for _, name := range schema.Categorical {
		enc, ok := p.Categorical[name]
		if !ok || len(enc.Categories) == 0 {
			return fmt.Errorf("artifact missing categorical feature %q", name)
		}
	}
	return nil
}
