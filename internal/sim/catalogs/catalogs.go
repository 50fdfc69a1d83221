package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed defaults/*.json
var defaultFiles embed.FS

//go:embed schemas/*.json
var schemaFiles embed.FS

// ErrInvalid marks a catalog file that parsed but did not satisfy its schema.
var ErrInvalid = errors.New("catalog invalid")

type Catalogs struct {
	Names   Names
	Weights WeightCatalog
}

// Names holds the pools event generators draw from. Pool lengths feed directly into
// the draw arithmetic, so changing a pool changes every seeded run.
type Names struct {
	SectorPrefixes  []string `json:"sector_prefixes"`
	SectorSuffixes  []string `json:"sector_suffixes"`
	SpeciesPrefixes []string `json:"species_prefixes"`
	SpeciesSuffixes []string `json:"species_suffixes"`
	Threats         []string `json:"threats"`
	Artifacts       []string `json:"artifacts"`
	Research        []string `json:"research"`

	Digest string `json:"-"`
}

// WeightCatalog overrides selection weights by template name. A zero weight disables
// the template; names not present keep their built-in weight.
type WeightCatalog struct {
	ByName map[string]uint32
	Digest string
}

type weightsFile struct {
	Weights map[string]uint32 `json:"weights"`
}

// Digest combines the per-file digests in a fixed order.
func (c *Catalogs) Digest() string {
	h := sha256.New()
	h.Write([]byte(c.Names.Digest))
	h.Write([]byte{0})
	h.Write([]byte(c.Weights.Digest))
	return hex.EncodeToString(h.Sum(nil))
}

// Default returns the built-in catalogs.
func Default() *Catalogs {
	c, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("catalogs: embedded defaults: %v", err))
	}
	return c
}

// Load reads names.json and templates.json from configDir. A missing file (or an empty
// configDir) falls back to the embedded default for that file.
func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	{
		raw, err := readConfig(configDir, "names.json")
		if err != nil {
			return nil, fmt.Errorf("names.json: %w", err)
		}
		n, err := loadNames(raw)
		if err != nil {
			return nil, fmt.Errorf("names.json: %w", err)
		}
		c.Names = n
	}
	{
		raw, err := readConfig(configDir, "templates.json")
		if err != nil {
			return nil, fmt.Errorf("templates.json: %w", err)
		}
		w, err := loadWeights(raw)
		if err != nil {
			return nil, fmt.Errorf("templates.json: %w", err)
		}
		c.Weights = w
	}
	return &c, nil
}

func readConfig(configDir, name string) ([]byte, error) {
	if configDir != "" {
		raw, err := os.ReadFile(filepath.Join(configDir, name))
		if err == nil {
			return raw, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return defaultFiles.ReadFile("defaults/" + name)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadNames(raw []byte) (Names, error) {
	if err := validate("names.schema.json", raw); err != nil {
		return Names{}, err
	}
	var n Names
	if err := json.Unmarshal(raw, &n); err != nil {
		return Names{}, err
	}
	n.Digest = sha256Hex(raw)
	return n, nil
}

func loadWeights(raw []byte) (WeightCatalog, error) {
	if err := validate("templates.schema.json", raw); err != nil {
		return WeightCatalog{}, err
	}
	var f weightsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return WeightCatalog{}, err
	}
	if f.Weights == nil {
		f.Weights = map[string]uint32{}
	}
	return WeightCatalog{ByName: f.Weights, Digest: weightsDigest(f.Weights)}, nil
}

// weightsDigest is computed over the parsed overrides in name order so formatting does
// not change it.
func weightsDigest(m map[string]uint32) string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	var buf bytes.Buffer
	for _, k := range names {
		fmt.Fprintf(&buf, "%s=%d\n", k, m[k])
	}
	return sha256Hex(buf.Bytes())
}

func validate(schemaName string, raw []byte) error {
	s, err := compileSchema(schemaName)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func compileSchema(name string) (*jsonschema.Schema, error) {
	raw, err := schemaFiles.ReadFile("schemas/" + name)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return c.Compile(name)
}
