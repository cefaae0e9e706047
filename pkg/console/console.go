package console

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/consolelink/consolelink-go/pkg/ahm"
	"github.com/consolelink/consolelink-go/pkg/codec"
)

//go:embed models/*.yaml
var modelFS embed.FS

// DefaultModel is used when no model is configured.
const DefaultModel = "ahm64"

// ErrUnknownModel is returned for a model name without a manifest.
var ErrUnknownModel = errors.New("unknown console model")

// Model describes one console model.
type Model struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Port        int        `yaml:"port"`
	Layout      LayoutSpec `yaml:"layout"`
}

// LayoutSpec is the channel count section of a model manifest.
type LayoutSpec struct {
	Inputs        int `yaml:"inputs"`
	Zones         int `yaml:"zones"`
	ControlGroups int `yaml:"controlGroups"`
}

// AHM converts the manifest layout to the codec layout.
func (l LayoutSpec) AHM() ahm.Layout {
	return ahm.Layout{Inputs: l.Inputs, Zones: l.Zones, ControlGroups: l.ControlGroups}
}

// Console is everything a session needs for one model: a private codec
// registry and the keepalive ping.
type Console struct {
	Model    *Model
	Registry *codec.Registry
}

// Ping writes the model's keepalive probe.
func (c *Console) Ping(w io.Writer, ch codec.Channel) error {
	return ahm.Ping(w, ch)
}

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]*Model)
)

// LoadModel loads a model manifest by name (case-insensitive, "AHM-64" and
// "ahm64" are equivalent).
func LoadModel(name string) (*Model, error) {
	key := normalize(name)

	cacheMu.RLock()
	if m, ok := cache[key]; ok {
		cacheMu.RUnlock()
		return m, nil
	}
	cacheMu.RUnlock()

	data, err := modelFS.ReadFile("models/" + key + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}

	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing model %q: %w", name, err)
	}

	cacheMu.Lock()
	cache[key] = &m
	cacheMu.Unlock()

	return &m, nil
}

// Models returns the names of all embedded models, sorted.
func Models() ([]string, error) {
	entries, err := modelFS.ReadDir("models")
	if err != nil {
		return nil, fmt.Errorf("reading models directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// New builds a console for the named model with a fresh codec registry.
func New(name string) (*Console, error) {
	m, err := LoadModel(name)
	if err != nil {
		return nil, err
	}
	return &Console{
		Model:    m,
		Registry: codec.NewRegistry(ahm.NewCodecs(m.Layout.AHM())...),
	}, nil
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("-", "", " ", "", "_", "").Replace(name)
}
