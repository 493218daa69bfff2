package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultManifestPath is where the service manifest is looked up when
// no explicit path is given.
const DefaultManifestPath = "remote_services.yml"

// Manifest is the YAML service manifest declaring the remote STT, TTS,
// and LLM endpoints the assistant may use.
type Manifest struct {
	LLM []ServiceEntry `yaml:"LLM"`
	STT []ServiceEntry `yaml:"STT"`
	TTS []ServiceEntry `yaml:"TTS"`
}

// ServiceEntry is one manifest entry. The common fields are typed;
// everything else lands in Extra and is passed through to the adapter
// constructor.
type ServiceEntry struct {
	// Name is the unique identifier of the service instance.
	Name string

	// Priority ranks instances of the same capability; higher wins.
	Priority int

	// BaseClass is a dotted path whose last segment selects the
	// adapter registered in the [Registry].
	BaseClass string

	// Endpoint is the service URL. Entries may omit it and rely on
	// the capability's *_ENDPOINT environment variable.
	Endpoint string

	// OllamaModel names the model an LLM entry expects to be loaded.
	OllamaModel string

	// Voice selects the synthesis voice of a TTS entry.
	Voice string

	// Extra holds any further keys verbatim.
	Extra map[string]any
}

// UnmarshalYAML decodes the typed fields and collects unknown keys
// into Extra.
func (e *ServiceEntry) UnmarshalYAML(value *yaml.Node) error {
	raw := map[string]yaml.Node{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	for key, node := range raw {
		var err error
		switch key {
		case "name":
			err = node.Decode(&e.Name)
		case "priority":
			err = node.Decode(&e.Priority)
		case "base_class":
			err = node.Decode(&e.BaseClass)
		case "endpoint":
			err = node.Decode(&e.Endpoint)
		case "ollama_model":
			err = node.Decode(&e.OllamaModel)
		case "voice":
			err = node.Decode(&e.Voice)
		default:
			var v any
			if err = node.Decode(&v); err == nil {
				if e.Extra == nil {
					e.Extra = make(map[string]any)
				}
				e.Extra[key] = v
			}
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	return nil
}

// LoadManifest reads and validates the YAML service manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open manifest %q: %w", path, err)
	}
	defer f.Close()

	m, err := LoadManifestFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: manifest %q: %w", path, err)
	}
	return m, nil
}

// LoadManifestFromReader decodes a manifest from r and validates it.
// Useful in tests where manifests are string literals.
func LoadManifestFromReader(r io.Reader) (*Manifest, error) {
	m := &Manifest{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := ValidateManifest(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ValidateManifest checks the manifest for coherent entries. It returns
// a joined error listing every failure found.
func ValidateManifest(m *Manifest) error {
	var errs []error
	seen := make(map[string]string)
	for _, section := range []struct {
		key     string
		entries []ServiceEntry
	}{
		{"LLM", m.LLM}, {"STT", m.STT}, {"TTS", m.TTS},
	} {
		for i, e := range section.entries {
			prefix := fmt.Sprintf("%s[%d]", section.key, i)
			if e.Name == "" {
				errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			} else if prev, ok := seen[e.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of %s", prefix, e.Name, prev))
			} else {
				seen[e.Name] = prefix
			}
			if e.BaseClass == "" {
				errs = append(errs, fmt.Errorf("%s.base_class is required", prefix))
			}
		}
	}
	return errors.Join(errs...)
}
