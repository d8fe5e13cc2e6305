// Package index loads the apworld catalog and resolves per-room Manifests
// against it (spec.md §4.2). Catalog documents are yaml.v3, versions are
// Masterminds/semver/v3, and the catalog file is watched with fsnotify: a
// hot reload swaps in the new catalog and calls the Watcher's
// ReloadHandler, but does not by itself re-resolve any room's manifest or
// resubmit any YAML — generalizing
// gothub's pattern of hand-rolled config reloads (it had none; this
// package follows teranos-QNTX's fsnotify-driven reload idiom instead,
// since gothub never needed one).
package index

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/odvcencio/roomhub/internal/apperror"
	"github.com/odvcencio/roomhub/internal/models"
)

// catalogDoc is the on-disk shape of the catalog file (spec.md §4.2):
// name -> { display_name, default_url_template, versions: { version ->
// origin } }.
type catalogDoc struct {
	Apworlds map[string]catalogEntry `yaml:"apworlds"`
}

type catalogEntry struct {
	DisplayName        string                  `yaml:"display_name"`
	DefaultURLTemplate string                  `yaml:"default_url_template"`
	Versions           map[string]catalogOrigin `yaml:"versions"`
}

type catalogOrigin struct {
	Kind string `yaml:"kind"`
	URL  string `yaml:"url,omitempty"`
	Path string `yaml:"path,omitempty"`
}

// Catalog is the parsed, immutable snapshot of one load of the catalog
// file.
type Catalog struct {
	apworlds map[string]models.Apworld
}

// Get looks up an apworld by name.
func (c *Catalog) Get(name string) (models.Apworld, bool) {
	a, ok := c.apworlds[name]
	return a, ok
}

// Names lists every apworld name the catalog carries.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.apworlds))
	for name := range c.apworlds {
		out = append(out, name)
	}
	return out
}

// LoadCatalogFile reads and parses a catalog file from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.WrapInternal(err, "read catalog file")
	}
	return ParseCatalog(raw)
}

// ParseCatalog parses catalog YAML bytes into a Catalog.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, apperror.WrapInvalidInput(err, "parse catalog yaml")
	}

	apworlds := make(map[string]models.Apworld, len(doc.Apworlds))
	for name, entry := range doc.Apworlds {
		versions := make([]models.VersionEntry, 0, len(entry.Versions))
		for versionRaw, origin := range entry.Versions {
			parsed, err := semver.NewVersion(versionRaw)
			if err != nil {
				return nil, apperror.InvalidInput("apworld %q version %q: %v", name, versionRaw, err)
			}
			o, err := parseOrigin(origin)
			if err != nil {
				return nil, apperror.WrapInvalidInput(err, fmt.Sprintf("apworld %q version %q origin", name, versionRaw))
			}
			versions = append(versions, models.VersionEntry{Version: parsed, Raw: versionRaw, Origin: o})
		}
		apworlds[name] = models.Apworld{
			Name:               name,
			DisplayName:        entry.DisplayName,
			DefaultURLTemplate: entry.DefaultURLTemplate,
			Versions:           versions,
		}
	}
	return &Catalog{apworlds: apworlds}, nil
}

func parseOrigin(o catalogOrigin) (models.Origin, error) {
	switch o.Kind {
	case "default-url-template":
		return models.Origin{Kind: models.OriginDefaultURLTemplate}, nil
	case "explicit-url":
		if o.URL == "" {
			return models.Origin{}, apperror.InvalidInput("explicit-url origin missing url")
		}
		return models.Origin{Kind: models.OriginExplicitURL, URL: o.URL}, nil
	case "supported-by-host":
		return models.Origin{Kind: models.OriginSupportedByHost}, nil
	case "local-path":
		if o.Path == "" {
			return models.Origin{}, apperror.InvalidInput("local-path origin missing path")
		}
		return models.Origin{Kind: models.OriginLocalPath, Path: o.Path}, nil
	default:
		return models.Origin{}, apperror.InvalidInput("unknown origin kind %q", o.Kind)
	}
}
