package index

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	getter "github.com/hashicorp/go-getter"

	"github.com/odvcencio/roomhub/internal/apperror"
	"github.com/odvcencio/roomhub/internal/models"
)

// Fetch materializes an apworld version's Origin into a local cache file
// and returns its path (spec.md §4.2). Apworld archive contents are out
// of scope (spec.md §1 Non-goals) — Fetch only proves the artifact is
// reachable and caches its bytes; it never opens the archive.
//
// OriginSupportedByHost needs no fetch: the generator host is assumed to
// already carry the apworld, so Fetch returns an empty path and no error.
func Fetch(ctx context.Context, apworld models.Apworld, entry models.VersionEntry, cacheDir string) (string, error) {
	src, err := sourceURL(apworld, entry)
	if err != nil {
		return "", err
	}
	if src == "" {
		return "", nil
	}

	dst := filepath.Join(cacheDir, sanitizeCacheName(apworld.Name, entry.Raw))
	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  cacheDir,
		Mode: getter.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return "", apperror.WrapInternal(err, fmt.Sprintf("fetch apworld %q version %q", apworld.Name, entry.Raw))
	}
	return dst, nil
}

func sourceURL(apworld models.Apworld, entry models.VersionEntry) (string, error) {
	switch entry.Origin.Kind {
	case models.OriginSupportedByHost:
		return "", nil
	case models.OriginExplicitURL:
		if entry.Origin.URL == "" {
			return "", apperror.InvalidInput("apworld %q version %q: explicit-url origin missing url", apworld.Name, entry.Raw)
		}
		return entry.Origin.URL, nil
	case models.OriginLocalPath:
		if entry.Origin.Path == "" {
			return "", apperror.InvalidInput("apworld %q version %q: local-path origin missing path", apworld.Name, entry.Raw)
		}
		return entry.Origin.Path, nil
	case models.OriginDefaultURLTemplate:
		if apworld.DefaultURLTemplate == "" {
			return "", apperror.InvalidInput("apworld %q: no default_url_template configured", apworld.Name)
		}
		return strings.ReplaceAll(apworld.DefaultURLTemplate, "{{version}}", entry.Raw), nil
	default:
		return "", apperror.InvalidInput("apworld %q version %q: unknown origin kind %q", apworld.Name, entry.Raw, entry.Origin.Kind)
	}
}

func sanitizeCacheName(name, version string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_")
	return replacer.Replace(name) + "-" + replacer.Replace(version)
}
