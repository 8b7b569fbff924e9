// Package i18n serves translation parts: JSON files stored as
// <root>/<lang>/<part>.json and merged per client into one flat table.
package i18n

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"

	"github.com/fluxorio/mtp/pkg/core"
)

// Errors
var (
	ErrInvalidName  = &core.Error{Code: "INVALID_NAME", Message: "invalid language or part name"}
	ErrPartNotFound = &core.Error{Code: "PART_NOT_FOUND", Message: "translation part not found"}
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Catalog reads translation parts from a file system
type Catalog struct {
	fsys fs.FS
}

// NewCatalog creates a catalog rooted at fsys
func NewCatalog(fsys fs.FS) *Catalog {
	core.FailFastIf(fsys == nil, "catalog file system cannot be nil")
	return &Catalog{fsys: fsys}
}

// Raw returns the part file as stored
func (c *Catalog) Raw(lang, part string) ([]byte, error) {
	if !namePattern.MatchString(lang) || !namePattern.MatchString(part) {
		return nil, fmt.Errorf("%s/%s: %w", lang, part, ErrInvalidName)
	}
	data, err := fs.ReadFile(c.fsys, path.Join(lang, part+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s/%s: %w", lang, part, ErrPartNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", lang, part, err)
	}
	return data, nil
}

// Part returns the part as a flat table of dotted keys
func (c *Catalog) Part(lang, part string) (map[string]string, error) {
	data, err := c.Raw(lang, part)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := core.JSONDecode(data, &tree); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", lang, part, err)
	}
	out := make(map[string]string)
	flatten("", tree, out)
	return out, nil
}

// Languages lists the language directories present in the catalog
func (c *Catalog) Languages() ([]string, error) {
	entries, err := fs.ReadDir(c.fsys, ".")
	if err != nil {
		return nil, err
	}
	var langs []string
	for _, e := range entries {
		if e.IsDir() && namePattern.MatchString(e.Name()) {
			langs = append(langs, e.Name())
		}
	}
	sort.Strings(langs)
	return langs, nil
}

func flatten(prefix string, node map[string]interface{}, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flatten(key, val, out)
		case string:
			out[key] = val
		case nil:
			// skipped
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}
