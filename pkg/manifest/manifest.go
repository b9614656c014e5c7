// Package manifest parses a module's declarative module.toml into a Module
// record. Decoding goes through BurntSushi/toml, which is
// treated as the opaque TOML-tokenization collaborator: field typing in
// rawManifest below is what turns "scalar where an array was expected" or
// "non-string value in [settings]" into the toml package's own decode error,
// rather than hand-rolled type assertions.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/zephyr-sh/zephyr/pkg/constants"
	"github.com/zephyr-sh/zephyr/pkg/logger"
	"github.com/zephyr-sh/zephyr/pkg/stringutil"
	"github.com/zephyr-sh/zephyr/pkg/zerr"
)

var log = logger.New("manifest")

// ManifestFileName is the required file name of a module's manifest.
const ManifestFileName = "module.toml"

// Module is one discovered or installed module.
type Module struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	License     string `json:"license,omitempty"`

	Required []string `json:"required"`
	Optional []string `json:"optional"`

	OS         []string `json:"os"`
	Arch       []string `json:"arch"`
	Shell      string   `json:"shell,omitempty"`
	MinVersion string   `json:"min_version,omitempty"`

	Priority int      `json:"priority"`
	Files    []string `json:"files"`

	PreLoad  string `json:"pre_load,omitempty"`
	PostLoad string `json:"post_load,omitempty"`

	Settings map[string]string `json:"settings"`

	// Path is the absolute directory containing the manifest, set by the
	// caller (discoverer or install pipeline) after a successful parse.
	Path string `json:"path"`
}

// rawManifest mirrors the module.toml section layout. Unknown
// sections/keys are silently ignored by toml.DecodeFile's default behavior.
type rawManifest struct {
	Module struct {
		Name        string `toml:"name"`
		Version     string `toml:"version"`
		Description string `toml:"description"`
		Author      string `toml:"author"`
		License     string `toml:"license"`
	} `toml:"module"`

	Dependencies struct {
		Required []string `toml:"required"`
		Optional []string `toml:"optional"`
	} `toml:"dependencies"`

	Platforms struct {
		OS         []string `toml:"os"`
		Arch       []string `toml:"arch"`
		Shell      string   `toml:"shell"`
		MinVersion string   `toml:"min_version"`
	} `toml:"platforms"`

	Load struct {
		Priority *int     `toml:"priority"`
		Files    []string `toml:"files"`
	} `toml:"load"`

	Hooks struct {
		PreLoad  string `toml:"pre_load"`
		PostLoad string `toml:"post_load"`
	} `toml:"hooks"`

	Settings map[string]string `toml:"settings"`
}

// Parse reads and validates the module.toml at path (a directory containing
// the manifest, or the manifest file itself) into a Module.
func Parse(path string) (*Module, error) {
	manifestPath := path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		manifestPath = filepath.Join(path, ManifestFileName)
	} else if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, zerr.Wrapf(zerr.NotFound, err, "missing manifest at %s", path)
		}
		return nil, zerr.Wrapf(zerr.IOFailure, err, "cannot stat %s", path)
	}

	log.Printf("parsing manifest: %s", manifestPath)

	var raw rawManifest
	if _, err := toml.DecodeFile(manifestPath, &raw); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, zerr.Wrapf(zerr.NotFound, err, "missing manifest at %s", manifestPath)
		}
		return nil, zerr.Wrapf(zerr.Invalid, err, "invalid manifest at %s", manifestPath)
	}

	m := &Module{
		Name:        raw.Module.Name,
		Version:     raw.Module.Version,
		Description: raw.Module.Description,
		Author:      raw.Module.Author,
		License:     raw.Module.License,
		Required:    orEmpty(raw.Dependencies.Required),
		Optional:    orEmpty(raw.Dependencies.Optional),
		OS:          orEmpty(raw.Platforms.OS),
		Arch:        orEmpty(raw.Platforms.Arch),
		Shell:       raw.Platforms.Shell,
		MinVersion:  raw.Platforms.MinVersion,
		Files:       orEmpty(raw.Load.Files),
		PreLoad:     raw.Hooks.PreLoad,
		PostLoad:    raw.Hooks.PostLoad,
		Settings:    raw.Settings,
	}
	if m.Settings == nil {
		m.Settings = map[string]string{}
	}
	if raw.Load.Priority != nil {
		m.Priority = *raw.Load.Priority
	} else {
		m.Priority = constants.DefaultPriority
	}

	if err := validate(m); err != nil {
		return nil, err
	}

	log.Printf("parsed module %q version %q", m.Name, m.Version)
	return m, nil
}

func validate(m *Module) error {
	if m.Name == "" {
		return zerr.New(zerr.Invalid, "manifest missing required [module] name")
	}
	if !stringutil.IsValidModuleName(m.Name) {
		return zerr.Newf(zerr.Invalid, "invalid module name %q: must start with a letter, contain only letters, digits, '-' or '_', and be at most 50 characters", m.Name)
	}
	if m.Version == "" {
		return zerr.Newf(zerr.Invalid, "manifest for module %q missing required [module] version", m.Name)
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Clone returns a deep copy of m, used by the module cache to hand out
// clones so the cache never shares owned storage with callers.
func (m *Module) Clone() *Module {
	c := *m
	c.Required = append([]string(nil), m.Required...)
	c.Optional = append([]string(nil), m.Optional...)
	c.OS = append([]string(nil), m.OS...)
	c.Arch = append([]string(nil), m.Arch...)
	c.Files = append([]string(nil), m.Files...)
	c.Settings = make(map[string]string, len(m.Settings))
	for k, v := range m.Settings {
		c.Settings[k] = v
	}
	return &c
}

// ValidateFilesExist checks that every entry in m.Files exists relative to
// m.Path. It returns a zerr.Invalid error naming the first missing file.
func (m *Module) ValidateFilesExist() error {
	for _, f := range m.Files {
		full := filepath.Join(m.Path, f)
		if _, err := os.Stat(full); err != nil {
			return zerr.Newf(zerr.Invalid, "module %q declares missing file %q", m.Name, f)
		}
	}
	return nil
}

// String renders a short human identifier, e.g. for log lines and CLI
// tables.
func (m *Module) String() string {
	return fmt.Sprintf("%s@%s", m.Name, m.Version)
}
