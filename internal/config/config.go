// Package config resolves CLI defaults from a .env file and LOADABLE_*
// environment variables. Flags parsed later override whatever is returned
// here.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvExt              = "LOADABLE_EXT"
	EnvExclude          = "LOADABLE_EXCLUDE"
	EnvUseGitignore     = "LOADABLE_USE_GITIGNORE"
	EnvFollowSymlinks   = "LOADABLE_FOLLOW_SYMLINKS"
	EnvMaxFileBytes     = "LOADABLE_MAX_FILE_BYTES"
	EnvAlias            = "LOADABLE_ALIAS"
	EnvManifest         = "LOADABLE_MANIFEST"
	EnvSentinel         = "LOADABLE_SENTINEL"
	EnvChunkPlaceholder = "LOADABLE_CHUNK_PLACEHOLDER"
	EnvDiffContext      = "LOADABLE_DIFF_CONTEXT"
	EnvLogLevel         = "LOADABLE_LOG_LEVEL"
	EnvLogFormat        = "LOADABLE_LOG_FORMAT"
)

// Defaults are the values the CLI registers its flags with.
type Defaults struct {
	Ext              string
	Exclude          string
	UseGitignore     bool
	FollowSymlinks   bool
	MaxFileBytes     int64
	Alias            string
	Manifest         string
	Sentinel         string
	ChunkPlaceholder string
	DiffContext      int
	LogLevel         string
	LogFormat        string
}

// Builtin returns the defaults used when nothing is configured.
func Builtin() Defaults {
	return Defaults{
		Ext:              ".js,.jsx,.ts,.tsx",
		Exclude:          ".git,node_modules,dist,build,out,coverage,.next",
		UseGitignore:     true,
		MaxFileBytes:     2_000_000,
		Alias:            "@manifest",
		Manifest:         "src/templating/manifest.ts",
		Sentinel:         "#__LOADABLE__",
		ChunkPlaceholder: "{@next/templating-name}",
		DiffContext:      3,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads the given env files (".env" when none, silently skipped if
// absent) into the process environment and applies it over Builtin.
// Variables already set in the environment win over file entries.
func Load(files ...string) (Defaults, error) {
	if len(files) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return Defaults{}, fmt.Errorf("load env: %w", err)
	}
	return FromEnv(Builtin(), os.LookupEnv)
}

// FromEnv overrides base with every LOADABLE_* variable lookup finds.
func FromEnv(base Defaults, lookup LookupFunc) (Defaults, error) {
	d := base
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvExt, &d.Ext)
	str(EnvExclude, &d.Exclude)
	str(EnvAlias, &d.Alias)
	str(EnvManifest, &d.Manifest)
	str(EnvSentinel, &d.Sentinel)
	str(EnvChunkPlaceholder, &d.ChunkPlaceholder)
	str(EnvLogLevel, &d.LogLevel)
	str(EnvLogFormat, &d.LogFormat)

	var err error
	if d.UseGitignore, err = boolVar(lookup, EnvUseGitignore, d.UseGitignore); err != nil {
		return Defaults{}, err
	}
	if d.FollowSymlinks, err = boolVar(lookup, EnvFollowSymlinks, d.FollowSymlinks); err != nil {
		return Defaults{}, err
	}
	if v, ok := lookup(EnvMaxFileBytes); ok && strings.TrimSpace(v) != "" {
		n, perr := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if perr != nil || n < 0 {
			return Defaults{}, fmt.Errorf("%s: invalid byte count %q", EnvMaxFileBytes, v)
		}
		d.MaxFileBytes = n
	}
	if v, ok := lookup(EnvDiffContext); ok && strings.TrimSpace(v) != "" {
		n, perr := strconv.Atoi(strings.TrimSpace(v))
		if perr != nil || n < 0 {
			return Defaults{}, fmt.Errorf("%s: invalid line count %q", EnvDiffContext, v)
		}
		d.DiffContext = n
	}
	return d, nil
}

func boolVar(lookup LookupFunc, key string, def bool) (bool, error) {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}
