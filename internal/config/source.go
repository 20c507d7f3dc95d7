package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Origins of an effective setting. Environment origins are reported as
// "env:NAME" and .env origins as ".env:NAME".
const (
	SourceDefault = "default"
	SourceFile    = "file"
)

// Sources maps each dotted key to the layer its effective value came from.
type Sources map[string]string

// Entry is one effective setting.
type Entry struct {
	Key    string
	Value  any
	Source string
}

// readDotEnv returns the variables in path, or nil when it does not exist.
func readDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return vars, nil
}

// resolveSources attributes every field to the highest layer that sets it.
// It must run before the .env file is merged into the process environment.
func resolveSources(stored map[string]any, dotenv map[string]string) Sources {
	sources := make(Sources)
	for _, f := range fields() {
		if f.Env != "" {
			if v, ok := os.LookupEnv(f.Env); ok && v != "" {
				sources[f.Key] = "env:" + f.Env
				continue
			}
			if dotenv[f.Env] != "" {
				sources[f.Key] = DotEnvFile + ":" + f.Env
				continue
			}
		}
		if _, ok := lookupPath(stored, f.Key); ok {
			sources[f.Key] = SourceFile
			continue
		}
		sources[f.Key] = SourceDefault
	}
	return sources
}

// Entries lists every effective setting in key order. With mask set,
// secret values show only their last four characters.
func Entries(cfg *Config, sources Sources, masked bool) []Entry {
	all := fields()
	out := make([]Entry, 0, len(all))
	for _, f := range all {
		out = append(out, entry(cfg, sources, f, masked))
	}
	return out
}

// Lookup returns the effective setting for key.
func Lookup(cfg *Config, sources Sources, key string, masked bool) (Entry, error) {
	f, ok := LookupField(key)
	if !ok {
		return Entry{}, fmt.Errorf("unknown config key: %s", key)
	}
	return entry(cfg, sources, f, masked), nil
}

func entry(cfg *Config, sources Sources, f Field, masked bool) Entry {
	v := f.Value(cfg)
	if masked && f.Secret {
		v = mask(v)
	}
	src := sources[f.Key]
	if src == "" {
		src = SourceDefault
	}
	return Entry{Key: f.Key, Value: v, Source: src}
}
