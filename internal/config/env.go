package config

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// ResolveEnv builds the placeholder map. The env file is read first, then
// env.vars from the config, then overrides (highest priority).
func ResolveEnv(cfg EnvConfig, overrides map[string]string) (map[string]string, error) {
	vars := map[string]string{}
	if cfg.File != "" {
		fileVars, err := LoadEnvFile(cfg.File)
		if err != nil {
			return nil, err
		}
		maps.Copy(vars, fileVars)
	}
	maps.Copy(vars, cfg.Vars)
	maps.Copy(vars, overrides)
	return vars, nil
}

// ParseVarFlags turns key=value pairs into a map.
func ParseVarFlags(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q, expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

// LoadEnvFile reads placeholder values from a .properties/.env file, a
// YAML/JSON document (nested keys are joined with dots) or a Postman
// environment export.
func LoadEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open env file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return parseStructuredEnv(f)
	default:
		return parsePropertiesEnv(f)
	}
}

// parsePropertiesEnv reads Java style properties and .env lines. A line ending
// in an unescaped backslash continues on the next one, and \t, \n, \r, \f,
// \uXXXX and backslash-escaped characters are decoded in keys and values.
func parsePropertiesEnv(r io.Reader) (map[string]string, error) {
	vars := map[string]string{}
	scanner := bufio.NewScanner(r)
	var logical strings.Builder
	continuing := false
	for scanner.Scan() {
		line := strings.TrimLeftFunc(strings.TrimRight(scanner.Text(), "\r"), unicode.IsSpace)
		if !continuing && (line == "" || line[0] == '#' || line[0] == '!') {
			continue
		}
		if trailingBackslashes(line)%2 == 1 {
			logical.WriteString(line[:len(line)-1])
			continuing = true
			continue
		}
		logical.WriteString(line)
		continuing = false
		addProperty(vars, logical.String())
		logical.Reset()
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read env file: %w", err)
	}
	if logical.Len() > 0 {
		addProperty(vars, logical.String())
	}
	return vars, nil
}

// addProperty stores a key=value or key: value line; lines without an
// unescaped separator are ignored.
func addProperty(vars map[string]string, line string) {
	line = strings.TrimPrefix(line, "export ")
	sep := -1
	for i := 0; i < len(line); i++ {
		if line[i] == '\\' {
			i++
			continue
		}
		if line[i] == '=' || line[i] == ':' {
			sep = i
			break
		}
	}
	if sep <= 0 {
		return
	}
	key := unescapeProperty(strings.TrimSpace(line[:sep]))
	if key == "" {
		return
	}
	val := strings.TrimLeftFunc(line[sep+1:], unicode.IsSpace)
	vars[key] = unescapeProperty(unquote(trimUnescapedSpace(val)))
}

func trailingBackslashes(s string) int {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n
}

// trimUnescapedSpace drops trailing whitespace that is not escaped.
func trimUnescapedSpace(s string) string {
	end := len(s)
	for end > 0 && unicode.IsSpace(rune(s[end-1])) && trailingBackslashes(s[:end-1])%2 == 0 {
		end--
	}
	return s[:end]
}

func unescapeProperty(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch c = s[i]; c {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			if i+4 < len(s) {
				if n, err := strconv.ParseUint(s[i+1:i+5], 16, 16); err == nil {
					b.WriteRune(rune(n))
					i += 4
					continue
				}
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// postmanEnvironment is the export format of a Postman environment.
type postmanEnvironment struct {
	Values []struct {
		Key     string      `yaml:"key"`
		Value   interface{} `yaml:"value"`
		Enabled *bool       `yaml:"enabled"`
	} `yaml:"values"`
}

func parseStructuredEnv(r io.Reader) (map[string]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read env file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse env file: %w", err)
	}
	if _, ok := raw["values"].([]interface{}); ok {
		var env postmanEnvironment
		if err := yaml.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("parse postman environment: %w", err)
		}
		vars := make(map[string]string, len(env.Values))
		for _, v := range env.Values {
			if v.Key == "" || (v.Enabled != nil && !*v.Enabled) {
				continue
			}
			vars[v.Key] = scalarString(v.Value)
		}
		return vars, nil
	}
	return flattenMap(raw, ""), nil
}

func flattenMap(data map[string]interface{}, prefix string) map[string]string {
	out := make(map[string]string)
	for key, value := range data {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]interface{}:
			maps.Copy(out, flattenMap(v, fullKey))
		default:
			out[fullKey] = scalarString(v)
		}
	}
	return out
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
