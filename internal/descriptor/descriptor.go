// Package descriptor parses the plugin descriptor file: a line-oriented,
// comma-separated list of plugins the driver should load.
package descriptor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// MaxDescriptors is the fixed upper bound on plugin descriptors, matching
// the original's MAX_PLUGINS.
const MaxDescriptors = 16

// Kind distinguishes the two plugin ABIs.
type Kind int

const (
	Script Kind = 0
	Native Kind = 1
)

func (k Kind) String() string {
	if k == Native {
		return "NATIVE"
	}
	return "SCRIPT"
}

// Descriptor is one parsed line of the plugin descriptor file.
type Descriptor struct {
	Name           string
	Path           string
	Enabled        bool
	Kind           Kind
	ConfigPath     string
	ScriptEnvPath  string
}

// Parse reads descriptor lines from r: blank lines and lines starting
// with '#' are skipped; each remaining line is
// name,path,enabled,kind,config_path[,script_env_path]. Parsing stops at
// the first descriptor line beyond MaxDescriptors, returning the
// MaxDescriptors descriptors read so far plus an error.
func Parse(r io.Reader) ([]Descriptor, error) {
	var out []Descriptor
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		d, err := parseLine(trimmed)
		if err != nil {
			return out, fmt.Errorf("descriptor line %d: %w", lineNo, err)
		}

		if len(out) >= MaxDescriptors {
			return out, fmt.Errorf("descriptor line %d: exceeds maximum of %d plugins", lineNo, MaxDescriptors)
		}
		out = append(out, d)
	}

	if err := scanner.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func parseLine(line string) (Descriptor, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 5 {
		return Descriptor{}, fmt.Errorf("expected at least 5 fields, got %d", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	enabled, err := strconv.Atoi(fields[2])
	if err != nil {
		return Descriptor{}, fmt.Errorf("invalid enabled flag %q: %w", fields[2], err)
	}
	kindVal, err := strconv.Atoi(fields[3])
	if err != nil {
		return Descriptor{}, fmt.Errorf("invalid kind %q: %w", fields[3], err)
	}

	d := Descriptor{
		Name:       fields[0],
		Path:       fields[1],
		Enabled:    enabled != 0,
		Kind:       Kind(kindVal),
		ConfigPath: fields[4],
	}
	if len(fields) >= 6 {
		d.ScriptEnvPath = fields[5]
	}
	return d, nil
}

// ParseFile is a convenience wrapper around Parse for a descriptor file
// on disk.
func ParseFile(path string) ([]Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}
