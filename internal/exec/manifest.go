package exec

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// CreateManifest creates a run manifest for audit purposes
func CreateManifest(stepID string, argv []string, result *CmdResult, runErr error) *RunManifest {
	m := &RunManifest{
		Timestamp:        time.Now().UTC(),
		StepID:           stepID,
		Command:          result.Command,
		Argv:             argv,
		Cwd:              result.Cwd,
		ExitCode:         result.StatusCode,
		Duration:         result.Duration.String(),
		ViaShellFallback: result.ViaShellFallback,
		TimedOut:         result.TimedOut,
		StdoutHash:       HashBytes([]byte(result.Stdout)),
		StderrHash:       HashBytes([]byte(result.Stderr)),
	}
	if runErr != nil {
		m.Error = runErr.Error()
	}
	return m
}

// SaveManifest writes a run manifest to dir and returns its path.
func SaveManifest(manifest *RunManifest, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create manifest directory: %w", err)
	}

	// timestamp prefix keeps directory listings in run order
	filename := fmt.Sprintf("%s_%s.json",
		manifest.Timestamp.Format("20060102_150405.000000"),
		sanitizeID(manifest.StepID))
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}

	return path, nil
}

// LoadManifests reads every manifest in dir, oldest first.
func LoadManifests(dir string) ([]*RunManifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	manifests := make([]*RunManifest, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read manifest %s: %w", name, err)
		}
		var m RunManifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal manifest %s: %w", name, err)
		}
		manifests = append(manifests, &m)
	}
	return manifests, nil
}

func sanitizeID(id string) string {
	if id == "" {
		return "step"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

// HashBytes returns the hex BLAKE3-256 digest of data.
func HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFile computes the BLAKE3-256 hash of a file
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
