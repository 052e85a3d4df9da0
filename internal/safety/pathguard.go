// Package safety guards the filesystem and process boundaries against an
// untrusted plan: paths must stay under the project root and match the path
// allowlist, commands must match the command allowlist.
package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/policy"
)

const reservedReason = "reserved for planguard state"

// ResolvePath resolves an untrusted relative path against root and returns
// the absolute destination. The path must stay strictly inside root and its
// cleaned form must match allowlist. Targets need not exist yet.
func ResolvePath(root, rel string, allowlist []string) (string, error) {
	rootAbs, err := resolveRoot(root)
	if err != nil {
		return "", err
	}

	cleaned, err := walkRelative(rel)
	if err != nil {
		return "", err
	}
	if cleaned == "" {
		return "", errors.NewPathRejectedError(rel, "resolves to the project root")
	}
	if Reserved(cleaned) {
		return "", errors.NewPathRejectedError(rel, reservedReason)
	}

	if !PathAllowed(cleaned, allowlist) {
		return "", errors.NewPathRejectedError(rel, fmt.Sprintf("not in path allowlist %v", allowlist))
	}

	return confine(rootAbs, rel, cleaned)
}

// ResolveDir resolves a working directory under root. Empty and "." map to
// root itself. No allowlist applies.
func ResolveDir(root, rel string) (string, error) {
	rootAbs, err := resolveRoot(root)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(rel) == "" {
		return rootAbs, nil
	}

	cleaned, err := walkRelative(rel)
	if err != nil {
		return "", err
	}
	if cleaned == "" {
		return rootAbs, nil
	}
	return confine(rootAbs, rel, cleaned)
}

// NormalizeRelative returns the slash-separated clean form of rel. Absolute
// paths, drive or UNC prefixes and any ".." component are rejected outright.
func NormalizeRelative(rel string) (string, error) {
	if err := rejectAnchored(rel); err != nil {
		return "", err
	}

	parts := make([]string, 0, 8)
	for _, part := range strings.Split(toSlash(rel), "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", errors.NewPathRejectedError(rel, "parent traversal is not allowed")
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return "", errors.NewPathRejectedError(rel, "empty path")
	}
	return strings.Join(parts, "/"), nil
}

// PathAllowed reports whether the clean relative path rel equals an
// allowlist entry or lies below one. Matching is per path component, so
// "src-evil" does not match "src". An entry of "." allows every path.
func PathAllowed(rel string, allowlist []string) bool {
	rel = strings.Trim(toSlash(rel), "/")
	for _, entry := range allowlist {
		e := strings.TrimSpace(toSlash(entry))
		if e == "." || e == "./" {
			return true
		}
		e = strings.Trim(strings.TrimPrefix(e, "./"), "/")
		if e == "" {
			continue
		}
		if rel == e || strings.HasPrefix(rel, e+"/") {
			return true
		}
	}
	return false
}

// Reserved reports whether the clean relative path rel lies in the
// per-project state directory, which no plan may write to.
func Reserved(rel string) bool {
	first, _, _ := strings.Cut(strings.TrimPrefix(toSlash(rel), "./"), "/")
	return strings.EqualFold(first, policy.DirName)
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func rejectAnchored(rel string) error {
	if strings.TrimSpace(rel) == "" {
		return errors.NewPathRejectedError(rel, "empty path")
	}
	if strings.ContainsRune(rel, 0) {
		return errors.NewPathRejectedError(rel, "contains NUL byte")
	}
	p := toSlash(rel)
	if strings.HasPrefix(p, "/") {
		return errors.NewPathRejectedError(rel, "absolute paths are not allowed")
	}
	if len(p) >= 2 && p[1] == ':' && isLetter(p[0]) {
		return errors.NewPathRejectedError(rel, "drive-qualified paths are not allowed")
	}
	if filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return errors.NewPathRejectedError(rel, "absolute paths are not allowed")
	}
	return nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// walkRelative applies "." and ".." components lexically. A ".." with
// nothing left to pop would leave the root and is rejected.
func walkRelative(rel string) (string, error) {
	if err := rejectAnchored(rel); err != nil {
		return "", err
	}

	segs := make([]string, 0, 8)
	for _, part := range strings.Split(toSlash(rel), "/") {
		switch part {
		case "", ".":
		case "..":
			if len(segs) == 0 {
				return "", errors.NewPathRejectedError(rel, "escapes project root")
			}
			segs = segs[:len(segs)-1]
		default:
			segs = append(segs, part)
		}
	}
	return strings.Join(segs, "/"), nil
}

// resolveRoot makes root absolute and follows symlinks when it exists.
func resolveRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("resolve project root %s", root), err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return filepath.Clean(abs), nil
}

// confine joins cleaned onto rootAbs and checks containment, both lexically
// and for the deepest existing ancestor after symlink resolution.
func confine(rootAbs, rel, cleaned string) (string, error) {
	abs := filepath.Join(rootAbs, filepath.FromSlash(cleaned))
	if !within(rootAbs, abs) {
		return "", errors.NewPathRejectedError(rel, "escapes project root")
	}

	for dir := abs; dir != rootAbs && within(rootAbs, dir); dir = filepath.Dir(dir) {
		if _, err := os.Lstat(dir); err != nil {
			continue
		}
		real, err := filepath.EvalSymlinks(dir)
		if err != nil {
			return "", errors.NewPathRejectedError(rel, "cannot resolve symlinks")
		}
		if real != rootAbs && !within(rootAbs, real) {
			return "", errors.NewPathRejectedError(rel, "symlink points outside project root")
		}
		if r, err := filepath.Rel(rootAbs, real); err == nil && Reserved(r) {
			return "", errors.NewPathRejectedError(rel, reservedReason)
		}
		break
	}

	return abs, nil
}

// within reports whether p lies strictly below root.
func within(root, p string) bool {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	if r == "." || filepath.IsAbs(r) {
		return false
	}
	return r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator))
}
