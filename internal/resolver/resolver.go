// Package resolver implements the candidate-file naming convention: given
// an application name and an ordered list of profiles, it enumerates the
// files that exist under a repository checkout and would contribute to the
// merged response, lowest precedence first.
package resolver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vitaliisemenov/configserver/internal/parser"
)

// extensions are probed in this order per base name; only the first match
// is taken for that base name.
var extensions = []string{"yml", "yaml", "json", "properties"}

// Candidate is one resolved file: Path is relative to the repository base
// directory (suitable for use as a named-source provenance string);
// AbsPath is the canonicalized absolute path to read.
type Candidate struct {
	Path    string
	AbsPath string
}

// Resolver resolves candidate files under a base directory.
type Resolver struct {
	maxFileSize int64
	logger      *slog.Logger
}

// New returns a Resolver enforcing maxFileSize (bytes) on any candidate it
// returns; a file that exceeds it is rejected with a *parser.ParseError,
// not silently dropped (spec: oversize is a parse-style failure, not a
// missing-file case).
func New(maxFileSize int64, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{maxFileSize: maxFileSize, logger: logger}
}

// Resolve returns candidate files for (application, profiles) under
// baseDir, lowest precedence first. searchPaths, when non-empty, narrows
// the search to those subdirectories of baseDir, probed in order and
// flattened (not cross-producted with the base-name templates). It stops
// and returns a *parser.ParseError as soon as a candidate exceeds the
// configured max file size; a request whose only matching file is oversize
// must fail loudly rather than fall through to a lower-precedence file or
// NotFound.
func (r *Resolver) Resolve(baseDir, application string, profiles []string, searchPaths []string) ([]Candidate, error) {
	baseNames := r.baseNames(application, profiles)

	dirs := searchPaths
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	var out []Candidate
	for _, dir := range dirs {
		searchDir := filepath.Join(baseDir, dir)
		for _, name := range baseNames {
			cand, ok, err := r.firstMatch(baseDir, searchDir, name)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, cand)
			}
		}
	}
	return out, nil
}

// baseNames returns the four naming-convention templates, lowest precedence
// first, with {profile} expanded across profiles in caller-supplied order.
func (r *Resolver) baseNames(application string, profiles []string) []string {
	names := []string{"application", application}
	for _, p := range profiles {
		names = append(names, "application-"+p)
	}
	for _, p := range profiles {
		names = append(names, application+"-"+p)
	}
	return names
}

// firstMatch probes extensions in precedence order for baseName under
// searchDir and returns the first file that exists and lies beneath
// baseDir after canonicalization. A match that exceeds the configured size
// limit is a hard error, not a skip: the caller's request fails with a
// ParseError rather than silently considering the file absent.
func (r *Resolver) firstMatch(baseDir, searchDir, baseName string) (Candidate, bool, error) {
	for _, ext := range extensions {
		relPath, err := filepath.Rel(baseDir, filepath.Join(searchDir, baseName+"."+ext))
		if err != nil {
			continue
		}
		absPath := filepath.Join(baseDir, relPath)

		if !r.withinBase(baseDir, absPath) {
			r.logger.Warn("resolver: candidate escapes base directory, dropped",
				"base_dir", baseDir, "attempted_path", absPath)
			continue
		}

		info, err := os.Stat(absPath)
		if err != nil || info.IsDir() {
			continue
		}

		if r.maxFileSize > 0 && info.Size() > r.maxFileSize {
			return Candidate{}, false, &parser.ParseError{
				Path:   filepath.ToSlash(relPath),
				Format: strings.TrimPrefix(ext, "."),
				Detail: fmt.Sprintf("file size %d exceeds max_file_size %d", info.Size(), r.maxFileSize),
			}
		}

		return Candidate{Path: filepath.ToSlash(relPath), AbsPath: absPath}, true, nil
	}
	return Candidate{}, false, nil
}

// withinBase reports whether absPath, after canonicalization, lies at or
// beneath baseDir. This is the canonicalize-then-prefix-check defense
// against traversal (including via symlinks).
func (r *Resolver) withinBase(baseDir, absPath string) bool {
	realBase, err := filepath.EvalSymlinks(baseDir)
	if err != nil {
		realBase = baseDir
	}
	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		// The file may not exist yet on this probe; fall back to a
		// lexical check on the unresolved path.
		realPath = absPath
	}

	realBase = filepath.Clean(realBase)
	realPath = filepath.Clean(realPath)

	if realPath == realBase {
		return true
	}
	return strings.HasPrefix(realPath, realBase+string(os.PathSeparator))
}
