// Package bagit validates a BagIt bag before a verification run reads its
// payload. Only the pieces the verifier depends on are checked: the bag
// declaration, the payload manifests, and payload completeness.
package bagit

import (
	"bufio"
	"crypto/md5"  // #nosec G501 -- manifest verification only
	"crypto/sha1" // #nosec G505 -- manifest verification only
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Tags every bag declaration must carry.
var requiredTags = []string{"BagIt-Version", "Tag-File-Character-Encoding"}

// Problem describes one validation failure. A bag with any problem must not
// be used as a verification source.
type Problem struct {
	Path   string
	Detail string
}

func (p Problem) String() string { return p.Path + ": " + p.Detail }

// Validate checks the bag rooted at root: bagit.txt must carry the required
// tags, every manifest entry must hash to its recorded digest, and every
// payload file must appear in at least one manifest. All problems are
// collected, not just the first. The error return is reserved for the bag
// root being unreadable.
func Validate(root string) ([]Problem, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("bag root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bag root %s is not a directory", root)
	}

	problems := checkDeclaration(root)

	manifests, err := filepath.Glob(filepath.Join(root, "manifest-*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}
	if len(manifests) == 0 {
		problems = append(problems, Problem{Path: "manifest", Detail: "no payload manifest found"})
	}

	listed := make(map[string]bool)
	for _, m := range manifests {
		probs, entries, err := checkManifest(root, m)
		if err != nil {
			return nil, err
		}
		problems = append(problems, probs...)
		for _, e := range entries {
			listed[e] = true
		}
	}

	problems = append(problems, checkCompleteness(root, listed)...)
	return problems, nil
}

func checkDeclaration(root string) []Problem {
	f, err := os.Open(filepath.Join(root, "bagit.txt"))
	if err != nil {
		return []Problem{{Path: "bagit.txt", Detail: "missing bag declaration"}}
	}
	defer f.Close()

	var problems []Problem
	tags := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			problems = append(problems, Problem{Path: "bagit.txt", Detail: fmt.Sprintf("malformed line %q", line)})
			continue
		}
		tags[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if err := sc.Err(); err != nil {
		problems = append(problems, Problem{Path: "bagit.txt", Detail: err.Error()})
	}
	for _, tag := range requiredTags {
		if tags[tag] == "" {
			problems = append(problems, Problem{Path: "bagit.txt", Detail: "missing required tag " + tag})
		}
	}
	return problems
}

// checkManifest verifies one manifest-<algorithm>.txt and returns the payload
// paths it lists. Manifest paths are slash-separated and relative to the bag
// root.
func checkManifest(root, manifest string) ([]Problem, []string, error) {
	name := filepath.Base(manifest)
	algorithm := strings.TrimSuffix(strings.TrimPrefix(name, "manifest-"), ".txt")
	if _, err := newHasher(algorithm); err != nil {
		return []Problem{{Path: name, Detail: "unsupported manifest algorithm " + algorithm}}, nil, nil
	}

	f, err := os.Open(manifest)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	var problems []Problem
	var entries []string
	lineNo := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cut := strings.IndexAny(line, " \t")
		if cut < 0 {
			problems = append(problems, Problem{Path: name, Detail: fmt.Sprintf("malformed entry on line %d", lineNo)})
			continue
		}
		want := line[:cut]
		rel := strings.TrimLeft(line[cut:], " \t")
		entries = append(entries, rel)

		got, err := hashFile(filepath.Join(root, filepath.FromSlash(rel)), algorithm)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			problems = append(problems, Problem{Path: rel, Detail: "listed in " + name + " but missing"})
		case err != nil:
			problems = append(problems, Problem{Path: rel, Detail: err.Error()})
		case !strings.EqualFold(got, want):
			problems = append(problems, Problem{
				Path:   rel,
				Detail: fmt.Sprintf("%s mismatch: manifest %s, computed %s", algorithm, want, got),
			})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return problems, entries, nil
}

func checkCompleteness(root string, listed map[string]bool) []Problem {
	payload := filepath.Join(root, "data")
	if _, err := os.Stat(payload); err != nil {
		return []Problem{{Path: "data", Detail: "payload directory missing"}}
	}

	var problems []Problem
	_ = filepath.WalkDir(payload, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			problems = append(problems, Problem{Path: path, Detail: err.Error()})
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if rel = filepath.ToSlash(rel); !listed[rel] {
			problems = append(problems, Problem{Path: rel, Detail: "not listed in any manifest"})
		}
		return nil
	})
	return problems
}

func newHasher(algorithm string) (hash.Hash, error) {
	switch strings.ToUpper(strings.TrimSpace(algorithm)) {
	case "SHA256":
		return sha256.New(), nil
	case "SHA1":
		return sha1.New(), nil // #nosec G401 -- manifest verification only
	case "SHA512":
		return sha512.New(), nil
	case "MD5":
		return md5.New(), nil // #nosec G401 -- manifest verification only
	default:
		return nil, fmt.Errorf("unsupported algorithm: %q", algorithm)
	}
}

func hashFile(path, algorithm string) (string, error) {
	h, err := newHasher(algorithm)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
