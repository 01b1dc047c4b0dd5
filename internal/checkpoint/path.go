// Package checkpoint implements the sidecar state file: deriving its path
// next to a resume file, atomically writing progress, and loading it back on
// resume (spec §4.8, §6.3).
package checkpoint

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
)

// SidecarPath derives the current-scheme sidecar path for resume path R and
// optional per-file path F, exactly per spec §6.3.
func SidecarPath(resumePath, filePath string) (string, error) {
	r, err := filepath.Abs(resumePath)
	if err != nil {
		return "", err
	}

	var hashInput string
	if filePath != "" {
		f, err := filepath.Abs(filePath)
		if err != nil {
			return "", err
		}
		hashInput = r + "::" + f
	} else {
		hashInput = r
	}

	sum := md5.Sum([]byte(hashInput))
	hash := hex.EncodeToString(sum[:])[:8]

	dir := filepath.Dir(resumePath)
	base := filepath.Base(resumePath)
	name := "." + base + "." + hash + ".humanify-resume.json"
	return filepath.Join(dir, name), nil
}

// legacySidecarPaths returns, in order of preference, the sidecar paths
// produced by naming schemes this package has used in the past. Only
// SidecarPath (the current scheme) is ever written; these are tried on load
// only, oldest-compatible-state-wins, so a resume started under an older
// build of this tool is still found. Scheme v0 predates per-file-aware
// hashing (hash only ever covered R); scheme v1 added the per-file hash but
// used a shorter, unlabelled suffix before "humanify-resume.json" was
// settled on.
func legacySidecarPaths(resumePath, filePath string) ([]string, error) {
	r, err := filepath.Abs(resumePath)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(resumePath)
	base := filepath.Base(resumePath)

	sumR := md5.Sum([]byte(r))
	hashR := hex.EncodeToString(sumR[:])[:8]
	v0 := filepath.Join(dir, "."+base+"."+hashR+".resume.json")

	var paths []string
	paths = append(paths, v0)

	if filePath != "" {
		f, err := filepath.Abs(filePath)
		if err != nil {
			return nil, err
		}
		sumRF := md5.Sum([]byte(r + "::" + f))
		hashRF := hex.EncodeToString(sumRF[:])[:8]
		v1 := filepath.Join(dir, "."+base+"."+hashRF+".resume.json")
		paths = append(paths, v1)
	}

	return paths, nil
}
