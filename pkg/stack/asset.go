package stack

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Asset is a local directory whose files are the unit of a deployment.
type Asset struct {
	Path string
}

// AssetFile is a single file of an asset.
// Key is the slash separated path relative to the asset directory.
type AssetFile struct {
	Key     string
	Content []byte
}

// maxAssetDepth bounds the directory depth of an asset, symlink loops end there.
const maxAssetDepth = 32

// Files returns every regular file below the asset directory, sorted by key.
// Symlinks are followed. Entries starting with ".." are skipped, kubelet uses them
// for the atomic update of mounted volumes.
func (a Asset) Files(afs afero.Fs) ([]AssetFile, error) {
	info, err := afs.Stat(a.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read asset %q", a.Path)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset %q is not a directory", a.Path)
	}

	files := []AssetFile{}
	err = a.walk(afs, a.Path, "", 0, &files)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot walk asset %q", a.Path)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Key < files[j].Key
	})

	return files, nil
}

func (a Asset) walk(afs afero.Fs, dir, prefix string, depth int, files *[]AssetFile) error {
	if depth > maxAssetDepth {
		return fmt.Errorf("directory %q is nested deeper than %d levels", dir, maxAssetDepth)
	}

	entries, err := afero.ReadDir(afs, dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "..") {
			continue
		}

		p := filepath.Join(dir, entry.Name())
		key := path.Join(prefix, entry.Name())

		info := entry
		if info.Mode()&fs.ModeSymlink != 0 {
			info, err = afs.Stat(p)
			if err != nil {
				return errors.Wrapf(err, "cannot resolve symlink %q", p)
			}
		}

		switch {
		case info.IsDir():
			err := a.walk(afs, p, key, depth+1, files)
			if err != nil {
				return err
			}
		case info.Mode().IsRegular():
			content, err := afero.ReadFile(afs, p)
			if err != nil {
				return err
			}
			*files = append(*files, AssetFile{
				Key:     key,
				Content: content,
			})
		}
	}
	return nil
}

// Files returns the files of all sources of the deployment.
// Two sources must not contain the same key.
func (d *DeploymentSpec) Files(afs afero.Fs) ([]AssetFile, error) {
	seen := map[string]string{}
	all := []AssetFile{}

	for _, src := range d.Sources {
		files, err := src.Files(afs)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if other, ok := seen[f.Key]; ok {
				return nil, fmt.Errorf("file %q is part of asset %q and %q", f.Key, other, src.Path)
			}
			seen[f.Key] = src.Path
			all = append(all, f)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Key < all[j].Key
	})

	return all, nil
}

// Hash returns a stable hex encoded sha256 over the keys and contents of the given files.
// The files need to be sorted, which is the case for anything returned by Files.
func Hash(files []AssetFile) string {
	h := sha256.New()
	for _, f := range files {
		fmt.Fprintf(h, "%s\x00%d\x00", f.Key, len(f.Content))
		h.Write(f.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Keys returns the keys of the given files.
func Keys(files []AssetFile) []string {
	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, f.Key)
	}
	return keys
}
