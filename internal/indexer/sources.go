package indexer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/doccorpus/internal/bitcode"
	"github.com/dshills/doccorpus/pkg/types"
)

// FragmentExt is the file extension of fragments in a fragment directory
const FragmentExt = ".docs"

// FragmentSource yields every fragment to be reduced into a corpus.
// Implementations stop and return the callback's error when it fails.
type FragmentSource interface {
	ForEachFragment(ctx context.Context, fn func(types.Fragment) error) error
}

// MemorySource is a FragmentSource backed by a slice
type MemorySource []types.Fragment

// Add appends an encoded symbol produced by unit. The symbol id is read
// from the data itself.
func (s *MemorySource) Add(unit string, data []byte) error {
	id, err := fragmentID(data)
	if err != nil {
		return err
	}
	*s = append(*s, types.Fragment{ID: id, Unit: unit, Data: data})
	return nil
}

// ForEachFragment implements FragmentSource
func (s MemorySource) ForEachFragment(ctx context.Context, fn func(types.Fragment) error) error {
	for _, f := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// DirSource reads fragments laid out as <root>/<symbol id>/<unit>.docs
type DirSource struct {
	Root string
}

// ForEachFragment implements FragmentSource. Directories whose name is not
// a symbol id and files without the fragment extension are skipped.
func (s DirSource) ForEachFragment(ctx context.Context, fn func(types.Fragment) error) error {
	dirs, err := os.ReadDir(s.Root)
	if err != nil {
		return fmt.Errorf("failed to read fragment directory: %w", err)
	}

	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		id, err := types.ParseSymbolID(dir.Name())
		if err != nil {
			continue
		}

		files, err := os.ReadDir(filepath.Join(s.Root, dir.Name()))
		if err != nil {
			return fmt.Errorf("failed to read fragments of %s: %w", id, err)
		}
		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			if file.IsDir() || !strings.HasSuffix(file.Name(), FragmentExt) {
				continue
			}

			path := filepath.Join(s.Root, dir.Name(), file.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read fragment %s: %w", path, err)
			}
			unit, err := url.PathUnescape(strings.TrimSuffix(file.Name(), FragmentExt))
			if err != nil {
				unit = file.Name()
			}
			if err := fn(types.Fragment{ID: id, Unit: unit, Data: data}); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteFragment stores one fragment under root in the DirSource layout
func WriteFragment(root string, f types.Fragment) (string, error) {
	if f.Unit == "" {
		return "", errors.New("fragment has no unit name")
	}
	dir := filepath.Join(root, f.ID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create fragment directory: %w", err)
	}
	path := filepath.Join(dir, url.PathEscape(f.Unit)+FragmentExt)
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write fragment: %w", err)
	}
	return path, nil
}

// fragmentID decodes data far enough to learn which symbol it describes
func fragmentID(data []byte) (types.SymbolID, error) {
	info, err := bitcode.ReadInfo(data)
	if err != nil {
		return types.SymbolID{}, err
	}
	return info.Base().ID, nil
}
