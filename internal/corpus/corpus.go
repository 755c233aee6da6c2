// Package corpus discovers document files on disk and tokenizes them for indexing.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"triesearch/internal/index"
)

// ErrInvalidRoot is returned when the corpus root is neither a regular file nor a directory.
var ErrInvalidRoot = errors.New("root is not a valid directory or file")

// File is one tokenized corpus file. ID is the path relative to the corpus root.
type File struct {
	ID     string
	Tokens []string
}

// Options tunes Load.
type Options struct {
	Extensions []string
	Workers    int
	Logger     *slog.Logger
}

// FindFiles lists the documents under root. A regular file yields itself. A directory is walked
// recursively and yields sorted paths relative to root, filtered by extension when any are given.
func FindFiles(root string, extensions []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}
	if info.Mode().IsRegular() {
		return []string{filepath.Base(root)}, nil
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	}

	allowed := normalizeExtensions(extensions)
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if len(allowed) > 0 {
			if _, ok := allowed[strings.ToLower(filepath.Ext(path))]; !ok {
				return nil
			}
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// Load reads and tokenizes every file under root. Files are processed concurrently, bounded by
// opts.Workers, and returned in FindFiles order.
func Load(ctx context.Context, root string, tokenizer index.Tokenizer, opts Options) ([]File, error) {
	if tokenizer == nil {
		tokenizer = index.NewSegmentTokenizer()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	paths, err := FindFiles(root, opts.Extensions)
	if err != nil {
		return nil, err
	}

	base := root
	if info, err := os.Stat(root); err == nil && info.Mode().IsRegular() {
		base = filepath.Dir(root)
	}

	files := make([]File, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	for i, rel := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(filepath.Join(base, filepath.FromSlash(rel)))
			if err != nil {
				return fmt.Errorf("read %s: %w", rel, err)
			}
			files[i] = File{ID: rel, Tokens: tokenizer.Tokenize(string(content))}
			logger.Debug("tokenized file", "file", rel, "tokens", len(files[i].Tokens))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func normalizeExtensions(extensions []string) map[string]struct{} {
	if len(extensions) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return allowed
}
