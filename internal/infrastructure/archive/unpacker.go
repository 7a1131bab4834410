// Package archive flattens compressed bundles into individual documents.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/nwaples/rardecode/v2"
	"github.com/rs/zerolog"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/document"
)

// maxDepth bounds archive nesting so a malicious bundle cannot recurse
// forever.
const maxDepth = 10

// Unpacker recursively expands zip and rar bundles. Non-archives pass
// through untouched and entry names are flattened to their base name.
type Unpacker struct {
	log zerolog.Logger
}

// NewUnpacker builds the unpacker.
func NewUnpacker(logger zerolog.Logger) *Unpacker {
	return &Unpacker{log: logger.With().Str("component", "unpacker").Logger()}
}

// Unpack flattens every archive in files, recursing into nested archives.
func (u *Unpacker) Unpack(ctx context.Context, files []document.File) ([]document.File, error) {
	return u.unpack(ctx, files, 0)
}

func (u *Unpacker) unpack(ctx context.Context, files []document.File, depth int) ([]document.File, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("archive nesting exceeds %d levels", maxDepth)
	}

	var out []document.File
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !document.IsArchive(f.Name) {
			out = append(out, f)
			continue
		}

		entries, err := u.expand(f)
		if err != nil {
			return nil, fmt.Errorf("unpacking %s: %w", f.Name, err)
		}
		u.log.Debug().Str("archive", f.Name).Int("entries", len(entries)).Msg("archive expanded")

		nested, err := u.unpack(ctx, entries, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

func (u *Unpacker) expand(f document.File) ([]document.File, error) {
	switch strings.ToLower(path.Ext(f.Name)) {
	case ".zip":
		return expandZip(f.Content)
	case ".rar":
		return expandRar(f.Content)
	}
	return nil, fmt.Errorf("unsupported archive format %q", f.Name)
}

func expandZip(content []byte) ([]document.File, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}
	var out []document.File
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, document.File{Name: path.Base(entry.Name), Content: data})
	}
	return out, nil
}

func expandRar(content []byte) ([]document.File, error) {
	reader, err := rardecode.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	var out []document.File
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.IsDir {
			continue
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, err
		}
		out = append(out, document.File{Name: path.Base(header.Name), Content: data})
	}
	return out, nil
}
