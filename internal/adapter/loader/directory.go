package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"medrag/internal/adapter/fs"
	"medrag/internal/domain"
)

// Source is where one domain's corpus lives on disk.
type Source struct {
	Dir      string
	Includes []string
	Excludes []string
}

// DirectoryLoader reads PDF, text and markdown files from a per-domain
// directory. PDFs yield one document per non-empty page.
type DirectoryLoader struct {
	sources map[string]Source
	logger  *zap.Logger
}

func NewDirectoryLoader(sources map[string]Source, logger *zap.Logger) *DirectoryLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryLoader{sources: sources, logger: logger}
}

// LoadCorpus returns documents in lexical path order. Unreadable files are
// skipped with a warning; a missing corpus directory is an error.
func (l *DirectoryLoader) LoadCorpus(ctx context.Context, domainID string) ([]domain.Document, error) {
	src, ok := l.sources[domainID]
	if !ok {
		return nil, domain.Configf("no corpus configured for domain %q", domainID)
	}

	files, err := fs.NewWalker(src.Includes, src.Excludes).Walk(src.Dir)
	if err != nil {
		return nil, fmt.Errorf("scan corpus %s: %w", src.Dir, err)
	}

	var docs []domain.Document
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		loaded, err := l.loadFile(f.Path, domainID)
		if err != nil {
			l.logger.Warn("skipping unreadable corpus file",
				zap.String("domain", domainID),
				zap.String("path", f.Path),
				zap.Error(err))
			continue
		}
		docs = append(docs, loaded...)
	}

	l.logger.Info("corpus loaded",
		zap.String("domain", domainID),
		zap.Int("files", len(files)),
		zap.Int("documents", len(docs)))

	return docs, nil
}

func (l *DirectoryLoader) loadFile(path, domainID string) ([]domain.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err := readPDF(path)
		if err != nil {
			return nil, err
		}
		var docs []domain.Document
		for i, text := range pages {
			if strings.TrimSpace(text) == "" {
				continue
			}
			docs = append(docs, domain.Document{
				Text: text,
				Metadata: map[string]string{
					domain.MetaSource: path,
					domain.MetaDomain: domainID,
					domain.MetaPage:   strconv.Itoa(i + 1),
				},
			})
		}
		return docs, nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("not valid UTF-8")
		}
		return []domain.Document{{
			Text: string(data),
			Metadata: map[string]string{
				domain.MetaSource: path,
				domain.MetaDomain: domainID,
			},
		}}, nil
	}
}

// readPDF extracts the plain text of every page. The pdf package panics on
// some malformed inputs, so panics are turned into errors.
func readPDF(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	fonts := make(map[string]*pdf.Font)
	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := p.Font(name)
				fonts[name] = &font
			}
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
