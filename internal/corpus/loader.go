package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/formworks/formfill-cli/internal/model"
)

// TextCache is the slice of the run store the loader uses to avoid
// re-extracting unchanged scans. Implementations return (nil, nil) on a
// miss or an expired entry.
type TextCache interface {
	GetCachedText(ctx context.Context, checksum string) (*model.DocumentCache, error)
	SetCachedText(ctx context.Context, cache model.DocumentCache, ttl time.Duration) error
}

// LoaderOptions configure a corpus Loader.
type LoaderOptions struct {
	// Extractor converts PDFs to text. Nil makes PDF files load errors.
	Extractor Extractor
	// Cache stores extracted text keyed by file checksum. Optional.
	Cache TextCache
	// CacheTTL bounds how long cached extractions stay valid.
	CacheTTL time.Duration
}

// Loader reads source documents from disk into a DocumentCorpus.
type Loader struct {
	opts LoaderOptions
}

// NewLoader creates a Loader.
func NewLoader(opts LoaderOptions) *Loader {
	return &Loader{opts: opts}
}

// LoadDir loads every supported file in dir. os.ReadDir returns entries
// sorted by filename, which fixes corpus order and with it the final
// tie-break between equally ranked candidates. Documents that fail to
// load or come up empty are skipped with a warning instead of failing
// the whole corpus.
func (l *Loader) LoadDir(ctx context.Context, dir string) (model.DocumentCorpus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: read dir %s", dir)
	}

	var corpus model.DocumentCorpus
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !supportedExt(entry.Name()) {
			zap.L().Debug("corpus: ignoring file", zap.String("file", entry.Name()))
			continue
		}
		doc, err := l.LoadFile(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			zap.L().Warn("corpus: skipping document",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}
		if doc.Text == "" {
			zap.L().Warn("corpus: skipping empty document", zap.String("file", entry.Name()))
			continue
		}
		corpus = append(corpus, doc)
	}
	return corpus, nil
}

// LoadFile loads a single document. The document id is the base filename
// without extension; the kind is detected from filename and content.
func (l *Loader) LoadFile(ctx context.Context, path string) (model.Document, error) {
	name := filepath.Base(path)
	var (
		text string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".txt", ".md":
		text, err = readTextFile(path)
	case ".pdf":
		text, err = l.extractPDF(ctx, path)
	case ".xlsx":
		text, err = readWorkbookText(path)
	default:
		return model.Document{}, eris.Errorf("corpus: unsupported file type %q", ext)
	}
	if err != nil {
		return model.Document{}, err
	}

	id := strings.TrimSuffix(name, filepath.Ext(name))
	text = strings.TrimSpace(text)
	return model.Document{ID: id, Text: text, Kind: DetectKind(id, text)}, nil
}

func supportedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".pdf", ".xlsx":
		return true
	}
	return false
}

// readTextFile reads UTF-8 text, falling back to Windows-1252 for legacy
// scan exports whose umlauts arrive as single high bytes.
func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "corpus: read %s", path)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", eris.Wrapf(err, "corpus: decode %s", path)
	}
	return string(decoded), nil
}

func (l *Loader) extractPDF(ctx context.Context, path string) (string, error) {
	if l.opts.Extractor == nil {
		return "", eris.Errorf("corpus: no pdf extractor configured for %s", path)
	}
	sum, err := fileChecksum(path)
	if err != nil {
		return "", err
	}
	if l.opts.Cache != nil {
		cached, err := l.opts.Cache.GetCachedText(ctx, sum)
		if err != nil {
			zap.L().Warn("corpus: cache lookup failed", zap.String("file", path), zap.Error(err))
		} else if cached != nil {
			return cached.Text, nil
		}
	}

	text, err := l.opts.Extractor.ExtractText(ctx, path)
	if err != nil {
		return "", err
	}

	if l.opts.Cache != nil {
		now := time.Now()
		entry := model.DocumentCache{
			Checksum:    sum,
			Path:        path,
			Text:        text,
			ExtractedAt: now,
			ExpiresAt:   now.Add(l.opts.CacheTTL),
		}
		if err := l.opts.Cache.SetCachedText(ctx, entry, l.opts.CacheTTL); err != nil {
			zap.L().Warn("corpus: cache write failed", zap.String("file", path), zap.Error(err))
		}
	}
	return text, nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "corpus: open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrapf(err, "corpus: checksum %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// readWorkbookText flattens a workbook into scannable text: non-empty
// cells joined with double spaces (keeping label and value adjacent),
// rows per line, sheets separated by blank lines.
func readWorkbookText(path string) (string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "corpus: open workbook %s", path)
	}

	var sheets []string
	for _, sheet := range f.Sheets {
		var lines []string
		for _, row := range sheet.Rows {
			var cells []string
			for _, cell := range row.Cells {
				if v := strings.TrimSpace(cell.String()); v != "" {
					cells = append(cells, v)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, "  "))
			}
		}
		if len(lines) > 0 {
			sheets = append(sheets, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(sheets, "\n\n"), nil
}
