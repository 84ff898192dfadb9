package corpus

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// Extractor turns a scanned source file into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// PdfToText shells out to poppler's pdftotext in layout mode. Layout mode
// preserves the column spacing of form-like PDFs, which label proximity
// scoring depends on.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. An empty binPath resolves
// "pdftotext" from PATH.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText runs pdftotext -layout on the given PDF and returns stdout.
// Page feeds are normalized to blank lines so section splitting sees page
// breaks as paragraph breaks.
func (p *PdfToText) ExtractText(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "corpus: pdftotext failed for %s: %s", path, stderr.String())
	}

	return strings.ReplaceAll(stdout.String(), "\f", "\n\n"), nil
}
