package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
)

// LocalConfig configures the poppler/tesseract analyzer.
type LocalConfig struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit

	// MinTextChars is the embedded-text length below which a PDF is treated
	// as scanned and rasterized for OCR. Default 40.
	MinTextChars int
	Timeout      time.Duration
}

// LocalAnalyzer reads embedded PDF text with pdftotext and falls back to
// pdftoppm + tesseract for scans and images. It produces lines only; table
// structure is not recovered.
type LocalAnalyzer struct {
	cfg    LocalConfig
	runner Runner
	logger *slog.Logger
}

func NewLocalAnalyzer(cfg LocalConfig, logger *slog.Logger) *LocalAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return NewLocalAnalyzerWithRunner(cfg, execRunner{logger: logger}, logger)
}

// NewLocalAnalyzerWithRunner is used by tests to stub the external tools.
func NewLocalAnalyzerWithRunner(cfg LocalConfig, r Runner, logger *slog.Logger) *LocalAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 40
	}
	return &LocalAnalyzer{cfg: cfg, runner: r, logger: logger}
}

// LocalConfigFrom maps application config onto the local analyzer config.
func LocalConfigFrom(c common.OCRConfig) LocalConfig {
	return LocalConfig{
		Pdftotext:     c.Pdftotext,
		Pdftoppm:      c.Pdftoppm,
		Tesseract:     c.Tesseract,
		TesseractLang: c.TesseractLang,
		TessdataDir:   c.TessdataDir,
		DPI:           c.DPI,
		Timeout:       c.Timeout,
	}
}

// Analyze picks a strategy based on file extension.
func (a *LocalAnalyzer) Analyze(ctx context.Context, path string) (NormalizedDocument, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	start := time.Now()
	log := common.LoggerFrom(ctx, a.logger)
	ext := constants.NormalizeExt(filepath.Ext(path))

	var (
		text   string
		method string
		err    error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		text, method, err = a.analyzePDF(ctx, path)
	case constants.IMAGE:
		method = "image-ocr"
		text, err = a.tesseract(ctx, path)
	default:
		return NormalizedDocument{}, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err != nil {
		log.Error("ocr.local.failed", "path", path, "method", method, "error", err)
		return NormalizedDocument{}, err
	}

	doc := NormalizedDocument{Lines: LinesFromText(text)}
	log.Info("ocr.local.ok",
		"path", path,
		"method", method,
		"lines", len(doc.Lines),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

func (a *LocalAnalyzer) analyzePDF(ctx context.Context, path string) (string, string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := a.runner.Run(ctx, a.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err == nil && len(strings.TrimSpace(Normalize(string(out)))) >= a.cfg.MinTextChars {
		return string(out), "pdf-text", nil
	}
	if err != nil {
		a.logger.Warn("ocr.local.pdftotext_failed", "path", path, "stderr", truncate(string(errb), 512))
	}
	text, err := a.pdfToOCR(ctx, path)
	return text, "pdf-ocr", err
}

func (a *LocalAnalyzer) pdfToOCR(ctx context.Context, path string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "tradedocs-pp-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			a.logger.Warn("ocr.local.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := a.runner.Run(ctx, a.cfg.Pdftoppm, "-r", strconv.Itoa(a.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	// prefix-1.png, prefix-2.png, ...
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if a.cfg.MaxPages > 0 && len(matches) > a.cfg.MaxPages {
		matches = matches[:a.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm rendered no pages")
	}

	var b strings.Builder
	for _, img := range matches {
		txt, err := a.tesseract(ctx, img)
		if err != nil {
			a.logger.Warn("ocr.local.page_failed", "page", filepath.Base(img), "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\f")
		}
		b.WriteString(txt)
	}
	return b.String(), nil
}

func (a *LocalAnalyzer) tesseract(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", a.cfg.TesseractLang}
	if a.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", a.cfg.TessdataDir)
	}
	// tesseract <file> stdout -l <lang>
	out, errb, err := a.runner.Run(ctx, a.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
