package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
)

// TextractAPI is the subset of the Textract client the analyzer uses.
type TextractAPI interface {
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
}

// TextractConfig tunes the synchronous AnalyzeDocument call.
type TextractConfig struct {
	Timeout     time.Duration // per attempt, default 2m
	MaxAttempts uint          // default 3
	RetryDelay  time.Duration // default 1s
	MaxBytes    int64         // synchronous API limit, default 10 MiB
}

// TextractAnalyzer runs AnalyzeDocument with TABLES and flattens the blocks.
type TextractAnalyzer struct {
	api    TextractAPI
	cfg    TextractConfig
	logger *slog.Logger
}

func NewTextractAnalyzer(api TextractAPI, cfg TextractConfig, logger *slog.Logger) *TextractAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}
	return &TextractAnalyzer{api: api, cfg: cfg, logger: logger}
}

func (a *TextractAnalyzer) Analyze(ctx context.Context, path string) (NormalizedDocument, error) {
	log := common.LoggerFrom(ctx, a.logger)
	if constants.MapExtToFormat(constants.NormalizeExt(filepath.Ext(path))) == "" {
		return NormalizedDocument{}, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return NormalizedDocument{}, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(b)) > a.cfg.MaxBytes {
		return NormalizedDocument{}, fmt.Errorf("%s is %d bytes, above the %d byte synchronous limit", path, len(b), a.cfg.MaxBytes)
	}

	start := time.Now()
	var out *textract.AnalyzeDocumentOutput
	err = retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
			defer cancel()
			res, err := a.api.AnalyzeDocument(callCtx, &textract.AnalyzeDocumentInput{
				Document:     &types.Document{Bytes: b},
				FeatureTypes: []types.FeatureType{types.FeatureTypeTables},
			})
			if err != nil {
				if permanentTextractError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			out = res
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(a.cfg.MaxAttempts),
		retry.Delay(a.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("ocr.textract.retry", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		log.Error("ocr.textract.failed", "path", path, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return NormalizedDocument{}, fmt.Errorf("textract analyze: %w", err)
	}

	doc := FlattenBlocks(out.Blocks)
	var pages int32
	if out.DocumentMetadata != nil {
		pages = aws.ToInt32(out.DocumentMetadata.Pages)
	}
	log.Info("ocr.textract.ok",
		"path", path,
		"pages", pages,
		"tables", len(doc.Tables),
		"lines", len(doc.Lines),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

func permanentTextractError(err error) bool {
	var (
		unsupported *types.UnsupportedDocumentException
		bad         *types.BadDocumentException
		tooLarge    *types.DocumentTooLargeException
		invalid     *types.InvalidParameterException
		denied      *types.AccessDeniedException
	)
	return errors.As(err, &unsupported) ||
		errors.As(err, &bad) ||
		errors.As(err, &tooLarge) ||
		errors.As(err, &invalid) ||
		errors.As(err, &denied)
}

// FlattenBlocks builds a NormalizedDocument from Textract blocks. For each
// page in order, table rows come first (cells in column order, empty cells
// skipped, cell texts space-joined), then the page's LINE blocks. Lines
// whose words all sit inside a table cell are not repeated.
func FlattenBlocks(blocks []types.Block) NormalizedDocument {
	byID := make(map[string]types.Block, len(blocks))
	for _, b := range blocks {
		if id := aws.ToString(b.Id); id != "" {
			byID[id] = b
		}
	}

	type page struct {
		tables []types.Block
		lines  []types.Block
	}
	pages := map[int32]*page{}
	pageOf := func(b types.Block) *page {
		n := aws.ToInt32(b.Page)
		if n == 0 {
			n = 1
		}
		p, ok := pages[n]
		if !ok {
			p = &page{}
			pages[n] = p
		}
		return p
	}
	for _, b := range blocks {
		switch b.BlockType {
		case types.BlockTypeTable:
			pageOf(b).tables = append(pageOf(b).tables, b)
		case types.BlockTypeLine:
			pageOf(b).lines = append(pageOf(b).lines, b)
		}
	}

	order := make([]int32, 0, len(pages))
	for n := range pages {
		order = append(order, n)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	var doc NormalizedDocument
	for _, n := range order {
		p := pages[n]
		inTable := map[string]struct{}{}
		for _, tb := range p.tables {
			rows := tableRows(tb, byID, inTable)
			if len(rows) == 0 {
				continue
			}
			doc.Tables = append(doc.Tables, rows)
			doc.Lines = append(doc.Lines, rows...)
		}
		for _, lb := range p.lines {
			text := strings.TrimSpace(aws.ToString(lb.Text))
			if text == "" || allWordsIn(lb, inTable) {
				continue
			}
			doc.Lines = append(doc.Lines, text)
		}
	}
	return doc
}

func tableRows(table types.Block, byID map[string]types.Block, inTable map[string]struct{}) Table {
	type cell struct {
		col  int32
		text string
	}
	rows := map[int32][]cell{}
	for _, id := range childIDs(table) {
		c, ok := byID[id]
		if !ok || c.BlockType != types.BlockTypeCell {
			continue
		}
		var words []string
		for _, wid := range childIDs(c) {
			w, ok := byID[wid]
			if !ok || w.BlockType != types.BlockTypeWord {
				continue
			}
			inTable[wid] = struct{}{}
			if t := strings.TrimSpace(aws.ToString(w.Text)); t != "" {
				words = append(words, t)
			}
		}
		r := aws.ToInt32(c.RowIndex)
		rows[r] = append(rows[r], cell{col: aws.ToInt32(c.ColumnIndex), text: strings.Join(words, " ")})
	}

	idx := make([]int32, 0, len(rows))
	for r := range rows {
		idx = append(idx, r)
	}
	sort.Slice(idx, func(i, j int) bool { return idx[i] < idx[j] })

	var out Table
	for _, r := range idx {
		cells := rows[r]
		sort.SliceStable(cells, func(i, j int) bool { return cells[i].col < cells[j].col })
		parts := make([]string, 0, len(cells))
		for _, c := range cells {
			if c.text != "" {
				parts = append(parts, c.text)
			}
		}
		if len(parts) > 0 {
			out = append(out, strings.Join(parts, " "))
		}
	}
	return out
}

func childIDs(b types.Block) []string {
	var ids []string
	for _, rel := range b.Relationships {
		if rel.Type == types.RelationshipTypeChild {
			ids = append(ids, rel.Ids...)
		}
	}
	return ids
}

func allWordsIn(line types.Block, set map[string]struct{}) bool {
	ids := childIDs(line)
	if len(ids) == 0 || len(set) == 0 {
		return false
	}
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
