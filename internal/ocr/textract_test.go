package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func word(id, text string) types.Block {
	return types.Block{BlockType: types.BlockTypeWord, Id: aws.String(id), Text: aws.String(text), Page: aws.Int32(1)}
}

func withChildren(b types.Block, ids ...string) types.Block {
	b.Relationships = []types.Relationship{{Type: types.RelationshipTypeChild, Ids: ids}}
	return b
}

func line(id, text string, page int32, words ...string) types.Block {
	return withChildren(types.Block{BlockType: types.BlockTypeLine, Id: aws.String(id), Text: aws.String(text), Page: aws.Int32(page)}, words...)
}

func cell(id string, row, col int32, words ...string) types.Block {
	return withChildren(types.Block{
		BlockType: types.BlockTypeCell, Id: aws.String(id), Page: aws.Int32(1),
		RowIndex: aws.Int32(row), ColumnIndex: aws.Int32(col),
	}, words...)
}

func sampleBlocks() []types.Block {
	return []types.Block{
		{BlockType: types.BlockTypePage, Id: aws.String("p1"), Page: aws.Int32(1)},
		line("l1", "PROFORMA INVOICE", 1, "w1", "w2"),
		word("w1", "PROFORMA"), word("w2", "INVOICE"),
		withChildren(types.Block{BlockType: types.BlockTypeTable, Id: aws.String("t1"), Page: aws.Int32(1)}, "c11", "c12", "c13", "c21", "c22", "c23"),
		// cells listed out of column order on purpose
		cell("c12", 1, 2, "w5"), cell("c11", 1, 1, "w3", "w4"), cell("c13", 1, 3),
		cell("c21", 2, 1, "w6"), cell("c22", 2, 2), cell("c23", 2, 3, "w7"),
		word("w3", "Unit"), word("w4", "Price"), word("w5", "Qty"), word("w6", "2,500"), word("w7", "20"),
		line("l2", "Unit Price Qty", 1, "w3", "w4", "w5"),
		line("l3", "   ", 1),
		line("l4", "Total: USD 50,000", 2, "w8"),
		word("w8", "Total:"),
	}
}

func TestFlattenBlocks(t *testing.T) {
	doc := FlattenBlocks(sampleBlocks())

	require.Len(t, doc.Tables, 1)
	assert.Equal(t, Table{"Unit Price Qty", "2,500 20"}, doc.Tables[0])
	assert.Equal(t, []string{
		"Unit Price Qty",
		"2,500 20",
		"PROFORMA INVOICE",
		"Total: USD 50,000",
	}, doc.Lines)
	assert.False(t, doc.IsEmpty())
}

func TestFlattenBlocks_Empty(t *testing.T) {
	doc := FlattenBlocks(nil)
	assert.True(t, doc.IsEmpty())

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tables":[],"lines":[]}`, string(b))
}

type fakeTextract struct {
	calls int
	errs  []error
	out   *textract.AnalyzeDocumentOutput
	got   *textract.AnalyzeDocumentInput
}

func (f *fakeTextract) AnalyzeDocument(_ context.Context, in *textract.AnalyzeDocumentInput, _ ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error) {
	f.calls++
	f.got = in
	if len(f.errs) >= f.calls && f.errs[f.calls-1] != nil {
		return nil, f.errs[f.calls-1]
	}
	return f.out, nil
}

func writeTemp(t *testing.T, name string, body []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, body, 0o600))
	return p
}

func TestTextractAnalyzer_RetriesThrottling(t *testing.T) {
	api := &fakeTextract{
		errs: []error{&types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}},
		out: &textract.AnalyzeDocumentOutput{
			Blocks:           sampleBlocks(),
			DocumentMetadata: &types.DocumentMetadata{Pages: aws.Int32(2)},
		},
	}
	a := NewTextractAnalyzer(api, TextractConfig{RetryDelay: 1}, nil)

	doc, err := a.Analyze(context.Background(), writeTemp(t, "invoice.pdf", []byte("%PDF-1.4")))
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls)
	assert.Len(t, doc.Lines, 4)
	assert.Equal(t, []types.FeatureType{types.FeatureTypeTables}, api.got.FeatureTypes)
	assert.Equal(t, []byte("%PDF-1.4"), api.got.Document.Bytes)
}

func TestTextractAnalyzer_PermanentErrorNotRetried(t *testing.T) {
	api := &fakeTextract{errs: []error{&types.UnsupportedDocumentException{Message: aws.String("nope")}}}
	a := NewTextractAnalyzer(api, TextractConfig{RetryDelay: 1}, nil)

	_, err := a.Analyze(context.Background(), writeTemp(t, "scan.png", []byte("png")))
	require.Error(t, err)
	assert.Equal(t, 1, api.calls)

	var unsupported *types.UnsupportedDocumentException
	assert.True(t, errors.As(err, &unsupported))
}

func TestTextractAnalyzer_RejectsUnknownExtension(t *testing.T) {
	a := NewTextractAnalyzer(&fakeTextract{}, TextractConfig{}, nil)
	_, err := a.Analyze(context.Background(), writeTemp(t, "notes.docx", []byte("x")))
	assert.ErrorIs(t, err, ErrUnsupported)
}
