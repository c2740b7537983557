package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	outputs map[string]string
	fail    map[string]bool
	calls   []string
	// renders creates page images for pdftoppm
	renders int
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, name)
	if f.fail[name] {
		return nil, []byte(name + " failed"), errors.New("exit status 1")
	}
	if name == "pdftoppm" {
		prefix := args[len(args)-1]
		for i := 1; i <= f.renders; i++ {
			_ = os.WriteFile(prefix+"-"+string(rune('0'+i))+".png", []byte("img"), 0o600)
		}
	}
	return []byte(f.outputs[name]), nil, nil
}

func TestLocalAnalyzer_EmbeddedPDFText(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"pdftotext": "LETTER OF CREDIT\r\n\n\n\nLC No:   LC-2026-0042\t\tAmount: USD 50,000\n\f\nPage 2 text here for length",
	}}
	a := NewLocalAnalyzerWithRunner(LocalConfig{}, r, nil)

	doc, err := a.Analyze(context.Background(), filepath.Join(t.TempDir(), "lc.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"LETTER OF CREDIT",
		"LC No: LC-2026-0042 Amount: USD 50,000",
		"Page 2 text here for length",
	}, doc.Lines)
	assert.Nil(t, doc.Tables)
	assert.Equal(t, []string{"pdftotext"}, r.calls)
}

func TestLocalAnalyzer_ScannedPDFFallsBackToOCR(t *testing.T) {
	r := &fakeRunner{
		outputs: map[string]string{"pdftotext": "  \n", "tesseract": "AIR WAYBILL\nAWB 99881234\n"},
		renders: 2,
	}
	a := NewLocalAnalyzerWithRunner(LocalConfig{}, r, nil)

	doc, err := a.Analyze(context.Background(), filepath.Join(t.TempDir(), "awb.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []string{"AIR WAYBILL", "AWB 99881234", "AIR WAYBILL", "AWB 99881234"}, doc.Lines)
	assert.Equal(t, "pdftotext,pdftoppm,tesseract,tesseract", strings.Join(r.calls, ","))
}

func TestLocalAnalyzer_ImageAndErrors(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{"tesseract": "CERTIFICATE OF ORIGIN\n"}}
	a := NewLocalAnalyzerWithRunner(LocalConfig{}, r, nil)

	doc, err := a.Analyze(context.Background(), "co.jpg")
	require.NoError(t, err)
	assert.Equal(t, []string{"CERTIFICATE OF ORIGIN"}, doc.Lines)

	_, err = a.Analyze(context.Background(), "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupported)

	failing := NewLocalAnalyzerWithRunner(LocalConfig{}, &fakeRunner{fail: map[string]bool{"tesseract": true}}, nil)
	_, err = failing.Analyze(context.Background(), "co.png")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	in := "Seller:\t\tACME   Ltd  \r\n-----\n\n\n\nBuyer: Desert Horizon"
	assert.Equal(t, "Seller: ACME Ltd\n\nBuyer: Desert Horizon", Normalize(in))
	assert.Equal(t, "", Normalize(""))
}

func TestNormalize_PageBreaksAndRules(t *testing.T) {
	in := "INVOICE\fpage 2\u00a0\u00a0total\n| | | |\n====\nend"
	assert.Equal(t, "INVOICE\npage 2 total\nend", Normalize(in))
}
