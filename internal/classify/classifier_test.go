package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/llm/llmtest"
	"github.com/joseph-ayodele/tradedocs/internal/ocr"
)

func TestClassify_ResolvesEveryType(t *testing.T) {
	for _, dt := range constants.AllDocumentTypes() {
		t.Run(string(dt), func(t *testing.T) {
			c := New(llmtest.Static("  "+string(dt)+"\n"), nil)
			res, err := c.Classify(context.Background(), ocr.NormalizedDocument{Lines: []string{"x"}})
			require.NoError(t, err)
			assert.True(t, res.Resolved())
			assert.Equal(t, dt, res.Type)
		})
	}
}

func TestClassify_HardGuard(t *testing.T) {
	tests := []string{
		"invoice",
		"BILL_OF_LADING",
		"The document is an INVOICE.",
		"INVOICE or AIR_WAYBILL",
		"",
	}
	for _, out := range tests {
		t.Run(out, func(t *testing.T) {
			c := New(llmtest.Static(out), nil)
			res, err := c.Classify(context.Background(), ocr.NormalizedDocument{Lines: []string{"x"}})
			require.NoError(t, err)
			assert.False(t, res.Resolved())
			assert.Empty(t, res.Type)
			require.NotNil(t, res.Err)
			assert.Equal(t, out, res.Err.Raw)
			assert.True(t, errors.Is(res.Err, ErrUnresolved))
		})
	}
}

func TestClassify_StripsQuotes(t *testing.T) {
	c := New(llmtest.Static("`LETTER_OF_CREDIT`"), nil)
	res, err := c.Classify(context.Background(), ocr.NormalizedDocument{Lines: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, constants.LetterOfCredit, res.Type)
}

// A deterministic generator yields the same label for the same payload.
func TestClassify_Idempotent(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(_, user string) (string, error) {
		if strings.Contains(user, "CERTIFICATE OF ORIGIN") {
			return "CERTIFICATE_OF_ORIGIN", nil
		}
		return "AIR_WAYBILL", nil
	}}
	c := New(fake, nil)
	doc := ocr.NormalizedDocument{Lines: []string{"CERTIFICATE OF ORIGIN", "Flight EK 9901", "Airport of departure: SZX"}}

	first, err := c.Classify(context.Background(), doc)
	require.NoError(t, err)
	second, err := c.Classify(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, first.Type, second.Type)
	assert.Equal(t, constants.CertificateOfOrigin, first.Type)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0], calls[1])
	assert.Contains(t, calls[0].User, `"lines"`)
	assert.Contains(t, calls[0].User, `"tables"`)
}

func TestClassify_GeneratorFailureIsReturned(t *testing.T) {
	boom := errors.New("service unavailable")
	c := New(llmtest.Failing(boom), nil)
	_, err := c.Classify(context.Background(), ocr.NormalizedDocument{Lines: []string{"x"}})
	assert.ErrorIs(t, err, boom)
}

func TestSystemPrompt_ListsClosedSetAndPriority(t *testing.T) {
	p := SystemPrompt()
	for _, dt := range constants.AllDocumentTypes() {
		assert.Contains(t, p, string(dt))
	}
	assert.Contains(t, p, "If 'CERTIFICATE OF ORIGIN' appears")
}
