package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/summarize"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// errorLine is the single JSON line written to stderr for a failed command.
type errorLine struct {
	Error          string `json:"error"`
	Code           string `json:"code,omitempty"`
	Message        string `json:"message"`
	RawModelOutput string `json:"raw_model_output,omitempty"`
}

// printError writes err to w, falling back to plain text if encoding fails.
func printError(w io.Writer, err error) {
	line := errorLine{Error: "RUN_FAILED", Code: common.CodeOf(err), Message: err.Error()}
	var sde *summarize.SummaryDecodeError
	if errors.As(err, &sde) {
		line.Error = string(constants.ErrSummaryDecode)
		line.RawModelOutput = sde.Raw
	}
	b, merr := json.Marshal(line)
	if merr != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(b))
}
