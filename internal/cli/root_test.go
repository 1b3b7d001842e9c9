package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoscore/backend/internal/display"
	"github.com/ecoscore/backend/internal/domain"
)

const sampleItems = `[
  {"name": "Bananas", "quantity": 2, "unit": "kg"},
  {"name": "xyzzynotfood", "quantity": 1, "unit": "kg"}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := runCLI(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunCLI_NoArgsPrintsUsage(t *testing.T) {
	code, stdout, stderr := run()

	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "ecoscore [command]")
	assert.Empty(t, stderr)
}

func TestRunCLI_HelpAnalyze(t *testing.T) {
	code, stdout, stderr := run("help", "analyze")

	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "ecoscore analyze [file] [flags]")
	assert.Empty(t, stderr)
}

func TestRunCLI_AnalyzeAutoJSON(t *testing.T) {
	path := writeFile(t, "items.json", sampleItems)

	code, stdout, stderr := run("analyze", path)
	require.Equal(t, ExitSuccess, code, stderr)

	var report domain.ReceiptReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))

	assert.Equal(t, 2, report.TotalItems)
	assert.Equal(t, 1, report.MatchedItems)
	assert.Equal(t, 1, report.UnmatchedItems)
	require.NotNil(t, report.ItemBreakdown[0].MatchedProduct)
	assert.Equal(t, "bananas", *report.ItemBreakdown[0].MatchedProduct)
	assert.InDelta(t, 1.4, report.TotalEmissions, 1e-9)
	assert.NotEmpty(t, report.ReceiptID)
}

func TestRunCLI_AnalyzeText(t *testing.T) {
	path := writeFile(t, "items.json", `{"items": `+sampleItems+`}`)

	code, stdout, stderr := run("analyze", "--json=false", "--file", path)
	require.Equal(t, ExitSuccess, code, stderr)

	assert.Contains(t, stdout, "Receipt Emissions")
	assert.Contains(t, stdout, "Bananas")
	assert.Contains(t, stdout, "no_match")
	assert.Contains(t, stdout, "Matched:  1 of 2")
	assert.Empty(t, stderr)
}

func TestRunCLI_AnalyzeStdin(t *testing.T) {
	rootCmd.SetIn(strings.NewReader(sampleItems))
	defer rootCmd.SetIn(nil)

	code, stdout, stderr := run("analyze", "--file", "-", "--json")
	require.Equal(t, ExitSuccess, code, stderr)

	var report domain.ReceiptReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 2, report.TotalItems)
}

func TestRunCLI_AnalyzeCustomCatalog(t *testing.T) {
	catalogPath := writeFile(t, "catalog.csv", "canonical_name,co2_per_kg,aliases\nlentils,0.9,red lentils\n")
	itemsPath := writeFile(t, "items.json", `[{"name":"RED LENTILS","quantity":2,"unit":"kg"}]`)

	code, stdout, stderr := run("analyze", itemsPath, "--catalog", catalogPath)
	require.Equal(t, ExitSuccess, code, stderr)

	var report domain.ReceiptReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.NotNil(t, report.ItemBreakdown[0].MatchedProduct)
	assert.Equal(t, "lentils", *report.ItemBreakdown[0].MatchedProduct)
	assert.InDelta(t, 1.8, report.TotalEmissions, 1e-9)
}

func TestRunCLI_AnalyzeErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     func(t *testing.T) []string
		wantCode int
		wantMsg  string
	}{
		{
			name:     "no file",
			args:     func(t *testing.T) []string { return []string{"analyze"} },
			wantCode: ExitInvalidArgs,
			wantMsg:  "please provide a line items file",
		},
		{
			name: "missing file",
			args: func(t *testing.T) []string {
				return []string{"analyze", filepath.Join(t.TempDir(), "missing.json")}
			},
			wantCode: ExitInvalidArgs,
			wantMsg:  "line items file not found",
		},
		{
			name: "malformed JSON",
			args: func(t *testing.T) []string {
				return []string{"analyze", writeFile(t, "bad.json", `{"items": [`)}
			},
			wantCode: ExitInvalidArgs,
			wantMsg:  "invalid line items",
		},
		{
			name: "object without items",
			args: func(t *testing.T) []string {
				return []string{"analyze", writeFile(t, "empty.json", `{"lines": []}`)}
			},
			wantCode: ExitInvalidArgs,
			wantMsg:  `"items" array`,
		},
		{
			name: "bad catalog",
			args: func(t *testing.T) []string {
				return []string{
					"analyze", writeFile(t, "items.json", sampleItems),
					"--catalog", writeFile(t, "catalog.csv", "canonical_name,co2_per_kg\nbeef,lots\n"),
				}
			},
			wantCode: ExitInvalidArgs,
			wantMsg:  domain.ErrInvalidCatalog.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := run(tt.args(t)...)

			assert.Equal(t, tt.wantCode, code)
			assert.Empty(t, stdout)

			var payload jsonErrorPayload
			require.NoError(t, json.Unmarshal([]byte(stderr), &payload), stderr)
			assert.Equal(t, "INVALID_ARGS", payload.Error.Code)
			assert.Equal(t, tt.wantCode, payload.Error.ExitCode)
			assert.Contains(t, payload.Error.Message, tt.wantMsg)
		})
	}
}

func TestRunCLI_AnalyzeTextError(t *testing.T) {
	code, _, stderr := run("analyze", "--json=false")

	assert.Equal(t, ExitInvalidArgs, code)
	assert.Contains(t, stderr, "error[invalid_args]: please provide a line items file")
	assert.Contains(t, stderr, "suggestions:")
}

func TestRunCLI_Match(t *testing.T) {
	code, stdout, stderr := run("match", "Bananas", "xyzzynotfood")
	require.Equal(t, ExitSuccess, code, stderr)

	var rows []display.MatchRow
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 2)

	assert.Equal(t, "Bananas", rows[0].Query)
	assert.True(t, rows[0].Result.IsMatched())
	assert.Equal(t, "bananas", *rows[0].Result.MatchedProduct)

	assert.Equal(t, "xyzzynotfood", rows[1].Query)
	assert.False(t, rows[1].Result.IsMatched())
}

func TestRunCLI_MatchRequiresName(t *testing.T) {
	code, _, _ := run("match")
	assert.Equal(t, ExitInvalidArgs, code)
}

func TestRunCLI_UnknownCommand(t *testing.T) {
	code, _, stderr := run("analyse", "--json=false")

	assert.Equal(t, ExitInvalidArgs, code)
	assert.Contains(t, stderr, "unknown command")
}

func TestRunCLI_ScanWithoutExtractor(t *testing.T) {
	image := writeFile(t, "receipt.png", "\x89PNG\r\n\x1a\nfake")

	code, _, stderr := run("scan", image)

	assert.Equal(t, ExitInvalidArgs, code)
	assert.Contains(t, stderr, domain.ErrExtractorUnavailable.Error())
}

func TestRunCLI_Scan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/extract", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"lines":[{"text":"BANANAS","quantity":2,"unit":"kg"},{"text":"","quantity":1}]}`)
	}))
	defer server.Close()
	t.Setenv("ECOSCORE_EXTRACTOR_BASE_URL", server.URL)

	image := writeFile(t, "receipt.png", "\x89PNG\r\n\x1a\nfake")
	code, stdout, stderr := run("scan", image)
	require.Equal(t, ExitSuccess, code, stderr)

	var report domain.ReceiptReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 2, report.TotalItems)
	assert.InDelta(t, 1.4, report.TotalEmissions, 1e-9)

	require.Len(t, report.ItemBreakdown, 2)
	blank := report.ItemBreakdown[1]
	assert.Equal(t, "", blank.OriginalName)
	assert.Equal(t, domain.StatusUnmatched, blank.Status)
	assert.Contains(t, blank.Issues, domain.IssueInvalidInput)
}

func TestRunCLI_ScanUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()
	t.Setenv("ECOSCORE_EXTRACTOR_BASE_URL", server.URL)

	image := writeFile(t, "receipt.png", "\x89PNG\r\n\x1a\nfake")
	code, _, stderr := run("scan", image)

	assert.Equal(t, ExitUpstream, code)
	assert.Contains(t, stderr, "UPSTREAM_ERROR")
}

func TestShouldAutoJSON(t *testing.T) {
	tests := []struct {
		name string
		args []string
		tty  bool
		want bool
	}{
		{name: "terminal", args: []string{"match", "milk"}, tty: true, want: false},
		{name: "piped", args: []string{"match", "milk"}, want: true},
		{name: "no args", args: nil, want: false},
		{name: "explicit json", args: []string{"match", "milk", "--json"}, want: false},
		{name: "explicit text", args: []string{"match", "milk", "--json=false"}, want: false},
		{name: "help", args: []string{"help", "match"}, want: false},
		{name: "help flag", args: []string{"match", "--help"}, want: false},
		{name: "help after terminator", args: []string{"match", "--", "--help"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldAutoJSON(tt.args, tt.tty))
		})
	}
}

func TestWithJSONFlag(t *testing.T) {
	assert.Equal(t, []string{"match", "milk", "--json"}, withJSONFlag([]string{"match", "milk"}))
	assert.Equal(t, []string{"match", "--json", "--", "-x"}, withJSONFlag([]string{"match", "--", "-x"}))
}

func TestHasJSONPreference(t *testing.T) {
	assert.True(t, hasJSONPreference([]string{"analyze", "--json"}))
	assert.True(t, hasJSONPreference([]string{"analyze", "--json=true"}))
	assert.False(t, hasJSONPreference([]string{"analyze", "--json=false"}))
	assert.False(t, hasJSONPreference([]string{"match", "--", "--json"}))
}

func TestClassifyCLIError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{name: "typed", err: invalidArgsError("bad"), wantCode: "INVALID_ARGS", wantExit: ExitInvalidArgs},
		{name: "invalid catalog", err: fmt.Errorf("load: %w", domain.ErrInvalidCatalog), wantCode: "INVALID_ARGS", wantExit: ExitInvalidArgs},
		{name: "extractor failure", err: fmt.Errorf("x: %w", domain.ErrExtractorFailure), wantCode: "UPSTREAM_ERROR", wantExit: ExitUpstream},
		{name: "deadline", err: fmt.Errorf("analyze receipt: %w", context.DeadlineExceeded), wantCode: "UPSTREAM_ERROR", wantExit: ExitUpstream},
		{name: "cobra unknown flag", err: errors.New("unknown flag: --fiel"), wantCode: "INVALID_ARGS", wantExit: ExitInvalidArgs},
		{name: "other", err: errors.New("disk on fire"), wantCode: "INTERNAL_ERROR", wantExit: ExitInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyCLIError(tt.err)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantExit, got.ExitCode)
		})
	}

	assert.Nil(t, classifyCLIError(nil))
}

func TestDecodeLineItems(t *testing.T) {
	items, err := decodeLineItems([]byte(`  [{"name":"milk","quantity":null}]  `))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "milk", items[0].Name)
	assert.Nil(t, items[0].Quantity)

	items, err = decodeLineItems([]byte(`{"items":[]}`))
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = decodeLineItems([]byte("   "))
	assert.Error(t, err)
}
