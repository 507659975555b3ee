package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/mailpilot/internal/core"
)

const verificationEML = "From: Example <no-reply@example.test>\r\n" +
	"Subject: Confirm your account\r\n" +
	"Date: Mon, 02 Jan 2006 15:04:05 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Your code is: 4F7K2Q</p><a href=\"https://example.test/verify?token=abc\">Verify</a>\r\n"

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeEML(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootCommandHasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range NewRootCommand().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"analyze", "respond", "actions", "summarize", "extract", "verify", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestVersionOutput(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "mailpilot dev (commit none, built unknown)\n", out)
}

func TestExtract_FromFile(t *testing.T) {
	path := writeEML(t, "verify.eml", verificationEML)

	out, err := execute(t, "", "extract", "-f", path, "--json")
	require.NoError(t, err)

	var artifact core.ExtractedArtifact
	require.NoError(t, json.Unmarshal([]byte(out), &artifact))
	assert.Equal(t, []string{"https://example.test/verify?token=abc"}, artifact.Links)
	assert.Equal(t, "4F7K2Q", artifact.Code)
}

func TestExtract_FromStdinStyled(t *testing.T) {
	out, err := execute(t, verificationEML, "extract")
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.test/verify?token=abc")
	assert.Contains(t, out, "4F7K2Q")
}

func TestExtract_EmptyInput(t *testing.T) {
	_, err := execute(t, "", "extract")
	assert.Error(t, err)
}

func TestAnalyze_Offline(t *testing.T) {
	out, err := execute(t, "", "analyze", "--offline", "--json",
		"--subject", "URGENT", "--text", "The server is down, please fix it immediately!")
	require.NoError(t, err)

	var result core.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, core.ProviderLocal, result.ProviderUsed)
	assert.Equal(t, core.PriorityHigh, result.Priority)
	assert.NotEmpty(t, result.RequestID)
}

func TestAnalyze_InvalidDepth(t *testing.T) {
	_, err := execute(t, "", "analyze", "--offline", "--text", "hello", "--depth", "deep")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestRespond_Offline(t *testing.T) {
	out, err := execute(t, "", "respond", "--offline", "--text", "Thank you so much!", "--tone", "friendly")
	require.NoError(t, err)
	assert.Contains(t, out, "local")
}

func TestActions_OfflineFromFile(t *testing.T) {
	eml := "From: boss@example.test\r\nSubject: todo\r\n\r\nPlease send the invoice by Friday.\r\n"
	out, err := execute(t, "", "actions", "--offline", "--json", "-f", writeEML(t, "todo.eml", eml))
	require.NoError(t, err)

	var result core.ActionItemsResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"Please send the invoice by Friday"}, result.ActionItems)
	assert.True(t, result.HasDeadlines)
}

func TestSummarize_OfflineFails(t *testing.T) {
	path := writeEML(t, "one.eml", verificationEML)
	_, err := execute(t, "", "summarize", "--offline", path)
	assert.ErrorIs(t, err, core.ErrAllProvidersFailed)
}

func TestSummarize_RequiresArgs(t *testing.T) {
	_, err := execute(t, "", "summarize")
	assert.Error(t, err)
}
