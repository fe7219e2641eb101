package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notework/collab/internal/domain"
)

func TestParseCompilerOutput(t *testing.T) {
	stderr := `error: unknown variable: foo
  ┌─ content/1/2.typ:14:7
   │
14 │ #foo
   │  ^^^

warning: unnecessary import
  ┌─ lib/helpers.typ:3:1
`

	diags := ParseCompilerOutput(stderr)
	require.Len(t, diags, 2)

	assert.Equal(t, domain.Diagnostic{
		File:     "content/1/2.typ",
		Line:     14,
		Col:      7,
		Message:  "unknown variable: foo",
		Severity: "error",
	}, diags[0])

	assert.Equal(t, "warning", diags[1].Severity)
	assert.Equal(t, "unnecessary import", diags[1].Message)
	assert.Equal(t, 3, diags[1].Line)
	assert.Equal(t, 1, diags[1].Col)
}

func TestParseCompilerOutput_CleanCompile(t *testing.T) {
	assert.Empty(t, ParseCompilerOutput(""))
	assert.Empty(t, ParseCompilerOutput("compiled successfully\n"))
}

func TestParseCompilerOutput_LocationWithoutMessageIsIgnored(t *testing.T) {
	// A rule line with no preceding message line carries nothing useful
	diags := ParseCompilerOutput("  ┌─ content/1/2.typ:14:7\n")
	assert.Empty(t, diags)
}

func TestParseCompilerOutput_MalformedLocation(t *testing.T) {
	stderr := "error: broken\n  ┌─ not-a-location\n"
	assert.Empty(t, ParseCompilerOutput(stderr))
}

func TestParseCompilerOutput_PathWithColons(t *testing.T) {
	stderr := "error: bad include\n  ┌─ C:/docs/main.typ:2:9\n"

	diags := ParseCompilerOutput(stderr)
	require.Len(t, diags, 1)
	assert.Equal(t, "C:/docs/main.typ", diags[0].File)
	assert.Equal(t, 2, diags[0].Line)
	assert.Equal(t, 9, diags[0].Col)
}
