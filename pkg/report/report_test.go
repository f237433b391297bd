package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/infrasim/pkg/metrics"
	"github.com/dd0wney/infrasim/pkg/source"
	"github.com/dd0wney/infrasim/pkg/validation"
)

func sampleBatch() *Batch {
	b := &Batch{}
	b.Add(FileResult{Name: "levels/ecommerce.json"})
	b.Add(FileResult{Name: "levels/broken.yaml", Errors: []validation.ValidationError{
		{Path: "nodes[1].capacity", Message: "capacity must be > 0", Class: validation.ClassSemantic, Code: validation.CodeOutOfRange},
		{Path: "edges[0].target", Message: `unresolved reference: node "ghost" is not declared`, Class: validation.ClassStructural, Code: validation.CodeUnresolved},
	}})
	b.Add(FileResult{Name: "levels/garbage.json", Errors: []validation.ValidationError{
		{Message: "invalid character '}' looking for beginning of value", Class: validation.ClassParse, Code: validation.CodeParse},
	}})
	return b
}

func TestBatch_Counts(t *testing.T) {
	b := sampleBatch()
	assert.Equal(t, 1, b.Passed())
	assert.Equal(t, 2, b.Failed())
	assert.Equal(t, ExitFailed, b.ExitCode())

	empty := &Batch{}
	assert.Equal(t, ExitOK, empty.ExitCode())

	allGood := &Batch{}
	allGood.Add(FileResult{Name: "a.json"})
	assert.Equal(t, ExitOK, allGood.ExitCode())

	unreadable := &Batch{}
	unreadable.Add(FileResult{Name: "s3://bucket/a.json", ReadErr: errors.New("access denied")})
	assert.Equal(t, ExitFailed, unreadable.ExitCode())
}

func TestRenderText_Plain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleBatch().RenderText(&buf, false))

	want := `PASS levels/ecommerce.json
FAIL levels/broken.yaml (2 errors)
  nodes[1].capacity: capacity must be > 0
  edges[0].target: unresolved reference: node "ghost" is not declared
FAIL levels/garbage.json (1 error)
  invalid character '}' looking for beginning of value
3 files, 1 passed, 2 failed
`
	assert.Equal(t, want, buf.String())
}

func TestRenderText_Styled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleBatch().RenderText(&buf, true))

	out := buf.String()
	for _, fragment := range []string{"PASS", "FAIL", "nodes[1].capacity", "capacity must be > 0", "3 files, 1 passed, 2 failed"} {
		assert.Contains(t, out, fragment)
	}
}

func TestRenderText_ReadError(t *testing.T) {
	b := &Batch{}
	b.Add(FileResult{Name: "s3://levels/a.json", ReadErr: errors.New("access denied")})

	var buf bytes.Buffer
	require.NoError(t, b.RenderText(&buf, false))
	assert.True(t, strings.HasPrefix(buf.String(), "FAIL s3://levels/a.json\n  access denied\n"))
}

func TestRenderJSON(t *testing.T) {
	b := sampleBatch()
	b.Add(FileResult{Name: "gone.json", ReadErr: errors.New("no such file")})

	var buf bytes.Buffer
	require.NoError(t, b.RenderJSON(&buf))

	var decoded struct {
		Files []struct {
			Name      string `json:"name"`
			Passed    bool   `json:"passed"`
			ReadError string `json:"readError"`
			Errors    []struct {
				Path    string `json:"path"`
				Message string `json:"message"`
				Class   string `json:"class"`
				Code    string `json:"code"`
			} `json:"errors"`
		} `json:"files"`
		Passed int `json:"passed"`
		Failed int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, 1, decoded.Passed)
	assert.Equal(t, 3, decoded.Failed)
	require.Len(t, decoded.Files, 4)

	assert.True(t, decoded.Files[0].Passed)
	assert.Empty(t, decoded.Files[0].Errors)

	broken := decoded.Files[1]
	assert.False(t, broken.Passed)
	require.Len(t, broken.Errors, 2)
	assert.Equal(t, "nodes[1].capacity", broken.Errors[0].Path)
	assert.Equal(t, "semantic", broken.Errors[0].Class)
	assert.Equal(t, "unresolved_reference", broken.Errors[1].Code)

	assert.Equal(t, "no such file", decoded.Files[3].ReadError)
}

func TestRun_ValidatesInListingOrder(t *testing.T) {
	root := t.TempDir()
	ecommerce, err := os.ReadFile("../../levels/ecommerce.json")
	require.NoError(t, err)

	files := map[string]string{
		"a-ecommerce.json": string(ecommerce),
		"b-garbage.json":   `{"id": `,
		"c-dangling.yaml": `
id: dangling
nodes:
  - id: gw
    kind: gateway
    capacity: 10
    physics: {baseLatencyMs: 1, saturationPenalty: 2, criticalThreshold: 0.9}
edges:
  - {source: gw, target: ghost}
jobs: []
incidents: []
`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0644))
	}

	src, err := source.NewDirSource(root)
	require.NoError(t, err)
	reg := metrics.NewRegistry()

	batch, err := Run(context.Background(), src, RunOptions{Workers: 3, Metrics: reg})
	require.NoError(t, err)
	require.Len(t, batch.Results, 3)

	assert.Equal(t, "a-ecommerce.json", batch.Results[0].Name)
	assert.True(t, batch.Results[0].Passed())

	garbage := batch.Results[1]
	require.Len(t, garbage.Errors, 1)
	assert.Equal(t, validation.ClassParse, garbage.Errors[0].Class)

	dangling := batch.Results[2]
	require.Len(t, dangling.Errors, 1)
	assert.Equal(t, "edges[0].target", dangling.Errors[0].Path)
	assert.Contains(t, dangling.Errors[0].Message, `"ghost"`)

	assert.Equal(t, ExitFailed, batch.ExitCode())
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.LevelsValidatedTotal.WithLabelValues("valid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.LevelsValidatedTotal.WithLabelValues("invalid")))
}

func TestRun_ListFailure(t *testing.T) {
	src := &source.DirSource{Root: filepath.Join(t.TempDir(), "missing")}
	_, err := Run(context.Background(), src, RunOptions{})
	assert.Error(t, err)
}

// panicSource lists two documents and blows up reading the second.
type panicSource struct{ good []byte }

func (p panicSource) Kind() string { return "panic" }

func (p panicSource) List(context.Context) ([]string, error) {
	return []string{"ok.json", "boom.json"}, nil
}

func (p panicSource) Read(_ context.Context, name string) ([]byte, error) {
	if name == "boom.json" {
		panic("decoder exploded")
	}
	return p.good, nil
}

func TestRun_PanicFailsOnlyThatDocument(t *testing.T) {
	good, err := os.ReadFile("../../levels/ecommerce.json")
	require.NoError(t, err)

	batch, err := Run(context.Background(), panicSource{good: good}, RunOptions{Workers: 2})
	require.NoError(t, err)
	require.Len(t, batch.Results, 2)

	assert.True(t, batch.Results[0].Passed())
	assert.Equal(t, "boom.json", batch.Results[1].Name)
	assert.ErrorIs(t, batch.Results[1].ReadErr, ErrValidatorPanic)
	assert.Equal(t, 1, batch.Failed())
}
