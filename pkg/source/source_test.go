package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/infrasim/pkg/metrics"
)

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDirSource_List(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "startup.yaml", "id: startup")
	writeFile(t, root, "ecommerce.json", `{"id": "ecommerce"}`)
	writeFile(t, root, "campaign/act1.yml", "id: act1")
	writeFile(t, root, "README.md", "# levels")
	writeFile(t, root, ".git/config.json", "{}")

	src, err := NewDirSource(root)
	require.NoError(t, err)

	names, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"campaign/act1.yml", "ecommerce.json", "startup.yaml"}, names)

	data, err := src.Read(context.Background(), "campaign/act1.yml")
	require.NoError(t, err)
	assert.Equal(t, "id: act1", string(data))
}

func TestDirSource_Errors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file.json", "{}")

	_, err := NewDirSource(filepath.Join(root, "missing"))
	assert.Error(t, err)

	_, err = NewDirSource(filepath.Join(root, "file.json"))
	assert.Error(t, err)

	src, err := NewDirSource(root)
	require.NoError(t, err)

	_, err = src.Read(context.Background(), "nope.json")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = src.Read(context.Background(), "../escape.json")
	assert.ErrorIs(t, err, ErrNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// fakeS3 serves a fixed set of pages and objects.
type fakeS3 struct {
	pages    [][]string
	objects  map[string]string
	prefixes []string
	listErr  error
	getErr   error
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.prefixes = append(f.prefixes, aws.ToString(in.Prefix))

	page := 0
	if in.ContinuationToken != nil {
		page, _ = strconv.Atoi(*in.ContinuationToken)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(page < len(f.pages)-1)}
	for _, key := range f.pages[page] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	if page < len(f.pages)-1 {
		out.NextContinuationToken = aws.String(strconv.Itoa(page + 1))
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(body)))}, nil
}

func TestS3Source_List(t *testing.T) {
	fake := &fakeS3{pages: [][]string{
		{"levels/startup.yaml", "levels/notes.txt"},
		{"levels/ecommerce.json", "levels/campaign/act1.yml"},
	}}
	src := NewS3SourceWithClient(fake, "game-content", "levels")

	names, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"campaign/act1.yml", "ecommerce.json", "startup.yaml"}, names)
	assert.Equal(t, []string{"levels/", "levels/"}, fake.prefixes, "both pages should be requested under the prefix")
}

func TestS3Source_Read(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{"levels/startup.yaml": "id: startup"}}
	src := NewS3SourceWithClient(fake, "game-content", "levels/")

	data, err := src.Read(context.Background(), "startup.yaml")
	require.NoError(t, err)
	assert.Equal(t, "id: startup", string(data))

	_, err = src.Read(context.Background(), "missing.yaml")
	assert.ErrorIs(t, err, ErrNotFound)

	fake.getErr = errors.New("connection reset")
	_, err = src.Read(context.Background(), "startup.yaml")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "s3://game-content/levels/startup.yaml")
}

func TestS3Source_ListError(t *testing.T) {
	fake := &fakeS3{listErr: errors.New("access denied")}
	src := NewS3SourceWithClient(fake, "game-content", "")

	_, err := src.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestInstrument_RecordsMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	fake := &fakeS3{
		pages:   [][]string{{"a.json", "b.json"}},
		objects: map[string]string{"a.json": "{}"},
	}
	src := Instrument(NewS3SourceWithClient(fake, "bucket", ""), nil, reg)
	assert.Equal(t, "s3", src.Kind())

	names, err := src.List(context.Background())
	require.NoError(t, err)
	for _, name := range names {
		_, _ = src.Read(context.Background(), name)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.SourceDocumentsTotal.WithLabelValues("s3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.SourceErrorsTotal.WithLabelValues("s3", "read")))

	fake.listErr = errors.New("throttled")
	_, err = src.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.SourceErrorsTotal.WithLabelValues("s3", "list")))
}
