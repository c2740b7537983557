package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

// writePDF writes a minimal well-formed PDF with the given number of blank pages.
func writePDF(t *testing.T, path string, pages int) {
	t.Helper()
	var objs []string
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		objs = append(objs, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%EOF\n", len(objs)+1, xref)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestMergedName(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 5, 7, 123456789, time.UTC)
	assert.Equal(t, "Merged_20260314_090507_123456.pdf", MergedName(ts))
}

func TestMergePDFs_ConcatenatesInOrderAndSkipsOthers(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.PDF")
	writePDF(t, a, 1)
	writePDF(t, b, 2)
	img := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o644))
	broken := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(broken, []byte("not a pdf"), 0o644))

	out := filepath.Join(dir, "merged")
	ts := time.Date(2026, 3, 14, 9, 5, 7, 0, time.UTC)
	res, err := MergePDFs(context.Background(), []string{a, img, broken, b, filepath.Join(dir, "gone.pdf")}, out, ts, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{a, b}, res.Inputs)
	assert.Len(t, res.Skipped, 3)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, filepath.Join(out, "Merged_20260314_090507_000000.pdf"), res.Path)

	f, err := os.Open(res.Path)
	require.NoError(t, err)
	defer f.Close()
	n, err := api.PageCount(f, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMergePDFs_NothingToMerge(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "scan.jpg")
	require.NoError(t, os.WriteFile(img, []byte("jpg"), 0o644))

	_, err := MergePDFs(context.Background(), []string{img}, dir, time.Now(), nil)
	assert.ErrorIs(t, err, ErrNothingToMerge)
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "https://docs.s3.ap-south-1.amazonaws.com/merged/Merged_1.pdf",
		ObjectURL("docs", "ap-south-1", "", "merged/Merged_1.pdf"))
	assert.Equal(t, "http://localhost:9000/docs/merged/Merged_1.pdf",
		ObjectURL("docs", "ap-south-1", "http://localhost:9000/", "/merged/Merged_1.pdf"))
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "merged/x.pdf", ObjectKey("merged/", "x.pdf"))
	assert.Equal(t, "x.pdf", ObjectKey("", "x.pdf"))
	assert.Equal(t, "a/b/x.pdf", ObjectKey("/a/b/", "x.pdf"))
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.input = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &manager.UploadOutput{ETag: aws.String(`"etag-1"`)}, nil
}

func TestS3Uploader_Upload(t *testing.T) {
	src := filepath.Join(t.TempDir(), "m.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o644))
	fp := &fakePutter{}
	u := newS3Uploader(fp, "trade-docs", "ap-south-1", "", nil)

	res, err := u.Upload(context.Background(), src, "merged/m.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://trade-docs.s3.ap-south-1.amazonaws.com/merged/m.pdf", res.URL)
	assert.Equal(t, `"etag-1"`, res.ETag)
	assert.Equal(t, "trade-docs", aws.ToString(fp.input.Bucket))
	assert.Equal(t, "application/pdf", aws.ToString(fp.input.ContentType))
	assert.Equal(t, []byte("%PDF"), fp.body)
}

func TestS3Uploader_UploadError(t *testing.T) {
	src := filepath.Join(t.TempDir(), "m.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o644))
	u := newS3Uploader(&fakePutter{err: errors.New("access denied")}, "b", "r", "", nil)

	_, err := u.Upload(context.Background(), src, "k")
	assert.True(t, common.IsAppError(err, common.CodeStorage))
}

func TestNewS3Uploader_RequiresBucket(t *testing.T) {
	_, err := NewS3Uploader(aws.Config{}, " ", "", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

type recordingUploader struct{ keys []string }

func (r *recordingUploader) Upload(_ context.Context, _ string, key string) (UploadResult, error) {
	r.keys = append(r.keys, key)
	return UploadResult{Key: key, URL: "https://example/" + key}, nil
}

func TestPublisher_MergesThenUploads(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "lc.pdf")
	writePDF(t, a, 1)
	up := &recordingUploader{}
	p := NewPublisher(up, common.StorageConfig{Prefix: "merged/", MergeDir: filepath.Join(dir, "out")}, nil)
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 6000, time.UTC) }

	art, err := p.Publish(context.Background(), []string{a, filepath.Join(dir, "photo.jpg")})
	require.NoError(t, err)
	assert.Equal(t, "Merged_20260102_030405_000006.pdf", art.FileName)
	assert.Equal(t, []string{"merged/Merged_20260102_030405_000006.pdf"}, up.keys)
	assert.Equal(t, "https://example/merged/Merged_20260102_030405_000006.pdf", art.ObjectURL)
	assert.Equal(t, []string{a}, art.OriginalFiles)
}
