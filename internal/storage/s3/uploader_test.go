package s3

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string]string
	fail    bool
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if f.fail {
		return nil, errors.New("access denied")
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)] = string(b)
	return &s3.PutObjectOutput{}, nil
}

func backupDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "regkb_backup_20240101_120000")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "documents.csv"), []byte("id,title\n1,MDR\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import_batches.csv"), []byte("id\n"), 0o644))
	return dir
}

func TestUploadDir(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}}
	u := NewUploaderWithClient(fake, "kb", "backups")

	keys, err := u.UploadDir(context.Background(), backupDir(t))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"backups/regkb_backup_20240101_120000/documents.csv",
		"backups/regkb_backup_20240101_120000/import_batches.csv",
	}, keys)
	assert.Equal(t, "id,title\n1,MDR\n", fake.objects["kb/backups/regkb_backup_20240101_120000/documents.csv"])
}

func TestUploadDir_Failure(t *testing.T) {
	u := NewUploaderWithClient(&fakeS3{fail: true}, "kb", "")

	keys, err := u.UploadDir(context.Background(), backupDir(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Empty(t, keys)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType("documents.csv"))
	assert.Equal(t, "application/json", contentType("backup.json"))
	assert.Equal(t, "application/octet-stream", contentType("dump.bin"))
}
