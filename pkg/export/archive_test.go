package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestArchive(t *testing.T) {
	at := time.Date(2025, 3, 1, 4, 5, 6, 0, time.UTC)

	t.Run("Success - uploads workbook", func(t *testing.T) {
		putter := &fakePutter{}
		a := NewArchiver(putter, "capty-statements", "statements")

		key, err := a.Archive(context.Background(), "demo.myshopify.com", at, bytes.NewBufferString("xlsx"))
		require.NoError(t, err)
		assert.Equal(t, "statements/demo.myshopify.com/commissions-20250301-040506.xlsx", key)
		assert.Equal(t, "s3://capty-statements/"+key, a.URI(key))

		assert.Equal(t, "capty-statements", aws.ToString(putter.input.Bucket))
		assert.Equal(t, ContentType, aws.ToString(putter.input.ContentType))
		assert.Equal(t, types.StorageClassStandardIa, putter.input.StorageClass)
		assert.Equal(t, "demo.myshopify.com", putter.input.Metadata["shop"])
		assert.Equal(t, []byte("xlsx"), putter.body)
	})

	t.Run("Error - upload failure", func(t *testing.T) {
		a := NewArchiver(&fakePutter{err: errors.New("access denied")}, "b", "")

		_, err := a.Archive(context.Background(), "demo.myshopify.com", at, bytes.NewBufferString("x"))
		assert.ErrorContains(t, err, "access denied")
	})
}

func TestStatementKey(t *testing.T) {
	at := time.Date(2025, 12, 31, 23, 0, 0, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, "demo.myshopify.com/commissions-20260101-040000.xlsx", StatementKey("", "demo.myshopify.com", at))
}

func TestNewS3Archiver_RequiresBucket(t *testing.T) {
	_, err := NewS3Archiver(context.Background(), ArchiveConfig{Region: "us-east-1"})
	assert.Error(t, err)
}
