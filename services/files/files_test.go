package filesvc

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gvpclubconnect/clubconnect/core"
)

var pngHeader = []byte("\x89PNG\x0D\x0A\x1A\x0A\x00\x00\x00\x0DIHDR")

func newUpload(t *testing.T, content []byte) *core.Upload {
	t.Helper()
	up, err := core.NewUpload("logo.png", int64(len(content)), bytes.NewReader(content))
	require.NoError(t, err)
	return up
}

func Test_cleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "clublogo/a.png", want: "clublogo/a.png"},
		{key: "/clublogo//a.png", want: "clublogo/a.png"},
		{key: "../../etc/passwd", want: "etc/passwd"},
		{key: "events/../../a.png", want: "a.png"},
		{key: "", wantErr: true},
		{key: "..", wantErr: true},
	}
	for _, tc := range tests {
		got, err := cleanKey(tc.key)
		if tc.wantErr {
			assert.ErrorIs(t, err, errInvalidKey, tc.key)
			continue
		}
		require.NoError(t, err, tc.key)
		assert.Equal(t, tc.want, got, tc.key)
	}
}

func Test_keyOf(t *testing.T) {
	s := NewLocalStorage(t.TempDir(), "http://localhost:8000/uploads/")
	tests := []struct {
		url     string
		wantKey string
		wantOk  bool
	}{
		{url: "http://localhost:8000/uploads/clublogo/a.png", wantKey: "clublogo/a.png", wantOk: true},
		{url: "http://localhost:8000/uploads/events/../clublogo/a.png", wantKey: "clublogo/a.png", wantOk: true},
		{url: "http://localhost:8000/uploads/"},
		{url: "http://localhost:8000/uploadsx/a.png"},
		{url: "https://cdn.example.com/clublogo/a.png"},
		{url: ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			key, ok := s.KeyOf(tt.url)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantKey, key)
		})
	}

	assert.True(t, core.StoredWithPrefix(s, "http://localhost:8000/uploads/clublogo/42-a.png", "clublogo/42-"))
	assert.False(t, core.StoredWithPrefix(s, "http://localhost:8000/uploads/clublogo/43-a.png", "clublogo/42-"))
	assert.False(t, core.StoredWithPrefix(s, "https://cdn.example.com/clublogo/42-a.png", "clublogo/42-"))
}

func Test_localStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewLocalStorage(dir, "http://localhost:8000/uploads/")

	url, err := s.SaveFile(ctx, "clublogo/../clublogo/a.png", newUpload(t, pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/uploads/clublogo/a.png", url)

	fp := filepath.Join(dir, "clublogo", "a.png")
	b, err := os.ReadFile(fp)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, b)

	// foreign URLs are left alone
	require.NoError(t, s.DeleteFile(ctx, "https://cdn.example.com/clublogo/a.png"))
	_, err = os.Stat(fp)
	require.NoError(t, err)

	require.NoError(t, s.DeleteFile(ctx, url))
	_, err = os.Stat(fp)
	assert.True(t, os.IsNotExist(err))

	// already removed
	require.NoError(t, s.DeleteFile(ctx, url))

	_, err = s.SaveFile(ctx, "", newUpload(t, pngHeader))
	assert.ErrorIs(t, err, errInvalidKey)
}

type s3Mock struct {
	puts    []*s3.PutObjectInput
	body    []byte
	deletes []*s3.DeleteObjectInput
	err     error
}

func (m *s3Mock) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.puts = append(m.puts, in)
	m.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (m *s3Mock) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.deletes = append(m.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

func Test_s3Storage(t *testing.T) {
	ctx := context.Background()
	mock := &s3Mock{}
	s := &s3Storage{client: mock, bucket: "clubs", publicURL: "https://clubs.s3.ap-south-1.amazonaws.com"}

	url, err := s.SaveFile(ctx, "events/poster.png", newUpload(t, pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "https://clubs.s3.ap-south-1.amazonaws.com/events/poster.png", url)
	require.Len(t, mock.puts, 1)
	assert.Equal(t, "clubs", aws.ToString(mock.puts[0].Bucket))
	assert.Equal(t, "events/poster.png", aws.ToString(mock.puts[0].Key))
	assert.Equal(t, "image/png", aws.ToString(mock.puts[0].ContentType))
	assert.Equal(t, int64(len(pngHeader)), aws.ToInt64(mock.puts[0].ContentLength))
	assert.Equal(t, pngHeader, mock.body)

	require.NoError(t, s.DeleteFile(ctx, "http://localhost/uploads/x.png"))
	assert.Empty(t, mock.deletes)
	key, ok := s.KeyOf(url)
	assert.True(t, ok)
	assert.Equal(t, "events/poster.png", key)
	require.NoError(t, s.DeleteFile(ctx, url))
	require.Len(t, mock.deletes, 1)
	assert.Equal(t, "events/poster.png", aws.ToString(mock.deletes[0].Key))

	mock.err = assert.AnError
	_, err = s.SaveFile(ctx, "events/poster.png", newUpload(t, pngHeader))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "uploading to S3"))
}

func Test_s3PublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", s3PublicURL(core.S3Config{PublicURL: "https://cdn.example.com/", Bucket: "b"}))
	assert.Equal(t, "http://minio:9000/b", s3PublicURL(core.S3Config{Endpoint: "http://minio:9000/", Bucket: "b"}))
	assert.Equal(t, "https://b.s3.ap-south-1.amazonaws.com", s3PublicURL(core.S3Config{Bucket: "b", Region: "ap-south-1"}))
}

func TestNewS3Storage(t *testing.T) {
	var opts s3.Options
	loadDefaultAWSConfig = func(_ context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		var lo config.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "ap-south-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{Region: lo.Region}, nil
	}
	newS3ClientFromConfig = func(_ aws.Config, optFns ...func(*s3.Options)) s3API {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3Mock{}
	}
	t.Cleanup(func() {
		loadDefaultAWSConfig = config.LoadDefaultConfig
		newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
			return s3.NewFromConfig(cfg, optFns...)
		}
	})

	conf := &core.Config{}
	conf.Files.Backend = "s3"
	conf.S3 = core.S3Config{
		Bucket:    "clubs",
		Region:    "ap-south-1",
		Endpoint:  "http://minio:9000",
		AccessKey: "key",
		SecretKey: "secret",
	}
	st, err := NewStorage(context.Background(), conf)
	require.NoError(t, err)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://minio:9000", aws.ToString(opts.BaseEndpoint))
	assert.Equal(t, "http://minio:9000/clubs", st.(*s3Storage).publicURL)

	conf.Files.Backend = "ftp"
	_, err = NewStorage(context.Background(), conf)
	assert.Error(t, err)
}
