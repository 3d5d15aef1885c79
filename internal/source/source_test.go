package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-ledger-reconciler/pkg/errors"
	"golang-ledger-reconciler/pkg/logger"
)

func TestParse(t *testing.T) {
	tests := []struct {
		uri     string
		want    Location
		wantErr bool
	}{
		{uri: "dados/cielo.csv", want: Location{Scheme: SchemeLocal, Key: "dados/cielo.csv"}},
		{uri: "file:///tmp/razao.xlsx", want: Location{Scheme: SchemeLocal, Key: "/tmp/razao.xlsx"}},
		{uri: "gs://conciliacao/2024/01/rede.csv", want: Location{Scheme: SchemeGCS, Bucket: "conciliacao", Key: "2024/01/rede.csv"}},
		{uri: "S3://exports/cabal.xls", want: Location{Scheme: SchemeS3, Bucket: "exports", Key: "cabal.xls"}},
		{uri: "gs://bucket-only", wantErr: true},
		{uri: "ftp://host/file.csv", wantErr: true},
		{uri: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := Parse(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocation_Name(t *testing.T) {
	assert.Equal(t, "rede.csv", Location{Scheme: SchemeGCS, Bucket: "b", Key: "2024/01/rede.csv"}.Name())
	assert.Equal(t, "razao.xlsx", Location{Scheme: SchemeLocal, Key: filepath.Join("tmp", "razao.xlsx")}.Name())
	assert.Equal(t, "s3://exports/cabal.xls", Location{Scheme: SchemeS3, Bucket: "exports", Key: "cabal.xls"}.String())
}

func testOpener(gcs, s3 Fetcher) *Opener {
	return &Opener{GCS: gcs, S3: s3, logger: logger.NewDiscard()}
}

func TestOpen_Local(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cielo.csv")
	require.NoError(t, os.WriteFile(p, []byte("Data;Valor\n"), 0o600))

	f, err := testOpener(nil, nil).Open(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "cielo.csv", f.Name)
	assert.Equal(t, []byte("Data;Valor\n"), f.Data)

	f, err = testOpener(nil, nil).Open(context.Background(), "file://"+p)
	require.NoError(t, err)
	assert.Equal(t, "cielo.csv", f.Name)
}

func TestOpen_LocalNotFound(t *testing.T) {
	_, err := testOpener(nil, nil).Open(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)

	rerr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeFileNotFound, rerr.Code)
	assert.Equal(t, 2, rerr.GetExitCode())
}

func TestOpen_Remote(t *testing.T) {
	var gotBucket, gotKey string
	gcs := FetcherFunc(func(_ context.Context, bucket, key string) ([]byte, error) {
		gotBucket, gotKey = bucket, key
		return []byte("payload"), nil
	})
	s3 := FetcherFunc(func(context.Context, string, string) ([]byte, error) {
		return nil, fmt.Errorf("access denied")
	})
	opener := testOpener(gcs, s3)

	f, err := opener.Open(context.Background(), "gs://conciliacao/jan/rede.csv")
	require.NoError(t, err)
	assert.Equal(t, "conciliacao", gotBucket)
	assert.Equal(t, "jan/rede.csv", gotKey)
	assert.Equal(t, "rede.csv", f.Name)
	assert.Equal(t, "gs://conciliacao/jan/rede.csv", f.URI)

	_, err = opener.Open(context.Background(), "s3://exports/cabal.xls")
	require.Error(t, err)
	rerr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryNetwork, rerr.Category)
	assert.Equal(t, errors.CodeSourceUnavailable, rerr.Code)
}

func TestOpen_InvalidURI(t *testing.T) {
	_, err := testOpener(nil, nil).Open(context.Background(), "ftp://host/file.csv")
	rerr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryConfiguration, rerr.Category)
}

func TestOpenAll_KeepsOrder(t *testing.T) {
	gcs := FetcherFunc(func(_ context.Context, _, key string) ([]byte, error) {
		return []byte(key), nil
	})
	files := testOpener(gcs, nil).OpenAll(context.Background(), []string{"gs://b/one.csv", "gs://b/two.csv"})
	require.Len(t, files, 2)
	assert.Equal(t, "one.csv", files[0].Name)
	assert.Equal(t, "two.csv", files[1].Name)
	assert.NoError(t, files[0].Err)
}

func TestOpenAll_FailureDoesNotStopOthers(t *testing.T) {
	gcs := FetcherFunc(func(_ context.Context, _, key string) ([]byte, error) {
		return []byte(key), nil
	})
	s3 := FetcherFunc(func(context.Context, string, string) ([]byte, error) {
		return nil, fmt.Errorf("access denied")
	})

	files := testOpener(gcs, s3).OpenAll(context.Background(), []string{"gs://b/cielo.csv", "s3://bucket/rede.csv", "gs://b/cabal.csv"})
	require.Len(t, files, 3)

	assert.NoError(t, files[0].Err)
	assert.NoError(t, files[2].Err)
	assert.Equal(t, []byte("cabal.csv"), files[2].Data)

	require.Error(t, files[1].Err)
	assert.Equal(t, "rede.csv", files[1].Name)
	assert.Equal(t, "s3://bucket/rede.csv", files[1].URI)
	assert.Nil(t, files[1].Data)
	rerr, ok := errors.AsReconcilerError(files[1].Err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryNetwork, rerr.Category)
}
