package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	body   string
	ctype  string
}

func newTestS3(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*S3Service, *[]recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			body:   string(body),
			ctype:  r.Header.Get("Content-Type"),
		})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test"}, nil
		}),
		RetryMaxAttempts: 1,
	})
	return NewS3Service(client), &reqs
}

func TestS3Service_PutObject(t *testing.T) {
	svc, reqs := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	})

	loc, err := svc.PutObject(context.Background(), "exports", "/catalog/snap.json", strings.NewReader(`{"ok":true}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "s3://exports/catalog/snap.json", loc)

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/exports/catalog/snap.json", got.path)
	assert.Contains(t, got.body, `{"ok":true}`)
	assert.Equal(t, "application/json", got.ctype)
}

func TestS3Service_PutObjectRequiresBucketAndKey(t *testing.T) {
	svc, reqs := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := svc.PutObject(context.Background(), "", "k", strings.NewReader("x"), "")
	assert.Error(t, err)
	_, err = svc.PutObject(context.Background(), "b", "/", strings.NewReader("x"), "")
	assert.Error(t, err)
	assert.Empty(t, *reqs)
}

func TestS3Service_ListObjects(t *testing.T) {
	svc, reqs := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>exports</Name>
  <Prefix>catalog/</Prefix>
  <KeyCount>2</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>catalog/a.json</Key><LastModified>2026-01-02T03:04:05.000Z</LastModified><Size>42</Size></Contents>
  <Contents><Key>catalog/b.json</Key><LastModified>2026-01-03T03:04:05.000Z</LastModified><Size>7</Size></Contents>
</ListBucketResult>`)
	})

	objects, err := svc.ListObjects(context.Background(), "exports", "catalog/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "catalog/a.json", objects[0].Key)
	assert.Equal(t, int64(42), objects[0].Size)
	require.NotNil(t, objects[0].LastModified)
	assert.Equal(t, 2026, objects[0].LastModified.Year())
	assert.Equal(t, "catalog/b.json", objects[1].Key)

	require.Len(t, *reqs, 1)
	assert.Equal(t, "/exports", strings.TrimSuffix((*reqs)[0].path, "/"))
	assert.Contains(t, (*reqs)[0].query, "prefix=catalog%2F")
}

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "a/b/c.json", JoinKey("/a/", "", "b", "c.json"))
	assert.Equal(t, "c.json", JoinKey("", "c.json"))
	assert.Equal(t, "", JoinKey())
}
