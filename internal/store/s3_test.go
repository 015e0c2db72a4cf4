package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"wt-go/internal/wt"
)

// fakeS3 is an in-memory bucket speaking the subset of the S3 API that
// S3Store and the transfer manager use.
type fakeS3 struct {
	bucket   string
	pageSize int

	mu        sync.Mutex
	objects   map[string][]byte
	listCalls int
	getErr    error
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{bucket: bucket, pageSize: 1000, objects: make(map[string][]byte)}
}

func (f *fakeS3) checkBucket(bucket *string) error {
	if aws.ToString(bucket) != f.bucket {
		return &types.NoSuchBucket{Message: aws.String("no such bucket")}
	}
	return nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if in.ContentLength != nil && *in.ContentLength != int64(len(body)) {
		return nil, &smithy.GenericAPIError{Code: "IncompleteBody", Message: "content length mismatch"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart upload not supported")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

// GetObject honours the "bytes=start-end" ranges the downloader sends.
func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}

	f.mu.Lock()
	body, ok := f.objects[aws.ToString(in.Key)]
	getErr := f.getErr
	f.mu.Unlock()

	if getErr != nil {
		return nil, getErr
	}
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("the specified key does not exist")}
	}

	total := int64(len(body))
	if total == 0 {
		return &s3.GetObjectOutput{
			Body:          io.NopCloser(bytes.NewReader(nil)),
			ContentLength: aws.Int64(0),
			ContentRange:  aws.String("bytes */0"),
		}, nil
	}

	start, end := int64(0), total-1
	if rng := aws.ToString(in.Range); rng != "" {
		bounds := strings.SplitN(strings.TrimPrefix(rng, "bytes="), "-", 2)
		start, _ = strconv.ParseInt(bounds[0], 10, 64)
		if e, err := strconv.ParseInt(bounds[1], 10, 64); err == nil && e < end {
			end = e
		}
	}

	if start > end {
		return nil, &smithy.GenericAPIError{Code: "InvalidRange", Message: "range not satisfiable"}
	}
	chunk := body[start : end+1]
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(chunk)),
		ContentLength: aws.Int64(int64(len(chunk))),
		ContentRange:  aws.String(fmt.Sprintf("bytes %d-%d/%d", start, end, total)),
	}, nil
}

// ListObjectsV2 returns keys in lexical order, pageSize at a time; the
// continuation token is the index of the next key.
func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	from := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		from, _ = strconv.Atoi(tok)
	}
	to := min(from+f.pageSize, len(keys))

	out := &s3.ListObjectsV2Output{
		KeyCount:    aws.Int32(int32(to - from)),
		IsTruncated: aws.Bool(to < len(keys)),
	}
	for _, k := range keys[from:to] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if to < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(to))
	}
	return out, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestS3Store_ListPaginates(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3("wt-test")
	fake.pageSize = 2
	s := newS3Store("s3", "wt-test", fake)

	for i := 1; i <= 5; i++ {
		if err := putString(ctx, s, fmt.Sprintf("data/%d.json", i), "{}"); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	if err := putString(ctx, s, "other/1.json", "{}"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	keys, err := s.List(ctx, "data/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := "data/1.json,data/2.json,data/3.json,data/4.json,data/5.json"
	if got := strings.Join(keys, ","); got != want {
		t.Errorf("List() = %s, want %s", got, want)
	}
	if fake.listCalls != 3 {
		t.Errorf("ListObjectsV2 called %d times, want 3 pages", fake.listCalls)
	}
}

func TestS3Store_GetErrors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantNotFound bool
	}{
		{"no such key", &types.NoSuchKey{}, true},
		{"not found", &types.NotFound{}, true},
		{"api error code", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"network", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeS3("wt-test")
			fake.getErr = tt.err
			s := newS3Store("s3", "wt-test", fake)

			err := s.Get(context.Background(), "data/1.json", &bytes.Buffer{})
			if err == nil {
				t.Fatal("Get() error = nil, want error")
			}
			if got := errors.Is(err, wt.ErrObjectNotFound); got != tt.wantNotFound {
				t.Errorf("errors.Is(ErrObjectNotFound) = %v, want %v (err = %v)", got, tt.wantNotFound, err)
			}
		})
	}
}

func TestS3Store_WrongBucket(t *testing.T) {
	s := newS3Store("s3", "missing-bucket", newFakeS3("wt-test"))
	ctx := context.Background()

	if err := s.ValidateSetup(ctx); err == nil {
		t.Error("ValidateSetup() error = nil for an unknown bucket")
	}
	if _, err := s.List(ctx, "data/"); err == nil {
		t.Error("List() error = nil for an unknown bucket")
	}
}

func TestS3Store_EntryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	entries := wt.NewEntryStore(newS3Store("s3", "wt-test", newFakeS3("wt-test")), "", nil)

	entry := &wt.MeasurementEntry{ID: 42, Timestamp: "2024-01-15T10:30:00.000Z", Weight: wt.Float(70.2)}
	if err := entries.Save(ctx, entry); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	listed, err := entries.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(listed) != 1 || listed[0].ID != 42 || *listed[0].Weight != 70.2 || listed[0].BMI != nil {
		t.Errorf("ListAll() = %+v", listed)
	}

	if err := entries.Delete(ctx, 42); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	listed, err = entries.ListAll(ctx)
	if err != nil || len(listed) != 0 {
		t.Errorf("ListAll() after delete = %v, %v", listed, err)
	}
}
