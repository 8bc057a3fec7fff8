package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	objects map[string]string
	// hideLength leaves ContentLength unset, as some gateways do.
	hideLength bool
	err        error
	lastInput  *s3.GetObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	out := &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}
	if !f.hideLength {
		out.ContentLength = aws.Int64(int64(len(body)))
	}
	return out, nil
}

func TestFetcher_Fetch(t *testing.T) {
	api := &fakeS3{objects: map[string]string{"datasets/train.csv": "text,label\nx,y\n"}}
	f := NewFetcherWithAPI(api, "corpus", 1024)

	data, err := f.Fetch(context.Background(), " /datasets/train.csv ")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "text,label\nx,y\n" {
		t.Errorf("Fetch() = %q", data)
	}
	if aws.ToString(api.lastInput.Bucket) != "corpus" || aws.ToString(api.lastInput.Key) != "datasets/train.csv" {
		t.Errorf("GetObject input = %s/%s", aws.ToString(api.lastInput.Bucket), aws.ToString(api.lastInput.Key))
	}
	if f.Bucket() != "corpus" {
		t.Errorf("Bucket() = %q", f.Bucket())
	}
}

func TestFetcher_Errors(t *testing.T) {
	big := strings.Repeat("x", 100)
	tests := []struct {
		name    string
		api     *fakeS3
		key     string
		wantErr error
	}{
		{
			name:    "missing key",
			api:     &fakeS3{objects: map[string]string{}},
			key:     "nope.csv",
			wantErr: ErrObjectNotFound,
		},
		{
			name:    "declared length over limit",
			api:     &fakeS3{objects: map[string]string{"big.csv": big}},
			key:     "big.csv",
			wantErr: ErrObjectTooLarge,
		},
		{
			name:    "undeclared length over limit",
			api:     &fakeS3{objects: map[string]string{"big.csv": big}, hideLength: true},
			key:     "big.csv",
			wantErr: ErrObjectTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFetcherWithAPI(tt.api, "corpus", 50).Fetch(context.Background(), tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Fetch() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFetcher_BlankKey(t *testing.T) {
	api := &fakeS3{}
	_, err := NewFetcherWithAPI(api, "corpus", 0).Fetch(context.Background(), "  / ")
	if err == nil || !strings.Contains(err.Error(), "invalid request") {
		t.Errorf("Fetch() error = %v, want invalid request", err)
	}
	if api.lastInput != nil {
		t.Error("GetObject was called for a blank key")
	}
}

func TestFetcher_TransportError(t *testing.T) {
	api := &fakeS3{err: errors.New("dial tcp: i/o timeout")}
	_, err := NewFetcherWithAPI(api, "corpus", 0).Fetch(context.Background(), "a.csv")
	if err == nil || errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Fetch() error = %v, want a wrapped transport error", err)
	}
	if !strings.Contains(err.Error(), "s3://corpus/a.csv") {
		t.Errorf("error %q does not name the object", err)
	}
}

func TestFetcher_NoLimit(t *testing.T) {
	body := strings.Repeat("y", 4096)
	api := &fakeS3{objects: map[string]string{"k": body}}
	data, err := NewFetcherWithAPI(api, "corpus", 0).Fetch(context.Background(), "k")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(data) != len(body) {
		t.Errorf("read %d bytes, want %d", len(data), len(body))
	}
}
