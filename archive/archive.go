// Package archive uploads post-compaction data-file snapshots to an
// S3-compatible bucket, grounded on the teacher's storage/persistence-s3.go
// client setup (config.LoadDefaultConfig + credentials.NewStaticCredentialsProvider
// + s3.NewFromConfig), narrowed down from a full PersistenceEngine backend to
// a single best-effort PutObject call: off-box backup is a convenience on
// top of the engine's own local backup, never a dependency of compaction
// correctness.
package archive

import "context"
import "fmt"
import "log"
import "os"
import "path/filepath"
import "time"

import "github.com/aws/aws-sdk-go-v2/aws"
import awsconfig "github.com/aws/aws-sdk-go-v2/config"
import "github.com/aws/aws-sdk-go-v2/service/s3"

// Archiver uploads snapshot files to a fixed bucket/prefix.
type Archiver struct {
	bucket string
	prefix string
	client *s3.Client
}

// New builds an Archiver against bucket, reading credentials and region the
// same way the AWS SDK's default config chain does (environment, shared
// config file, EC2/ECS role). prefix may be empty.
func New(ctx context.Context, bucket, prefix string) (*Archiver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: load AWS config: %w", err)
	}
	return &Archiver{
		bucket: bucket,
		prefix: prefix,
		client: s3.NewFromConfig(cfg),
	}, nil
}

// UploadSnapshot reads path and puts it to <prefix>/<base>-<timestamp> in
// the archiver's bucket. Failures are returned, not panicked on; callers in
// this codebase treat them as non-fatal and merely log.
func (a *Archiver) UploadSnapshot(ctx context.Context, path string, at time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", path, err)
	}
	defer f.Close()

	key := a.key(path, at)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}
	log.Printf("archive: uploaded %s to s3://%s/%s", path, a.bucket, key)
	return nil
}

func (a *Archiver) key(path string, at time.Time) string {
	name := fmt.Sprintf("%s-%s", filepath.Base(path), at.UTC().Format("20060102T150405Z"))
	if a.prefix == "" {
		return name
	}
	return a.prefix + "/" + name
}
