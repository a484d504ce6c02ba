package awscloud

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"

	"github.com/skylift/skylift/internal/domain"
)

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// Packager implements [domain.Packager]: it zips built artifacts and uploads
// the archive to a per-stack artifacts bucket.
type Packager struct {
	S3  s3API
	Log logrus.FieldLogger
}

func NewPackager(cfg aws.Config, log logrus.FieldLogger) *Packager {
	return &Packager{S3: s3.NewFromConfig(cfg), Log: log}
}

// Package archives the artifacts directory and uploads it keyed by content
// digest, so re-deploying unchanged artifacts reuses the same object.
func (p *Packager) Package(ctx context.Context, in domain.PackageInput) (domain.PackageOutput, error) {
	archive, digest, err := zipDir(in.ArtifactsPath)
	if err != nil {
		return domain.PackageOutput{}, fmt.Errorf("archive %s: %w", in.ArtifactsPath, err)
	}

	bucket := artifactsBucketName(in.StackName, in.Region)
	if err := p.ensureBucket(ctx, bucket, in.Region); err != nil {
		return domain.PackageOutput{}, err
	}

	key := "artifacts/" + digest + ".zip"
	_, err = p.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(archive),
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return domain.PackageOutput{}, fmt.Errorf("upload artifact to s3://%s/%s: %w", bucket, key, err)
	}
	p.Log.WithFields(logrus.Fields{
		"bucket": bucket,
		"key":    key,
		"bytes":  len(archive),
	}).Info("artifacts uploaded")

	return domain.PackageOutput{Bucket: bucket, Key: key, Digest: digest}, nil
}

func (p *Packager) ensureBucket(ctx context.Context, bucket, region string) error {
	_, err := p.S3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	// us-east-1 rejects an explicit location constraint.
	if region != "" && region != "us-east-1" {
		in.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(region),
		}
	}
	if _, err := p.S3.CreateBucket(ctx, in); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return fmt.Errorf("create artifacts bucket %s: %w", bucket, err)
	}
	p.Log.WithField("bucket", bucket).Info("artifacts bucket created")
	return nil
}

// artifactsBucketName derives the per-stack artifacts bucket. The region
// suffix keeps names unique when the same project deploys to several
// regions.
func artifactsBucketName(stackName, region string) string {
	name := strings.ToLower(stackName) + "-artifacts"
	if region != "" {
		name += "-" + region
	}
	return name
}

// zipDir archives a directory deterministically: entries are walked in
// sorted order and timestamps are zeroed, so the digest depends on content
// alone.
func zipDir(dir string) ([]byte, string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, path := range paths {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil, "", err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, "", err
		}
		header := &zip.FileHeader{
			Name:     filepath.ToSlash(rel),
			Method:   zip.Deflate,
			Modified: time.Unix(0, 0).UTC(),
		}
		header.SetMode(info.Mode().Perm())

		entry, err := w.CreateHeader(header)
		if err != nil {
			return nil, "", err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, "", err
		}
		_, err = io.Copy(entry, f)
		f.Close()
		if err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	sum := sha256.Sum256(buf.Bytes())
	return buf.Bytes(), hex.EncodeToString(sum[:16]), nil
}
