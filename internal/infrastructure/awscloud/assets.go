package awscloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/skylift/skylift/internal/domain"
)

// contentTypes maps asset extensions S3 cannot be trusted to sniff. Unknown
// extensions fall back to binary.
var contentTypes = map[string]string{
	".html":  "text/html",
	".htm":   "text/html",
	".css":   "text/css",
	".js":    "application/javascript",
	".mjs":   "application/javascript",
	".json":  "application/json",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".ico":   "image/x-icon",
	".txt":   "text/plain",
	".xml":   "application/xml",
	".pdf":   "application/pdf",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".eot":   "application/vnd.ms-fontobject",
	".map":   "application/json",
	".wasm":  "application/wasm",
}

func contentTypeFor(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// AssetStore implements [domain.AssetStore] on S3.
type AssetStore struct {
	S3  s3API
	Log logrus.FieldLogger
}

func NewAssetStore(cfg aws.Config, log logrus.FieldLogger) *AssetStore {
	return &AssetStore{S3: s3.NewFromConfig(cfg), Log: log}
}

// SyncDir uploads every file under dir to the bucket, keyed by its relative
// path. The returned digest covers file paths and contents, so unchanged
// asset trees produce the same digest.
func (a *AssetStore) SyncDir(ctx context.Context, bucket, dir string) (domain.AssetSyncResult, error) {
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
		return domain.AssetSyncResult{}, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	hash := sha256.New()
	uploaded := 0
	for _, path := range paths {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return domain.AssetSyncResult{}, err
		}
		key := filepath.ToSlash(rel)

		body, err := os.ReadFile(path)
		if err != nil {
			return domain.AssetSyncResult{}, fmt.Errorf("read %s: %w", path, err)
		}
		hash.Write([]byte(key))
		hash.Write(body)

		_, err = a.S3.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentTypeFor(path)),
		})
		if err != nil {
			return domain.AssetSyncResult{}, fmt.Errorf("upload %s to s3://%s: %w", key, bucket, err)
		}
		uploaded++
	}

	digest := hex.EncodeToString(hash.Sum(nil)[:16])
	a.Log.WithFields(logrus.Fields{
		"bucket":   bucket,
		"uploaded": uploaded,
		"digest":   digest,
	}).Info("assets synced")
	return domain.AssetSyncResult{Uploaded: uploaded, Digest: digest}, nil
}
