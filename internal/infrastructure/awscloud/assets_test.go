package awscloud

import (
	"context"
	"testing"
)

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"index.html":       "text/html",
		"app/main.JS":      "application/javascript",
		"styles/site.css":  "text/css",
		"logo.svg":         "image/svg+xml",
		"font.woff2":       "font/woff2",
		"bundle.js.map":    "application/json",
		"favicon.ico":      "image/x-icon",
		"download.unknown": "application/octet-stream",
	}
	for path, want := range cases {
		if got := contentTypeFor(path); got != want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestAssetStore_SyncDir(t *testing.T) {
	store := newFakeS3()
	a := &AssetStore{S3: store, Log: testLogger()}

	dir := writeTree(t, map[string]string{
		"index.html":     "<html></html>",
		"assets/app.js":  "console.log(1)",
		"assets/app.css": "body{}",
	})

	result, err := a.SyncDir(context.Background(), "site-bucket", dir)
	if err != nil {
		t.Fatalf("SyncDir: %v", err)
	}
	if result.Uploaded != 3 {
		t.Errorf("uploaded = %d, want 3", result.Uploaded)
	}
	if result.Digest == "" {
		t.Error("digest empty")
	}

	if ct := store.contentType["site-bucket/index.html"]; ct != "text/html" {
		t.Errorf("index.html content type = %q", ct)
	}
	if ct := store.contentType["site-bucket/assets/app.js"]; ct != "application/javascript" {
		t.Errorf("app.js content type = %q", ct)
	}

	// Same tree, same digest.
	again, err := a.SyncDir(context.Background(), "site-bucket", dir)
	if err != nil {
		t.Fatal(err)
	}
	if again.Digest != result.Digest {
		t.Errorf("digest changed for identical tree: %s vs %s", again.Digest, result.Digest)
	}
}
