// Package upload stores images attached to writs.
//
// The editor posts a multipart form with a "file" field to the upload
// handler, which checks the size and the server-detected MIME type, writes
// the file to a Store and answers with its public URL:
//
//	{"key": "3f2c....png", "url": "/uploads/3f2c....png", "filename": "cat.png", "size": 5120}
//
// The URL is then embedded in the writ's markdown. DiskStore keeps files
// under a local directory served by DiskStore.ServeHTTP; S3Store writes to
// an S3 bucket (or any S3-compatible endpoint) and links to a public base URL.
//
// Client-provided part headers are not trusted: Config.AllowedTypes is
// enforced against http.DetectContentType, and the stored extension is
// derived from the detected type.
package upload
