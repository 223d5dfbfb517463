// Package objectstore stores interview artifacts in an S3-compatible bucket.
//
// Both AWS S3 and MinIO are supported; MinIO needs path-style addressing and
// an explicit endpoint. Downloads are handed out as presigned GET URLs so
// audio bytes never pass through the API process.
package objectstore
