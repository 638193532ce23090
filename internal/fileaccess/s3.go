package fileaccess

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Access implements FileAccess on an S3 bucket. Object keys are joined
// under an optional key prefix.
type S3Access struct {
	s3Api  s3iface.S3API
	prefix string
}

// MakeS3Access wraps an S3 client. Keys are written below prefix.
func MakeS3Access(s3Api s3iface.S3API, prefix string) S3Access {
	return S3Access{s3Api: s3Api, prefix: strings.Trim(prefix, "/")}
}

// S3Options configure a new S3 client.
type S3Options struct {
	Region   string
	Endpoint string
	// PathStyle is needed by most S3-compatible servers (MinIO and friends).
	PathStyle bool
}

// NewS3Access creates a client from the default AWS credential chain.
func NewS3Access(opts S3Options, prefix string) (S3Access, error) {
	cfg := aws.NewConfig()
	if opts.Region != "" {
		cfg = cfg.WithRegion(opts.Region)
	}
	if opts.Endpoint != "" {
		cfg = cfg.WithEndpoint(opts.Endpoint)
	}
	if opts.PathStyle {
		cfg = cfg.WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return S3Access{}, err
	}
	return MakeS3Access(s3.New(sess), prefix), nil
}

func (a S3Access) key(p string) string {
	if a.prefix == "" {
		return p
	}
	return path.Join(a.prefix, p)
}

// ListObjects pages through ListObjectsV2 and returns keys relative to the access prefix.
func (a S3Access) ListObjects(bucket string, prefix string) ([]string, error) {
	result := []string{}
	params := s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(a.key(prefix)),
	}

	for {
		listing, err := a.s3Api.ListObjectsV2(&params)
		if err != nil {
			return []string{}, err
		}
		for _, item := range listing.Contents {
			k := aws.StringValue(item.Key)
			// console-created "directories" are empty objects ending in /
			if strings.HasSuffix(k, "/") {
				continue
			}
			if a.prefix != "" {
				k = strings.TrimPrefix(k, a.prefix+"/")
			}
			result = append(result, k)
		}

		if aws.BoolValue(listing.IsTruncated) && listing.NextContinuationToken != nil {
			params.ContinuationToken = listing.NextContinuationToken
			continue
		}
		break
	}
	return result, nil
}

func (a S3Access) ReadObject(bucket string, p string) ([]byte, error) {
	out, err := a.s3Api.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(a.key(p)),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (a S3Access) WriteObject(bucket string, p string, data []byte) error {
	_, err := a.s3Api.PutObject(&s3.PutObjectInput{
		Body:        bytes.NewReader(data),
		Bucket:      aws.String(bucket),
		Key:         aws.String(a.key(p)),
		ContentType: aws.String(contentType(p)),
	})
	return err
}

func (a S3Access) ReadJSON(bucket string, p string, itemsPtr any, emptyIfNotFound bool) error {
	data, err := a.ReadObject(bucket, p)
	if err != nil {
		if emptyIfNotFound && a.IsNotFoundError(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, itemsPtr)
}

func (a S3Access) WriteJSON(bucket string, p string, itemsPtr any) error {
	data, err := json.MarshalIndent(itemsPtr, "", jsonIndent)
	if err != nil {
		return err
	}
	return a.WriteObject(bucket, p, data)
}

func (a S3Access) DeleteObject(bucket string, p string) error {
	_, err := a.s3Api.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(a.key(p)),
	})
	return err
}

func (a S3Access) IsNotFoundError(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}
	return false
}

func contentType(p string) string {
	if strings.HasSuffix(p, ".geojson") {
		return "application/geo+json"
	}
	return "application/octet-stream"
}
