// Package profile loads the candidate profile: the résumé text, read from a
// local file or an S3-compatible bucket, and the structured preferences.
package profile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"github.com/amishk599/jobdigest/internal/model"
	"github.com/amishk599/jobdigest/internal/normalize"
)

// Options describes where the profile comes from.
type Options struct {
	Resume           string // local path or s3://bucket/key
	PreferencesFile  string // optional, appended to Preferences
	Preferences      string
	DesiredRoles     []string
	Locations        []string
	SalaryFloor      float64
	ExcludeKeywords  []string
	ExcludeLocations []string
	S3               S3Config
}

// S3Config points at an S3-compatible store. Endpoint is set for R2, MinIO
// and the like; empty means AWS.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// ObjectGetter is the subset of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads profiles. A nil S3 client is built on first use from
// Options.S3.
type Loader struct {
	S3 ObjectGetter
}

// Load builds the CandidateProfile. An unreadable or empty résumé is a
// configuration error, reported before any provider is called.
func (l *Loader) Load(ctx context.Context, opts Options) (model.CandidateProfile, error) {
	if strings.TrimSpace(opts.Resume) == "" {
		return model.CandidateProfile{}, fmt.Errorf("%w: profile.resume is required", model.ErrConfig)
	}

	data, err := l.read(ctx, opts)
	if err != nil {
		return model.CandidateProfile{}, fmt.Errorf("%w: read résumé %s: %w", model.ErrConfig, opts.Resume, err)
	}
	text, err := ExtractText(opts.Resume, data)
	if err != nil {
		return model.CandidateProfile{}, fmt.Errorf("%w: %w", model.ErrConfig, err)
	}
	if text == "" {
		return model.CandidateProfile{}, fmt.Errorf("%w: résumé %s is empty", model.ErrConfig, opts.Resume)
	}

	prefs := strings.TrimSpace(opts.Preferences)
	if opts.PreferencesFile != "" {
		b, err := os.ReadFile(opts.PreferencesFile)
		if err != nil {
			return model.CandidateProfile{}, fmt.Errorf("%w: read preferences: %w", model.ErrConfig, err)
		}
		prefs = strings.TrimSpace(prefs + "\n" + string(b))
	}

	return model.CandidateProfile{
		Resume:           text,
		Preferences:      prefs,
		DesiredRoles:     opts.DesiredRoles,
		Locations:        opts.Locations,
		SalaryFloor:      opts.SalaryFloor,
		ExcludeKeywords:  opts.ExcludeKeywords,
		ExcludeLocations: opts.ExcludeLocations,
	}, nil
}

func (l *Loader) read(ctx context.Context, opts Options) ([]byte, error) {
	bucket, key, ok := ParseS3URI(opts.Resume)
	if !ok {
		return os.ReadFile(opts.Resume)
	}
	if l.S3 == nil {
		client, err := NewS3Client(ctx, opts.S3)
		if err != nil {
			return nil, err
		}
		l.S3 = client
	}
	return download(ctx, l.S3, bucket, key)
}

// ParseS3URI splits s3://bucket/key. ok is false for anything else.
func ParseS3URI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// NewS3Client builds a client from cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

func download(ctx context.Context, client ObjectGetter, bucket, key string) ([]byte, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return data, nil
}

// ExtractText returns the plain text of a résumé, choosing the parser by
// the file extension of name.
func ExtractText(name string, data []byte) (string, error) {
	var text string
	var err error
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".txt", ".md", "":
		text = string(data)
	case ".pdf":
		text, err = pdfText(data)
	case ".docx":
		text, err = docxText(data)
	default:
		return "", fmt.Errorf("unsupported résumé format %q (want .txt, .md, .pdf or .docx)", ext)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	defer doc.Close()

	// GetContent returns the document XML; keep paragraph breaks, drop tags.
	content := doc.Editable().GetContent()
	content = strings.ReplaceAll(content, "</w:p>", "</w:p>\n")
	return normalize.PlainText(content), nil
}
