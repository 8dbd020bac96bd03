package cmd

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // MD5 used for checksums, not cryptography
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	go_ora "github.com/sijms/go-ora/v2"

	"github.com/meridiandb/partition-exchanger/cmd/compressors"
	"github.com/meridiandb/partition-exchanger/cmd/formatters"
)

var (
	ErrS3ClientNotInitialized   = errors.New("S3 client not initialized")
	ErrS3UploaderNotInitialized = errors.New("S3 uploader not initialized")
	ErrNoLogRows                = errors.New("no execution log rows in the requested range")
)

// Exporter writes execution log rows to object storage: query, format,
// compress, then upload with a skip when an identical object already exists.
type Exporter struct {
	config     *Config
	logger     *slog.Logger
	db         *sql.DB
	s3Client   *s3.S3
	s3Uploader *s3manager.Uploader
}

func NewExporter(config *Config, logger *slog.Logger) *Exporter {
	return &Exporter{
		config: config,
		logger: logger,
	}
}

func (e *Exporter) connect(ctx context.Context) error {
	connStr := go_ora.BuildUrl(
		e.config.Database.Host,
		e.config.Database.Port,
		e.config.Database.Service,
		e.config.Database.User,
		e.config.Database.Password,
		nil,
	)

	db, err := sql.Open("oracle", connStr)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	e.db = db

	sess, err := session.NewSession(&aws.Config{
		Endpoint:         aws.String(e.config.S3.Endpoint),
		Region:           aws.String(e.config.S3.Region),
		Credentials:      credentials.NewStaticCredentials(e.config.S3.AccessKey, e.config.S3.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		db.Close()
		e.db = nil
		return fmt.Errorf("failed to create S3 session: %w", err)
	}

	e.s3Client = s3.New(sess)
	e.s3Uploader = s3manager.NewUploader(sess)

	return nil
}

// Run exports the execution log rows for the configured table and date range.
func (e *Exporter) Run(ctx context.Context) error {
	if e.db == nil {
		if err := e.connect(ctx); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		defer func() {
			e.db.Close()
			e.db = nil
		}()
	}

	_, logTable, _, err := e.config.controlTables()
	if err != nil {
		return err
	}
	sourceTable, err := NewRef(e.config.Table)
	if err != nil {
		return err
	}

	dates, err := e.config.Dates()
	if err != nil {
		return err
	}
	start, end := dates[0], dates[len(dates)-1]

	e.logger.Info(fmt.Sprintf("📊 Querying %s for %s (%s to %s)",
		logTable, sourceTable, start.Format("2006-01-02"), end.Format("2006-01-02")))

	rows, err := e.fetchLogRows(ctx, logTable, sourceTable, start, end)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s", ErrNoLogRows, sourceTable)
	}
	e.logger.Info(fmt.Sprintf("📊 Fetched %d execution log rows", len(rows)))

	formatter := formatters.GetFormatter(e.config.ExportFormat)
	formatted, err := formatter.Format(rows)
	if err != nil {
		return fmt.Errorf("failed to format rows: %w", err)
	}

	compressor, err := compressors.GetCompressor(e.config.Compression)
	if err != nil {
		return err
	}
	level := e.config.CompressionLevel
	if level == 0 {
		level = compressor.DefaultLevel()
	}
	compressed, err := compressor.Compress(formatted, level)
	if err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}

	hasher := md5.New() //nolint:gosec // MD5 used for checksums, not cryptography
	hasher.Write(compressed)
	localMD5 := hex.EncodeToString(hasher.Sum(nil))

	template := NewPathTemplate(e.config.S3.PathTemplate)
	prefix := template.Generate(strings.ToLower(sourceTable.Name()), start)
	filename := GenerateFilename(strings.ToLower(sourceTable.Name()), start, end,
		formatter.Extension(), compressor.Extension())
	objectKey := strings.TrimSuffix(prefix, "/") + "/" + filename

	e.logger.Info(fmt.Sprintf("📦 %d bytes formatted, %d compressed (%s)",
		len(formatted), len(compressed), e.config.Compression))

	if e.objectMatches(objectKey, compressed, localMD5) {
		e.logger.Info(fmt.Sprintf("⏭️  s3://%s/%s already up to date, skipping", e.config.S3.Bucket, objectKey))
		return nil
	}

	if e.config.DryRun {
		e.logger.Info(fmt.Sprintf("💧 Dry run: would upload %d bytes to s3://%s/%s",
			len(compressed), e.config.S3.Bucket, objectKey))
		return nil
	}

	if err := e.upload(objectKey, compressed, formatter.MIMEType()); err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	e.logger.Info(fmt.Sprintf("✅ Uploaded %d bytes to s3://%s/%s", len(compressed), e.config.S3.Bucket, objectKey))
	return nil
}

func exportLogSQL(table Ref) string {
	return fmt.Sprintf(
		`SELECT * FROM %s WHERE source_table = :1 AND business_date BETWEEN :2 AND :3 ORDER BY id`,
		table.Quoted(),
	)
}

// fetchLogRows scans the execution log generically into maps keyed by
// lowercased column name, so formatters do not depend on the table layout.
func (e *Exporter) fetchLogRows(ctx context.Context, logTable, sourceTable Ref, start, end time.Time) ([]map[string]interface{}, error) {
	rows, err := e.db.QueryContext(ctx, exportLogSQL(logTable), sourceTable.Name(), start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution log: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanTargets := make([]interface{}, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[strings.ToLower(col)] = v
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// objectMatches reports whether the object already in S3 is byte-identical to
// the local payload, comparing size plus MD5 or multipart ETag.
func (e *Exporter) objectMatches(key string, compressed []byte, localMD5 string) bool {
	exists, s3Size, s3ETag := e.checkObjectExists(key)
	if !exists {
		e.logger.Debug(fmt.Sprintf("  📊 Object does not exist in S3: %s", key))
		return false
	}

	s3ETag = strings.Trim(s3ETag, "\"")
	isMultipart := strings.Contains(s3ETag, "-")

	e.logger.Debug(fmt.Sprintf("  📊 Comparing: S3 size=%d etag=%s (multipart=%v), local size=%d md5=%s",
		s3Size, s3ETag, isMultipart, len(compressed), localMD5))

	if s3Size != int64(len(compressed)) {
		return false
	}

	if !isMultipart {
		return s3ETag == localMD5
	}
	return s3ETag == calculateMultipartETag(compressed)
}

func (e *Exporter) checkObjectExists(key string) (bool, int64, string) {
	if e.s3Client == nil {
		e.logger.Error("S3 client not initialized")
		return false, 0, ""
	}

	headInput := &s3.HeadObjectInput{
		Bucket: aws.String(e.config.S3.Bucket),
		Key:    aws.String(key),
	}

	result, err := e.s3Client.HeadObject(headInput)
	if err != nil {
		return false, 0, ""
	}

	var size int64
	var etag string

	if result.ContentLength != nil {
		size = *result.ContentLength
	}
	if result.ETag != nil {
		etag = *result.ETag
	}

	return true, size, etag
}

// calculateMultipartETag calculates the ETag for a multipart upload
// This matches S3's algorithm for multipart uploads
// Uses 5MB part size to match s3manager.Uploader default
func calculateMultipartETag(data []byte) string {
	const partSize = 5 * 1024 * 1024 // 5MB part size (s3manager default)

	numParts := (len(data) + partSize - 1) / partSize

	// If it would be a single part, just return regular MD5
	if numParts == 1 {
		hasher := md5.New() //nolint:gosec // MD5 used for checksums, not cryptography
		hasher.Write(data)
		return hex.EncodeToString(hasher.Sum(nil))
	}

	// Calculate MD5 of each part and concatenate
	var partMD5s []byte
	for i := 0; i < numParts; i++ {
		start := i * partSize
		end := start + partSize
		if end > len(data) {
			end = len(data)
		}

		partHasher := md5.New() //nolint:gosec // MD5 used for checksums, not cryptography
		partHasher.Write(data[start:end])
		partMD5s = append(partMD5s, partHasher.Sum(nil)...)
	}

	finalHasher := md5.New() //nolint:gosec // MD5 used for checksums, not cryptography
	finalHasher.Write(partMD5s)
	finalMD5 := hex.EncodeToString(finalHasher.Sum(nil))

	// S3 multipart format: MD5-numParts
	return fmt.Sprintf("%s-%d", finalMD5, numParts)
}

func (e *Exporter) upload(key string, data []byte, contentType string) error {
	e.logger.Debug(fmt.Sprintf("  ☁️  Uploading to s3://%s/%s (size: %d bytes)",
		e.config.S3.Bucket, key, len(data)))

	// Use multipart upload for payloads larger than 100MB
	if len(data) > 100*1024*1024 {
		if e.s3Uploader == nil {
			return ErrS3UploaderNotInitialized
		}

		uploadInput := &s3manager.UploadInput{
			Bucket:      aws.String(e.config.S3.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		}

		_, err := e.s3Uploader.Upload(uploadInput)
		return err
	}

	if e.s3Client == nil {
		return ErrS3ClientNotInitialized
	}

	putInput := &s3.PutObjectInput{
		Bucket:      aws.String(e.config.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	_, err := e.s3Client.PutObject(putInput)
	return err
}
