package cmd

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Static errors for configuration validation
var (
	ErrDatabaseUserRequired    = errors.New("database user is required")
	ErrDatabaseServiceRequired = errors.New("database service name is required")
	ErrDatabasePortInvalid     = errors.New("database port must be between 1 and 65535")
	ErrTableNameRequired       = errors.New("source table name is required")
	ErrTableNameInvalid        = errors.New("source table name is invalid: must be 1-128 characters, start with a letter or underscore, and contain only letters, numbers, underscores, $ and #")
	ErrStartDateRequired       = errors.New("start date is required")
	ErrStartDateFormatInvalid  = errors.New("invalid start date format")
	ErrEndDateFormatInvalid    = errors.New("invalid end date format")
	ErrDateRangeInverted       = errors.New("end date must not precede start date")
	ErrConfigTableInvalid      = errors.New("configuration table name is invalid")
	ErrLogTableInvalid         = errors.New("execution log table name is invalid")
	ErrTraceTableInvalid       = errors.New("trace table name is invalid")
	ErrS3EndpointRequired      = errors.New("S3 endpoint is required")
	ErrS3BucketRequired        = errors.New("S3 bucket is required")
	ErrS3AccessKeyRequired     = errors.New("S3 access key is required")
	ErrS3SecretKeyRequired     = errors.New("S3 secret key is required")
	ErrS3RegionInvalid         = errors.New("S3 region contains invalid characters or is too long")
	ErrPathTemplateRequired    = errors.New("path template is required")
	ErrPathTemplateInvalid     = errors.New("path template must contain {table} placeholder")
	ErrExportFormatInvalid     = errors.New("export format must be one of: jsonl, csv")
	ErrCompressionInvalid      = errors.New("compression must be one of: zstd, lz4, gzip, none")
	ErrCompressionLevelInvalid = errors.New("compression level must be between 1 and 22 (zstd), 1-9 (lz4/gzip)")
)

const regionAuto = "auto"

type Config struct {
	Debug            bool
	LogFormat        string
	DryRun           bool
	Database         DatabaseConfig
	S3               S3Config
	Table            string
	StartDate        string
	EndDate          string
	ConfigTable      string // archival configuration table (default PART_ARCHIVE_CONFIG)
	LogTable         string // execution log table (default PART_ARCHIVE_LOG)
	TraceTable       string // trace event table (default PART_ARCHIVE_TRACE)
	ExportFormat     string
	Compression      string
	CompressionLevel int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Service  string // Oracle service name
}

type S3Config struct {
	Endpoint     string
	Bucket       string
	AccessKey    string
	SecretKey    string
	Region       string
	PathTemplate string
}

// Default control-table names, overridable via configuration.
const (
	defaultConfigTable = "PART_ARCHIVE_CONFIG"
	defaultLogTable    = "PART_ARCHIVE_LOG"
	defaultTraceTable  = "PART_ARCHIVE_TRACE"
)

// isValidTableName validates that a table name is safe to use in generated
// SQL. Shares the allow-list with the typed relation references.
func isValidTableName(name string) bool {
	if name == "" || len(name) > 128 {
		return false
	}
	return validOracleIdentifier.MatchString(name)
}

// isValidRegion validates that an S3 region is reasonable
func isValidRegion(region string) bool {
	if region == "" {
		return false
	}
	if len(region) > 50 {
		return false
	}
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_-]+$`, region)
	return matched
}

// isValidPathTemplate validates that a path template contains required placeholders
func isValidPathTemplate(template string) bool {
	if template == "" {
		return false
	}
	return regexp.MustCompile(`\{table\}`).MatchString(template)
}

// isValidExportFormat validates the export format
func isValidExportFormat(format string) bool {
	validFormats := map[string]bool{
		"jsonl": true,
		"csv":   true,
	}
	return validFormats[format]
}

// isValidCompression validates the compression type
func isValidCompression(compression string) bool {
	validCompressions := map[string]bool{
		"zstd": true,
		"lz4":  true,
		"gzip": true,
		"none": true,
	}
	return validCompressions[compression]
}

// isValidCompressionLevel validates compression level based on compression type
func isValidCompressionLevel(compression string, level int) bool {
	switch compression {
	case "zstd":
		return level >= 1 && level <= 22
	case "lz4", "gzip":
		return level >= 1 && level <= 9
	case "none":
		return level == 0
	default:
		return false
	}
}

// Validate checks database and run settings. Export settings are validated
// separately by ValidateExport since the archive and validate commands never
// touch S3.
func (c *Config) Validate() error {
	if c.Database.User == "" {
		return ErrDatabaseUserRequired
	}
	if c.Database.Service == "" {
		return ErrDatabaseServiceRequired
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("%w, got %d", ErrDatabasePortInvalid, c.Database.Port)
	}

	if c.Table == "" {
		return ErrTableNameRequired
	}
	if !isValidTableName(c.Table) {
		return fmt.Errorf("%w: '%s'", ErrTableNameInvalid, c.Table)
	}

	if c.ConfigTable != "" && !isValidTableName(c.ConfigTable) {
		return fmt.Errorf("%w: '%s'", ErrConfigTableInvalid, c.ConfigTable)
	}
	if c.LogTable != "" && !isValidTableName(c.LogTable) {
		return fmt.Errorf("%w: '%s'", ErrLogTableInvalid, c.LogTable)
	}
	if c.TraceTable != "" && !isValidTableName(c.TraceTable) {
		return fmt.Errorf("%w: '%s'", ErrTraceTableInvalid, c.TraceTable)
	}

	if c.StartDate == "" {
		return ErrStartDateRequired
	}
	start, err := time.Parse("2006-01-02", c.StartDate)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStartDateFormatInvalid, err)
	}
	if c.EndDate != "" {
		end, err := time.Parse("2006-01-02", c.EndDate)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEndDateFormatInvalid, err)
		}
		if end.Before(start) {
			return fmt.Errorf("%w: %s > %s", ErrDateRangeInverted, c.StartDate, c.EndDate)
		}
	}

	return nil
}

// ValidateExport checks the S3 and serialization settings used by the export
// command, on top of the common database settings.
func (c *Config) ValidateExport() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.S3.Endpoint == "" {
		return ErrS3EndpointRequired
	}
	if c.S3.Bucket == "" {
		return ErrS3BucketRequired
	}
	if c.S3.AccessKey == "" {
		return ErrS3AccessKeyRequired
	}
	if c.S3.SecretKey == "" {
		return ErrS3SecretKeyRequired
	}
	if c.S3.Region != "" && c.S3.Region != regionAuto {
		if !isValidRegion(c.S3.Region) {
			return fmt.Errorf("%w: %s", ErrS3RegionInvalid, c.S3.Region)
		}
	}

	if c.S3.PathTemplate == "" {
		return ErrPathTemplateRequired
	}
	if !isValidPathTemplate(c.S3.PathTemplate) {
		return fmt.Errorf("%w: '%s'", ErrPathTemplateInvalid, c.S3.PathTemplate)
	}

	if !isValidExportFormat(c.ExportFormat) {
		return fmt.Errorf("%w: '%s'", ErrExportFormatInvalid, c.ExportFormat)
	}
	if !isValidCompression(c.Compression) {
		return fmt.Errorf("%w: '%s'", ErrCompressionInvalid, c.Compression)
	}
	if !isValidCompressionLevel(c.Compression, c.CompressionLevel) {
		return fmt.Errorf("%w for compression %s: got %d", ErrCompressionLevelInvalid, c.Compression, c.CompressionLevel)
	}

	return nil
}

// Dates expands the configured start/end range into the ascending list of
// business dates to process. An empty end date means a single-date run.
func (c *Config) Dates() ([]time.Time, error) {
	start, err := time.Parse("2006-01-02", c.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStartDateFormatInvalid, err)
	}
	end := start
	if c.EndDate != "" {
		end, err = time.Parse("2006-01-02", c.EndDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEndDateFormatInvalid, err)
		}
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates, nil
}

// controlTables resolves the configured control-table names, applying
// defaults, into validated references.
func (c *Config) controlTables() (cfg, log, trace Ref, err error) {
	name := c.ConfigTable
	if name == "" {
		name = defaultConfigTable
	}
	if cfg, err = NewRef(name); err != nil {
		return
	}

	name = c.LogTable
	if name == "" {
		name = defaultLogTable
	}
	if log, err = NewRef(name); err != nil {
		return
	}

	name = c.TraceTable
	if name == "" {
		name = defaultTraceTable
	}
	trace, err = NewRef(name)
	return
}
