package cmd

import (
	"fmt"
	"strings"
	"time"
)

// PathTemplate provides functionality to generate S3 paths from templates
type PathTemplate struct {
	template string
}

// NewPathTemplate creates a new PathTemplate instance
func NewPathTemplate(template string) *PathTemplate {
	return &PathTemplate{template: template}
}

// Generate replaces placeholders in the template with actual values
// Supports: {table}, {YYYY}, {MM}, {DD}
func (pt *PathTemplate) Generate(tableName string, timestamp time.Time) string {
	result := pt.template

	result = strings.ReplaceAll(result, "{table}", tableName)
	result = strings.ReplaceAll(result, "{YYYY}", timestamp.Format("2006"))
	result = strings.ReplaceAll(result, "{MM}", timestamp.Format("01"))
	result = strings.ReplaceAll(result, "{DD}", timestamp.Format("02"))

	return result
}

// GenerateFilename creates an export filename covering a date range. A single
// date yields table-YYYY-MM-DD, a range table-YYYY-MM-DD_YYYY-MM-DD.
func GenerateFilename(tableName string, start, end time.Time, formatExt string, compressionExt string) string {
	basename := fmt.Sprintf("%s-%s", tableName, start.Format("2006-01-02"))
	if !end.Equal(start) {
		basename += "_" + end.Format("2006-01-02")
	}

	filename := basename + formatExt
	if compressionExt != "" {
		filename += compressionExt
	}

	return filename
}
