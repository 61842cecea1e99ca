package statement

import (
	"bytes"
	"path"
	"strings"
)

// Format is a supported statement file type.
type Format string

const (
	FormatUnknown Format = ""
	FormatCSV     Format = "csv"
	FormatXLS     Format = "xls"
	FormatXLSX    Format = "xlsx"
	FormatPDF     Format = "pdf"
)

var mimeFormats = map[string]Format{
	"text/csv":                 FormatCSV,
	"application/csv":          FormatCSV,
	"text/plain":               FormatCSV,
	"application/vnd.ms-excel": FormatXLS,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FormatXLSX,
	"application/pdf": FormatPDF,
}

var (
	pdfMagic  = []byte("%PDF")
	zipMagic  = []byte("PK\x03\x04")
	oleMagic  = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	extFormat = map[string]Format{
		".csv":  FormatCSV,
		".xls":  FormatXLS,
		".xlsx": FormatXLSX,
		".pdf":  FormatPDF,
	}
)

// DetectFormat resolves the file type from the extension, then the MIME type,
// then the leading magic bytes.
func DetectFormat(name, mimeType string, data []byte) Format {
	if f, ok := extFormat[strings.ToLower(path.Ext(name))]; ok {
		return f
	}
	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	if f, ok := mimeFormats[mt]; ok {
		return f
	}
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return FormatPDF
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS
	}
	return FormatUnknown
}

// MimeType returns the canonical MIME type for a format.
func (f Format) MimeType() string {
	for mt, format := range mimeFormats {
		if format == f && mt != "text/plain" && mt != "application/csv" {
			return mt
		}
	}
	return "application/octet-stream"
}
