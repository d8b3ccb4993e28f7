package core

import (
	"mime"
	"slices"
	"strings"
)

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
	MIMEPDF  = "application/pdf"
	MIMEText = "text/plain"
)

// InvoiceMIMETypes lists the upload types accepted for invoice extraction.
var InvoiceMIMETypes = []string{MIMEJPEG, MIMEPNG, MIMEWebP, MIMEPDF, MIMEText}

// NormalizeMIME lowercases a media type and drops its parameters ("text/plain; charset=utf-8" -> "text/plain").
func NormalizeMIME(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mt
}

func IsInvoiceMIME(mimeType string) bool {
	return slices.Contains(InvoiceMIMETypes, NormalizeMIME(mimeType))
}

func IsStatementMIME(mimeType string) bool {
	return NormalizeMIME(mimeType) == MIMEText
}
