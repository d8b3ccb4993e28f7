package llm

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/disintegration/imaging"

	"spendora/internal/core"
	"spendora/internal/log"
)

// prepareAttachment downscales JPEG and PNG images whose longest side
// exceeds maxSide, keeping their format. Other types, and images that fail
// to decode, are passed through untouched.
func prepareAttachment(ctx context.Context, data []byte, mimeType string, maxSide int) *Attachment {
	mimeType = core.NormalizeMIME(mimeType)
	att := &Attachment{MIMEType: mimeType, Data: data}
	if maxSide <= 0 {
		return att
	}

	var format imaging.Format
	switch mimeType {
	case core.MIMEJPEG:
		format = imaging.JPEG
	case core.MIMEPNG:
		format = imaging.PNG
	default:
		return att
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		slog.DebugContext(ctx, "Sending invoice image unmodified, decode failed",
			log.FieldComponent, log.ComponentGateway,
			log.FieldMIMEType, mimeType,
			log.FieldError, err)
		return att
	}
	b := img.Bounds()
	if max(b.Dx(), b.Dy()) <= maxSide {
		return att
	}

	resized := imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		slog.WarnContext(ctx, "Failed to re-encode downscaled invoice image",
			log.FieldComponent, log.ComponentGateway,
			log.FieldError, err)
		return att
	}

	slog.DebugContext(ctx, "Downscaled invoice image",
		log.FieldComponent, log.ComponentGateway,
		"from", b.Size().String(),
		"to", resized.Bounds().Size().String(),
		log.FieldBytes, buf.Len())
	att.Data = buf.Bytes()
	return att
}
