package convert

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

type imageHandler struct{}

func (imageHandler) Name() string { return "image" }

var imageExts = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"tif": true, "tiff": true, "heic": true, "webp": true, "bmp": true,
}

func (imageHandler) Accepts(d StreamDescriptor) bool {
	if strings.HasPrefix(d.MIMEType, "image/") {
		return true
	}
	return imageExts[strings.ToLower(strings.TrimPrefix(d.Ext, "."))]
}

// curatedEXIFTags lists the EXIF tags worth surfacing, in display
// order, paired with the human label to render them under.
var curatedEXIFTags = []struct {
	tag   exif.FieldName
	label string
}{
	{exif.Make, "Camera Make"},
	{exif.Model, "Camera Model"},
	{exif.DateTimeOriginal, "Date Taken"},
	{exif.DateTime, "Date Modified"},
	{exif.ExposureTime, "Exposure Time"},
	{exif.FNumber, "F-Number"},
	{exif.ISOSpeedRatings, "ISO Speed"},
	{exif.FocalLength, "Focal Length"},
	{exif.PixelXDimension, "Width"},
	{exif.PixelYDimension, "Height"},
	{exif.Orientation, "Orientation"},
	{exif.Software, "Software"},
	{exif.GPSLatitude, "GPS Latitude"},
	{exif.GPSLongitude, "GPS Longitude"},
	{exif.ImageDescription, "Description"},
	{exif.Artist, "Artist"},
	{exif.Copyright, "Copyright"},
}

// Convert renders a filename/byte-count/format header, then an EXIF
// Metadata section built from the curated tag list, falling back to
// every present raw field when none of the curated tags are present,
// and a literal no-metadata note when EXIF decoding fails or yields
// nothing at all.
func (imageHandler) Convert(data []byte, d StreamDescriptor) (ConversionResult, error) {
	var sb strings.Builder
	if d.Filename != "" {
		fmt.Fprintf(&sb, "# Image: %s\n\n", d.Filename)
	} else {
		sb.WriteString("# Image\n\n")
	}
	fmt.Fprintf(&sb, "- **Size:** %d bytes\n", len(data))
	if format := detectImageFormat(data, d); format != "" {
		fmt.Fprintf(&sb, "- **Format:** %s\n", format)
	}
	sb.WriteByte('\n')
	sb.WriteString("## EXIF Metadata\n\n")
	sb.WriteString(renderEXIFSection(data))

	return newResult(sb.String()), nil
}

// renderEXIFSection decodes EXIF data and renders the curated tag
// list; if none of the curated tags are present it dumps every raw
// field instead, and if decoding fails or yields nothing at all it
// returns the literal no-metadata note.
func renderEXIFSection(data []byte) string {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return "*No EXIF metadata found*"
	}

	var sb strings.Builder
	for _, t := range curatedEXIFTags {
		tag, err := x.Get(t.tag)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "- **%s:** %s\n", t.label, formatEXIFTag(tag))
	}
	if sb.Len() > 0 {
		return strings.TrimSuffix(sb.String(), "\n")
	}

	if dumped := dumpAllEXIFFields(x); dumped != "" {
		return strings.TrimSuffix(dumped, "\n")
	}
	return "*No EXIF metadata found*"
}

func formatEXIFTag(tag *tiff.Tag) string {
	s := tag.String()
	return strings.Trim(s, "\"")
}

// dumpAllEXIFFields walks every IFD present in the decoded EXIF data,
// emitting each field under its raw tag name.
func dumpAllEXIFFields(x *exif.Exif) string {
	var sb strings.Builder
	x.Walk(exifFieldWalker(func(name exif.FieldName, tag *tiff.Tag) error {
		fmt.Fprintf(&sb, "- **%s:** %s\n", name, formatEXIFTag(tag))
		return nil
	}))
	return sb.String()
}

type exifFieldWalker func(name exif.FieldName, tag *tiff.Tag) error

func (w exifFieldWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	return w(name, tag)
}

func detectImageFormat(data []byte, d StreamDescriptor) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "JPEG"
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "PNG"
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return "GIF"
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return "TIFF"
	case bytes.HasPrefix(data, []byte("BM")):
		return "BMP"
	case bytes.HasPrefix(data, []byte("RIFF")) && bytes.Contains(data[:min(len(data), 16)], []byte("WEBP")):
		return "WEBP"
	}
	if ext := strings.ToUpper(strings.TrimPrefix(d.Ext, ".")); ext != "" {
		return ext
	}
	return ""
}
