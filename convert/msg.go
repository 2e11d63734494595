package convert

import (
	"strings"
	"unicode/utf16"
)

type msgHandler struct{}

func (msgHandler) Name() string { return "msg" }

func (msgHandler) Accepts(d StreamDescriptor) bool {
	if d.MIMEType == "application/vnd.ms-outlook" {
		return true
	}
	return strings.ToLower(d.Ext) == "msg"
}

// Well-known MAPI property tags. Body/subject/from/to/date are read via
// the Unicode (0x001F, UTF-16LE) variant first, then the ANSI (0x001E,
// lossy UTF-8) variant; attachment names are Unicode-only (see
// readMSGPropertyUnicode) since a short-filename ANSI fallback tends to
// mangle anything outside the 8.3 charset.
const (
	msgPropSubject = "0037"
	msgPropFrom    = "0C1A"
	msgPropTo      = "0E04"
	msgPropDate    = "0039"
	msgPropBody    = "1000"

	msgPropAttachLongName  = "3707"
	msgPropAttachShortName = "3704"
)

// Convert reads the well-known MAPI properties off the root storage,
// lists attachment storages by name only (no body reconstruction),
// and assembles a subject heading, details section, body section, and
// attachment list.
func (msgHandler) Convert(data []byte, _ StreamDescriptor) (ConversionResult, error) {
	cfb, err := openCFB(data)
	if err != nil {
		return ConversionResult{}, conversionFailed("msg", "not a valid Outlook MSG (compound file binary) document", err)
	}

	subject := readMSGProperty(cfb, nil, msgPropSubject)
	from := readMSGProperty(cfb, nil, msgPropFrom)
	to := readMSGProperty(cfb, nil, msgPropTo)
	date := readMSGProperty(cfb, nil, msgPropDate)
	body := readMSGProperty(cfb, nil, msgPropBody)
	attachments := listMSGAttachments(cfb)

	var sb strings.Builder
	if subject != "" {
		sb.WriteString("# ")
		sb.WriteString(subject)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Email Details\n\n")
	if from != "" {
		sb.WriteString("- **From:** ")
		sb.WriteString(from)
		sb.WriteByte('\n')
	}
	if to != "" {
		sb.WriteString("- **To:** ")
		sb.WriteString(to)
		sb.WriteByte('\n')
	}
	if date != "" {
		sb.WriteString("- **Date:** ")
		sb.WriteString(date)
		sb.WriteByte('\n')
	}

	sb.WriteString("\n## Body\n\n")
	if body != "" {
		sb.WriteString(body)
	}

	if len(attachments) > 0 {
		sb.WriteString("\n\n## Attachments\n\n")
		for _, name := range attachments {
			sb.WriteString("- ")
			sb.WriteString(name)
			sb.WriteByte('\n')
		}
	}

	result := newResult(strings.TrimRight(sb.String(), "\n"))
	if subject != "" {
		result = result.withTitle(subject)
	}
	return result, nil
}

// readMSGProperty looks up a property stream by tag under the given
// storage path (nil means the root storage), trying the Unicode suffix
// before the ANSI one, and returns the trimmed string value or "" if
// neither variant is present or both are empty after trimming.
func readMSGProperty(cfb *cfbReader, storagePath []string, tag string) string {
	if text := readMSGStream(cfb, storagePath, "__substg1.0_"+tag+"001F", true); text != "" {
		return text
	}
	return readMSGStream(cfb, storagePath, "__substg1.0_"+tag+"001E", false)
}

// readMSGPropertyUnicode looks up a property stream's Unicode (0x001F)
// variant only, with no ANSI fallback.
func readMSGPropertyUnicode(cfb *cfbReader, storagePath []string, tag string) string {
	return readMSGStream(cfb, storagePath, "__substg1.0_"+tag+"001F", true)
}

func readMSGStream(cfb *cfbReader, storagePath []string, streamName string, unicode bool) string {
	entry, ok := cfb.findByPath(append(append([]string{}, storagePath...), streamName))
	if !ok {
		return ""
	}
	raw := cfb.readStream(entry)
	return decodeMSGStreamText(raw, unicode)
}

func decodeMSGStreamText(raw []byte, isUnicode bool) string {
	var text string
	if isUnicode {
		if len(raw)%2 != 0 {
			raw = raw[:len(raw)-1]
		}
		codeUnits := make([]uint16, len(raw)/2)
		for i := range codeUnits {
			codeUnits[i] = uint16(raw[i*2]) | uint16(raw[i*2+1])<<8
		}
		text = string(utf16.Decode(codeUnits))
	} else {
		text = string(raw)
	}
	text = strings.TrimRight(text, "\x00")
	return strings.TrimSpace(text)
}

// listMSGAttachments enumerates direct child storages of the root
// named "__attach*" and resolves each one's display filename, trying
// the long-filename property before the short one.
func listMSGAttachments(cfb *cfbReader) []string {
	var names []string
	for _, idx := range cfb.childrenOf(0) {
		entry := cfb.entries[idx]
		if entry.entryType != cfbEntryStorage || !strings.HasPrefix(entry.name, "__attach") {
			continue
		}
		storagePath := []string{entry.name}
		name := readMSGPropertyUnicode(cfb, storagePath, msgPropAttachLongName)
		if name == "" {
			name = readMSGPropertyUnicode(cfb, storagePath, msgPropAttachShortName)
		}
		if name == "" {
			name = "(unnamed attachment)"
		}
		names = append(names, name)
	}
	return names
}
