package execshell

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

const (
	unknownEncodingErrorTemplateConstant = "unknown output encoding %q: %w"
	carriageReturnLineFeedConstant       = "\r\n"
	lineFeedConstant                     = "\n"
)

// OutputDecoder turns captured bytes into text. UTF-8 is always tried first, then each
// fallback encoding in order; when every candidate rejects the bytes, invalid sequences
// are replaced with U+FFFD instead of failing.
type OutputDecoder struct {
	fallbackEncodings []encoding.Encoding
}

// NewOutputDecoder builds a decoder with the given fallback encodings.
func NewOutputDecoder(fallbackEncodings ...encoding.Encoding) OutputDecoder {
	filteredEncodings := make([]encoding.Encoding, 0, len(fallbackEncodings))
	for _, fallbackEncoding := range fallbackEncodings {
		if fallbackEncoding != nil {
			filteredEncodings = append(filteredEncodings, fallbackEncoding)
		}
	}
	return OutputDecoder{fallbackEncodings: filteredEncodings}
}

// DefaultOutputDecoder decodes UTF-8 with GBK as the legacy fallback.
func DefaultOutputDecoder() OutputDecoder {
	return NewOutputDecoder(simplifiedchinese.GBK)
}

// ResolveEncodings maps WHATWG encoding labels such as "gbk" or "shift_jis" to encodings.
func ResolveEncodings(encodingNames []string) ([]encoding.Encoding, error) {
	resolvedEncodings := make([]encoding.Encoding, 0, len(encodingNames))
	for _, encodingName := range encodingNames {
		trimmedName := strings.TrimSpace(encodingName)
		if len(trimmedName) == 0 {
			continue
		}
		resolvedEncoding, lookupError := htmlindex.Get(trimmedName)
		if lookupError != nil {
			return nil, fmt.Errorf(unknownEncodingErrorTemplateConstant, trimmedName, lookupError)
		}
		resolvedEncodings = append(resolvedEncodings, resolvedEncoding)
	}
	return resolvedEncodings, nil
}

// Decode converts captured bytes to text without ever failing.
func (decoder OutputDecoder) Decode(capturedOutput []byte) string {
	if len(capturedOutput) == 0 {
		return ""
	}
	if utf8.Valid(capturedOutput) {
		return string(capturedOutput)
	}
	for _, fallbackEncoding := range decoder.fallbackEncodings {
		if decodedText, decoded := decodeStrict(fallbackEncoding, capturedOutput); decoded {
			return decodedText
		}
	}
	return decodeWithReplacement(capturedOutput)
}

// decodeStrict treats any substituted rune as a rejection because x/text decoders
// replace invalid input with U+FFFD instead of returning an error.
func decodeStrict(candidateEncoding encoding.Encoding, capturedOutput []byte) (string, bool) {
	decodedBytes, decodeError := candidateEncoding.NewDecoder().Bytes(capturedOutput)
	if decodeError != nil {
		return "", false
	}
	if bytes.ContainsRune(decodedBytes, utf8.RuneError) {
		return "", false
	}
	return string(decodedBytes), true
}

func decodeWithReplacement(capturedOutput []byte) string {
	decodedBytes, decodeError := unicode.UTF8.NewDecoder().Bytes(capturedOutput)
	if decodeError != nil {
		return strings.ToValidUTF8(string(capturedOutput), string(utf8.RuneError))
	}
	return string(decodedBytes)
}

// StripTrailingNewline removes exactly one trailing CRLF or LF.
func StripTrailingNewline(capturedOutput []byte) []byte {
	if bytes.HasSuffix(capturedOutput, []byte(carriageReturnLineFeedConstant)) {
		return capturedOutput[:len(capturedOutput)-len(carriageReturnLineFeedConstant)]
	}
	if bytes.HasSuffix(capturedOutput, []byte(lineFeedConstant)) {
		return capturedOutput[:len(capturedOutput)-len(lineFeedConstant)]
	}
	return capturedOutput
}
