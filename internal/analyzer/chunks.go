package analyzer

import (
	"bytes"
	"encoding/binary"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// pngTextChunks collects tEXt and uncompressed iTXt chunks (comments, tool
// names, descriptions) as a keyword -> text map. Malformed trailing data
// simply terminates the scan; whatever was collected so far is returned.
func pngTextChunks(data []byte) map[string]string {
	info := map[string]string{}
	if !bytes.HasPrefix(data, pngSignature) {
		return info
	}

	rest := data[len(pngSignature):]
	for len(rest) >= 12 {
		length := binary.BigEndian.Uint32(rest[:4])
		chunkType := string(rest[4:8])
		if uint32(len(rest)-12) < length {
			break
		}
		payload := rest[8 : 8+length]

		switch chunkType {
		case "IEND":
			return info
		case "tEXt":
			if keyword, text, ok := bytes.Cut(payload, []byte{0}); ok {
				info[string(keyword)] = string(text)
			}
		case "iTXt":
			if keyword, text, ok := parseITXt(payload); ok {
				info[keyword] = text
			}
		}

		rest = rest[12+length:]
	}
	return info
}

// parseITXt decodes an iTXt payload: keyword, compression flag and method,
// language tag, translated keyword, then the text. Compressed entries are
// skipped.
func parseITXt(payload []byte) (string, string, bool) {
	keyword, rest, ok := bytes.Cut(payload, []byte{0})
	if !ok || len(rest) < 2 {
		return "", "", false
	}
	compressed := rest[0] != 0
	rest = rest[2:]

	// language tag and translated keyword
	for i := 0; i < 2; i++ {
		if _, remainder, found := bytes.Cut(rest, []byte{0}); found {
			rest = remainder
		} else {
			return "", "", false
		}
	}

	if compressed {
		return "", "", false
	}
	return string(keyword), string(rest), true
}
