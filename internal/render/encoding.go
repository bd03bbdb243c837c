package render

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Romanian letters that upstream double encoding is known to mangle
const romanianLetters = "ăâîșțşţĂÂÎȘȚŞŢ"

var (
	repairOnce     sync.Once
	repairReplacer *strings.Replacer
)

// repairTable maps mojibake sequences to the intended letter. Each entry is
// the UTF-8 encoding of a letter read back as Windows-1252 or ISO-8859-1.
func repairTable() map[string]string {
	table := make(map[string]string)
	for _, cm := range []*charmap.Charmap{charmap.Windows1252, charmap.ISO8859_1} {
		dec := cm.NewDecoder()
		for _, r := range romanianLetters {
			buf := make([]byte, utf8.RuneLen(r))
			utf8.EncodeRune(buf, r)

			garbled, err := dec.String(string(buf))
			if err != nil || strings.ContainsRune(garbled, utf8.RuneError) || garbled == string(r) {
				continue
			}
			if _, ok := table[garbled]; !ok {
				table[garbled] = string(r)
			}
		}
	}
	return table
}

func replacer() *strings.Replacer {
	repairOnce.Do(func() {
		table := repairTable()
		keys := make([]string, 0, len(table))
		for k := range table {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys)*2)
		for _, k := range keys {
			pairs = append(pairs, k, table[k])
		}
		repairReplacer = strings.NewReplacer(pairs...)
	})
	return repairReplacer
}

// RepairEncoding fixes Romanian diacritics that were double encoded upstream
// and composes decomposed forms (s + U+0326 becomes ș).
//
// Known gaps: triple encoding, CP1250/ISO-8859-2 mojibake and mixed double
// encodings inside one sequence are left as is.
func RepairEncoding(s string) string {
	return norm.NFC.String(replacer().Replace(s))
}
