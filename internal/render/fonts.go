package render

import (
	"fmt"
	"os"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

// Glyphs a contract font must carry
const RequiredRunes = "ăâîșțĂÂÎȘȚşţŞŢ"

// FontSet holds TrueType data for the body and bold weights
type FontSet struct {
	Regular []byte
	Bold    []byte
}

// DefaultFontSet returns the embedded Go fonts
func DefaultFontSet() FontSet {
	return FontSet{Regular: goregular.TTF, Bold: gobold.TTF}
}

// LoadFontSet reads TTF files. An empty path keeps the default for that weight.
func LoadFontSet(regularPath, boldPath string) (FontSet, error) {
	fs := DefaultFontSet()

	if regularPath != "" {
		data, err := os.ReadFile(regularPath)
		if err != nil {
			return FontSet{}, fmt.Errorf("failed to read regular font: %w", err)
		}
		fs.Regular = data
	}
	if boldPath != "" {
		data, err := os.ReadFile(boldPath)
		if err != nil {
			return FontSet{}, fmt.Errorf("failed to read bold font: %w", err)
		}
		fs.Bold = data
	}

	if err := fs.Validate(); err != nil {
		return FontSet{}, err
	}
	return fs, nil
}

// Validate checks that both weights parse as sfnt fonts
func (fs FontSet) Validate() error {
	if _, err := sfnt.Parse(fs.Regular); err != nil {
		return fmt.Errorf("invalid regular font: %w", err)
	}
	if _, err := sfnt.Parse(fs.Bold); err != nil {
		return fmt.Errorf("invalid bold font: %w", err)
	}
	return nil
}

// MissingRunes reports runes from want that either weight has no glyph for
func (fs FontSet) MissingRunes(want string) ([]rune, error) {
	var missing []rune
	seen := make(map[rune]bool)

	for _, data := range [][]byte{fs.Regular, fs.Bold} {
		f, err := sfnt.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font: %w", err)
		}

		var buf sfnt.Buffer
		for _, r := range want {
			if seen[r] {
				continue
			}
			idx, err := f.GlyphIndex(&buf, r)
			if err != nil {
				return nil, fmt.Errorf("failed to look up glyph %q: %w", r, err)
			}
			if idx == 0 {
				seen[r] = true
				missing = append(missing, r)
			}
		}
	}
	return missing, nil
}
