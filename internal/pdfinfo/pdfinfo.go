// Package pdfinfo reads basic metadata from a local PDF before upload, so
// obviously broken files can be spotted without a round-trip to the
// gateway. It is a preflight convenience only: batch validation stays
// name-based and never opens file contents.
package pdfinfo

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Info is the locally readable metadata of one PDF.
type Info struct {
	Pages  int
	Title  string
	Author string
}

// Inspect opens the file and reads its page count and document info
// dictionary. A file the parser cannot read returns an error.
func Inspect(path string) (info Info, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info.Pages = reader.NumPage()

	docInfo := reader.Trailer().Key("Info")
	if !docInfo.IsNull() {
		info.Title = docInfo.Key("Title").Text()
		info.Author = docInfo.Key("Author").Text()
	}
	return info, nil
}
