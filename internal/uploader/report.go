package uploader

import "fmt"

// Report is the presentation classification of a settled batch. Building
// one has no side effects; the same Report backs the CLI lines and the web
// result panel.
type Report struct {
	Title  string
	Lines  []string
	Failed bool
}

// SuccessCount returns the number of outcomes that succeeded.
func (r BatchResult) SuccessCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded {
			n++
		}
	}
	return n
}

// Describe classifies a batch for display: a detailed single-paper view
// for a one-file batch, an aggregate count plus one line per file for
// anything larger.
func Describe(result BatchResult) Report {
	if len(result.Outcomes) == 1 {
		return describeSingle(result.Outcomes[0])
	}
	return describeBatch(result)
}

func describeSingle(o Outcome) Report {
	if !o.Succeeded {
		return Report{
			Title:  "Error Uploading Paper",
			Lines:  []string{"Error: " + o.Err},
			Failed: true,
		}
	}

	author := o.Paper.Author
	if author == "" {
		author = "Unknown"
	}
	pages := "Unknown"
	if o.Paper.PageCount > 0 {
		pages = fmt.Sprintf("%d", o.Paper.PageCount)
	}

	return Report{
		Title: "Paper Uploaded Successfully!",
		Lines: []string{
			"ID: " + o.Paper.ID,
			"Title: " + o.Paper.Title,
			"Author: " + author,
			"Pages: " + pages,
			"The paper has been processed and is now available for querying.",
		},
	}
}

func describeBatch(result BatchResult) Report {
	r := Report{
		Title:  fmt.Sprintf("Upload Results (%d files)", len(result.Outcomes)),
		Failed: result.HasErrors,
	}
	r.Lines = append(r.Lines, fmt.Sprintf("%d of %d files uploaded successfully.",
		result.SuccessCount(), len(result.Outcomes)))

	for _, o := range result.Outcomes {
		if o.Succeeded {
			r.Lines = append(r.Lines, fmt.Sprintf("%s: uploaded successfully (ID: %s)", o.Filename, o.Paper.ID))
		} else {
			r.Lines = append(r.Lines, fmt.Sprintf("%s: %s", o.Filename, o.Err))
		}
	}
	return r
}
