package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ChangeRow is one row of a comparison change-list.
type ChangeRow struct {
	// Page references the page or section where the change occurs.
	Page string `json:"Page" validate:"required"`

	// Changes describes the difference.
	Changes string `json:"Changes" validate:"required"`
}

// DocumentMetadata is the structured summary produced by document analysis.
type DocumentMetadata struct {
	Summary          []string `json:"Summary" validate:"required,min=1"`
	Title            string   `json:"Title" validate:"required"`
	Author           []string `json:"Author"`
	DateCreated      string   `json:"DateCreated"`
	LastModifiedDate string   `json:"LastModifiedDate"`
	Publisher        string   `json:"Publisher"`
	Language         string   `json:"Language"`

	PageCount     PageCount `json:"PageCount"`
	SentimentTone string    `json:"SentimentTone"`
}

// PageCount holds either a page number or a marker such as "Not Available".
type PageCount string

// UnmarshalJSON accepts a JSON number or string.
func (p *PageCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PageCount(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = PageCount(n.String())
	return nil
}

// Int returns the numeric page count, if it is one.
func (p PageCount) Int() (int, bool) {
	n, err := strconv.Atoi(string(p))
	return n, err == nil
}
