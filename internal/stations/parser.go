package stations

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/akramer-zibra/nexus-wetter/internal/common"
)

// Field names a Station field fillable from a table column.
type Field int

const (
	FieldName Field = iota
	FieldID
	FieldCode
	FieldLat
	FieldLng
	FieldAltitude
	FieldRecency
)

// ColumnMap maps 1-based table column indices to station fields. The
// upstream table layout is positional; when it drifts, this map is the
// only thing that needs to change.
type ColumnMap map[int]Field

// DefaultColumns reflects the current layout of the DWD statlex table.
func DefaultColumns() ColumnMap {
	return ColumnMap{
		1:  FieldName,
		2:  FieldID,
		4:  FieldCode,
		5:  FieldLat,
		6:  FieldLng,
		7:  FieldAltitude,
		11: FieldRecency,
	}
}

// Predicate decides whether a scanned station is included in the
// result. It sees the raw record, with Recency still in upstream
// DD.MM.YYYY form.
type Predicate func(Station) bool

// Parser scans the raw station-list HTML in a single forward pass and
// collects the stations matching a predicate, in row order. No DOM is
// built; the table may have tens of thousands of rows.
type Parser struct {
	columns ColumnMap
}

// NewParser creates a parser using the given column layout.
func NewParser(columns ColumnMap) *Parser {
	return &Parser{columns: columns}
}

// Parse scans an in-memory document.
func (p *Parser) Parse(doc string, include Predicate) ([]Station, int) {
	return p.ParseReader(strings.NewReader(doc), include)
}

// ParseReader runs the scan over a stream. Row 1 is the header and is
// skipped entirely. Cell text in unmapped columns is ignored. Numeric
// cells that fail to parse leave the zero value in place; a malformed
// row never aborts the scan. Matching records are appended as copies,
// with Recency normalized to ISO form where possible.
//
// The second return value is the number of data rows scanned. Zero
// rows on a non-empty document means the expected table structure was
// not found; callers use it to tell "no matches" from schema drift.
func (p *Parser) ParseReader(r io.Reader, include Predicate) ([]Station, int) {
	var (
		result  []Station
		scratch Station
		row     = 1
		column  = 0
		inCell  = false
	)

	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or unreadable markup; either way the scan is done.
			// The cursor sits one past the last row and row 1 was the
			// header, so two off the cursor is the data row count.
			return result, max(row-2, 0)

		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if row == 1 {
				continue
			}
			switch tag {
			case "tr":
				scratch = Station{}
			case "td":
				column++
				inCell = true
			}

		case html.TextToken:
			if row == 1 || !inCell {
				continue
			}
			field, ok := p.columns[column]
			if !ok {
				continue
			}
			// The tokenizer decodes HTML entities in text nodes.
			p.assign(&scratch, field, strings.TrimSpace(string(z.Text())))

		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "td":
				inCell = false
			case "tr":
				if row > 1 && include(scratch) {
					result = append(result, normalized(scratch))
				}
				row++
				column = 0
				inCell = false
			}
		}
	}
}

func (p *Parser) assign(s *Station, field Field, text string) {
	switch field {
	case FieldName:
		s.Name = text
	case FieldID:
		s.ID = text
	case FieldCode:
		s.Code = text
	case FieldLat:
		s.Lat = parseFloatOrZero(text)
	case FieldLng:
		s.Lng = parseFloatOrZero(text)
	case FieldAltitude:
		s.Altitude = parseIntOrZero(text)
	case FieldRecency:
		s.Recency = text
	}
}

// normalized returns a copy of the record with the recency date in ISO
// form. An unparseable date stays as the raw upstream text, which is
// visibly not a valid ISO date.
func normalized(s Station) Station {
	if iso, err := common.NormalizeGermanDate(s.Recency); err == nil {
		s.Recency = iso
	}
	return s
}

func parseFloatOrZero(text string) float64 {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseIntOrZero(text string) int {
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}
	return v
}
