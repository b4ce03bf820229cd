package stations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableDoc builds a station table in the upstream layout: a header row
// followed by one row per entry, 11 columns each.
func tableDoc(rows ...[]string) string {
	var b strings.Builder
	b.WriteString("<html><body><table>\n")
	b.WriteString("<tr><th>Name</th><th>ID</th><th>Kennung</th><th>Code</th><th>Breite</th><th>L&auml;nge</th><th>H&ouml;he</th><th>Flussgebiet</th><th>Bundesland</th><th>Beginn</th><th>Ende</th></tr>\n")
	for _, cells := range rows {
		b.WriteString("<tr>")
		for _, cell := range cells {
			b.WriteString("<td>" + cell + "</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

func row(name, id, code, lat, lng, alt, end string) []string {
	return []string{name, id, "SY", code, lat, lng, alt, "Elbe", "BE", "01.01.1990", end}
}

func all(Station) bool { return true }

func TestParseExtractsMappedColumns(t *testing.T) {
	doc := tableDoc(row("Berlin-Tempelhof", "433", "10384", "52.4675", "13.4021", "48", "18.03.2025"))

	parser := NewParser(DefaultColumns())
	result, rows := parser.Parse(doc, all)

	require.Len(t, result, 1)
	assert.Equal(t, 1, rows)

	st := result[0]
	assert.Equal(t, "Berlin-Tempelhof", st.Name)
	assert.Equal(t, "433", st.ID)
	assert.Equal(t, "10384", st.Code)
	assert.Equal(t, 52.4675, st.Lat)
	assert.Equal(t, 13.4021, st.Lng)
	assert.Equal(t, 48, st.Altitude)
	assert.Equal(t, "2025-03-18", st.Recency)
}

func TestParseSkipsHeaderRow(t *testing.T) {
	// Only the header, no data rows.
	doc := tableDoc()

	parser := NewParser(DefaultColumns())
	result, rows := parser.Parse(doc, all)

	assert.Empty(t, result)
	assert.Equal(t, 0, rows)
}

func TestParsePredicateSelectsSubset(t *testing.T) {
	doc := tableDoc(
		row("Aachen", "3", "10501", "50.7827", "6.0941", "202", "18.03.2025"),
		row("Berlin-Dahlem", "403", "10381", "52.4537", "13.3017", "51", "18.03.2025"),
		row("Berlin-Tempelhof", "433", "10384", "52.4675", "13.4021", "48", "18.03.2025"),
		row("Dresden-Klotzsche", "1048", "10488", "51.1280", "13.7543", "227", "18.03.2025"),
	)

	parser := NewParser(DefaultColumns())
	result, rows := parser.Parse(doc, func(s Station) bool {
		return strings.HasPrefix(s.Name, "Berlin")
	})

	assert.Equal(t, 4, rows)
	require.Len(t, result, 2)
	// Upstream row order is preserved.
	assert.Equal(t, "Berlin-Dahlem", result[0].Name)
	assert.Equal(t, "Berlin-Tempelhof", result[1].Name)
}

func TestParseDecodesEntitiesInName(t *testing.T) {
	doc := tableDoc(row("M&uuml;nchen-Stadt", "101", "10865", "48.1632", "11.5429", "515", "18.03.2025"))

	parser := NewParser(DefaultColumns())
	result, _ := parser.Parse(doc, all)

	require.Len(t, result, 1)
	assert.Equal(t, "München-Stadt", result[0].Name)
}

func TestParseMalformedNumericCellDoesNotAbortScan(t *testing.T) {
	doc := tableDoc(
		row("Kaputt", "1", "10001", "not-a-number", "13.0", "abc", "18.03.2025"),
		row("Heil", "2", "10002", "50.0", "8.0", "100", "18.03.2025"),
	)

	parser := NewParser(DefaultColumns())
	result, rows := parser.Parse(doc, all)

	assert.Equal(t, 2, rows)
	require.Len(t, result, 2)

	// The malformed cells carry zero sentinels.
	assert.Equal(t, 0.0, result[0].Lat)
	assert.Equal(t, 13.0, result[0].Lng)
	assert.Equal(t, 0, result[0].Altitude)

	// The following row is intact.
	assert.Equal(t, "Heil", result[1].Name)
	assert.Equal(t, 50.0, result[1].Lat)
}

func TestParseShortRowKeepsDefaults(t *testing.T) {
	doc := tableDoc([]string{"Nur-Name", "7", "SY", "10007"})

	parser := NewParser(DefaultColumns())
	result, _ := parser.Parse(doc, all)

	require.Len(t, result, 1)
	st := result[0]
	assert.Equal(t, "Nur-Name", st.Name)
	assert.Equal(t, "10007", st.Code)
	assert.Equal(t, 0.0, st.Lat)
	assert.Equal(t, 0.0, st.Lng)
	assert.Equal(t, 0, st.Altitude)
	assert.Equal(t, "", st.Recency)
}

func TestParseUnparseableDateStaysRaw(t *testing.T) {
	doc := tableDoc(row("Ohne-Datum", "9", "10009", "50.0", "8.0", "100", "unbekannt"))

	parser := NewParser(DefaultColumns())
	result, _ := parser.Parse(doc, all)

	require.Len(t, result, 1)
	assert.Equal(t, "unbekannt", result[0].Recency)
}

func TestParsePredicateSeesRawRecency(t *testing.T) {
	doc := tableDoc(row("Roh", "11", "10011", "50.0", "8.0", "100", "18.03.2025"))

	var seen string
	parser := NewParser(DefaultColumns())
	result, _ := parser.Parse(doc, func(s Station) bool {
		seen = s.Recency
		return true
	})

	// The predicate evaluates the upstream form; the emitted copy is
	// normalized.
	assert.Equal(t, "18.03.2025", seen)
	require.Len(t, result, 1)
	assert.Equal(t, "2025-03-18", result[0].Recency)
}

func TestParseEmittedRecordsAreCopies(t *testing.T) {
	doc := tableDoc(
		row("Erste", "1", "10001", "50.0", "8.0", "100", "18.03.2025"),
		row("Zweite", "2", "10002", "51.0", "9.0", "200", "18.03.2025"),
	)

	parser := NewParser(DefaultColumns())
	result, _ := parser.Parse(doc, all)

	require.Len(t, result, 2)
	assert.Equal(t, "Erste", result[0].Name)
	assert.Equal(t, "Zweite", result[1].Name)
	assert.NotEqual(t, result[0], result[1])
}

func TestParseTableStructureAbsent(t *testing.T) {
	parser := NewParser(DefaultColumns())
	result, rows := parser.Parse("<html><body><p>Wartungsarbeiten</p></body></html>", all)

	assert.Empty(t, result)
	assert.Equal(t, 0, rows)
}

func TestParseNestedMarkupInsideCell(t *testing.T) {
	doc := tableDoc([]string{"<a href=\"#\">Link-Stadt</a>", "5", "SY", "10005", "50.0", "8.0", "100", "Elbe", "BE", "01.01.1990", "18.03.2025"})

	parser := NewParser(DefaultColumns())
	result, _ := parser.Parse(doc, all)

	require.Len(t, result, 1)
	assert.Equal(t, "Link-Stadt", result[0].Name)
}
