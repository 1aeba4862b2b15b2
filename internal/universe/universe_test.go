package universe

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const constituentsHTML = `
<html><body>
<table id="wrong-table"><tbody>
<tr><td>IGNORED</td><td>IGNORED</td></tr>
</tbody></table>
<table id="constituents"><tbody>
<tr><th>Company</th><th>Ticker</th></tr>
<tr><td>Apple Inc.</td><td>AAPL</td></tr>
<tr><td>Berkshire Hathaway</td><td>BRK.B</td></tr>
<tr><td>Apple Inc. (dup)</td><td>AAPL</td></tr>
<tr><td>Microsoft</td><td> MSFT </td></tr>
</tbody></table>
</body></html>`

func TestParseConstituents(t *testing.T) {
	tickers, err := ParseConstituents(strings.NewReader(constituentsHTML), 1)
	require.NoError(t, err)

	// Deduped, trimmed, class shares dashed.
	assert.Equal(t, []string{"AAPL", "BRK-B", "MSFT"}, tickers)
}

func TestParseConstituents_ColumnOutOfRange(t *testing.T) {
	tickers, err := ParseConstituents(strings.NewReader(constituentsHTML), 5)
	require.NoError(t, err)
	assert.Empty(t, tickers)
}

func TestResolve_CustomList(t *testing.T) {
	r := NewResolver("")

	tickers, err := r.Resolve(context.Background(), "custom", []string{"aapl", " brk.b ", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "BRK-B"}, tickers)
}

func TestResolve_CustomListEmpty(t *testing.T) {
	r := NewResolver("")

	_, err := r.Resolve(context.Background(), "custom", nil)
	assert.Error(t, err)
}

func TestResolve_UnknownIndex(t *testing.T) {
	r := NewResolver("")

	_, err := r.Resolve(context.Background(), "ftse100", nil)
	assert.Error(t, err)
}
