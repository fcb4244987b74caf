package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/bookkeeper/internal/models"
)

func newTestParser() *Parser {
	opts := DefaultOptions()
	opts.Now = fixedClock
	return New(opts)
}

func TestParseHeadersNeverProduceTransactions(t *testing.T) {
	p := newTestParser()
	info := p.Parse("user-1", []string{
		"DATE DESCRIPTION AMOUNT BALANCE\nPAGE 2 OF 5\nFecha Descripción Monto Saldo\nStatement Period 01/01/2024 - 01/31/2024",
	})

	assert.Empty(t, info.Transactions)
	assert.Equal(t, 4, info.Stats.Headers)
	for _, dl := range info.DebugLines {
		assert.Equal(t, models.LineHeader, dl.Result, dl.Text)
	}
}

func TestParseIsResilientToMalformedLines(t *testing.T) {
	var lines []string
	for i := 1; i <= 9; i++ {
		lines = append(lines, fmt.Sprintf("9/%d Vendor payment %d.00", i, i*10))
	}
	// September has no 31st.
	lines = append(lines[:4], append([]string{"9/31 Vendor payment 5.00"}, lines[4:]...)...)

	p := newTestParser()
	info := p.Parse("user-1", []string{strings.Join(lines, "\n")})

	require.Len(t, info.Transactions, 9)
	assert.Equal(t, 1, info.Stats.Rejected)
	assert.Equal(t, 1, info.Stats.RejectedBy["bad_date"])
}

func TestParsePreservesOrderAndDuplicates(t *testing.T) {
	page1 := "9/01 Opening deposit 500.00\n9/02 Card purchase grocery 20.00"
	page2 := "9/02 Card purchase grocery 20.00\n9/03 ATM withdrawal 40.00"

	p := newTestParser()
	info := p.Parse("user-7", []string{page1, page2})

	require.Len(t, info.Transactions, 4)
	var descs []string
	for _, txn := range info.Transactions {
		descs = append(descs, txn.Description)
		assert.Equal(t, "user-7", txn.UserID)
		assert.Empty(t, txn.StatementID)
	}
	assert.Equal(t, []string{
		"Opening deposit",
		"Card purchase grocery",
		"Card purchase grocery",
		"ATM withdrawal",
	}, descs)
	assert.Equal(t, models.Credit, info.Transactions[0].Type)
	assert.Equal(t, 2, info.DebugLines[2].Page)
}

func TestParseSkipsShortAndEmptyLines(t *testing.T) {
	p := newTestParser()
	info := p.Parse("u", []string{"\n   \n9/1 x 1\n9/15 CHECK 1234 Office Supplies 150.00\n"})

	require.Len(t, info.Transactions, 1)
	txn := info.Transactions[0]
	assert.Equal(t, "2024-09-15", txn.Date.String())
	assert.Equal(t, models.Debit, txn.Type)
	assert.InDelta(t, 150.00, txn.Amount, 0.0001)
	assert.Equal(t, "1234", txn.CheckNumber)
	assert.Equal(t, 4, info.Stats.Skipped)
}

func TestParseRowCap(t *testing.T) {
	opts := DefaultOptions()
	opts.Now = fixedClock
	opts.MaxLines = 2
	p := New(opts)

	info := p.Parse("u", []string{"9/01 Opening deposit 500.00\n9/02 Card purchase 20.00\n9/03 ATM withdrawal 40.00"})
	assert.True(t, info.Stats.Truncated)
	assert.Len(t, info.Transactions, 2)
}

func TestTestParseReportsRuleAndGroups(t *testing.T) {
	p := newTestParser()
	text := "9/10 Zelle from Maria 200.00" + PageBreak + "Nothing to see on this line"
	info := p.TestParse(text)

	require.Len(t, info.DebugLines, 2)

	first := info.DebugLines[0]
	assert.True(t, first.Matched)
	assert.Equal(t, "compact", first.Rule)
	assert.Equal(t, []string{"9", "10", "", "Zelle from Maria", "200.00"}, first.Groups)
	assert.Equal(t, models.Credit, first.Type)
	assert.Equal(t, models.LineParsed, first.Result)

	second := info.DebugLines[1]
	assert.False(t, second.Matched)
	assert.Equal(t, 2, second.Page)
	assert.Equal(t, "no_match", second.Reason)
}

func TestSplitPages(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitPages("a"+PageBreak+"b\fc"))
	assert.Equal(t, []string{"x\ny"}, SplitPages("x\r\ny"))
}
