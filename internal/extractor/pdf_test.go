package extractor

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.7\n...")))
	assert.True(t, IsPDF([]byte("\n  %PDF-1.4")))
	assert.False(t, IsPDF([]byte("9/15 CHECK 1234 Office Supplies 150.00")))
	assert.False(t, IsPDF(nil))
}

func TestExtractRejectsNonPDF(t *testing.T) {
	_, err := NewPDF(zerolog.Nop()).Extract(context.Background(), []byte("plain text"))
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestExtractRejectsCorruptPDF(t *testing.T) {
	_, err := NewPDF(zerolog.Nop()).Extract(context.Background(), []byte("%PDF-1.4\nthis is not really a pdf"))
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestIsReadableText(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{
			name:  "english statement",
			pages: []string{"Statement period 01/09/2024 to 30/09/2024\n9/15 CHECK 1234 Office Supplies 150.00"},
			want:  true,
		},
		{
			name:  "spanish statement",
			pages: []string{"Estado de cuenta septiembre\nFecha 15/09/2024 Depósito en efectivo 2,500.00"},
			want:  true,
		},
		{
			name:  "too short",
			pages: []string{"balance 10.00"},
			want:  false,
		},
		{
			name:  "glyph garbage",
			pages: []string{strings.Repeat("\u0003\u0011\u0014‡", 40) + " balance"},
			want:  false,
		},
		{
			name:  "no statement words",
			pages: []string{strings.Repeat("lorem ipsum dolor sit amet ", 5)},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isReadableText(tt.pages))
		})
	}
}
