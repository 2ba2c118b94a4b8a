package cmd

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 40))

	long := "this title keeps going well past the forty character column limit"
	got := truncate(long, 40)
	assert.Len(t, []rune(got), 40)
	assert.Equal(t, "...", got[len(got)-3:])
}

func TestTruncate_MultibyteTitle(t *testing.T) {
	// Each rune is multibyte; a byte-indexed cut would split one.
	title := "この問題はダッシュボードの読み込みが非常に遅いことに関するものですが説明が長すぎます"
	got := truncate(title, 40)

	assert.True(t, utf8.ValidString(got), "truncated title must stay valid UTF-8")
	assert.Len(t, []rune(got), 40)
}

func TestCasesFromCSV(t *testing.T) {
	data := []byte("Title,Description,Priority\nLogin broken,Reset loops forever,High\n")
	cases, err := casesFromCSV(data)
	require.NoError(t, err)
	require.Len(t, cases, 1)

	assert.Equal(t, "Login broken", cases[0]["Title"])
	assert.Equal(t, "High", cases[0]["Priority"])
}

func TestCasesFromCSV_HeaderOnly(t *testing.T) {
	_, err := casesFromCSV([]byte("Title,Description\n"))
	require.Error(t, err)
}
