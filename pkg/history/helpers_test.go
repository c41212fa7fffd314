package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse("2006-01-02 15:04:05", s)
	require.NoError(t, err)
	return v
}

func lc(lang string, code uint64) LanguageCount {
	return LanguageCount{Language: lang, Files: 1, Blank: code / 10, Comment: code / 5, Code: code}
}

// rev builds a populated revision whose aggregate is the sum of its languages.
func rev(t *testing.T, id, when string, counts ...LanguageCount) *Revision {
	t.Helper()
	r := NewRevision(id, ts(t, when))
	m := Measurement{Languages: counts}
	m.Aggregate = m.SumLanguages()
	r.Populate(m)
	return r
}
