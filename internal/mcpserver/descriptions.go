package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeLanguages() string {
	return `Lists every language ever measured in a repository's line-count history.

USE WHEN:
- Deciding which languages to request from history_series
- Checking whether a language was ever present in the repository
- Finding languages that appeared briefly and were later removed

INTERPRETING RESULTS:
- coverage is the number of dated revisions that measured the language directly
- coverage below revisions means the language was absent at some dates
- first_seen and last_seen bound the dates with a direct measurement

METRICS RETURNED:
- Per-language: name, coverage, first_seen, last_seen, latest code lines
- Summary: revision count and date range`
}

func describeSeries() string {
	return `Returns date-aligned line-count series for selected languages.

USE WHEN:
- Charting or describing how a codebase grew over time
- Comparing the growth of two languages, e.g. a migration from one to another
- Quantifying the trend of a single language

INTERPRETING RESULTS:
- values align index-for-index with dates
- Dates where a language was not measured repeat its last known value (0 before first appearance)
- Unknown languages return all zeros rather than an error
- The pseudo-language "all" returns the per-revision total across languages
- slope is change per revision; r_squared near 1 means steady linear growth

METRICS RETURNED:
- dates: one per revision (one per day when squashed)
- series: name, values, trend (first, last, peak, delta, slope, intercept, r_squared, correlation)`
}

func describeSummary() string {
	return `Summarises a repository's line-count history at its latest revision.

USE WHEN:
- Getting a quick overview before deeper queries
- Reporting the current size of a codebase by language

INTERPRETING RESULTS:
- totals are the aggregate counts of the final revision
- languages are ordered by code lines at the final revision, largest first

METRICS RETURNED:
- revisions, initial_date, final_date
- totals: files, blank, comment, code
- languages: name and latest code lines`
}
