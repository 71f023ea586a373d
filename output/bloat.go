package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/pganalyze/pgbloat/state"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

type bloatJSON struct {
	RelationName      string     `json:"relation_name"`
	DeadTuples        int64      `json:"dead_tuples"`
	DeadTupleBytes    *int64     `json:"dead_tuple_bytes,omitempty"`
	StaleIndexEntries *int64     `json:"stale_index_entries,omitempty"`
	Stats             *statsJSON `json:"stats,omitempty"`
}

type statsJSON struct {
	PagesScanned   int64 `json:"pages_scanned"`
	EmptyPages     int64 `json:"empty_pages"`
	InvalidItems   int64 `json:"invalid_items"`
	ChainsFollowed int64 `json:"chains_followed"`
	BatchFlushes   int64 `json:"batch_flushes"`
	IndexesScanned int64 `json:"indexes_scanned"`
	IndexesSkipped int64 `json:"indexes_skipped"`
	IndexPagesRead int64 `json:"index_pages_read"`
	IndexEntries   int64 `json:"index_entries"`
}

// PrintBloat - Writes the scan result in the given format. Count-only
// results only carry the relation name and the dead tuple count.
func PrintBloat(w io.Writer, result state.RelationBloat, format string, withStats bool) error {
	switch format {
	case FormatJSON:
		return printBloatJSON(w, result, withStats)
	case FormatText, "":
		printBloatText(w, result, withStats)
		return nil
	}
	return fmt.Errorf("unsupported output format: %s", format)
}

func printBloatJSON(w io.Writer, result state.RelationBloat, withStats bool) error {
	out := bloatJSON{RelationName: result.RelationName, DeadTuples: result.DeadTuples}
	if !result.CountOnly {
		out.DeadTupleBytes = &result.DeadTupleBytes
		out.StaleIndexEntries = &result.StaleIndexEntries
	}
	if withStats {
		s := result.Stats
		out.Stats = &statsJSON{
			PagesScanned:   s.PagesScanned,
			EmptyPages:     s.EmptyPages,
			InvalidItems:   s.InvalidItems,
			ChainsFollowed: s.ChainsFollowed,
			BatchFlushes:   s.BatchFlushes,
			IndexesScanned: s.IndexesScanned,
			IndexesSkipped: s.IndexesSkipped,
			IndexPagesRead: s.IndexPagesRead,
			IndexEntries:   s.IndexEntries,
		}
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func printBloatText(w io.Writer, result state.RelationBloat, withStats bool) {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	if result.CountOnly {
		tw.SetHeader([]string{"Relation", "Dead tuples"})
		tw.Append([]string{result.RelationName, formatInt(result.DeadTuples)})
	} else {
		tw.SetHeader([]string{"Relation", "Dead tuples", "Dead tuple bytes", "Stale index entries"})
		tw.Append([]string{
			result.RelationName,
			formatInt(result.DeadTuples),
			formatInt(result.DeadTupleBytes),
			formatInt(result.StaleIndexEntries),
		})
	}
	tw.Render()

	if !withStats {
		return
	}

	s := result.Stats
	sw := tablewriter.NewWriter(w)
	sw.SetAutoFormatHeaders(false)
	sw.SetHeader([]string{"Statistic", "Value"})
	sw.AppendBulk([][]string{
		{"Pages scanned", formatInt(s.PagesScanned)},
		{"Empty pages", formatInt(s.EmptyPages)},
		{"Invalid items", formatInt(s.InvalidItems)},
		{"Update chains followed", formatInt(s.ChainsFollowed)},
		{"Index batch flushes", formatInt(s.BatchFlushes)},
		{"Index scans", formatInt(s.IndexesScanned)},
		{"Index scans skipped", formatInt(s.IndexesSkipped)},
		{"Index leaf pages read", formatInt(s.IndexPagesRead)},
		{"Index entries checked", formatInt(s.IndexEntries)},
	})
	sw.Render()
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
