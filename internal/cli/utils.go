// Package cli provides output formatting and argument helpers for the anveshak command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hyperjump/anveshak/internal/indexer"
	"github.com/hyperjump/anveshak/internal/models"
	"github.com/hyperjump/anveshak/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one tile per line.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates an --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// WriteSimilarResults writes a similarity response to w in the given format.
func WriteSimilarResults(w io.Writer, resp *models.SimilarityResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, resp)
	case OutputCompact:
		for _, t := range resp.SimilarTiles {
			fmt.Fprintf(w, "%s\t%.4f\t%s\n", t.Coordinate(), t.Score, t.Confidence)
		}
		return nil
	default:
		writeSimilarText(w, resp)
		return nil
	}
}

func writeSimilarText(w io.Writer, resp *models.SimilarityResponse) {
	fmt.Fprintf(w, "\nFound %d similar tiles in %dms (%d high, %d medium)\n",
		len(resp.SimilarTiles), resp.QueryTime, resp.HighCount, resp.MediumCount)
	fmt.Fprintf(w, "Query zoom %d, searched zooms %s\n\n", resp.QueryZoom, joinInts(resp.SearchedZooms))
	if len(resp.SimilarTiles) == 0 {
		fmt.Fprintln(w, "No tiles above the confidence threshold.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tCONFIDENCE\tTILE")
	for i, t := range resp.SimilarTiles {
		fmt.Fprintf(tw, "%d\t%.4f\t%s\t%s\n", i+1, t.Score, t.Confidence, t.Coordinate())
	}
	_ = tw.Flush()
}

// WriteIndexStatus writes the ready indexes as a table or JSON.
func WriteIndexStatus(w io.Writer, status []indexer.IndexStatus, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	if len(status) == 0 {
		fmt.Fprintln(w, "No indexes loaded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATASET\tFOOTPRINT\tZOOM\tTILES\tDIMS\tSOURCE\tSKIPPED\tBUILD")
	for _, s := range status {
		build := "-"
		if s.Source == indexer.SourceBuilt {
			build = s.BuildDuration.Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%d\t%s\n",
			s.Key.Dataset, orDash(s.Key.Footprint), s.Key.Zoom, s.Rows, s.Dimensions, s.Source, s.SkippedTiles, build)
	}
	return tw.Flush()
}

// WriteFootprints writes catalog entries, one per line in text mode.
func WriteFootprints(w io.Writer, fps []*models.Footprint, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, fps)
	}
	if len(fps) == 0 {
		fmt.Fprintln(w, "No matching footprints.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tZOOMS")
	for _, fp := range fps {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", fp.ID, utils.Truncate(fp.Title, 60), joinInts(footprintZooms(fp)))
	}
	return tw.Flush()
}

// ParseZooms parses a comma separated zoom list such as "8,9,10". Empty input yields nil.
func ParseZooms(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		z, err := strconv.Atoi(part)
		if err != nil || z < 0 {
			return nil, fmt.Errorf("invalid zoom %q", part)
		}
		if !slices.Contains(out, z) {
			out = append(out, z)
		}
	}
	slices.Sort(out)
	return out, nil
}

func footprintZooms(fp *models.Footprint) []int {
	zooms := make([]int, 0, len(fp.DownloadInfo.TilesPerZoom))
	for k := range fp.DownloadInfo.TilesPerZoom {
		if z, err := strconv.Atoi(k); err == nil {
			zooms = append(zooms, z)
		}
	}
	slices.Sort(zooms)
	return zooms
}

func joinInts(v []int) string {
	if len(v) == 0 {
		return "-"
	}
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
