// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/GateNLP/cloud-client-go/restdata"
)

// nameWidth is the width of the name column in listings.
const nameWidth = 40

// truncate shortens s to at most width characters, marking the cut
// with "...".
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

// listLine writes one row of a listing: an ID, a name, and a status.
func listLine(w io.Writer, id int64, name, status string) {
	fmt.Fprintf(w, "%6d  %-*s  %s\n", id, nameWidth, truncate(name, nameWidth), status)
}

// formatPrices describes a price list in pounds sterling.
func formatPrices(p *restdata.Prices) string {
	if p == nil {
		return "free"
	}
	var parts []string
	if p.Setup > 0 {
		parts = append(parts, fmt.Sprintf("£%.2f setup", p.Setup))
	}
	if p.Hour > 0 {
		parts = append(parts, fmt.Sprintf("£%.2f per hour", p.Hour))
	}
	if p.MiB > 0 {
		parts = append(parts, fmt.Sprintf("£%.2f per MiB", p.MiB))
	}
	switch len(parts) {
	case 0:
		return "free"
	case 1:
		return parts[0]
	}
	last := len(parts) - 1
	return strings.Join(parts[:last], ", plus ") + ", and " + parts[last]
}

// formatMs renders a millisecond count as days:hours:minutes:seconds.
func formatMs(ms int64) string {
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d:%02d:%02d.%03d",
		seconds/86400, seconds/3600%24, seconds/60%60, seconds%60, ms%1000)
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(n int64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case n >= gib:
		return fmt.Sprintf("%.1f GiB", float64(n)/gib)
	case n >= mib:
		return fmt.Sprintf("%.1f MiB", float64(n)/mib)
	case n >= kib:
		return fmt.Sprintf("%.1f KiB", float64(n)/kib)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// percent renders a fraction between 0 and 1.
func percent(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}

// details writes aligned "label: value" lines, skipping empty values.
func details(w io.Writer, pairs ...string) {
	width := 0
	for i := 0; i+1 < len(pairs); i += 2 {
		if len(pairs[i]) > width {
			width = len(pairs[i])
		}
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		fmt.Fprintf(w, "%-*s  %s\n", width+1, pairs[i]+":", pairs[i+1])
	}
}

// show writes v as JSON in --json mode, and otherwise calls human.
func (t *tool) show(v interface{}, human func()) error {
	if t.json {
		return restdata.EncodeIndent(t.Out, v)
	}
	human()
	return nil
}
