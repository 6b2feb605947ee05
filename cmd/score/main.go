// Command score runs one offline scoring pass: an instrument (or norm
// study) JSON plus an answers JSON in, a CSV table out.
//
//	score -scale pid5.json -answers respostas.json -group clinico
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/psytools/normscore/internal/instrument"
	"github.com/psytools/normscore/internal/scoring"
	"github.com/psytools/normscore/internal/session"
)

func main() {
	var (
		scalePath   = flag.String("scale", "", "path to the instrument/study definition JSON")
		answersPath = flag.String("answers", "", "path to the answers JSON (item id -> label or number)")
		group       = flag.String("group", "", "norm group (default: instrument's default, then first available)")
	)
	flag.Parse()
	if *scalePath == "" || *answersPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	in, err := instrument.Load(*scalePath)
	if err != nil {
		log.Fatalf("load instrument: %v", err)
	}

	raw, err := os.ReadFile(*answersPath)
	if err != nil {
		log.Fatalf("read answers: %v", err)
	}
	var answersRaw map[string]any
	if err := json.Unmarshal(raw, &answersRaw); err != nil {
		log.Fatalf("parse answers: %v", err)
	}
	sess := session.Session{Answers: answersRaw}

	g := *group
	if g == "" {
		g = in.DefaultNormGroup
	}
	if g == "" {
		if groups, _ := scoring.NormGroupOptions(in); len(groups) > 0 {
			g = groups[0]
		}
	}

	useItemMean := scoring.UseItemMeanForZ(in)
	stats := scoring.Aggregate(in, sess.ScoringAnswers(), useItemMean)
	rows := scoring.SummarizeWithNorms(in, stats, g, useItemMean)
	classes := scoring.Classify(in, rows)

	labels := make(map[string]*string, len(classes))
	for _, c := range classes {
		labels[c.Facet] = c.Label
	}

	cw := csv.NewWriter(os.Stdout)
	_ = cw.Write([]string{"facet", "mean_items", "z", "percentile", "raw_sum", "norm_group", "classification"})
	for _, r := range rows {
		_ = cw.Write([]string{r.Facet, fmtPtr(r.MeanItems), fmtPtr(r.Z), fmtPtr(r.Percentile), fmtPtr(r.RawSum), r.NormGroup, strPtr(labels[r.Facet])})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Fatalf("write csv: %v", err)
	}
}

func fmtPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}

func strPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
