package network

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

// Passes selects which passes a run performs.
type Passes struct {
	Align bool
	Trace bool
}

// Pipeline runs the alignment and tracing passes against a stored document.
type Pipeline struct {
	Store     *Store
	Source    WaterwaySource
	Publisher SummaryPublisher // optional

	BBoxBuffer float64
	Trace      TraceOptions

	// DryRun runs the passes without writing the backup or the document.
	DryRun bool
	// WaterwayDump, if set, receives the fetched waterways as GeoJSON.
	WaterwayDump string
}

// NewPipeline creates a pipeline from config.
func NewPipeline(cfg *Config, source WaterwaySource) *Pipeline {
	return &Pipeline{
		Store:      NewStore(cfg.Document, cfg.BackupPath()),
		Source:     source,
		BBoxBuffer: cfg.Overpass.BBoxBuffer,
		Trace:      cfg.TraceOptions(),
	}
}

// Run loads the document once, backs it up, applies the selected passes in
// order and writes the result once if anything changed.
//
// A failed acquisition ends the tracing pass before it modifies anything;
// the alignment result, if any, is still written and the error returned.
func (p *Pipeline) Run(ctx context.Context, passes Passes) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.NewString()}

	doc, raw, err := p.Store.Load()
	if err != nil {
		return summary, err
	}
	log.Printf("Loaded %s (%d features)", p.Store.Path, len(doc.Features))

	if !p.DryRun {
		log.Printf("Backing up to %s", p.Store.BackupPath)
		if err := p.Store.Backup(raw); err != nil {
			return summary, err
		}
	}

	var runErr error
	if passes.Align {
		var align AlignSummary
		doc, align = AlignRoutes(doc, NewCatalog(doc))
		align.RunID = summary.RunID
		summary.Align = &align
		log.Printf("Alignment: %d fixed, %d reversed, %d errors", align.Fixed, align.Reversed, align.Errored)
	}

	if passes.Trace {
		var ts TraceSummary
		doc, ts, runErr = p.trace(ctx, doc)
		if runErr == nil {
			ts.RunID = summary.RunID
			summary.Trace = &ts
			log.Printf("Tracing: %d updated, %d skipped, %d failed", ts.Updated, ts.Skipped, ts.Failed)
		}
	}

	if summary.Updates() == 0 {
		log.Println("No routes were updated. Original file unchanged.")
	} else if p.DryRun {
		log.Println("Dry run: not writing changes")
	} else {
		written, err := p.Store.Save(doc, raw)
		if err != nil {
			return summary, err
		}
		summary.Written = written
		if written {
			log.Printf("Wrote updated route network to %s", p.Store.Path)
		}
	}

	summary.Timestamp = time.Now().Unix()
	if p.Publisher != nil {
		if err := p.Publisher.PublishRun(summary); err != nil {
			log.Printf("Error publishing run summary: %v", err)
		}
	}
	return summary, runErr
}

// trace fetches waterways for the catalog's region and traces doc. On error
// doc is returned unchanged.
func (p *Pipeline) trace(ctx context.Context, doc *Document) (*Document, TraceSummary, error) {
	catalog := NewCatalog(doc)
	bound, ok := catalog.Bound(p.BBoxBuffer)
	if !ok {
		return doc, TraceSummary{}, fmt.Errorf("%w: no access points to derive a query region from", ErrAcquisition)
	}
	if p.Source == nil {
		return doc, TraceSummary{}, fmt.Errorf("%w: no waterway source configured", ErrAcquisition)
	}

	fc, err := p.Source.FetchWaterways(ctx, bound)
	if err != nil {
		return doc, TraceSummary{}, err
	}
	if p.WaterwayDump != "" {
		if err := dumpWaterways(p.WaterwayDump, fc); err != nil {
			log.Printf("Warning: %v", err)
		}
	}

	groups := GroupWaterways(fc)
	log.Printf("Found %d named waterways", groups.Len())
	for _, name := range groups.Names() {
		log.Printf("  %q: %d segments", name, len(groups.Segments(name)))
	}

	traced, summary := TraceRoutes(doc, groups, p.Trace)
	return traced, summary, nil
}

func dumpWaterways(path string, fc *geojson.FeatureCollection) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding waterways: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing waterways: %w", err)
	}
	return nil
}
