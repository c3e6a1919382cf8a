// Package importer loads catalog YAML files and creates their records through
// the catalog service, so imported data passes the same validation and
// hierarchy maintenance as API writes.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"complyhub/internal/catalog/models"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

// Catalog is the subset of the catalog service the importer writes through.
type Catalog interface {
	ListStandards(ctx context.Context) ([]*models.Standard, error)
	CreateStandard(ctx context.Context, req *models.CreateStandardRequest) (*models.Standard, error)
	ActivateStandard(ctx context.Context, standardID id.StandardID) (*models.Standard, error)
	CreateZone(ctx context.Context, req *models.CreateZoneRequest) (*models.Zone, error)
	CreateDomain(ctx context.Context, req *models.CreateDomainRequest) (*models.Domain, error)
	CreateRequirement(ctx context.Context, req *models.CreateRequirementRequest) (*models.Requirement, error)
	CreateAuditQuestion(ctx context.Context, req *models.CreateAuditQuestionRequest) (*models.AuditQuestion, error)
	CreateAssessmentTool(ctx context.Context, req *models.CreateAssessmentToolRequest) (*models.AssessmentTool, error)
	CreateControl(ctx context.Context, req *models.CreateControlRequest) (*models.Control, error)
}

// Summary counts what an import created.
type Summary struct {
	Standards    int
	Skipped      int
	Zones        int
	Domains      int
	Requirements int
	Questions    int
	Tools        int
	Controls     int
}

type Importer struct {
	catalog Catalog
	logger  *slog.Logger
}

func New(catalog Catalog, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{catalog: catalog, logger: logger}
}

// Decode parses one catalog document, rejecting unknown keys.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid catalog document")
	}
	return &doc, nil
}

// LoadFiles reads and parses every path concurrently. Documents come back in
// the order of paths.
func LoadFiles(ctx context.Context, paths ...string) ([]*Document, error) {
	docs := make([]*Document, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			doc, err := Decode(bytes.NewReader(raw))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// ImportFiles loads paths and imports them one document at a time.
func (im *Importer) ImportFiles(ctx context.Context, paths ...string) (Summary, error) {
	docs, err := LoadFiles(ctx, paths...)
	if err != nil {
		return Summary{}, err
	}
	var total Summary
	for i, doc := range docs {
		sum, err := im.Import(ctx, doc)
		total.add(sum)
		if err != nil {
			return total, fmt.Errorf("import %s: %w", paths[i], err)
		}
	}
	im.logger.InfoContext(ctx, "catalog imported",
		"files", len(paths),
		"standards", total.Standards,
		"skipped", total.Skipped,
		"controls", total.Controls,
	)
	return total, nil
}

// Import creates the records of doc. A standard whose code already exists is
// skipped with everything below it, which makes re-running an import harmless.
func (im *Importer) Import(ctx context.Context, doc *Document) (Summary, error) {
	var sum Summary
	existing, err := im.catalog.ListStandards(ctx)
	if err != nil {
		return sum, err
	}
	codes := make(map[string]bool, len(existing))
	for _, std := range existing {
		codes[std.Code] = true
	}

	tools := make(map[string]id.AssessmentToolID, len(doc.Tools))
	for _, t := range doc.Tools {
		created, err := im.catalog.CreateAssessmentTool(ctx, &models.CreateAssessmentToolRequest{
			Name: t.Name, Title: t.Title, Type: t.Type, Vendor: t.Vendor, URL: t.URL,
		})
		if err != nil {
			return sum, fmt.Errorf("tool %q: %w", t.Name, err)
		}
		tools[t.Name] = created.ID
		sum.Tools++
	}

	for _, s := range doc.Standards {
		if codes[models.StandardCode(s.Name, s.Version)] {
			im.logger.InfoContext(ctx, "standard already present, skipping", "name", s.Name, "version", s.Version)
			sum.Skipped++
			continue
		}
		w := &standardWriter{catalog: im.catalog, tools: tools, sum: &sum}
		if err := w.write(ctx, s); err != nil {
			return sum, fmt.Errorf("standard %q: %w", s.Name, err)
		}
		codes[models.StandardCode(s.Name, s.Version)] = true
	}
	return sum, nil
}

func (s *Summary) add(o Summary) {
	s.Standards += o.Standards
	s.Skipped += o.Skipped
	s.Zones += o.Zones
	s.Domains += o.Domains
	s.Requirements += o.Requirements
	s.Questions += o.Questions
	s.Tools += o.Tools
	s.Controls += o.Controls
}

// standardWriter creates one standard and its subtree.
type standardWriter struct {
	catalog    Catalog
	tools      map[string]id.AssessmentToolID
	zones      map[string]id.ZoneID
	standardID id.StandardID
	sum        *Summary
}

func (w *standardWriter) write(ctx context.Context, s Standard) error {
	std, err := w.catalog.CreateStandard(ctx, s.request())
	if err != nil {
		return err
	}
	w.standardID = std.ID
	w.sum.Standards++

	w.zones = make(map[string]id.ZoneID, len(s.Zones))
	for _, z := range s.Zones {
		zone, err := w.catalog.CreateZone(ctx, &models.CreateZoneRequest{StandardID: std.ID, Name: z.Name, Code: z.Code})
		if err != nil {
			return fmt.Errorf("zone %q: %w", z.Code, err)
		}
		w.zones[z.Code] = zone.ID
		w.sum.Zones++
	}
	for i, d := range s.Domains {
		if err := w.domain(ctx, d, id.DomainID{}, i); err != nil {
			return err
		}
	}
	for i, r := range s.Requirements {
		if err := w.requirement(ctx, r, id.RequirementID{}, i); err != nil {
			return err
		}
	}
	if s.Activate {
		if _, err := w.catalog.ActivateStandard(ctx, std.ID); err != nil {
			return err
		}
	}
	return nil
}

func (w *standardWriter) domain(ctx context.Context, d Domain, parent id.DomainID, seq int) error {
	req := &models.CreateDomainRequest{
		StandardID: w.standardID,
		ParentID:   parent,
		Name:       d.Name,
		Code:       d.Code,
		Sequence:   seq,
	}
	if d.Zone != "" {
		zoneID, ok := w.zones[d.Zone]
		if !ok {
			return dErrors.Newf(dErrors.CodeInvalidInput, "domain %q refers to unknown zone %q", d.Name, d.Zone)
		}
		req.ZoneID = zoneID
	}
	created, err := w.catalog.CreateDomain(ctx, req)
	if err != nil {
		return fmt.Errorf("domain %q: %w", d.Name, err)
	}
	w.sum.Domains++

	for _, c := range d.Controls {
		toolIDs := make([]id.AssessmentToolID, 0, len(c.Tools))
		for _, name := range c.Tools {
			toolID, ok := w.tools[name]
			if !ok {
				return dErrors.Newf(dErrors.CodeInvalidInput, "control %q refers to unknown tool %q", c.Name, name)
			}
			toolIDs = append(toolIDs, toolID)
		}
		if _, err := w.catalog.CreateControl(ctx, c.request(w.standardID, created.ID, toolIDs)); err != nil {
			return fmt.Errorf("control %q: %w", c.Name, err)
		}
		w.sum.Controls++
	}
	for i, child := range d.Children {
		if err := w.domain(ctx, child, created.ID, i); err != nil {
			return err
		}
	}
	return nil
}

func (w *standardWriter) requirement(ctx context.Context, r Requirement, parent id.RequirementID, seq int) error {
	created, err := w.catalog.CreateRequirement(ctx, &models.CreateRequirementRequest{
		StandardID: w.standardID,
		ParentID:   parent,
		Name:       r.Name,
		Code:       r.Code,
		Sequence:   seq,
	})
	if err != nil {
		return fmt.Errorf("requirement %q: %w", r.Name, err)
	}
	w.sum.Requirements++

	for _, q := range r.Questions {
		_, err := w.catalog.CreateAuditQuestion(ctx, &models.CreateAuditQuestionRequest{
			RequirementID:    created.ID,
			Question:         q.Question,
			ExpectedEvidence: q.ExpectedEvidence,
		})
		if err != nil {
			return fmt.Errorf("audit question on %q: %w", r.Name, err)
		}
		w.sum.Questions++
	}
	for i, child := range r.Children {
		if err := w.requirement(ctx, child, created.ID, i); err != nil {
			return err
		}
	}
	return nil
}
