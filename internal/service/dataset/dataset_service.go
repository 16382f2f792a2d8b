package dataset

import (
	"bytes"
	"cmp"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/logger"
	"github.com/ougirez/databaker/internal/pkg/store"
	"github.com/ougirez/databaker/internal/pkg/utils"
)

type Service struct {
	store store.Store
}

func NewService(store store.Store) *Service {
	return &Service{store: store}
}

// Filename is the dataset name made safe for use as a file name.
func Filename(d *domain.Dataset) string {
	return utils.Filename(d.Name)
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Dataset, error) {
	d, err := s.store.GetDataset(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("store.GetDataset: %w", err)
	}
	return d, nil
}

// ListPublic returns datasets that may be exported to the public site.
func (s *Service) ListPublic(ctx context.Context) ([]*domain.Dataset, error) {
	all, err := s.store.ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.ListDatasets: %w", err)
	}

	res := make([]*domain.Dataset, 0, len(all))
	for _, d := range all {
		if d.Public() {
			res = append(res, d)
		}
	}
	return res, nil
}

// Export is a dataset CSV export with every store read already done, so writing it
// can only fail on the writer.
type Export struct {
	DatasetID int64
	Variables []*domain.Variable
	Values    []*domain.DatasetValue
}

func (s *Service) LoadExport(ctx context.Context, datasetID int64) (*Export, error) {
	variables, err := s.store.ListDatasetVariables(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("store.ListDatasetVariables: %w", err)
	}
	values, err := s.store.ListDatasetValues(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("store.ListDatasetValues: %w", err)
	}
	return &Export{DatasetID: datasetID, Variables: variables, Values: values}, nil
}

// Write writes the export as one row per (entity, year), with a column per variable in
// column order. Missing observations leave blank cells.
func (e *Export) Write(ctx context.Context, w io.Writer) error {
	skipped, err := WriteWideCSV(w, e.Variables, e.Values)
	if err != nil {
		return err
	}
	if skipped > 0 {
		logger.Warnf(ctx, "dataset %d: skipped %d values of variables outside the dataset", e.DatasetID, skipped)
	}
	return nil
}

// WriteCSV loads the export of a dataset and writes it to w.
func (s *Service) WriteCSV(ctx context.Context, datasetID int64, w io.Writer) error {
	export, err := s.LoadExport(ctx, datasetID)
	if err != nil {
		return err
	}
	return export.Write(ctx, w)
}

// WriteWideCSV writes header "Entity,Year,<variable names>" and one row per (entity, year)
// pair of values. Values must be grouped by (entity, year); ungrouped input is sorted
// first.
// It returns how many values referenced a variable not in variables.
func WriteWideCSV(w io.Writer, variables []*domain.Variable, values []*domain.DatasetValue) (int, error) {
	header := make([]string, 0, len(variables)+2)
	header = append(header, "Entity", "Year")
	column := make(map[int64]int, len(variables))
	for i, v := range variables {
		header = append(header, v.Name)
		column[v.ID] = i + 2
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("csv.Write: %w", err)
	}

	values = SortDatasetValues(values, variables)

	var (
		row     []string
		last    *domain.DatasetValue
		skipped int
	)
	for _, dv := range values {
		col, ok := column[dv.VariableID]
		if !ok {
			skipped++
			continue
		}

		if last == nil || !sameRow(last, dv) {
			if row != nil {
				if err := cw.Write(row); err != nil {
					return skipped, fmt.Errorf("csv.Write: %w", err)
				}
			}
			row = make([]string, len(header))
			row[0] = dv.Entity
			row[1] = strconv.Itoa(dv.Year)
		}
		row[col] = dv.Value
		last = dv
	}
	if row != nil {
		if err := cw.Write(row); err != nil {
			return skipped, fmt.Errorf("csv.Write: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return skipped, fmt.Errorf("csv.Flush: %w", err)
	}
	return skipped, nil
}

func sameRow(a, b *domain.DatasetValue) bool {
	return a.Entity == b.Entity && a.Year == b.Year
}

// SortDatasetValues returns values with each (entity, year) pair in one contiguous run.
// Input that is already grouped is returned as is, keeping the order the database
// collation produced. Otherwise values are stably sorted by entity, year, variable
// column order and variable id.
func SortDatasetValues(values []*domain.DatasetValue, variables []*domain.Variable) []*domain.DatasetValue {
	if grouped(values) {
		return values
	}

	rank := make(map[int64]int, len(variables))
	for i, v := range variables {
		rank[v.ID] = i
	}

	sorted := slices.Clone(values)
	slices.SortStableFunc(sorted, func(a, b *domain.DatasetValue) int {
		if c := cmp.Compare(a.Entity, b.Entity); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		if c := cmp.Compare(rank[a.VariableID], rank[b.VariableID]); c != 0 {
			return c
		}
		return cmp.Compare(a.VariableID, b.VariableID)
	})
	return sorted
}

type rowKey struct {
	entity string
	year   int
}

// grouped reports whether no (entity, year) pair reappears after another pair started.
func grouped(values []*domain.DatasetValue) bool {
	seen := make(map[rowKey]struct{})
	var prev *domain.DatasetValue
	for _, dv := range values {
		if prev != nil && sameRow(prev, dv) {
			continue
		}
		key := rowKey{entity: dv.Entity, year: dv.Year}
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
		prev = dv
	}
	return true
}

// CSV returns the whole export in memory.
func (s *Service) CSV(ctx context.Context, datasetID int64) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.WriteCSV(ctx, datasetID, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SetTags replaces the tags of a dataset.
func (s *Service) SetTags(ctx context.Context, datasetID int64, tagIDs []int64) error {
	if _, err := s.store.GetDataset(ctx, datasetID); err != nil {
		return fmt.Errorf("store.GetDataset: %w", err)
	}

	ids := slices.Clone(tagIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	if err := s.store.SetDatasetTags(ctx, datasetID, ids); err != nil {
		return fmt.Errorf("store.SetDatasetTags: %w", err)
	}
	return nil
}

type DatapackageField struct {
	Name                string                  `json:"name"`
	Type                string                  `json:"type"`
	Description         string                  `json:"description,omitempty"`
	OwidDisplaySettings *domain.VariableDisplay `json:"owidDisplaySettings,omitempty"`
}

type DatapackageSource struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link,omitempty"`
	RetrievedAt string `json:"retrievedDate,omitempty"`
	PublishedBy string `json:"dataPublishedBy,omitempty"`
}

type DatapackageResource struct {
	Path   string `json:"path"`
	Schema struct {
		Fields []DatapackageField `json:"fields"`
	} `json:"schema"`
}

type Datapackage struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Sources     []DatapackageSource   `json:"sources"`
	OwidTags    []string              `json:"owidTags"`
	Resources   []DatapackageResource `json:"resources"`
}

// Datapackage describes a dataset and its CSV export.
func (s *Service) Datapackage(ctx context.Context, datasetID int64) (*Datapackage, error) {
	d, err := s.store.GetDataset(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("store.GetDataset: %w", err)
	}
	sources, err := s.store.ListDatasetSources(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("store.ListDatasetSources: %w", err)
	}
	variables, err := s.store.ListDatasetVariables(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("store.ListDatasetVariables: %w", err)
	}
	tags, err := s.store.ListDatasetTags(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("store.ListDatasetTags: %w", err)
	}

	pkg := &Datapackage{
		ID:        d.ID,
		Name:      d.Name,
		Title:     d.Name,
		Sources:   make([]DatapackageSource, 0, len(sources)),
		OwidTags:  make([]string, 0, len(tags)),
		Resources: make([]DatapackageResource, 1),
	}
	if len(sources) > 0 {
		pkg.Description = sources[0].Description.AdditionalInfo
	}
	for _, src := range sources {
		pkg.Sources = append(pkg.Sources, DatapackageSource{
			Name:        src.Name,
			Description: src.Description.AdditionalInfo,
			Link:        src.Description.Link,
			RetrievedAt: src.Description.RetrievedDate,
			PublishedBy: src.Description.DataPublishedBy,
		})
	}
	for _, t := range tags {
		pkg.OwidTags = append(pkg.OwidTags, t.Name)
	}

	res := &pkg.Resources[0]
	// same name the baker writes the export under
	res.Path = Filename(d) + ".csv"
	res.Schema.Fields = append(res.Schema.Fields,
		DatapackageField{Name: "Entity", Type: "string"},
		DatapackageField{Name: "Year", Type: "year"},
	)
	for _, v := range variables {
		display := v.Display
		res.Schema.Fields = append(res.Schema.Fields, DatapackageField{
			Name:                v.Name,
			Type:                "any",
			Description:         v.Description,
			OwidDisplaySettings: &display,
		})
	}

	return pkg, nil
}

// DatapackageJSON is Datapackage encoded as indented JSON.
func (s *Service) DatapackageJSON(ctx context.Context, datasetID int64) ([]byte, error) {
	pkg, err := s.Datapackage(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	raw, err := sonic.ConfigStd.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("sonic.MarshalIndent: %w", err)
	}
	return raw, nil
}
