package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
)

// Canonical column names.
const (
	colState          = "state"
	colCrop           = "crop"
	colSeason         = "season"
	colYear           = "crop_year"
	colArea           = "area"
	colProduction     = "production"
	colAnnualRainfall = "annual_rainfall"
	colFertilizer     = "fertilizer"
	colPesticide      = "pesticide"
	colYield          = "yield"
)

var headerAliases = map[string]string{
	"state":           colState,
	"state_name":      colState,
	"crop":            colCrop,
	"crop_name":       colCrop,
	"season":          colSeason,
	"season_name":     colSeason,
	"crop_year":       colYear,
	"year":            colYear,
	"area":            colArea,
	"production":      colProduction,
	"annual_rainfall": colAnnualRainfall,
	"rainfall":        colAnnualRainfall,
	"fertilizer":      colFertilizer,
	"pesticide":       colPesticide,
	"yield":           colYield,
	"yield_value":     colYield,
}

var requiredColumns = []string{colState, colCrop, colSeason, colYear}

// ErrSkipRow marks a row without a complete natural key.
var ErrSkipRow = errors.New("row lacks state, crop, season or year")

// Row is one parsed input line. Err is set when the line could not be parsed.
type Row struct {
	Line  int
	Input crops.CreateInput
	Err   error
}

// RowReader yields rows until io.EOF.
type RowReader interface {
	Next() (Row, error)
	Close() error
}

// Open picks a reader by file extension: .xlsx is read with excelize,
// anything else as CSV.
func Open(path string) (RowReader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		x, err := openXLSX(path)
		if err != nil {
			return nil, err
		}
		return x, nil
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		r, err := NewCSVReader(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		r.closer = f
		return r, nil
	}
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	return h
}

// columnIndex maps canonical names to cell positions.
type columnIndex map[string]int

func buildIndex(header []string) (columnIndex, error) {
	idx := columnIndex{}
	for i, h := range header {
		if canon, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, dup := idx[canon]; !dup {
				idx[canon] = i
			}
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func (ci columnIndex) cell(rec []string, col string) string {
	i, ok := ci[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (ci columnIndex) parse(line int, rec []string) Row {
	row := Row{Line: line}
	in := crops.CreateInput{
		State:  crops.NormalizeName(ci.cell(rec, colState)),
		Crop:   crops.NormalizeName(ci.cell(rec, colCrop)),
		Season: crops.NormalizeName(ci.cell(rec, colSeason)),
	}
	rawYear := ci.cell(rec, colYear)
	if in.State == "" || in.Crop == "" || in.Season == "" || rawYear == "" {
		row.Err = ErrSkipRow
		return row
	}
	year, err := parseYear(rawYear)
	if err != nil {
		row.Err = fmt.Errorf("line %d: %w", line, err)
		return row
	}
	in.Year = year

	targets := map[string]**float64{
		colArea:           &in.Area,
		colProduction:     &in.Production,
		colAnnualRainfall: &in.AnnualRainfall,
		colFertilizer:     &in.Fertilizer,
		colPesticide:      &in.Pesticide,
		colYield:          &in.Yield,
	}
	for col, dst := range targets {
		raw := ci.cell(rec, col)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			row.Err = fmt.Errorf("line %d: %s %q is not a number", line, col, raw)
			return row
		}
		*dst = &v
	}
	row.Input = in
	return row
}

// parseYear accepts "1997" and spreadsheet renderings such as "1997.0".
func parseYear(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("crop_year %q is not an integer", raw)
	}
	return int(f), nil
}

// CSVReader reads rows from comma separated input with a header line.
type CSVReader struct {
	r      *csv.Reader
	idx    columnIndex
	line   int
	closer io.Closer
}

func NewCSVReader(r io.Reader) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := buildIndex(header)
	if err != nil {
		return nil, err
	}
	return &CSVReader{r: cr, idx: idx, line: 1}, nil
}

func (c *CSVReader) Next() (Row, error) {
	rec, err := c.r.Read()
	c.line++
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return Row{Line: c.line, Err: err}, nil
		}
		return Row{}, err
	}
	return c.idx.parse(c.line, rec), nil
}

func (c *CSVReader) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// XLSXReader streams the first sheet of a workbook.
type XLSXReader struct {
	f    *excelize.File
	rows *excelize.Rows
	idx  columnIndex
	line int
}

func openXLSX(path string) (*XLSXReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%s has no sheets", path)
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	x := &XLSXReader{f: f, rows: rows}
	if !rows.Next() {
		_ = x.Close()
		return nil, fmt.Errorf("%s: empty sheet", path)
	}
	header, err := rows.Columns()
	if err != nil {
		_ = x.Close()
		return nil, err
	}
	if x.idx, err = buildIndex(header); err != nil {
		_ = x.Close()
		return nil, err
	}
	x.line = 1
	return x, nil
}

func (x *XLSXReader) Next() (Row, error) {
	for x.rows.Next() {
		x.line++
		rec, err := x.rows.Columns()
		if err != nil {
			return Row{}, err
		}
		if len(rec) == 0 {
			continue
		}
		return x.idx.parse(x.line, rec), nil
	}
	if err := x.rows.Error(); err != nil {
		return Row{}, err
	}
	return Row{}, io.EOF
}

func (x *XLSXReader) Close() error {
	if x.rows != nil {
		_ = x.rows.Close()
	}
	return x.f.Close()
}
