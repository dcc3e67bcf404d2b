package source

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geotarget/internal/model"
)

// ParseCSV reads delimited text with a header row. comma is ',' for CSV
// and '\t' for TSV.
func ParseCSV(ctx context.Context, r io.Reader, comma rune, defaultCountry string) ([]model.AddressMapping, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("source: no header row")
	}
	if err != nil {
		return nil, eris.Wrap(err, "source: read csv header")
	}
	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var out []model.AddressMapping
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "source: csv cancelled")
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "source: read csv line %d", line)
		}
		if m, ok := cols.mapping(row, defaultCountry); ok {
			out = append(out, m)
		}
	}
	return out, nil
}
