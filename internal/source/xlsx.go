package source

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/geotarget/internal/model"
)

// ParseXLSX reads a workbook held in memory. sheet selects a sheet by name;
// empty means the first sheet.
func ParseXLSX(data []byte, sheet, defaultCountry string) ([]model.AddressMapping, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "source: open xlsx")
	}

	var s *xlsx.Sheet
	switch {
	case sheet != "":
		var ok bool
		if s, ok = f.Sheet[sheet]; !ok {
			return nil, eris.Errorf("source: xlsx sheet %q not found", sheet)
		}
	case len(f.Sheets) > 0:
		s = f.Sheets[0]
	default:
		return nil, eris.New("source: xlsx has no sheets")
	}

	rows := make([][]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.String()
		}
		rows = append(rows, cells)
	}
	return fromRows(rows, defaultCountry)
}
