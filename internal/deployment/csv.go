package deployment

import (
	"encoding/csv"
	"io"

	apperrors "computor-backend/pkg/errors"
)

// ReadRows parses a header-first CSV stream into column-addressed rows for
// Mapping.Apply. Short records are tolerated; missing cells read as empty.
func ReadRows(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewValidation("malformed csv header: " + err.Error())
	}

	var rows []map[string]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewValidation("malformed csv record: " + err.Error())
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
