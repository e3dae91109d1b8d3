// Package export produces the download shapes the rendering layer serves:
// forecast rows as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/Alias1177/Covidash/models"
)

// ForecastCSVHeader matches the column names of the dashboard's download
// button.
var ForecastCSVHeader = []string{"Date", "Predicted Cases", "Lower Bound", "Upper Bound"}

// ForecastCSV writes one row per forecast date.
func ForecastCSV(w io.Writer, resp *models.ForecastResponse) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ForecastCSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i := range resp.Dates {
		row := []string{
			resp.Dates[i].Format(models.DateLayout),
			strconv.FormatFloat(resp.Forecast[i], 'f', 2, 64),
			strconv.FormatFloat(resp.Lower[i], 'f', 2, 64),
			strconv.FormatFloat(resp.Upper[i], 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
