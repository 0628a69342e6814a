package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/songtrainer/pkg/models"
)

const progressSheet = "Progress"

var progressHeaders = []string{
	"Track", "Artists", "Year", "Correct guesses", "Streak", "Due in", "Revisions", "Done",
}

// StatsWorkbook renders a user's learning cards as a spreadsheet, one row per
// card. tracks maps track IDs to their metadata; cards without a cached track
// still get a row with the bare ID.
func StatsWorkbook(cards []models.Card, tracks map[string]models.Track) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", progressSheet); err != nil {
		return nil, fmt.Errorf("failed to set up sheet: %v", err)
	}

	for col, header := range progressHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to address header cell: %v", err)
		}
		if err := f.SetCellValue(progressSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %v", err)
		}
	}

	for i, card := range cards {
		name := card.TrackID
		artists := ""
		year := 0
		if track, ok := tracks[card.TrackID]; ok {
			name = track.Name
			artists = strings.Join(track.Artists, ", ")
			year = track.Year
		}
		row := []any{
			name,
			artists,
			year,
			card.CorrectGuesses,
			card.CorrectInRow,
			card.RepeatInN,
			card.Revisions,
			card.IsDone,
		}
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("failed to address cell: %v", err)
			}
			if err := f.SetCellValue(progressSheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %v", i+2, err)
			}
		}
	}

	return f, nil
}
