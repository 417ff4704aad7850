package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"igfollowers/pkg/models"
)

const sheetName = "Followers"

var headers = []string{
	"Username",
	"Followers",
	"Following",
	"Full Name",
	"Verified",
	"Private",
	"Status",
	"Source",
	"Followed At",
}

// WriteWorkbook writes the given records to an Excel workbook, sorted
// by follower count descending. Records without attributes (pending,
// failed) sort last.
func WriteWorkbook(records []models.Follower, path string) error {
	sorted := make([]models.Follower, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return followerCount(sorted[i]) > followerCount(sorted[j])
	})

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, rec := range sorted {
		row := i + 2
		values := []interface{}{
			rec.Username,
			cellInt(rec, func(a *models.ProfileAttributes) int { return a.FollowerCount }),
			cellInt(rec, func(a *models.ProfileAttributes) int { return a.FollowingCount }),
			cellName(rec),
			cellBool(rec, func(a *models.ProfileAttributes) *bool { return a.IsVerified }),
			cellBool(rec, func(a *models.ProfileAttributes) *bool { return a.IsPrivate }),
			string(rec.Status),
			rec.Source,
			cellTime(rec.FollowedAt),
		}
		for col, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	lastCell, _ := excelize.CoordinatesToCellName(len(headers), len(sorted)+1)
	if err := f.AutoFilter(sheetName, "A1:"+lastCell, nil); err != nil {
		return fmt.Errorf("failed to set autofilter: %w", err)
	}

	// Keep the header row visible while scrolling
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.SetColWidth(sheetName, "A", "A", 24); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "D", "D", 30); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	return nil
}

func followerCount(rec models.Follower) int {
	if rec.Attributes == nil {
		return -1
	}
	return rec.Attributes.FollowerCount
}

func cellInt(rec models.Follower, get func(*models.ProfileAttributes) int) interface{} {
	if rec.Attributes == nil {
		return nil
	}
	return get(rec.Attributes)
}

func cellName(rec models.Follower) interface{} {
	if rec.Attributes == nil {
		return nil
	}
	return rec.Attributes.FullName
}

func cellBool(rec models.Follower, get func(*models.ProfileAttributes) *bool) interface{} {
	if rec.Attributes == nil {
		return nil
	}
	b := get(rec.Attributes)
	if b == nil {
		return nil
	}
	return *b
}

func cellTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02 15:04")
}
