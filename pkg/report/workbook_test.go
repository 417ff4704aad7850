package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"igfollowers/pkg/models"
)

func TestWriteWorkbook(t *testing.T) {
	private := false
	records := []models.Follower{
		{
			Username: "small",
			Status:   models.StatusSuccess,
			Source:   "scraper",
			Attributes: &models.ProfileAttributes{
				FollowerCount:  10,
				FollowingCount: 20,
				FullName:       "Small Account",
			},
		},
		{
			Username: "unresolved",
			Status:   models.StatusPending,
		},
		{
			Username: "big",
			Status:   models.StatusSuccess,
			Source:   "graph_api",
			Attributes: &models.ProfileAttributes{
				FollowerCount:  50000,
				FollowingCount: 100,
				FullName:       "Big Account",
				IsPrivate:      &private,
			},
		},
	}

	path := filepath.Join(t.TempDir(), "followers.xlsx")
	require.NoError(t, WriteWorkbook(records, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus three records")

	assert.Equal(t, "Username", rows[0][0])
	assert.Equal(t, "Followers", rows[0][1])

	// Sorted by follower count descending, unresolved records last.
	assert.Equal(t, "big", rows[1][0])
	assert.Equal(t, "50000", rows[1][1])
	assert.Equal(t, "small", rows[2][0])
	assert.Equal(t, "unresolved", rows[3][0])

	// Unresolved records have no count columns.
	if len(rows[3]) > 1 {
		assert.Empty(t, rows[3][1])
	}
}

func TestWriteWorkbookEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteWorkbook(nil, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}
