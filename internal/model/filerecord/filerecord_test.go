package filerecord_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-portal/internal/model/filerecord"
	"partner-portal/internal/refdata"
)

func TestHasUpdatedSinceLastDownload(t *testing.T) {
	updated := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		downloaded *time.Time
		want       bool
	}{
		{"never downloaded", nil, true},
		{"downloaded before update", timePtr(updated.Add(-time.Minute)), true},
		{"downloaded at exactly the update instant", timePtr(updated), false},
		{"downloaded after update", timePtr(updated.Add(time.Minute)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := filerecord.FileRecord{
				LastUpdated:    updated,
				LastDownloaded: tt.downloaded,
			}
			assert.Equal(t, tt.want, record.HasUpdatedSinceLastDownload())
		})
	}
}

func timePtr(at time.Time) *time.Time { return &at }

func TestDisplayName(t *testing.T) {
	tables, err := refdata.NewRegistry(
		map[string]string{"660": "Redditch"},
		map[string]string{"C_0008": "South Worcestershire Consortium"},
		map[string][]string{"C_0008": {"660"}},
	)
	require.NoError(t, err)

	name, err := filerecord.FileRecord{Kind: filerecord.KindLocalAuthority, Code: "660"}.DisplayName(tables)
	require.NoError(t, err)
	assert.Equal(t, "Redditch", name)

	name, err = filerecord.FileRecord{Kind: filerecord.KindConsortium, Code: "C_0008"}.DisplayName(tables)
	require.NoError(t, err)
	assert.Equal(t, "South Worcestershire Consortium", name)

	_, err = filerecord.FileRecord{Kind: filerecord.KindLocalAuthority, Code: "C_0008"}.DisplayName(tables)
	assert.ErrorIs(t, err, refdata.ErrUnknownCode,
		"a consortium code resolved through the authority table misses")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "local_authority", filerecord.KindLocalAuthority.String())
	assert.Equal(t, "consortium", filerecord.KindConsortium.String())
}
