package MinIO

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "835/2025_06.csv", objectKey("835", 2025, 6))
	assert.Equal(t, "650/2024_12.csv", objectKey("650", 2024, 12))
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		key       string
		wantYear  int
		wantMonth int
		wantOK    bool
	}{
		{"well formed", "835", "835/2025_06.csv", 2025, 6, true},
		{"december", "835", "835/2024_12.csv", 2024, 12, true},
		{"round trips objectKey", "650", objectKey("650", 2025, 1), 2025, 1, true},
		{"wrong prefix", "835", "650/2025_06.csv", 0, 0, false},
		{"missing extension", "835", "835/2025_06", 0, 0, false},
		{"wrong extension", "835", "835/2025_06.txt", 0, 0, false},
		{"no separator", "835", "835/202506.csv", 0, 0, false},
		{"extra segments", "835", "835/2025_06_final.csv", 0, 0, false},
		{"month zero", "835", "835/2025_00.csv", 0, 0, false},
		{"month thirteen", "835", "835/2025_13.csv", 0, 0, false},
		{"year not a number", "835", "835/archive_06.csv", 0, 0, false},
		{"nested folder", "835", "835/backup/2025_06.csv", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, month, ok := parseKey(tt.code, tt.key)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantYear, year)
				assert.Equal(t, tt.wantMonth, month)
			}
		})
	}
}
