package filerecord

import (
	"time"

	"github.com/google/uuid"

	"partner-portal/internal/refdata"
)

// Kind tags the two file record variants. A record is either one authority's
// monthly extract or the roll-up synthesized for a whole consortium.
type Kind int

const (
	KindLocalAuthority Kind = iota
	KindConsortium
)

func (k Kind) String() string {
	if k == KindConsortium {
		return "consortium"
	}
	return "local_authority"
}

// FileRecord is one monthly extract as seen by one user.
type FileRecord struct {
	Kind           Kind       `json:"kind"`
	Code           string     `json:"code"`
	Year           int        `json:"year"`
	Month          int        `json:"month"`
	LastUpdated    time.Time  `json:"last_updated"`
	LastDownloaded *time.Time `json:"last_downloaded,omitempty"`
}

// HasUpdatedSinceLastDownload reports whether the user still has unread data
// in this file. Equal timestamps count as downloaded.
func (r FileRecord) HasUpdatedSinceLastDownload() bool {
	return r.LastDownloaded == nil || r.LastDownloaded.Before(r.LastUpdated)
}

// DisplayName resolves the record's name via the table matching its variant.
func (r FileRecord) DisplayName(tables refdata.Tables) (string, error) {
	if r.Kind == KindConsortium {
		return tables.ConsortiumName(r.Code)
	}
	return tables.AuthorityName(r.Code)
}

// Key returns the record's (code, year, month) download key.
func (r FileRecord) Key() DownloadKey {
	return DownloadKey{Code: r.Code, Year: r.Year, Month: r.Month}
}

// DownloadKey identifies one authority's file for one period.
type DownloadKey struct {
	Code  string
	Year  int
	Month int
}

// DownloadEvent records that a user downloaded one file at one instant.
// Events are append-only; the latest event per (user, key) wins.
type DownloadEvent struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Code         string    `json:"code"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

func (e DownloadEvent) Key() DownloadKey {
	return DownloadKey{Code: e.Code, Year: e.Year, Month: e.Month}
}

// PaginatedResult is one page of the merged, sorted file listing.
type PaginatedResult struct {
	Records                  []FileRecord `json:"records"`
	CurrentPage              int          `json:"current_page"`
	MaxPage                  int          `json:"max_page"`
	UserHasUndownloadedFiles bool         `json:"user_has_undownloaded_files"`
}
