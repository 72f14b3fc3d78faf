package fileService

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"partner-portal/internal/MinIO"
	"partner-portal/internal/model/filerecord"
	"partner-portal/internal/model/user"
	"partner-portal/internal/refdata"
	"partner-portal/internal/service/entitlement"
)

var (
	// ErrAccessDenied is raised before any storage read when the user's
	// resolved entitlement does not cover the requested code.
	ErrAccessDenied = errors.New("access denied")
	// ErrFileNotFound is returned when no extract is stored for the key.
	ErrFileNotFound = errors.New("file not found")
)

// ExtractStore is the object-storage collaborator.
type ExtractStore interface {
	ListExtracts(ctx context.Context, code string) ([]MinIO.ExtractObject, error)
	ReadExtract(ctx context.Context, code string, year, month int) (io.ReadCloser, error)
	ExtractExists(ctx context.Context, code string, year, month int) (bool, error)
}

// DownloadStore is the download-event collaborator.
type DownloadStore interface {
	LatestByUser(ctx context.Context, userID uuid.UUID) (map[filerecord.DownloadKey]time.Time, error)
	RecordDownload(ctx context.Context, event *filerecord.DownloadEvent) error
}

// FileService builds the per-user extract listing: entitlement resolution,
// consortium roll-up, the combined sort, pagination, and the download path.
type FileService struct {
	extracts     ExtractStore
	downloads    DownloadStore
	entitlements *entitlement.Service
	tables       refdata.Tables
}

func New(
	extracts ExtractStore,
	downloads DownloadStore,
	entitlements *entitlement.Service,
	tables refdata.Tables,
) *FileService {
	return &FileService{
		extracts:     extracts,
		downloads:    downloads,
		entitlements: entitlements,
		tables:       tables,
	}
}

// buildAccessibleFiles queries the extract store for every accessible
// custodian code and annotates each stored (year, month) object with the
// user's most recent download instant. One record per (code, year, month).
func (s *FileService) buildAccessibleFiles(
	ctx context.Context,
	accessibleCodes map[string]struct{},
	lastDownloads map[filerecord.DownloadKey]time.Time,
) ([]filerecord.FileRecord, error) {
	codes := make([]string, 0, len(accessibleCodes))
	for code := range accessibleCodes {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var records []filerecord.FileRecord
	for _, code := range codes {
		extracts, err := s.extracts.ListExtracts(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("listing extracts for %q: %w", code, err)
		}
		for _, extract := range extracts {
			record := filerecord.FileRecord{
				Kind:        filerecord.KindLocalAuthority,
				Code:        code,
				Year:        extract.Year,
				Month:       extract.Month,
				LastUpdated: extract.LastModified,
			}
			if at, ok := lastDownloads[record.Key()]; ok {
				downloaded := at
				record.LastDownloaded = &downloaded
			}
			records = append(records, record)
		}
	}
	return records, nil
}

// rollUpForConsortia synthesizes one consortium-level record per (consortium,
// year, month) group of member records, for consortia the user owns. The
// roll-up is stale as soon as any member is: lastUpdated takes the group max
// while lastDownloaded takes the group min, with a never-downloaded member
// forcing nil.
func (s *FileService) rollUpForConsortia(records []filerecord.FileRecord, u *user.User) []filerecord.FileRecord {
	type groupKey struct {
		consortium string
		year       int
		month      int
	}
	groups := make(map[groupKey][]filerecord.FileRecord)
	for _, record := range records {
		consortium, ok := s.tables.ConsortiumFor(record.Code)
		if !ok {
			continue
		}
		if !u.OwnsConsortium(consortium) {
			continue
		}
		key := groupKey{consortium: consortium, year: record.Year, month: record.Month}
		groups[key] = append(groups[key], record)
	}

	rollUps := make([]filerecord.FileRecord, 0, len(groups))
	for key, group := range groups {
		rollUp := filerecord.FileRecord{
			Kind:  filerecord.KindConsortium,
			Code:  key.consortium,
			Year:  key.year,
			Month: key.month,
		}
		for _, member := range group {
			if member.LastUpdated.After(rollUp.LastUpdated) {
				rollUp.LastUpdated = member.LastUpdated
			}
		}
		rollUp.LastDownloaded = minDownloaded(group)
		rollUps = append(rollUps, rollUp)
	}
	return rollUps
}

// minDownloaded returns the earliest member download instant, or nil when
// any member has never been downloaded.
func minDownloaded(group []filerecord.FileRecord) *time.Time {
	var min *time.Time
	for _, member := range group {
		if member.LastDownloaded == nil {
			return nil
		}
		if min == nil || member.LastDownloaded.Before(*min) {
			at := *member.LastDownloaded
			min = &at
		}
	}
	return min
}

// FileDataForUser returns the user's merged, fully sorted listing:
// consortium roll-ups for owned consortia plus authority-level records for
// directly owned authorities.
func (s *FileService) FileDataForUser(ctx context.Context, u *user.User) ([]filerecord.FileRecord, error) {
	accessible, err := s.entitlements.ResolveAccessibleAuthorityCodes(u)
	if err != nil {
		return nil, err
	}
	lastDownloads, err := s.downloads.LatestByUser(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("loading download history for user %s: %w", u.ID, err)
	}
	authorityRecords, err := s.buildAccessibleFiles(ctx, accessible, lastDownloads)
	if err != nil {
		return nil, err
	}

	merged := s.rollUpForConsortia(authorityRecords, u)
	for _, record := range authorityRecords {
		if u.OwnsAuthority(record.Code) {
			merged = append(merged, record)
		}
	}
	if err := s.sortRecords(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// sortRecords fixes the listing order: newest period first, consortium
// records before authority records within a period, then display name, then
// code. The order is total so pagination is stable.
func (s *FileService) sortRecords(records []filerecord.FileRecord) error {
	names := make(map[string]string, len(records))
	for _, record := range records {
		if _, ok := names[record.Code]; ok {
			continue
		}
		name, err := record.DisplayName(s.tables)
		if err != nil {
			return err
		}
		names[record.Code] = name
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		if a.Kind != b.Kind {
			return a.Kind == filerecord.KindConsortium
		}
		if names[a.Code] != names[b.Code] {
			return names[a.Code] < names[b.Code]
		}
		return a.Code < b.Code
	})
	return nil
}

// PaginatedFileDataForUser filters, slices, and annotates the listing.
// An empty filter means no filtering. Out-of-range page numbers clamp to the
// last page. UserHasUndownloadedFiles is computed over the unfiltered list.
func (s *FileService) PaginatedFileDataForUser(
	ctx context.Context,
	u *user.User,
	codeFilter []string,
	pageNumber, pageSize int,
) (*filerecord.PaginatedResult, error) {
	if pageSize < 1 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	full, err := s.FileDataForUser(ctx, u)
	if err != nil {
		return nil, err
	}

	hasUndownloaded := false
	for _, record := range full {
		if record.HasUpdatedSinceLastDownload() {
			hasUndownloaded = true
			break
		}
	}

	filtered := full
	if len(codeFilter) > 0 {
		wanted := make(map[string]struct{}, len(codeFilter))
		for _, code := range codeFilter {
			wanted[code] = struct{}{}
		}
		filtered = filtered[:0:0]
		for _, record := range full {
			if _, ok := wanted[record.Code]; ok {
				filtered = append(filtered, record)
			}
		}
	}

	maxPage := (len(filtered) + pageSize - 1) / pageSize
	if maxPage < 1 {
		maxPage = 1
	}
	currentPage := pageNumber
	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > maxPage {
		currentPage = maxPage
	}

	start := (currentPage - 1) * pageSize
	end := start + pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return &filerecord.PaginatedResult{
		Records:                  filtered[start:end],
		CurrentPage:              currentPage,
		MaxPage:                  maxPage,
		UserHasUndownloadedFiles: hasUndownloaded,
	}, nil
}

// DownloadExtract streams one extract after an explicit entitlement check.
// For an authority code the object is streamed as-is; for an owned
// consortium code the member extracts for the period are streamed back to
// back, and a download event is recorded per member so the roll-up's
// min-semantics see each one.
func (s *FileService) DownloadExtract(ctx context.Context, u *user.User, code string, year, month int) (io.ReadCloser, error) {
	if s.tables.IsConsortiumCode(code) {
		if !u.OwnsConsortium(code) {
			return nil, ErrAccessDenied
		}
		return s.downloadConsortium(ctx, u, code, year, month)
	}

	accessible, err := s.entitlements.ResolveAccessibleAuthorityCodes(u)
	if err != nil {
		return nil, err
	}
	if _, ok := accessible[code]; !ok {
		return nil, ErrAccessDenied
	}

	reader, err := s.extracts.ReadExtract(ctx, code, year, month)
	if errors.Is(err, MinIO.ErrObjectNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading extract %s/%d/%d: %w", code, year, month, err)
	}
	if err := s.recordDownload(ctx, u.ID, code, year, month); err != nil {
		_ = reader.Close()
		return nil, err
	}
	return reader, nil
}

func (s *FileService) downloadConsortium(ctx context.Context, u *user.User, code string, year, month int) (io.ReadCloser, error) {
	members, err := s.tables.Members(code)
	if err != nil {
		return nil, err
	}
	sort.Strings(members)

	var readers []io.ReadCloser
	var downloaded []string
	for _, member := range members {
		reader, err := s.extracts.ReadExtract(ctx, member, year, month)
		if errors.Is(err, MinIO.ErrObjectNotFound) {
			continue
		}
		if err != nil {
			closeAll(readers)
			return nil, fmt.Errorf("reading extract %s/%d/%d: %w", member, year, month, err)
		}
		readers = append(readers, reader)
		downloaded = append(downloaded, member)
	}
	if len(readers) == 0 {
		return nil, ErrFileNotFound
	}
	for _, member := range downloaded {
		if err := s.recordDownload(ctx, u.ID, member, year, month); err != nil {
			closeAll(readers)
			return nil, err
		}
	}
	return newMultiReadCloser(readers), nil
}

func (s *FileService) recordDownload(ctx context.Context, userID uuid.UUID, code string, year, month int) error {
	event := &filerecord.DownloadEvent{
		ID:           uuid.New(),
		UserID:       userID,
		Code:         code,
		Year:         year,
		Month:        month,
		DownloadedAt: time.Now().UTC(),
	}
	if err := s.downloads.RecordDownload(ctx, event); err != nil {
		return fmt.Errorf("recording download of %s/%d/%d: %w", code, year, month, err)
	}
	return nil
}

func closeAll(readers []io.ReadCloser) {
	for _, r := range readers {
		_ = r.Close()
	}
}

type multiReadCloser struct {
	io.Reader
	closers []io.ReadCloser
}

func newMultiReadCloser(readers []io.ReadCloser) io.ReadCloser {
	rs := make([]io.Reader, len(readers))
	for i, r := range readers {
		rs[i] = r
	}
	return &multiReadCloser{Reader: io.MultiReader(rs...), closers: readers}
}

func (m *multiReadCloser) Close() error {
	var firstErr error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
