// Package filestore implements the ledger store as one growing delimited
// file per campaign.
//
// Layout: <root>/<campaign-id>.ledger, UTF-8, tab-separated, first line the
// order-significant column header from ledger.Columns. Batches are appended
// atomically by writing the whole file to a temp path, syncing, and
// renaming over the original, so a crashed append can never leave a
// half-written batch behind.
package filestore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/franksunye/incentive-ledger/internal/ledger"
)

const fileExt = ".ledger"

var header = strings.Join(ledger.Columns, "\t")

// Store is the delimited-file ledger backend.
//
// A single mutex serializes all file access. That is stricter than the one
// in-flight batch per campaign the engine guarantees, and it keeps
// cross-campaign reads safe without per-campaign bookkeeping.
type Store struct {
	mu   sync.Mutex
	root string
}

// Open creates a file store rooted at dir, creating the directory if
// needed. Campaign files are created lazily on first append.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create root: %w", err)
	}
	return &Store{root: dir}, nil
}

// Close is a no-op; the store holds no open handles between calls.
func (s *Store) Close() error { return nil }

// ExistingContractIDs returns the dedup set for a campaign.
func (s *Store) ExistingContractIDs(ctx context.Context, campaignID string) (map[string]struct{}, error) {
	entries, err := s.Entries(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return ledger.ContractIDSet(entries), nil
}

// PriorAgentTotals rebuilds per-agent aggregates by scanning the campaign
// file. The reconstruction itself is shared with the SQLite backend.
func (s *Store) PriorAgentTotals(ctx context.Context, campaignID string) (map[string]ledger.AgentTotals, error) {
	entries, err := s.Entries(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return ledger.StateFromEntries(entries), nil
}

// Entries returns the campaign's entries in file order, which is append
// order and therefore sequence order.
func (s *Store) Entries(_ context.Context, campaignID string) ([]ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(campaignID)
}

// Append atomically adds a batch of entries.
//
// All entries in one batch must belong to the same campaign. A contract ID
// already present in the file fails the whole batch before anything is
// written; the in-memory dedup gate should have caught it, so a hit here
// means the caller's view of the store is stale.
func (s *Store) Append(_ context.Context, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	campaignID := entries[0].CampaignID
	for _, e := range entries[1:] {
		if e.CampaignID != campaignID {
			return fmt.Errorf("filestore: append: mixed campaigns %q and %q in one batch", campaignID, e.CampaignID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readLocked(campaignID)
	if err != nil {
		return err
	}

	ids := ledger.ContractIDSet(existing)
	for _, e := range entries {
		if _, dup := ids[e.ContractID]; dup {
			return fmt.Errorf("filestore: append: contract %s already recorded for campaign %s", e.ContractID, campaignID)
		}
		ids[e.ContractID] = struct{}{}
	}

	return s.writeLocked(campaignID, append(existing, entries...))
}

// MarkNotified flips the notification status column of one row.
func (s *Store) MarkNotified(_ context.Context, campaignID, contractID, status string) error {
	switch status {
	case ledger.NotificationPending, ledger.NotificationSent, ledger.NotificationFailed:
	default:
		return fmt.Errorf("filestore: mark notified: invalid status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLocked(campaignID)
	if err != nil {
		return err
	}

	found := false
	for i := range entries {
		if entries[i].ContractID == contractID {
			entries[i].NotificationSent = status
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("filestore: mark notified: contract %s not found for campaign %s", contractID, campaignID)
	}

	return s.writeLocked(campaignID, entries)
}

func (s *Store) path(campaignID string) string {
	return filepath.Join(s.root, campaignID+fileExt)
}

func (s *Store) readLocked(campaignID string) ([]ledger.Entry, error) {
	f, err := os.Open(s.path(campaignID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: open %s: %w", campaignID, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("filestore: read %s: %w", campaignID, err)
		}
		return nil, fmt.Errorf("filestore: %s: campaign file exists but is empty", campaignID)
	}
	if scanner.Text() != header {
		return nil, fmt.Errorf("filestore: %s: unexpected header %q", campaignID, scanner.Text())
	}

	var entries []ledger.Entry
	line := 1
	for scanner.Scan() {
		line++
		e, err := ledger.ParseFields(strings.Split(scanner.Text(), "\t"))
		if err != nil {
			return nil, fmt.Errorf("filestore: %s line %d: %w", campaignID, line, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", campaignID, err)
	}
	return entries, nil
}

// writeLocked rewrites the campaign file with the given entries via a temp
// file and an atomic rename.
func (s *Store) writeLocked(campaignID string, entries []ledger.Entry) error {
	tmp, err := os.CreateTemp(s.root, campaignID+".tmp-*")
	if err != nil {
		return fmt.Errorf("filestore: temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after successful rename

	w := bufio.NewWriter(tmp)
	fmt.Fprintln(w, header)
	for _, e := range entries {
		fmt.Fprintln(w, strings.Join(ledger.FieldsOf(e), "\t"))
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: write %s: %w", campaignID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: sync %s: %w", campaignID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: close %s: %w", campaignID, err)
	}
	if err := os.Rename(tmpPath, s.path(campaignID)); err != nil {
		return fmt.Errorf("filestore: rename %s: %w", campaignID, err)
	}
	return nil
}
