// Package calllog records and lists the calls placed by agents. Call logs
// live only in the remote store.
package calllog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/agent-factory/internal/domain"
	"github.com/ashureev/agent-factory/internal/remote"
	"github.com/google/uuid"
)

var (
	// ErrInvalidStatus is returned for an unknown call status.
	ErrInvalidStatus = errors.New("invalid call status")
	// ErrInvalidEntry is returned when required fields are missing.
	ErrInvalidEntry = errors.New("call log needs an agent and a phone number")
)

// Service reads and writes call logs through the remote store.
type Service struct {
	remote remote.Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a call log service.
func NewService(rem remote.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if rem == nil {
		rem = remote.Disabled{}
	}
	return &Service{remote: rem, logger: logger, now: time.Now}
}

// List returns agentID's calls, newest first. A remote failure yields an
// empty list.
func (s *Service) List(ctx context.Context, agentID string) []domain.CallLogEntry {
	logs, err := s.remote.ListCallLogs(ctx, agentID)
	if err != nil {
		s.logger.Warn("Failed to fetch call logs", "agent_id", agentID, "error", err)
		return []domain.CallLogEntry{}
	}
	if logs == nil {
		logs = []domain.CallLogEntry{}
	}
	return logs
}

// Add validates and stores entry, assigning its id and creation time.
func (s *Service) Add(ctx context.Context, entry domain.CallLogEntry) (domain.CallLogEntry, error) {
	if entry.Status == "" {
		entry.Status = domain.CallCompleted
	}
	if !entry.Status.Valid() {
		return domain.CallLogEntry{}, fmt.Errorf("%w: %q", ErrInvalidStatus, entry.Status)
	}
	if entry.AgentID == "" || strings.TrimSpace(entry.PhoneNumber) == "" {
		return domain.CallLogEntry{}, ErrInvalidEntry
	}
	if entry.Duration < 0 {
		entry.Duration = 0
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = s.now().UTC()

	if err := s.remote.CreateCallLog(ctx, entry); err != nil {
		s.logger.Error("Failed to create call log", "agent_id", entry.AgentID, "error", err)
		return domain.CallLogEntry{}, fmt.Errorf("create call log: %w", err)
	}
	return entry, nil
}

var csvHeader = []string{"id", "agent_id", "phone_number", "duration", "status", "created_at", "transcript"}

// WriteCSV writes logs as CSV with a header row.
func WriteCSV(w io.Writer, logs []domain.CallLogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range logs {
		record := []string{
			l.ID,
			l.AgentID,
			l.PhoneNumber,
			strconv.Itoa(l.Duration),
			string(l.Status),
			l.CreatedAt.UTC().Format(time.RFC3339),
			l.Transcript,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// RecentCall is a call log entry labelled with its agent, as shown on the
// call center board.
type RecentCall struct {
	domain.CallLogEntry
	AgentName       string `json:"agentName"`
	DurationDisplay string `json:"durationDisplay"`
}

// DefaultRecentLimit is the size of the call center board.
const DefaultRecentLimit = 10

// Recent merges the calls of every agent, newest first, and keeps the first
// limit entries. Agents whose logs cannot be fetched are skipped.
func (s *Service) Recent(ctx context.Context, agents []domain.Agent, limit int) []RecentCall {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	var all []RecentCall
	for _, a := range agents {
		logs, err := s.remote.ListCallLogs(ctx, a.ID)
		if err != nil {
			s.logger.Warn("Failed to load logs for agent", "agent_id", a.ID, "error", err)
			continue
		}
		for _, l := range logs {
			all = append(all, RecentCall{
				CallLogEntry:    l,
				AgentName:       a.Name,
				DurationDisplay: FormatDuration(l.Duration),
			})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	if all == nil {
		all = []RecentCall{}
	}
	return all
}

// FormatDuration renders seconds as "45s" or "2m 5s".
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0s"
	}
	mins, secs := seconds/60, seconds%60
	if mins > 0 {
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	return fmt.Sprintf("%ds", secs)
}
