package collector

import (
	"strings"
	"time"

	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
)

// KnownTransferConfidence is assigned to every reference-table match
const KnownTransferConfidence = 0.95

// KnownTransfer is one entry of the reference list of ownership changes
type KnownTransfer struct {
	FullName string
	OldOwner string
	NewOwner string
	Type     string
}

// KnownTransfers is the default reference list. Matching is a lookup on the
// repository full name, not an inference.
var KnownTransfers = []KnownTransfer{
	{FullName: "facebook/react", OldOwner: "facebook", NewOwner: "facebook", Type: "Corporate Restructuring"},
	{FullName: "tensorflow/tensorflow", OldOwner: "google", NewOwner: "tensorflow", Type: "Foundation Spin-off"},
	{FullName: "swiftlang/swift", OldOwner: "apple", NewOwner: "swiftlang", Type: "Foundation Transfer"},
}

// DetectTransfers matches repos against table and emits one event per match,
// dated at the snapshot timestamp.
func DetectTransfers(repos []models.RepositoryRecord, table []KnownTransfer, at time.Time) []models.TransferEvent {
	index := make(map[string]KnownTransfer, len(table))
	for _, kt := range table {
		index[strings.ToLower(kt.FullName)] = kt
	}

	events := []models.TransferEvent{}
	for _, repo := range repos {
		kt, ok := index[strings.ToLower(repo.FullName)]
		if !ok {
			continue
		}
		events = append(events, models.TransferEvent{
			RepoID:       repo.ID,
			RepoName:     repo.FullName,
			OldOwner:     kt.OldOwner,
			NewOwner:     kt.NewOwner,
			DetectedType: kt.Type,
			TransferDate: at,
			Confidence:   KnownTransferConfidence,
		})
	}
	return events
}
